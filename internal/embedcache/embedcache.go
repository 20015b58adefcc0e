// Package embedcache persists embedding vectors in SQLite so repeated
// merges of the same material skip the provider entirely. Entries are
// keyed by model and text digest; the cache is shared between processes,
// with a file lock serializing writers.
package embedcache

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
	_ "modernc.org/sqlite"

	"subweave/internal/align"
)

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

const schema = `
CREATE TABLE IF NOT EXISTS embeddings (
	model      TEXT    NOT NULL,
	text_hash  TEXT    NOT NULL,
	dim        INTEGER NOT NULL,
	vector     BLOB    NOT NULL,
	created_at INTEGER NOT NULL,
	PRIMARY KEY (model, text_hash)
);
`

// Cache is a persistent embedding store.
type Cache struct {
	db   *sql.DB
	path string
	lock *flock.Flock
}

// Open initializes or connects to the cache database under dir, creating
// the directory as needed.
func Open(dir string) (*Cache, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("embedcache: directory required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("embedcache: create directory: %w", err)
	}

	dbPath := filepath.Join(dir, "embeddings.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("embedcache: open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("embedcache: apply pragma %q: %w", pragma, execErr)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("embedcache: init schema: %w", err)
	}

	return &Cache{
		db:   db,
		path: dbPath,
		lock: flock.New(filepath.Join(dir, "embeddings.lock")),
	}, nil
}

// Close closes the underlying database connection.
func (c *Cache) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

// Path returns the database file path.
func (c *Cache) Path() string { return c.path }

func hashText(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

func encodeVector(v []float64) []byte {
	buf := make([]byte, 8*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint64(buf[8*i:], math.Float64bits(f))
	}
	return buf
}

func decodeVector(buf []byte, dim int) ([]float64, error) {
	if len(buf) != 8*dim {
		return nil, fmt.Errorf("embedcache: vector blob is %d bytes, want %d", len(buf), 8*dim)
	}
	v := make([]float64, dim)
	for i := range v {
		v[i] = math.Float64frombits(binary.LittleEndian.Uint64(buf[8*i:]))
	}
	return v, nil
}

// Get returns the cached vectors for the given texts, keyed by text.
// Missing texts are simply absent from the result.
func (c *Cache) Get(ctx context.Context, model string, texts []string) (map[string][]float64, error) {
	ctx = ensureContext(ctx)
	out := make(map[string][]float64, len(texts))
	stmt := `SELECT dim, vector FROM embeddings WHERE model = ? AND text_hash = ?`
	for _, text := range texts {
		if _, ok := out[text]; ok {
			continue
		}
		var (
			dim  int
			blob []byte
		)
		err := c.db.QueryRowContext(ctx, stmt, model, hashText(text)).Scan(&dim, &blob)
		if errors.Is(err, sql.ErrNoRows) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("embedcache: lookup: %w", err)
		}
		vec, err := decodeVector(blob, dim)
		if err != nil {
			return nil, err
		}
		out[text] = vec
	}
	return out, nil
}

// Put stores vectors for the given model, overwriting existing entries.
// Writers across processes are serialized with the cache's file lock.
func (c *Cache) Put(ctx context.Context, model string, vectors map[string][]float64) error {
	if len(vectors) == 0 {
		return nil
	}
	ctx = ensureContext(ctx)
	if err := c.lock.Lock(); err != nil {
		return fmt.Errorf("embedcache: acquire lock: %w", err)
	}
	defer func() { _ = c.lock.Unlock() }()

	now := time.Now().Unix()
	stmt := `INSERT OR REPLACE INTO embeddings (model, text_hash, dim, vector, created_at) VALUES (?, ?, ?, ?, ?)`
	for text, vec := range vectors {
		err := retryOnBusy(ctx, func() error {
			_, execErr := c.db.ExecContext(ctx, stmt, model, hashText(text), len(vec), encodeVector(vec), now)
			return execErr
		})
		if err != nil {
			return fmt.Errorf("embedcache: store: %w", err)
		}
	}
	return nil
}

// Prune deletes entries older than the given age and reports how many
// rows were removed.
func (c *Cache) Prune(ctx context.Context, olderThan time.Duration) (int64, error) {
	ctx = ensureContext(ctx)
	cutoff := time.Now().Add(-olderThan).Unix()
	var removed int64
	err := retryOnBusy(ctx, func() error {
		res, execErr := c.db.ExecContext(ctx, `DELETE FROM embeddings WHERE created_at < ?`, cutoff)
		if execErr != nil {
			return execErr
		}
		removed, _ = res.RowsAffected()
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("embedcache: prune: %w", err)
	}
	return removed, nil
}

// Len reports the number of cached entries across all models.
func (c *Cache) Len(ctx context.Context) (int, error) {
	ctx = ensureContext(ctx)
	var n int
	if err := c.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM embeddings`).Scan(&n); err != nil {
		return 0, fmt.Errorf("embedcache: count: %w", err)
	}
	return n, nil
}

// Wrap decorates an embedder with this cache: batch lookups are served
// from SQLite where possible and fresh vectors are written back.
func (c *Cache) Wrap(model string, next align.Embedder) align.Embedder {
	return align.EmbedderFunc(func(ctx context.Context, batch []string) ([][]float64, error) {
		cached, err := c.Get(ctx, model, batch)
		if err != nil {
			return nil, err
		}

		var missing []string
		seen := make(map[string]struct{})
		for _, text := range batch {
			if _, ok := cached[text]; ok {
				continue
			}
			if _, ok := seen[text]; ok {
				continue
			}
			seen[text] = struct{}{}
			missing = append(missing, text)
		}

		if len(missing) > 0 {
			vectors, err := next.Embed(ctx, missing)
			if err != nil {
				return nil, err
			}
			if len(vectors) != len(missing) {
				return nil, fmt.Errorf("embedcache: provider returned %d vectors for %d inputs", len(vectors), len(missing))
			}
			fresh := make(map[string][]float64, len(missing))
			for i, text := range missing {
				cached[text] = vectors[i]
				fresh[text] = vectors[i]
			}
			if err := c.Put(ctx, model, fresh); err != nil {
				return nil, err
			}
		}

		out := make([][]float64, len(batch))
		for i, text := range batch {
			out[i] = cached[text]
		}
		return out, nil
	})
}

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

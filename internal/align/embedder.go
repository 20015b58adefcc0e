package align

import (
	"context"
	"fmt"

	"gonum.org/v1/gonum/floats"

	"subweave/internal/services"
)

// DefaultBatchSize is the embedding batch size used when the caller does
// not configure one.
const DefaultBatchSize = 32

// Embedder turns a batch of short texts into fixed-length vectors, one per
// input in order. The engine treats it as a black box and only consumes
// cosine similarity between outputs.
type Embedder interface {
	Embed(ctx context.Context, batch []string) ([][]float64, error)
}

// EmbedderFunc adapts a function to the Embedder interface.
type EmbedderFunc func(ctx context.Context, batch []string) ([][]float64, error)

func (f EmbedderFunc) Embed(ctx context.Context, batch []string) ([][]float64, error) {
	return f(ctx, batch)
}

// Cosine returns the cosine similarity of two vectors, 0 when either has
// zero norm or the lengths differ.
func Cosine(a, b []float64) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	na := floats.Norm(a, 2)
	nb := floats.Norm(b, 2)
	if na == 0 || nb == 0 {
		return 0
	}
	return floats.Dot(a, b) / (na * nb)
}

// scorer memoizes embeddings per distinct token string for the duration of
// one alignment run, issuing provider calls in batches with cancellation
// polled between batches.
type scorer struct {
	embedder  Embedder
	batchSize int
	cancel    *CancelFlag
	cache     map[string][]float64
}

func newScorer(embedder Embedder, batchSize int, cancel *CancelFlag) *scorer {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &scorer{
		embedder:  embedder,
		batchSize: batchSize,
		cancel:    cancel,
		cache:     make(map[string][]float64),
	}
}

// vectors returns one embedding per input text, in order. onBatch, if
// non-nil, is invoked after each provider call with the number of distinct
// texts resolved so far and the total to resolve.
func (s *scorer) vectors(ctx context.Context, stage string, texts []string, onBatch func(done, total int)) ([][]float64, error) {
	var missing []string
	seen := make(map[string]struct{})
	for _, text := range texts {
		if _, ok := s.cache[text]; ok {
			continue
		}
		if _, ok := seen[text]; ok {
			continue
		}
		seen[text] = struct{}{}
		missing = append(missing, text)
	}

	for start := 0; start < len(missing); start += s.batchSize {
		if s.cancel.Cancelled() {
			return nil, services.Wrap(services.ErrCancelled, stage, "embed", "stopped before batch", nil)
		}
		if err := ctx.Err(); err != nil {
			return nil, services.Wrap(services.ErrCancelled, stage, "embed", "context done", err)
		}
		end := min(start+s.batchSize, len(missing))
		batch := missing[start:end]
		vecs, err := s.embedder.Embed(ctx, batch)
		if err != nil {
			return nil, services.Wrap(services.ErrProvider, stage, "embed", "provider call failed", err)
		}
		if len(vecs) != len(batch) {
			return nil, services.Wrap(services.ErrProvider, stage, "embed",
				fmt.Sprintf("provider returned %d vectors for %d inputs", len(vecs), len(batch)), nil)
		}
		for i, text := range batch {
			s.cache[text] = vecs[i]
		}
		if onBatch != nil {
			onBatch(end, len(missing))
		}
	}

	out := make([][]float64, len(texts))
	for i, text := range texts {
		out[i] = s.cache[text]
	}
	return out, nil
}

// similarity embeds both texts (served from cache when possible) and
// returns their cosine similarity.
func (s *scorer) similarity(ctx context.Context, stage, a, b string) (float64, error) {
	vecs, err := s.vectors(ctx, stage, []string{a, b}, nil)
	if err != nil {
		return 0, err
	}
	return Cosine(vecs[0], vecs[1]), nil
}

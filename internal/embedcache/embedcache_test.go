package embedcache

import (
	"context"
	"testing"
	"time"

	"subweave/internal/align"
)

func openTestCache(t *testing.T) *Cache {
	t.Helper()
	cache, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = cache.Close() })
	return cache
}

func TestPutGetRoundTrip(t *testing.T) {
	cache := openTestCache(t)
	ctx := context.Background()

	vectors := map[string][]float64{
		"hello": {0.25, -1.5, 3},
		"world": {1, 0},
	}
	if err := cache.Put(ctx, "labse", vectors); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, err := cache.Get(ctx, "labse", []string{"hello", "world", "missing"})
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d entries, want 2", len(got))
	}
	for text, want := range vectors {
		vec, ok := got[text]
		if !ok || len(vec) != len(want) {
			t.Fatalf("entry %q missing or wrong length: %v", text, vec)
		}
		for i := range want {
			if vec[i] != want[i] {
				t.Fatalf("entry %q component %d = %v, want %v", text, i, vec[i], want[i])
			}
		}
	}
}

func TestGetIsModelScoped(t *testing.T) {
	cache := openTestCache(t)
	ctx := context.Background()

	if err := cache.Put(ctx, "model-a", map[string][]float64{"text": {1}}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, err := cache.Get(ctx, "model-b", []string{"text"})
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("cross-model lookup returned %v", got)
	}
}

func TestPutOverwrites(t *testing.T) {
	cache := openTestCache(t)
	ctx := context.Background()

	if err := cache.Put(ctx, "m", map[string][]float64{"t": {1}}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := cache.Put(ctx, "m", map[string][]float64{"t": {2, 3}}); err != nil {
		t.Fatalf("Put overwrite: %v", err)
	}
	got, err := cache.Get(ctx, "m", []string{"t"})
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(got["t"]) != 2 || got["t"][0] != 2 {
		t.Fatalf("overwrite lost: %v", got["t"])
	}
	n, err := cache.Len(ctx)
	if err != nil {
		t.Fatalf("Len: %v", err)
	}
	if n != 1 {
		t.Fatalf("Len = %d, want 1", n)
	}
}

func TestPrune(t *testing.T) {
	cache := openTestCache(t)
	ctx := context.Background()

	if err := cache.Put(ctx, "m", map[string][]float64{"t": {1}}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	removed, err := cache.Prune(ctx, time.Hour)
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if removed != 0 {
		t.Fatalf("fresh entry pruned")
	}
	removed, err = cache.Prune(ctx, -time.Hour)
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if removed != 1 {
		t.Fatalf("Prune removed %d, want 1", removed)
	}
}

func TestWrapServesFromCache(t *testing.T) {
	cache := openTestCache(t)
	ctx := context.Background()

	calls := 0
	provider := align.EmbedderFunc(func(_ context.Context, batch []string) ([][]float64, error) {
		calls++
		out := make([][]float64, len(batch))
		for i := range batch {
			out[i] = []float64{float64(len(batch[i]))}
		}
		return out, nil
	})
	wrapped := cache.Wrap("m", provider)

	first, err := wrapped.Embed(ctx, []string{"aa", "bbb"})
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if calls != 1 {
		t.Fatalf("provider calls = %d, want 1", calls)
	}
	second, err := wrapped.Embed(ctx, []string{"aa", "bbb"})
	if err != nil {
		t.Fatalf("Embed (cached): %v", err)
	}
	if calls != 1 {
		t.Fatalf("cached batch hit the provider, calls = %d", calls)
	}
	for i := range first {
		if first[i][0] != second[i][0] {
			t.Fatalf("cached vector differs at %d: %v vs %v", i, first[i], second[i])
		}
	}
}

func TestWrapOnlyEmbedsMissing(t *testing.T) {
	cache := openTestCache(t)
	ctx := context.Background()

	if err := cache.Put(ctx, "m", map[string][]float64{"known": {42}}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	var lastBatch []string
	provider := align.EmbedderFunc(func(_ context.Context, batch []string) ([][]float64, error) {
		lastBatch = batch
		out := make([][]float64, len(batch))
		for i := range batch {
			out[i] = []float64{1}
		}
		return out, nil
	})
	out, err := cache.Wrap("m", provider).Embed(ctx, []string{"known", "new"})
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(lastBatch) != 1 || lastBatch[0] != "new" {
		t.Fatalf("provider saw %v, want only the missing text", lastBatch)
	}
	if out[0][0] != 42 || out[1][0] != 1 {
		t.Fatalf("merged output wrong: %v", out)
	}
}

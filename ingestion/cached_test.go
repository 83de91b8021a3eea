package ingestion

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/mus-format/mus-go/varint"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/knownet/ai"
	"github.com/poiesic/knownet/ai/mock"
	"github.com/poiesic/knownet/core"
	"github.com/poiesic/knownet/storage"
	"github.com/poiesic/knownet/storage/badger"
)

func newMemCache(t *testing.T, component string) storage.Cache {
	t.Helper()
	c, err := badger.NewMemoryCache(component, "mock")
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

// brokenCache fails every operation.
type brokenCache struct{}

var errDisk = errors.New("disk on fire")

func (brokenCache) Namespace() storage.Namespace {
	return storage.Namespace{Component: "broken", Model: "x"}
}
func (brokenCache) Contains(context.Context, string) (bool, error) { return false, errDisk }
func (brokenCache) Get(context.Context, string) ([]byte, error) { return nil, errDisk }
func (brokenCache) Set(context.Context, string, []byte) error { return errDisk }
func (brokenCache) Clear(context.Context) error { return errDisk }
func (brokenCache) Close() error { return nil }

func TestNewCached_Validation(t *testing.T) {
	_, err := NewCachedEmbedder(nil, nil)
	assert.ErrorIs(t, err, ErrEmbedderRequired)

	_, err = NewCachedExtractor(nil, nil)
	assert.ErrorIs(t, err, ErrExtractorRequired)

	_, err = NewCachedEmbedder(mock.NewMockEmbedder(), nil, WithBatchSize(0))
	assert.Error(t, err)

	_, err = NewCachedExtractor(mock.NewMockTripleExtractor(), nil, WithExtractConcurrency(0))
	assert.ErrorIs(t, err, ErrInvalidPoolSize)
}

func TestCachedEmbedder_MissThenHit(t *testing.T) {
	ctx := context.Background()
	inner := mock.NewMockEmbedder().WithVector("Tesla", []float32{1, 0, 0})
	cache := newMemCache(t, ai.ComponentEmbedder)

	ce, err := NewCachedEmbedder(inner, cache)
	require.NoError(t, err)
	defer ce.Close()

	v, err := ce.EmbedText(ctx, "Tesla")
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 0, 0}, v)
	calls := inner.CallCount()

	ok, err := cache.Contains(ctx, "Tesla")
	require.NoError(t, err)
	assert.True(t, ok)

	v, err = ce.EmbedText(ctx, "Tesla")
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 0, 0}, v)
	assert.Equal(t, calls, inner.CallCount(), "second lookup is served from the cache")

	stats := ce.Stats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, inner.Descriptor(), ce.Descriptor())
}

func TestCachedEmbedder_SurvivesNewWrapper(t *testing.T) {
	ctx := context.Background()
	cache := newMemCache(t, ai.ComponentEmbedder)

	first, err := NewCachedEmbedder(mock.NewMockEmbedder(), cache)
	require.NoError(t, err)
	want, err := first.EmbedText(ctx, "SpaceX")
	require.NoError(t, err)
	require.NoError(t, first.Close())

	inner := mock.NewMockEmbedder()
	inner.EmbedTextsFunc = func(context.Context, []string) ([][]float32, error) {
		return nil, errors.New("must not be called")
	}
	second, err := NewCachedEmbedder(inner, cache)
	require.NoError(t, err)
	defer second.Close()

	got, err := second.EmbedText(ctx, "SpaceX")
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.Zero(t, inner.CallCount())
}

func TestCachedEmbedder_BatchesMisses(t *testing.T) {
	inner := mock.NewMockEmbedder()
	ce, err := NewCachedEmbedder(inner, nil, WithBatchSize(8))
	require.NoError(t, err)
	defer ce.Close()

	texts := make([]string, 40)
	for i := range texts {
		texts[i] = fmt.Sprintf("entity %d", i)
	}
	vecs, err := ce.EmbedTexts(context.Background(), texts)
	require.NoError(t, err)
	require.Len(t, vecs, 40)
	for i, v := range vecs {
		assert.Len(t, v, 384, "vector %d", i)
	}

	total := 0
	for _, n := range inner.BatchSizes() {
		assert.LessOrEqual(t, n, 8)
		total += n
	}
	assert.Equal(t, 40, total)
	assert.Equal(t, int64(40), ce.BatchStats().Items)
}

func TestCachedEmbedder_TruncatesOversizeInput(t *testing.T) {
	ctx := context.Background()
	tooLarge := func(text string) error {
		if len(text) > 10 {
			return fmt.Errorf("%w: %d chars", ai.ErrInputTooLarge, len(text))
		}
		return nil
	}
	inner := mock.NewMockEmbedder()
	var seen atomic.Value
	inner.EmbedTextsFunc = func(_ context.Context, texts []string) ([][]float32, error) {
		out := make([][]float32, len(texts))
		for i, text := range texts {
			if err := tooLarge(text); err != nil {
				return nil, err
			}
			seen.Store(text)
			out[i] = []float32{float32(len(text)), 1}
		}
		return out, nil
	}
	cache := newMemCache(t, ai.ComponentEmbedder)

	ce, err := NewCachedEmbedder(inner, cache, WithMaxInputChars(10))
	require.NoError(t, err)
	defer ce.Close()

	long := strings.Repeat("x", 30)
	v, err := ce.EmbedText(ctx, long)
	require.NoError(t, err)
	assert.Equal(t, []float32{10, 1}, v)
	assert.Equal(t, strings.Repeat("x", 10), seen.Load())
	assert.Equal(t, int64(1), ce.Stats().Truncated)

	// Cached under the original text.
	v, err = ce.EmbedText(ctx, long)
	require.NoError(t, err)
	assert.Equal(t, []float32{10, 1}, v)
	assert.Equal(t, int64(1), ce.Stats().Hits)
}

func TestCachedEmbedder_TruncatesOnlyOnce(t *testing.T) {
	inner := mock.NewMockEmbedder()
	inner.EmbedTextsFunc = func(context.Context, []string) ([][]float32, error) {
		return nil, ai.ErrInputTooLarge
	}
	ce, err := NewCachedEmbedder(inner, nil)
	require.NoError(t, err)
	defer ce.Close()

	_, err = ce.EmbedText(context.Background(), "anything at all")
	assert.ErrorIs(t, err, ai.ErrInputTooLarge)
	assert.Equal(t, 2, inner.CallCount(), "original plus one truncated retry")
}

func TestCachedEmbedder_OversizeBatchIsolatesItem(t *testing.T) {
	inner := mock.NewMockEmbedder()
	inner.EmbedTextsFunc = func(context.Context, []string) ([][]float32, error) {
		return nil, ai.ErrInputTooLarge
	}
	inner.EmbedTextFunc = func(_ context.Context, text string) ([]float32, error) {
		if text == "huge" {
			return nil, ai.ErrInputTooLarge
		}
		return []float32{1}, nil
	}
	ce, err := NewCachedEmbedder(inner, nil)
	require.NoError(t, err)
	defer ce.Close()

	out, err := ce.embedBatch(context.Background(), []string{"ok", "huge", "fine"})
	require.NoError(t, err)
	require.Len(t, out, 3)
	assert.NoError(t, out[0].err)
	assert.ErrorIs(t, out[1].err, ai.ErrInputTooLarge)
	assert.NoError(t, out[2].err)
	assert.Equal(t, []float32{1}, out[2].val)
}

func TestCachedEmbedder_CacheErrorsFallBack(t *testing.T) {
	ce, err := NewCachedEmbedder(mock.NewMockEmbedder(), brokenCache{})
	require.NoError(t, err)
	defer ce.Close()

	v, err := ce.EmbedText(context.Background(), "Tesla")
	require.NoError(t, err)
	assert.Len(t, v, 384)

	stats := ce.Stats()
	assert.Equal(t, int64(2), stats.CacheErrors, "one failed read and one failed write")
	assert.Equal(t, int64(1), stats.Misses)
}

func TestCachedEmbedder_CorruptEntryRecomputed(t *testing.T) {
	ctx := context.Background()
	cache := newMemCache(t, ai.ComponentEmbedder)
	require.NoError(t, cache.Set(ctx, "Tesla", []byte{0xff}))

	inner := mock.NewMockEmbedder().WithVector("Tesla", []float32{1, 2})
	ce, err := NewCachedEmbedder(inner, cache)
	require.NoError(t, err)
	defer ce.Close()

	v, err := ce.EmbedText(ctx, "Tesla")
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 2}, v)
	assert.Equal(t, int64(1), ce.Stats().CacheErrors)
}

func TestCachedEmbedder_OversizedLengthRecordRecomputed(t *testing.T) {
	ctx := context.Background()
	cache := newMemCache(t, ai.ComponentEmbedder)
	bad := make([]byte, varint.Int.Size(1<<62))
	varint.Int.Marshal(1<<62, bad)
	require.NoError(t, cache.Set(ctx, "Tesla", bad))

	inner := mock.NewMockEmbedder().WithVector("Tesla", []float32{1, 2})
	ce, err := NewCachedEmbedder(inner, cache)
	require.NoError(t, err)
	defer ce.Close()

	v, err := ce.EmbedText(ctx, "Tesla")
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 2}, v)
	assert.Equal(t, int64(1), ce.Stats().CacheErrors)
	assert.Equal(t, int64(1), ce.Stats().Misses)

	again, err := ce.EmbedText(ctx, "Tesla")
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 2}, again)
	assert.Equal(t, int64(1), ce.Stats().Hits, "recomputed value replaced the corrupt record")
}

func TestCachedEmbedder_CallerCancel(t *testing.T) {
	release := make(chan struct{})
	inner := mock.NewMockEmbedder()
	inner.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		<-release
		return make([][]float32, len(texts)), nil
	}
	ce, err := NewCachedEmbedder(inner, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = ce.EmbedText(ctx, "slow")
	assert.ErrorIs(t, err, context.Canceled)

	close(release)
	require.NoError(t, ce.Close())
}

func TestCachedEmbedder_CancelledLookupNotACacheError(t *testing.T) {
	inner := mock.NewMockEmbedder()
	ce, err := NewCachedEmbedder(inner, newMemCache(t, ai.ComponentEmbedder))
	require.NoError(t, err)
	defer ce.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = ce.EmbedText(ctx, "Tesla")
	assert.ErrorIs(t, err, context.Canceled)

	stats := ce.Stats()
	assert.Zero(t, stats.CacheErrors)
	assert.Zero(t, stats.Misses)
	assert.Equal(t, 0, inner.CallCount())
}

func TestCachedExtractor_MissThenHit(t *testing.T) {
	ctx := context.Background()
	inner := mock.NewMockTripleExtractor().WithResponse("Tesla makes cars.",
		core.Triple{Subject: "Tesla", Predicate: "makes", Object: "cars"})
	cache := newMemCache(t, ai.ComponentTripleExtractor)

	ce, err := NewCachedExtractor(inner, cache)
	require.NoError(t, err)
	defer ce.Close()

	for range 3 {
		triples, err := ce.ExtractTriples(ctx, "Tesla makes cars.")
		require.NoError(t, err)
		assert.Equal(t, []core.Triple{{Subject: "Tesla", Predicate: "makes", Object: "cars"}}, triples)
	}
	assert.Equal(t, 1, inner.CallCount())
	assert.Equal(t, int64(2), ce.Stats().Hits)

	// Empty results are cached too.
	triples, err := ce.ExtractTriples(ctx, "nothing here")
	require.NoError(t, err)
	assert.Empty(t, triples)
	_, err = ce.ExtractTriples(ctx, "nothing here")
	require.NoError(t, err)
	assert.Equal(t, 2, inner.CallCount())
}

func TestCachedExtractor_FailuresNotCached(t *testing.T) {
	ctx := context.Background()
	var fail atomic.Bool
	fail.Store(true)
	inner := mock.NewMockTripleExtractor()
	inner.ExtractTriplesFunc = func(_ context.Context, text string) ([]core.Triple, error) {
		if fail.Load() {
			return nil, errors.New("model timeout")
		}
		return []core.Triple{{Subject: "a", Predicate: "b", Object: "c"}}, nil
	}
	ce, err := NewCachedExtractor(inner, newMemCache(t, ai.ComponentTripleExtractor))
	require.NoError(t, err)
	defer ce.Close()

	_, err = ce.ExtractTriples(ctx, "text")
	assert.Error(t, err)

	fail.Store(false)
	triples, err := ce.ExtractTriples(ctx, "text")
	require.NoError(t, err)
	assert.Len(t, triples, 1)
	assert.Equal(t, 2, inner.CallCount())
}

func TestCachedExtractor_BatchIsolatesFailures(t *testing.T) {
	inner := mock.NewMockTripleExtractor()
	inner.ExtractTriplesFunc = func(_ context.Context, text string) ([]core.Triple, error) {
		if text == "bad" {
			return nil, errors.New("parse failure")
		}
		return []core.Triple{{Subject: text, Predicate: "is", Object: "ok"}}, nil
	}
	ce, err := NewCachedExtractor(inner, nil, WithExtractConcurrency(2))
	require.NoError(t, err)
	defer ce.Close()

	out, err := ce.extractBatch(context.Background(), []string{"one", "bad", "two"})
	require.NoError(t, err)
	require.Len(t, out, 3)
	assert.NoError(t, out[0].err)
	assert.Error(t, out[1].err)
	assert.Equal(t, "two", out[2].val[0].Subject)
}

func TestCachedExtractor_Truncates(t *testing.T) {
	inner := mock.NewMockTripleExtractor()
	inner.ExtractTriplesFunc = func(_ context.Context, text string) ([]core.Triple, error) {
		if len(text) > 8 {
			return nil, ai.ErrInputTooLarge
		}
		return []core.Triple{{Subject: text, Predicate: "p", Object: "o"}}, nil
	}
	ce, err := NewCachedExtractor(inner, nil, WithMaxInputChars(8))
	require.NoError(t, err)
	defer ce.Close()

	triples, err := ce.ExtractTriples(context.Background(), "abcdefghijklmnop")
	require.NoError(t, err)
	require.Len(t, triples, 1)
	assert.Equal(t, "abcdefgh", triples[0].Subject)
	assert.Equal(t, int64(1), ce.Stats().Truncated)
}

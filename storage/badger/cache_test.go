package badger

import (
	"context"
	"sync"
	"testing"

	"github.com/poiesic/knownet/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCache_SetGet(t *testing.T) {
	cache, err := NewMemoryCache("embedder", "test-model")
	require.NoError(t, err)
	defer cache.Close()

	ctx := context.Background()
	require.NoError(t, cache.Set(ctx, "tesla", []byte("payload")))

	got, err := cache.Get(ctx, "tesla")
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), got)

	ok, err := cache.Contains(ctx, "tesla")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCache_GetMissing(t *testing.T) {
	cache, err := NewMemoryCache("embedder", "test-model")
	require.NoError(t, err)
	defer cache.Close()

	ctx := context.Background()
	_, err = cache.Get(ctx, "absent")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	ok, err := cache.Contains(ctx, "absent")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCache_Clear(t *testing.T) {
	cache, err := NewMemoryCache("triple_extractor", "test-model")
	require.NoError(t, err)
	defer cache.Close()

	ctx := context.Background()
	require.NoError(t, cache.Set(ctx, "a", []byte("1")))
	require.NoError(t, cache.Set(ctx, "b", []byte("2")))
	require.NoError(t, cache.Clear(ctx))

	_, err = cache.Get(ctx, "a")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestCache_Closed(t *testing.T) {
	cache, err := NewMemoryCache("embedder", "test-model")
	require.NoError(t, err)
	require.NoError(t, cache.Close())
	require.NoError(t, cache.Close())

	_, err = cache.Get(context.Background(), "a")
	assert.ErrorIs(t, err, storage.ErrStorageClosed)
}

func TestCache_InvalidNamespace(t *testing.T) {
	_, err := OpenCache("", storage.Namespace{Component: "embedder"}, WithInMemory())
	assert.ErrorIs(t, err, storage.ErrInvalidNamespace)
}

func TestCache_PersistsAcrossReopen(t *testing.T) {
	root := t.TempDir()
	ns := storage.Namespace{Component: "embedder", Model: "openai/text-embedding-3-small"}
	ctx := context.Background()

	cache, err := OpenCache(root, ns)
	require.NoError(t, err)
	require.NoError(t, cache.Set(ctx, "tesla", storage.MarshalEmbedding([]float32{1, 0})))
	require.NoError(t, cache.Close())

	cache, err = OpenCache(root, ns)
	require.NoError(t, err)
	defer cache.Close()

	data, err := cache.Get(ctx, "tesla")
	require.NoError(t, err)
	vec, err := storage.UnmarshalEmbedding(data)
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 0}, vec)
}

func TestCache_NamespacesAreIsolated(t *testing.T) {
	root := t.TempDir()
	ctx := context.Background()

	a, err := OpenCache(root, storage.Namespace{Component: "embedder", Model: "model-a"})
	require.NoError(t, err)
	defer a.Close()
	b, err := OpenCache(root, storage.Namespace{Component: "embedder", Model: "model-b"})
	require.NoError(t, err)
	defer b.Close()

	require.NoError(t, a.Set(ctx, "tesla", []byte("from-a")))

	_, err = b.Get(ctx, "tesla")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestCache_ConcurrentWrites(t *testing.T) {
	cache, err := NewMemoryCache("embedder", "test-model")
	require.NoError(t, err)
	defer cache.Close()

	ctx := context.Background()
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, cache.Set(ctx, "same-key", []byte("same-value")))
		}()
	}
	wg.Wait()

	got, err := cache.Get(ctx, "same-key")
	require.NoError(t, err)
	assert.Equal(t, []byte("same-value"), got)
}

package resolve

import (
	"fmt"
	"slices"
	"sync"

	"github.com/fogfish/hnsw"
	"github.com/fogfish/hnsw/vector"
	kvector "github.com/kshard/vector"
)

// Match is a single nearest-neighbor hit.
type Match struct {
	Key   uint32  // Key the vector was inserted with
	Score float32 // Cosine similarity to the query, higher is closer
}

// Index is a nearest-neighbor index over embedding vectors.
type Index interface {
	// Query returns up to k matches ordered by descending Score.
	// An empty index returns no matches and no error.
	Query(vec []float32, k int) ([]Match, error)

	// Insert adds vec under key.
	Insert(vec []float32, key uint32) error

	// Len returns the number of vectors in the index.
	Len() int
}

// HNSWIndex is an approximate Index backed by a hierarchical navigable
// small world graph using cosine distance. Vectors are stored and queried at
// unit length.
type HNSWIndex struct {
	mu    sync.RWMutex
	index *hnsw.HNSW[vector.VF32]
	dim   int
}

// NewHNSWIndex returns an empty HNSW index. The dimension is fixed by the
// first inserted vector.
func NewHNSWIndex() *HNSWIndex {
	return &HNSWIndex{
		index: hnsw.New[vector.VF32](vector.SurfaceVF32(kvector.Cosine())),
	}
}

// Insert adds vec under key.
func (h *HNSWIndex) Insert(vec []float32, key uint32) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.dim != 0 && len(vec) != h.dim {
		return fmt.Errorf("%w: expected %d, got %d", ErrDimensionMismatch, h.dim, len(vec))
	}
	if len(vec) == 0 {
		return fmt.Errorf("%w: empty vector", ErrDimensionMismatch)
	}

	h.index.Insert(vector.VF32{Key: key, Vec: NormalizeVector(vec)})
	h.dim = len(vec)
	return nil
}

// Query returns up to k matches ordered by descending cosine similarity.
func (h *HNSWIndex) Query(vec []float32, k int) ([]Match, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if k <= 0 || h.index.Size() == 0 {
		return nil, nil
	}
	if len(vec) != h.dim {
		return nil, fmt.Errorf("%w: expected %d, got %d", ErrDimensionMismatch, h.dim, len(vec))
	}

	q := NormalizeVector(vec)
	ef := max(k*2, 100)
	results := h.index.Search(vector.VF32{Vec: q}, k, ef)

	matches := make([]Match, 0, len(results))
	for _, r := range results {
		matches = append(matches, Match{Key: r.Key, Score: CosineSimilarity(q, r.Vec)})
	}
	sortMatches(matches)
	if len(matches) > k {
		matches = matches[:k]
	}
	return matches, nil
}

// Len returns the number of vectors in the index.
func (h *HNSWIndex) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.index.Size()
}

// FlatIndex is an exact Index that scans every stored vector.
// Suitable for small graphs and tests.
type FlatIndex struct {
	mu   sync.RWMutex
	keys []uint32
	vecs [][]float32
}

// NewFlatIndex returns an empty exact index.
func NewFlatIndex() *FlatIndex {
	return &FlatIndex{}
}

// Insert adds vec under key.
func (f *FlatIndex) Insert(vec []float32, key uint32) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(vec) == 0 {
		return fmt.Errorf("%w: empty vector", ErrDimensionMismatch)
	}
	if len(f.vecs) > 0 && len(vec) != len(f.vecs[0]) {
		return fmt.Errorf("%w: expected %d, got %d", ErrDimensionMismatch, len(f.vecs[0]), len(vec))
	}
	f.keys = append(f.keys, key)
	f.vecs = append(f.vecs, slices.Clone(vec))
	return nil
}

// Query returns up to k matches ordered by descending cosine similarity.
func (f *FlatIndex) Query(vec []float32, k int) ([]Match, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if k <= 0 || len(f.vecs) == 0 {
		return nil, nil
	}
	if len(vec) != len(f.vecs[0]) {
		return nil, fmt.Errorf("%w: expected %d, got %d", ErrDimensionMismatch, len(f.vecs[0]), len(vec))
	}

	matches := make([]Match, len(f.vecs))
	for i, v := range f.vecs {
		matches[i] = Match{Key: f.keys[i], Score: CosineSimilarity(vec, v)}
	}
	sortMatches(matches)
	if len(matches) > k {
		matches = matches[:k]
	}
	return matches, nil
}

// Len returns the number of vectors in the index.
func (f *FlatIndex) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.vecs)
}

// sortMatches orders by descending score, ties broken by ascending key so
// results are stable.
func sortMatches(m []Match) {
	slices.SortFunc(m, func(a, b Match) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		case a.Key < b.Key:
			return -1
		case a.Key > b.Key:
			return 1
		}
		return 0
	})
}

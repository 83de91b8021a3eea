package graph

import (
	"context"
	"fmt"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/knownet/ai/mock"
	"github.com/poiesic/knownet/core"
	"github.com/poiesic/knownet/resolve"
)

func newTestStore(t *testing.T, emb *mock.MockEmbedder, opts ...Option) *Store {
	t.Helper()
	if emb == nil {
		emb = mock.NewMockEmbedder()
	}
	r, err := resolve.New(emb, resolve.NewFlatIndex())
	require.NoError(t, err)
	s, err := New(r, opts...)
	require.NoError(t, err)
	return s
}

func mustAdd(t *testing.T, s *Store, subject, predicate, object, source string) core.CanonicalTriple {
	t.Helper()
	ct, err := s.AddTriple(context.Background(), subject, predicate, object, source)
	require.NoError(t, err)
	return ct
}

func TestNew_RequiresResolver(t *testing.T) {
	_, err := New(nil)
	assert.ErrorIs(t, err, ErrResolverRequired)
}

func TestAddTriple_SameTripleTwoSources(t *testing.T) {
	s := newTestStore(t, nil)

	mustAdd(t, s, "Tesla", "makes", "Model 3", "https://a.example/1")
	ct := mustAdd(t, s, "Tesla", "makes", "Model 3", "https://b.example/2")

	assert.Equal(t, 2, ct.Provenance.Len())

	snap := s.Graph()
	require.Len(t, snap.Triples, 1)
	assert.Equal(t, []string{"https://a.example/1", "https://b.example/2"}, snap.Triples[0].Provenance)
	assert.Len(t, snap.Entities, 2)

	stats := s.Stats()
	assert.Equal(t, 1, stats.Edges)
	assert.Equal(t, 2, stats.Triples)
}

func TestAddTriple_LabelLastWriteWins(t *testing.T) {
	s := newTestStore(t, nil)

	mustAdd(t, s, "Tesla", "makes", "Model 3", "https://a.example/1")
	mustAdd(t, s, "Model 3", "is made by", "Tesla", "https://a.example/2")

	snap := s.Graph()
	require.Len(t, snap.Triples, 1)
	tr := snap.Triples[0]
	assert.Equal(t, "is made by", tr.Predicate)

	model3, ok := snap.EntityByName("Model 3")
	require.True(t, ok)
	assert.Equal(t, model3.ID, tr.SubjectID)
	assert.Len(t, tr.Provenance, 2)
}

func TestAddTriple_NodeProvenance(t *testing.T) {
	s := newTestStore(t, nil)

	mustAdd(t, s, "Tesla", "makes", "Model 3", "https://a.example/1")
	mustAdd(t, s, "Tesla", "is led by", "Elon Musk", "https://b.example/2")

	snap := s.Graph()
	tesla, ok := snap.EntityByName("Tesla")
	require.True(t, ok)
	assert.Equal(t, []string{"https://a.example/1", "https://b.example/2"}, tesla.Provenance)

	musk, ok := snap.EntityByName("Elon Musk")
	require.True(t, ok)
	assert.Equal(t, []string{"https://b.example/2"}, musk.Provenance)
	assert.True(t, s.Provenance(tesla.ID).Contains("https://a.example/1"))
	assert.Zero(t, s.Provenance(core.EntityID(42)).Len())
}

func TestAddTriple_ResolvesNearDuplicates(t *testing.T) {
	unit := func(x float32) []float32 { return []float32{x, float32(math.Sqrt(float64(1 - x*x)))} }
	emb := mock.NewMockEmbedder().
		WithVector("Tesla", []float32{1, 0}).
		WithVector("Tesla Inc", unit(0.97)).
		WithVector("SpaceX", unit(0.10)).
		WithVector("Elon Musk", []float32{0, 1})
	s := newTestStore(t, emb)

	a := mustAdd(t, s, "Tesla", "is led by", "Elon Musk", "https://a.example/1")
	b := mustAdd(t, s, "Tesla Inc", "is led by", "Elon Musk", "https://b.example/2")
	c := mustAdd(t, s, "SpaceX", "is led by", "Elon Musk", "https://c.example/3")

	assert.Equal(t, a.SubjectID, b.SubjectID)
	assert.NotEqual(t, a.SubjectID, c.SubjectID)
	assert.Equal(t, 2, b.Provenance.Len())

	snap := s.Graph()
	assert.Len(t, snap.Entities, 3)
	assert.Len(t, snap.Triples, 2)
}

func TestAddTriple_TaxonomySetsParent(t *testing.T) {
	s := newTestStore(t, nil)

	ct := mustAdd(t, s, "Tesla", "Is A", "company", "https://a.example/1")

	snap := s.Graph()
	tesla, ok := snap.EntityByID(ct.SubjectID)
	require.True(t, ok)
	company, ok := snap.EntityByName("company")
	require.True(t, ok)
	assert.Equal(t, company.ID, tesla.ParentID)
	assert.Less(t, company.ID, tesla.ID, "parent is created before child")

	// An existing entity's parent is never reassigned.
	mustAdd(t, s, "Tesla", "is an", "automaker", "https://a.example/2")
	tesla, _ = s.Graph().EntityByID(ct.SubjectID)
	assert.Equal(t, company.ID, tesla.ParentID)
}

func TestAddTriple_TaxonomyDisabled(t *testing.T) {
	s := newTestStore(t, nil, WithTaxonomyPredicates())

	ct := mustAdd(t, s, "Tesla", "is a", "company", "https://a.example/1")
	tesla, ok := s.Graph().EntityByID(ct.SubjectID)
	require.True(t, ok)
	assert.Equal(t, core.NoEntity, tesla.ParentID)
}

func TestAddTriple_Invalid(t *testing.T) {
	s := newTestStore(t, nil)

	_, err := s.AddTriple(context.Background(), "Tesla", "", "Model 3", "https://a.example/1")
	assert.ErrorIs(t, err, core.ErrInvalidTriple)
	_, err = s.AddTriple(context.Background(), "Tesla", "makes", "Model 3", "")
	assert.ErrorIs(t, err, core.ErrEmptySourceURL)
	assert.Zero(t, s.Stats().Entities)
}

func TestAddTriple_HalfResolvedTripleKeepsProvenance(t *testing.T) {
	emb := mock.NewMockEmbedder()
	emb.EmbedTextFunc = func(_ context.Context, text string) ([]float32, error) {
		if text == "Model S" {
			return nil, fmt.Errorf("embedding service down")
		}
		return []float32{1, 0, 0}, nil
	}
	s := newTestStore(t, emb)

	_, err := s.AddTriple(context.Background(), "Tesla", "makes", "Model S", "https://a.example/1")
	require.ErrorIs(t, err, resolve.ErrEmbeddingFailed)

	snap := s.Graph()
	assert.Empty(t, snap.Triples)
	require.Len(t, snap.Entities, 1)
	assert.Equal(t, "Tesla", snap.Entities[0].Name)
	assert.Equal(t, []string{"https://a.example/1"}, snap.Entities[0].Provenance)
}

func TestAddTripleBatch_ContinuesOnError(t *testing.T) {
	s := newTestStore(t, nil)

	batch := []core.RawTriple{
		core.NewRawTriple(core.Triple{Subject: "Tesla", Predicate: "makes", Object: "Model 3"}, "https://a.example/1"),
		core.NewRawTriple(core.Triple{Subject: "", Predicate: "makes", Object: "Model Y"}, "https://a.example/1"),
		core.NewRawTriple(core.Triple{Subject: "Tesla", Predicate: "makes", Object: "Model Y"}, "https://a.example/1"),
	}

	merged, err := s.AddTripleBatch(context.Background(), batch)
	assert.Equal(t, 2, merged)
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrEmptySubject)
	assert.Contains(t, err.Error(), "triple 1")

	snap := s.Graph()
	assert.Len(t, snap.Triples, 2)
	names := make([]string, 0, len(snap.Entities))
	for _, e := range snap.Entities {
		names = append(names, e.Name)
	}
	assert.Equal(t, []string{"Tesla", "Model 3", "Model Y"}, names, "entities created in batch order")
}

func TestAddTripleBatch_CanceledContext(t *testing.T) {
	s := newTestStore(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	merged, err := s.AddTripleBatch(ctx, []core.RawTriple{
		core.NewRawTriple(core.Triple{Subject: "a", Predicate: "p", Object: "b"}, "https://a.example/1"),
	})
	assert.Zero(t, merged)
	assert.ErrorIs(t, err, context.Canceled)
}

func buildChain(t *testing.T) (*Store, core.EntityID) {
	t.Helper()
	s := newTestStore(t, nil)
	a := mustAdd(t, s, "A", "knows", "B", "https://x.example/1")
	mustAdd(t, s, "B", "likes", "C", "https://x.example/1")
	mustAdd(t, s, "A", "owns", "D", "https://x.example/1")
	mustAdd(t, s, "C", "visits", "A", "https://x.example/1")
	return s, a.SubjectID
}

func TestNeighborhood(t *testing.T) {
	s, a := buildChain(t)

	tests := []struct {
		depth int
		want  []string
	}{
		{depth: 0, want: nil},
		{depth: 1, want: []string{"(A, knows, B)", "(A, owns, D)", "(C, visits, A)"}},
		{depth: 2, want: []string{"(A, knows, B)", "(B, likes, C)", "(A, owns, D)"}},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("depth %d", tt.depth), func(t *testing.T) {
			got, err := s.Neighborhood(a, tt.depth)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := s.Neighborhood(core.EntityID(99), 1)
	assert.ErrorIs(t, err, ErrEntityNotFound)
}

func TestNeighborhoodOf(t *testing.T) {
	s, _ := buildChain(t)

	got, err := s.NeighborhoodOf("D", DefaultDepth)
	require.NoError(t, err)
	assert.Equal(t, []string{"(A, owns, D)"}, got)

	_, err = s.NeighborhoodOf("Z", DefaultDepth)
	assert.ErrorIs(t, err, ErrEntityNotFound)
}

func TestNearest(t *testing.T) {
	emb := mock.NewMockEmbedder().
		WithVector("Tesla", []float32{1, 0}).
		WithVector("Model 3", []float32{0, 1}).
		WithVector("electric car maker", []float32{0.9, 0.1})
	s := newTestStore(t, emb)
	mustAdd(t, s, "Tesla", "makes", "Model 3", "https://a.example/1")

	candidates, hoods, err := s.Nearest(context.Background(), "electric car maker", 1, 1)
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, "Tesla", candidates[0].Entity.Name)
	assert.Equal(t, [][]string{{"(Tesla, makes, Model 3)"}}, hoods)
	assert.Equal(t, 2, s.Stats().Entities)
}

func TestStore_ConcurrentAdds(t *testing.T) {
	s := newTestStore(t, nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				_, err := s.AddTriple(context.Background(), "hub", "links", fmt.Sprintf("node-%d", j), fmt.Sprintf("https://src.example/%d", i))
				assert.NoError(t, err)
			}
		}(i)
	}
	wg.Wait()

	stats := s.Stats()
	assert.Equal(t, 11, stats.Entities)
	assert.Equal(t, 10, stats.Edges)
	assert.Equal(t, 80, stats.Triples)

	for _, tr := range s.Graph().Triples {
		assert.Len(t, tr.Provenance, 8)
	}
	rs := s.ResolverStats()
	assert.Equal(t, 11, rs.Created)
	assert.Equal(t, 149, rs.Exact)
}

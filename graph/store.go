package graph

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/poiesic/knownet/core"
	"github.com/poiesic/knownet/resolve"
)

// DefaultDepth is the neighborhood depth used when none is configured.
const DefaultDepth = 1

// DefaultTaxonomyPredicates are the predicates that mark an is-a relation.
var DefaultTaxonomyPredicates = []string{"is a", "is an", "is-a"}

// Option configures a Store.
type Option func(*Store) error

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) error {
		if logger != nil {
			s.logger = logger
		}
		return nil
	}
}

// WithTaxonomyPredicates replaces the is-a predicates. Matching ignores case
// and surrounding whitespace. Passing none disables parent assignment.
func WithTaxonomyPredicates(predicates ...string) Option {
	return func(s *Store) error {
		s.taxonomy = make(map[string]struct{}, len(predicates))
		for _, p := range predicates {
			s.taxonomy[normalizePredicate(p)] = struct{}{}
		}
		return nil
	}
}

// Stats summarizes the graph.
type Stats struct {
	Entities int // Entities known to the resolver
	Edges    int // Distinct entity pairs
	Triples  int // Triples merged so far
}

// Store accumulates canonical triples into a graph. It is safe for
// concurrent use; one mutex serializes the resolver and the graph together.
type Store struct {
	mu       sync.Mutex
	resolver *resolve.Resolver
	graph    *adjacency
	nodeProv map[core.EntityID]core.Provenance
	taxonomy map[string]struct{}
	triples  int
	logger   *slog.Logger
}

// New creates an empty Store over resolver. The Store takes ownership of the
// resolver; callers must not use it directly afterwards.
func New(resolver *resolve.Resolver, opts ...Option) (*Store, error) {
	if resolver == nil {
		return nil, ErrResolverRequired
	}
	s := &Store{
		resolver: resolver,
		graph:    newAdjacency(),
		nodeProv: make(map[core.EntityID]core.Provenance),
		logger:   slog.Default(),
	}
	if err := WithTaxonomyPredicates(DefaultTaxonomyPredicates...)(s); err != nil {
		return nil, err
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	s.logger = s.logger.With("component", "graph")
	return s, nil
}

func normalizePredicate(p string) string {
	return strings.ToLower(strings.Join(strings.Fields(p), " "))
}

// AddTriple resolves both mentions and merges the triple into the graph.
func (s *Store) AddTriple(ctx context.Context, subject, predicate, object, source string) (core.CanonicalTriple, error) {
	return s.AddRawTriple(ctx, core.RawTriple{
		Triple:    core.Triple{Subject: subject, Predicate: predicate, Object: object},
		SourceURL: source,
	})
}

// AddRawTriple merges a single extracted triple.
func (s *Store) AddRawTriple(ctx context.Context, t core.RawTriple) (core.CanonicalTriple, error) {
	if err := core.ValidateRawTriple(t); err != nil {
		return core.CanonicalTriple{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.merge(ctx, t)
}

// AddTripleBatch merges triples one at a time in slice order. A failing
// triple does not stop the batch; all failures are joined into the returned
// error.
func (s *Store) AddTripleBatch(ctx context.Context, triples []core.RawTriple) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	merged := 0
	for i, t := range triples {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if err := core.ValidateRawTriple(t); err != nil {
			errs = append(errs, fmt.Errorf("triple %d: %w", i, err))
			continue
		}
		if _, err := s.merge(ctx, t); err != nil {
			errs = append(errs, fmt.Errorf("triple %d: %w", i, err))
			continue
		}
		merged++
	}
	return merged, errors.Join(errs...)
}

// merge must be called with s.mu held.
func (s *Store) merge(ctx context.Context, t core.RawTriple) (core.CanonicalTriple, error) {
	predicate := strings.TrimSpace(t.Predicate)

	var subject, object core.Entity
	var err error
	if _, ok := s.taxonomy[normalizePredicate(predicate)]; ok {
		// The parent must exist before the child is created.
		if object, err = s.resolver.Resolve(ctx, t.Object); err != nil {
			return core.CanonicalTriple{}, fmt.Errorf("resolve object: %w", err)
		}
		if subject, err = s.resolver.ResolveUnder(ctx, t.Subject, object.ID); err != nil {
			s.keepWithoutEdge(object, t.SourceURL, err)
			return core.CanonicalTriple{}, fmt.Errorf("resolve subject: %w", err)
		}
	} else {
		if subject, err = s.resolver.Resolve(ctx, t.Subject); err != nil {
			return core.CanonicalTriple{}, fmt.Errorf("resolve subject: %w", err)
		}
		if object, err = s.resolver.Resolve(ctx, t.Object); err != nil {
			s.keepWithoutEdge(subject, t.SourceURL, err)
			return core.CanonicalTriple{}, fmt.Errorf("resolve object: %w", err)
		}
	}

	prov := core.NewProvenance(t.SourceURL)
	s.addNodeSource(subject.ID, t.SourceURL)
	s.addNodeSource(object.ID, t.SourceURL)

	if created := s.graph.upsert(subject.ID, predicate, object.ID, prov); created {
		s.logger.Debug("edge added", "subject", subject.Name, "predicate", predicate, "object", object.Name)
	}
	s.triples++

	e, _ := s.graph.edge(subject.ID, object.ID)
	return core.CanonicalTriple{
		SubjectID:  subject.ID,
		Predicate:  predicate,
		ObjectID:   object.ID,
		Provenance: e.provenance.Clone(),
	}, nil
}

// keepWithoutEdge records where an entity came from when the other side of
// its triple failed to resolve, so the export still explains the node.
func (s *Store) keepWithoutEdge(e core.Entity, url string, cause error) {
	s.addNodeSource(e.ID, url)
	s.logger.Debug("entity kept without edge", "entity", e.Name, "url", url, "err", cause)
}

func (s *Store) addNodeSource(id core.EntityID, url string) {
	p, ok := s.nodeProv[id]
	if !ok {
		p = core.NewProvenance()
		s.nodeProv[id] = p
	}
	p.Add(url)
}

// Graph returns a snapshot of the current graph. Entities are in id order and
// triples in the order their entity pair was first seen.
func (s *Store) Graph() *core.GraphSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	entities := s.resolver.Entities()
	snap := &core.GraphSnapshot{
		Entities: make([]core.SnapshotEntity, 0, len(entities)),
		Triples:  make([]core.SnapshotTriple, 0, len(s.graph.edges)),
	}
	for _, e := range entities {
		prov := []string{}
		if p, ok := s.nodeProv[e.ID]; ok {
			prov = p.Sorted()
		}
		snap.Entities = append(snap.Entities, core.SnapshotEntity{
			ID:         e.ID,
			Name:       e.Name,
			ParentID:   e.ParentID,
			Provenance: prov,
		})
	}
	for _, e := range s.graph.edges {
		snap.Triples = append(snap.Triples, core.SnapshotTriple{
			SubjectID:  e.subject,
			Predicate:  e.predicate,
			ObjectID:   e.object,
			Provenance: e.provenance.Sorted(),
		})
	}
	return snap
}

// Neighborhood returns the relations reachable from id within depth hops,
// in depth-first order.
func (s *Store) Neighborhood(id core.EntityID, depth int) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.resolver.Entity(id); !ok {
		return nil, fmt.Errorf("%w: %d", ErrEntityNotFound, id)
	}
	return s.graph.walk(id, depth, s.name), nil
}

// NeighborhoodOf returns the neighborhood of the entity a mention resolved to.
// Only exact, previously seen mentions are matched; use search.Searcher for
// similarity lookup.
func (s *Store) NeighborhoodOf(mention string, depth int) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.resolver.Lookup(mention)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrEntityNotFound, mention)
	}
	return s.graph.walk(e.ID, depth, s.name), nil
}

// Nearest returns up to k entities similar to text together with their
// neighborhoods.
func (s *Store) Nearest(ctx context.Context, text string, k, depth int) ([]resolve.Candidate, [][]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	candidates, err := s.resolver.Nearest(ctx, text, k)
	if err != nil {
		return nil, nil, err
	}
	hoods := make([][]string, len(candidates))
	for i, c := range candidates {
		hoods[i] = s.graph.walk(c.Entity.ID, depth, s.name)
	}
	return candidates, hoods, nil
}

// Provenance returns the source URLs recorded for an entity.
func (s *Store) Provenance(id core.EntityID) core.Provenance {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.nodeProv[id]; ok {
		return p.Clone()
	}
	return core.NewProvenance()
}

// Stats returns graph counters.
func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Stats{
		Entities: s.resolver.Len(),
		Edges:    len(s.graph.edges),
		Triples:  s.triples,
	}
}

// ResolverStats returns the resolver's counters.
func (s *Store) ResolverStats() resolve.Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resolver.Stats()
}

// name must be called with s.mu held.
func (s *Store) name(id core.EntityID) string {
	if e, ok := s.resolver.Entity(id); ok {
		return e.Name
	}
	return ""
}

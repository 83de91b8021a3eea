package graph

import (
	"fmt"

	"github.com/poiesic/knownet/core"
)

// pair is an unordered entity pair, lo <= hi.
type pair struct {
	lo, hi core.EntityID
}

func pairOf(a, b core.EntityID) pair {
	if a > b {
		a, b = b, a
	}
	return pair{lo: a, hi: b}
}

type edge struct {
	subject    core.EntityID
	predicate  string
	object     core.EntityID
	provenance core.Provenance
}

// adjacency is an undirected simple graph whose neighbor lists keep
// insertion order, so traversals are deterministic.
type adjacency struct {
	edges []*edge
	pairs map[pair]int
	adj   map[core.EntityID][]int
}

func newAdjacency() *adjacency {
	return &adjacency{
		pairs: make(map[pair]int),
		adj:   make(map[core.EntityID][]int),
	}
}

// upsert merges a triple. It returns true when a new edge was created.
func (a *adjacency) upsert(subject core.EntityID, predicate string, object core.EntityID, prov core.Provenance) bool {
	key := pairOf(subject, object)
	if i, ok := a.pairs[key]; ok {
		e := a.edges[i]
		e.subject, e.predicate, e.object = subject, predicate, object
		e.provenance.Union(prov)
		return false
	}

	i := len(a.edges)
	a.edges = append(a.edges, &edge{
		subject:    subject,
		predicate:  predicate,
		object:     object,
		provenance: prov.Clone(),
	})
	a.pairs[key] = i
	a.adj[subject] = append(a.adj[subject], i)
	if object != subject {
		a.adj[object] = append(a.adj[object], i)
	}
	return true
}

func (a *adjacency) edge(subject, object core.EntityID) (*edge, bool) {
	i, ok := a.pairs[pairOf(subject, object)]
	if !ok {
		return nil, false
	}
	return a.edges[i], true
}

// walk runs a depth-limited depth-first traversal from start and formats
// every tree edge as "(subject, predicate, object)" using the stored
// orientation. Each entity is visited once.
func (a *adjacency) walk(start core.EntityID, depth int, name func(core.EntityID) string) []string {
	if depth < 1 {
		return nil
	}

	visited := map[core.EntityID]bool{start: true}
	var out []string

	var visit func(id core.EntityID, remaining int)
	visit = func(id core.EntityID, remaining int) {
		for _, i := range a.adj[id] {
			e := a.edges[i]
			next := e.object
			if next == id {
				next = e.subject
			}
			if visited[next] {
				continue
			}
			visited[next] = true
			out = append(out, fmt.Sprintf("(%s, %s, %s)", name(e.subject), e.predicate, name(e.object)))
			if remaining > 1 {
				visit(next, remaining-1)
			}
		}
	}
	visit(start, depth)
	return out
}

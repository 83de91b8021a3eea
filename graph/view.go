package graph

import (
	"fmt"

	"github.com/poiesic/knownet/core"
)

// View is a read-only graph rebuilt from a snapshot.
type View struct {
	names  map[core.EntityID]string
	byName map[string]core.EntityID
	graph  *adjacency
}

// NewView builds a View from snap. Triples are replayed in snapshot order, so
// neighborhoods match those of the Store that exported it.
func NewView(snap *core.GraphSnapshot) (*View, error) {
	if snap == nil {
		return nil, fmt.Errorf("%w: nil snapshot", ErrInvalidSnapshot)
	}
	if err := validateSnapshot(snap); err != nil {
		return nil, err
	}

	v := &View{
		names:  make(map[core.EntityID]string, len(snap.Entities)),
		byName: make(map[string]core.EntityID, len(snap.Entities)),
		graph:  newAdjacency(),
	}
	for _, e := range snap.Entities {
		v.names[e.ID] = e.Name
		if _, ok := v.byName[e.Name]; !ok {
			v.byName[e.Name] = e.ID
		}
	}
	for _, t := range snap.Triples {
		v.graph.upsert(t.SubjectID, t.Predicate, t.ObjectID, core.NewProvenance(t.Provenance...))
	}
	return v, nil
}

// Neighborhood returns the relations reachable from id within depth hops.
func (v *View) Neighborhood(id core.EntityID, depth int) ([]string, error) {
	if _, ok := v.names[id]; !ok {
		return nil, fmt.Errorf("%w: %d", ErrEntityNotFound, id)
	}
	return v.graph.walk(id, depth, v.name), nil
}

// NeighborhoodOf returns the neighborhood of the entity named name.
func (v *View) NeighborhoodOf(name string, depth int) ([]string, error) {
	id, ok := v.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrEntityNotFound, name)
	}
	return v.graph.walk(id, depth, v.name), nil
}

func (v *View) name(id core.EntityID) string {
	return v.names[id]
}

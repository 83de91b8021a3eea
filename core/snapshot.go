package core

// GraphSnapshot is the language-neutral export of a knowledge graph.
// It carries no in-memory references, only entity ids, so any downstream
// process can consume it.
type GraphSnapshot struct {
	Entities []SnapshotEntity `json:"entities"`
	Triples  []SnapshotTriple `json:"triples"`
}

// SnapshotEntity is an exported node.
type SnapshotEntity struct {
	ID         EntityID `json:"id"`
	Name       string   `json:"name"`
	ParentID   EntityID `json:"parentId,omitempty"`
	Provenance []string `json:"provenance"`
}

// SnapshotTriple is an exported edge.
type SnapshotTriple struct {
	SubjectID  EntityID `json:"subjectId"`
	Predicate  string   `json:"predicate"`
	ObjectID   EntityID `json:"objectId"`
	Provenance []string `json:"provenance"`
}

// EntityByID returns the exported entity with the given id.
func (s *GraphSnapshot) EntityByID(id EntityID) (SnapshotEntity, bool) {
	for _, e := range s.Entities {
		if e.ID == id {
			return e, true
		}
	}
	return SnapshotEntity{}, false
}

// EntityByName returns the first exported entity whose name matches exactly.
func (s *GraphSnapshot) EntityByName(name string) (SnapshotEntity, bool) {
	for _, e := range s.Entities {
		if e.Name == name {
			return e, true
		}
	}
	return SnapshotEntity{}, false
}

package core

import (
	"encoding/binary"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a content-derived identifier.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// EntityID addresses an Entity inside the resolver's arena.
// IDs are assigned sequentially starting at 1; the zero value means "no entity".
type EntityID uint32

// NoEntity is the zero EntityID, used for an absent parent.
const NoEntity EntityID = 0

// ContentItem is one fetched and parsed document.
type ContentItem struct {
	Text      string    // Parsed article text; empty when parsing failed
	SourceURL string    // URL the document was fetched from
	FetchedAt time.Time // When the fetch completed
}

// Triple is an extracted (subject, predicate, object) statement without provenance.
// It is what the extraction capability returns and what the cache stores.
type Triple struct {
	Subject   string
	Predicate string
	Object    string
}

// RawTriple is an extracted fact before entity resolution.
type RawTriple struct {
	Triple
	SourceURL string
}

// NewRawTriple attaches a source URL to an extracted triple.
func NewRawTriple(t Triple, sourceURL string) RawTriple {
	return RawTriple{Triple: t, SourceURL: sourceURL}
}

// Entity is a canonical real-world referent.
// Entities are created once by the resolver and never mutated afterwards.
type Entity struct {
	ID        EntityID
	Name      string   // Display name: the first mention that established the cluster
	ParentID  EntityID // Optional is-a parent, NoEntity when unset
	CreatedAt time.Time
}

// HasParent reports whether the entity has an is-a parent.
func (e Entity) HasParent() bool {
	return e.ParentID != NoEntity
}

// CanonicalTriple is a fact after entity resolution.
type CanonicalTriple struct {
	SubjectID  EntityID
	Predicate  string
	ObjectID   EntityID
	Provenance Provenance
}

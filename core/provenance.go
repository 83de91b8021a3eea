package core

import (
	"maps"
	"slices"
)

// Provenance is the set of source URLs supporting a node or edge.
// The zero value is not usable; create one with NewProvenance.
type Provenance map[string]struct{}

// NewProvenance returns a provenance set holding the given URLs.
// Empty strings are ignored.
func NewProvenance(urls ...string) Provenance {
	p := make(Provenance, len(urls))
	for _, u := range urls {
		p.Add(u)
	}
	return p
}

// Add inserts a URL into the set.
func (p Provenance) Add(url string) {
	if url == "" {
		return
	}
	p[url] = struct{}{}
}

// Union adds every URL of other into p.
func (p Provenance) Union(other Provenance) {
	for u := range other {
		p[u] = struct{}{}
	}
}

// Contains reports whether url is in the set.
func (p Provenance) Contains(url string) bool {
	_, ok := p[url]
	return ok
}

// Len returns the number of URLs in the set.
func (p Provenance) Len() int {
	return len(p)
}

// Sorted returns the URLs in lexical order.
func (p Provenance) Sorted() []string {
	return slices.Sorted(maps.Keys(p))
}

// Clone returns an independent copy of the set.
func (p Provenance) Clone() Provenance {
	return maps.Clone(p)
}

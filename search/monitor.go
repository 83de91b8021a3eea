package search

import (
	"github.com/poiesic/knownet/core"
	"github.com/poiesic/knownet/resolve"
)

// SearchMonitor provides hooks to observe the search process.
// Implement this interface to track intermediate steps and results during search.
type SearchMonitor interface {
	Start(query string)
	AfterMentionExtraction(mentions []string)
	AfterNearestEntities(mention string, candidates []resolve.Candidate)
	VerbatimHit(entity core.Entity)
	Finish(results []Result)
}

// noopMonitor is a no-op implementation of SearchMonitor
type noopMonitor struct{}

var _ SearchMonitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ string) {}
func (n *noopMonitor) AfterMentionExtraction(_ []string) {}
func (n *noopMonitor) AfterNearestEntities(_ string, _ []resolve.Candidate) {}
func (n *noopMonitor) VerbatimHit(_ core.Entity) {}
func (n *noopMonitor) Finish(_ []Result) {}

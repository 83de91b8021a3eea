package ingestion

import (
	"io"

	"github.com/poiesic/knownet/core"
)

// Monitor observes a pipeline run. Methods may be called from more than one
// goroutine and must not block.
type Monitor interface {
	// Start is called before the seed page is fetched.
	Start(seed string)

	// LinksDiscovered reports the links selected for fetching.
	LinksDiscovered(links []string)

	// ItemFetched is called as each content item arrives.
	ItemFetched(item core.ContentItem)

	// ItemExtracted reports the number of triples extracted from an item.
	ItemExtracted(sourceURL string, triples int)

	// TriplesMerged reports how many of an item's triples were merged.
	TriplesMerged(sourceURL string, merged int)

	// ItemFailed reports an item that dropped out of the run.
	ItemFailed(err *ItemError)

	// Finish is called once with the final report.
	Finish(report *Report)
}

// noopMonitor is a Monitor that does nothing.
type noopMonitor struct{}

func (noopMonitor) Start(string) {}
func (noopMonitor) LinksDiscovered([]string) {}
func (noopMonitor) ItemFetched(core.ContentItem) {}
func (noopMonitor) ItemExtracted(string, int) {}
func (noopMonitor) TriplesMerged(string, int) {}
func (noopMonitor) ItemFailed(*ItemError) {}
func (noopMonitor) Finish(*Report) {}

// ProgressMonitor renders a ProgressTracker line as items complete.
type ProgressMonitor struct {
	noopMonitor
	tracker *ProgressTracker
}

// NewProgressMonitor returns a Monitor writing progress to w every interval items.
func NewProgressMonitor(w io.Writer, interval int) *ProgressMonitor {
	return &ProgressMonitor{tracker: NewProgressTracker(w, 0, interval)}
}

// Start starts the tracker.
func (m *ProgressMonitor) Start(string) {
	m.tracker.Start()
}

// LinksDiscovered sets the total to the number of links.
func (m *ProgressMonitor) LinksDiscovered(links []string) {
	m.tracker.SetTotal(len(links))
}

// TriplesMerged counts a finished item.
func (m *ProgressMonitor) TriplesMerged(string, int) {
	m.tracker.Done(true)
}

// ItemFailed counts an item that never reached the merge stage.
func (m *ProgressMonitor) ItemFailed(err *ItemError) {
	if err.Stage != StageMerge {
		m.tracker.Done(false)
	}
}

// Finish prints the final line.
func (m *ProgressMonitor) Finish(*Report) {
	m.tracker.Finish()
}

// Tracker exposes the underlying tracker.
func (m *ProgressMonitor) Tracker() *ProgressTracker {
	return m.tracker
}

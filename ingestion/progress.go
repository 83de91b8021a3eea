package ingestion

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// ProgressTracker renders a single, rewritten progress line for a crawl:
// pages finished out of pages linked, failures, and throughput.
type ProgressTracker struct {
	mu        sync.Mutex
	w         io.Writer
	every     int
	total     int
	done      int
	failed    int
	lastShown int
	start     time.Time
	running   bool
}

// NewProgressTracker returns a tracker writing to w every `every` pages.
// total may be zero and raised later with SetTotal.
func NewProgressTracker(w io.Writer, total, every int) *ProgressTracker {
	return &ProgressTracker{w: w, total: total, every: max(every, 1)}
}

// Start resets the counters and starts the clock.
func (p *ProgressTracker) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.start = time.Now()
	p.running = true
	p.done, p.failed, p.lastShown = 0, 0, 0
}

// SetTotal sets the number of pages expected. The link count is only known
// once the seed page has been fetched.
func (p *ProgressTracker) SetTotal(total int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.total = total
}

// Done records one finished page; ok is false for a page that failed.
func (p *ProgressTracker) Done(ok bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.running {
		return
	}
	p.done++
	if !ok {
		p.failed++
	}
	if p.done-p.lastShown >= p.every {
		p.render()
		p.lastShown = p.done
	}
}

// Current returns the number of finished pages.
func (p *ProgressTracker) Current() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.done
}

// Failed returns the number of failed pages.
func (p *ProgressTracker) Failed() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.failed
}

// Finish prints the final line and stops the tracker.
func (p *ProgressTracker) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.running {
		return
	}
	p.render()
	fmt.Fprintln(p.w)
	p.running = false
}

// Elapsed returns the time since Start, or zero when not running.
func (p *ProgressTracker) Elapsed() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.running {
		return 0
	}
	return time.Since(p.start)
}

// render must be called with p.mu held.
func (p *ProgressTracker) render() {
	var rate, pct float64
	if secs := time.Since(p.start).Seconds(); secs > 0 {
		rate = float64(p.done) / secs
	}
	if p.total > 0 {
		pct = float64(p.done) / float64(p.total) * 100
	}
	fmt.Fprintf(p.w, "\rPages: %d/%d (%.1f%%), %d failed, %.1f pages/s",
		p.done, p.total, pct, p.failed, rate)
}

package crawl

import (
	"iter"
	"sync"

	"github.com/poiesic/knownet/core"
)

// Stream delivers fetched content items in completion order.
//
// The items channel is bounded: a consumer that stops reading stalls new
// fetch scheduling once the buffer is full. The channel is closed when the
// crawl finishes, which is the only completion signal.
type Stream struct {
	seed   string
	links  []string
	items  chan core.ContentItem
	cancel func()
	done   chan struct{}

	mu       sync.Mutex
	failures []*FetchError
	err      error

	closeOnce sync.Once
}

func newStream(seed string, links []string, buffer int, cancel func()) *Stream {
	return &Stream{
		seed:   seed,
		links:  links,
		items:  make(chan core.ContentItem, buffer),
		cancel: cancel,
		done:   make(chan struct{}),
	}
}

// Seed returns the seed URL.
func (s *Stream) Seed() string {
	return s.seed
}

// Links returns the links selected from the seed page.
func (s *Stream) Links() []string {
	return s.links
}

// Items returns the channel of fetched items.
func (s *Stream) Items() <-chan core.ContentItem {
	return s.items
}

// All returns an iterator over the items. Breaking out of the loop closes
// the stream.
func (s *Stream) All() iter.Seq[core.ContentItem] {
	return func(yield func(core.ContentItem) bool) {
		for item := range s.items {
			if !yield(item) {
				s.Close()
				return
			}
		}
	}
}

// Close stops scheduling new fetches, aborts in-flight ones and waits for the
// crawl to wind down. Undelivered items are discarded.
func (s *Stream) Close() {
	s.closeOnce.Do(func() {
		s.cancel()
		for range s.items {
		}
		<-s.done
	})
}

// Done returns a channel closed once the crawl has finished.
func (s *Stream) Done() <-chan struct{} {
	return s.done
}

// Err returns the context error that cut the crawl short, if any.
// It is meaningful once the items channel is closed.
func (s *Stream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Failures returns the links dropped after exhausting retries.
// It is complete once the items channel is closed.
func (s *Stream) Failures() []*FetchError {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*FetchError(nil), s.failures...)
}

func (s *Stream) addFailure(err *FetchError) {
	s.mu.Lock()
	s.failures = append(s.failures, err)
	s.mu.Unlock()
}

func (s *Stream) setErr(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}

package mock

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/poiesic/knownet/ai"
	"github.com/poiesic/knownet/core"
)

// MockTripleExtractor is a test double for ai.TripleExtractor.
// It is safe for concurrent use.
type MockTripleExtractor struct {
	// ExtractTriplesFunc is called by ExtractTriples if set.
	// If nil, canned responses are returned.
	ExtractTriplesFunc func(ctx context.Context, text string) ([]core.Triple, error)

	// Model is reported through Descriptor. Defaults to "mock-extractor".
	Model string

	mu        sync.Mutex
	responses map[string][]core.Triple
	callCount atomic.Int64
}

// NewMockTripleExtractor creates a mock extractor that returns no triples
// for unknown text.
func NewMockTripleExtractor() *MockTripleExtractor {
	return &MockTripleExtractor{responses: make(map[string][]core.Triple)}
}

// WithResponse sets the triples returned for text.
func (m *MockTripleExtractor) WithResponse(text string, triples ...core.Triple) *MockTripleExtractor {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.responses == nil {
		m.responses = make(map[string][]core.Triple)
	}
	m.responses[text] = triples
	return m
}

// Descriptor identifies the mock model.
func (m *MockTripleExtractor) Descriptor() ai.ModelDescriptor {
	model := m.Model
	if model == "" {
		model = "mock-extractor"
	}
	return ai.ModelDescriptor{Provider: "mock", Model: model}
}

// ExtractTriples returns the canned response for text.
func (m *MockTripleExtractor) ExtractTriples(ctx context.Context, text string) ([]core.Triple, error) {
	m.callCount.Add(1)

	if m.ExtractTriplesFunc != nil {
		return m.ExtractTriplesFunc(ctx, text)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	triples := m.responses[text]
	out := make([]core.Triple, len(triples))
	copy(out, triples)
	return out, nil
}

// CallCount returns the number of ExtractTriples calls.
func (m *MockTripleExtractor) CallCount() int {
	return int(m.callCount.Load())
}

// Reset clears the call count and the injected function.
func (m *MockTripleExtractor) Reset() {
	m.callCount.Store(0)
	m.ExtractTriplesFunc = nil
}

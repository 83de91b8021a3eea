// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package mock

import (
	"sync/atomic"

	"github.com/poiesic/knownet/ai"
)

// MockProvider bundles a mock embedder and extractor behind ai.AIProvider
// and records whether it was closed.
type MockProvider struct {
	embedder  *MockEmbedder
	extractor *MockTripleExtractor
	closed    atomic.Bool
}

var _ ai.AIProvider = (*MockProvider)(nil)

// NewMockProvider returns a provider with default mock capabilities.
func NewMockProvider() *MockProvider {
	return NewMockProviderWithServices(NewMockEmbedder(), NewMockTripleExtractor())
}

// NewMockProviderWithServices returns a provider serving the given mocks.
func NewMockProviderWithServices(embedder *MockEmbedder, extractor *MockTripleExtractor) *MockProvider {
	return &MockProvider{embedder: embedder, extractor: extractor}
}

func (p *MockProvider) Embedder() ai.Embedder {
	return p.embedder
}

func (p *MockProvider) TripleExtractor() ai.TripleExtractor {
	return p.extractor
}

// Close marks the provider closed. It never fails.
func (p *MockProvider) Close() error {
	p.closed.Store(true)
	return nil
}

// Closed reports whether Close was called.
func (p *MockProvider) Closed() bool {
	return p.closed.Load()
}

// MockEmbedder returns the concrete embedder for assertions.
func (p *MockProvider) MockEmbedder() *MockEmbedder {
	return p.embedder
}

// MockExtractor returns the concrete extractor for assertions.
func (p *MockProvider) MockExtractor() *MockTripleExtractor {
	return p.extractor
}

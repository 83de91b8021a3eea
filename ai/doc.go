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


// Package ai provides abstractions for the model-backed capabilities used by knownet.
//
// The ingestion pipeline needs two things from a model: vectors for entity
// mentions and (subject, predicate, object) triples for article text. Both
// are expressed as interfaces so the pipeline, the batching service and the
// resolver can be tested without a model.
//
//   - Embedder: generates vector embeddings from text
//   - TripleExtractor: extracts relationships from text
//   - AIProvider: aggregates both for convenient initialization
//
// Every implementation carries a ModelDescriptor fixed at construction. The
// descriptor names the cache namespace its results are stored under, so
// switching models never serves another model's results.
//
// # Implementation Packages
//
//   - ai/openai: langchaingo against OpenAI-compatible APIs (OpenAI, Ollama, vLLM)
//   - ai/anthropic: triple extraction through the Anthropic Messages API
//   - ai/hugot: local ONNX sentence-transformer embeddings
//   - ai/mock: test doubles
//
// # Oversized Input
//
// Implementations wrap provider errors reporting an exceeded context length
// with ErrInputTooLarge. Callers shorten the input with Truncate and retry once.
//
// # Usage Example
//
//	config := ai.NewConfig(ai.WithHost("http://localhost:11434"))
//	provider, err := openai.NewProvider(config)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer provider.Close()
//
//	vec, err := provider.Embedder().EmbedText(ctx, "Tesla")
//	triples, err := provider.TripleExtractor().ExtractTriples(ctx, article)
package ai

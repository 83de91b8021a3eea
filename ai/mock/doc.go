// Package mock provides test doubles for the ai package interfaces.
//
// The mocks are deterministic and safe for concurrent use, so they can stand
// in for real models behind the batching service and the ingestion pipeline.
//
// # Usage
//
//	embedder := mock.NewMockEmbedder().
//	    WithVector("Tesla", []float32{1, 0}).
//	    WithVector("Tesla Inc", []float32{0.97, 0.2431})
//
//	extractor := mock.NewMockTripleExtractor().
//	    WithResponse(article, core.Triple{Subject: "Tesla", Predicate: "is a", Object: "automaker"})
//
//	// Check call counts
//	count := embedder.CallCount()
//
// # Default Behavior
//
//   - MockEmbedder: pinned vectors, otherwise deterministic unit vectors from the text hash
//   - MockTripleExtractor: canned responses, otherwise no triples
//   - MockProvider: aggregates mock embedder and extractor
package mock

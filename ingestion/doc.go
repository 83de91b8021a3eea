// Package ingestion turns crawled content into graph triples.
//
// CachedEmbedder and CachedExtractor wrap the model capabilities. A lookup
// first consults a persistent storage.Cache; concurrent misses for the same
// input collapse into one computation, which is submitted to a
// batching.Service so many callers share a single model call. An input the
// model rejects as too large is truncated and retried once.
//
// Pipeline drives a crawl: items stream out of a crawl.Scheduler, are
// extracted on a bounded worker pool and merged into a graph.Store by a
// single consumer. Failures of individual items are collected in the Report
// and never abort the run.
package ingestion

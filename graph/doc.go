// Package graph assembles canonical triples into a provenance-tracked graph.
//
// A Store resolves the subject and object mention of every triple through a
// resolve.Resolver and merges the result into an undirected graph with at
// most one edge per entity pair. Repeating a pair unions the edge's source
// URLs and replaces its predicate label and orientation with the latest
// triple. Every node accumulates the URLs of the triples that mention it.
//
// The graph is exported as a core.GraphSnapshot, written as JSON. A View
// rebuilt from a snapshot answers the same neighborhood queries as the Store
// that produced it.
package graph

// Package resolve maps raw entity mentions to canonical entities.
//
// A Resolver owns an arena of core.Entity values addressed by sequential
// core.EntityID. Each new mention is embedded and compared with its nearest
// neighbor in an Index. When the cosine similarity is strictly greater than
// the match threshold the mention joins that entity, otherwise it founds a
// new one and its vector is added to the index.
//
// Resolution is greedy: the first mention of a cluster names it, and the
// outcome for a given input depends on the order mentions arrive in.
//
// A Resolver is not safe for concurrent use. graph.Store serializes every
// call under its own lock.
package resolve

// Package graph maintains the incremental knowledge graph built from
// fetched pages and extracted entities.
//
// The graph is directed. Page nodes are keyed by normalized URL and
// entity nodes by their (text, label) pair. A page mentions entities
// (MENTIONS edges carrying a mention count) and links to other pages
// (LINKS_TO edges). Linked pages that were never fetched exist as
// placeholder nodes so the link structure is complete.
//
// All operations are idempotent: re-adding the same page, entities, or
// links converges to the same graph state, with mention counts
// overwritten rather than accumulated. The Builder is safe for
// concurrent use.
package graph

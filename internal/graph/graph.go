package graph

import "time"

// NodeKind distinguishes the two node types in the graph.
type NodeKind string

const (
	// NodeKindPage is a web page, keyed by normalized URL.
	NodeKindPage NodeKind = "page"

	// NodeKindEntity is a named entity, keyed by its (text, label) pair.
	NodeKindEntity NodeKind = "entity"
)

// EdgeType distinguishes the two edge types in the graph.
type EdgeType string

const (
	// EdgeTypeMentions connects a page to an entity it mentions. The
	// edge carries the per-page mention count.
	EdgeTypeMentions EdgeType = "MENTIONS"

	// EdgeTypeLinksTo connects a page to a page it links to.
	EdgeTypeLinksTo EdgeType = "LINKS_TO"
)

// NodeKey uniquely identifies a node. Kind is part of the key so a page
// and an entity can never collide.
type NodeKey struct {
	Kind NodeKind `json:"kind"`
	Key  string   `json:"key"`
}

// Node is a vertex in the knowledge graph. Page fields are zero for
// entity nodes and vice versa.
type Node struct {
	NodeKey

	// Title is the page title, set once the page has been fetched.
	Title string `json:"title,omitempty"`

	// StatusCode is the HTTP status of the successful fetch.
	StatusCode int `json:"status_code,omitempty"`

	// Fetched is false for placeholder pages that are only known as
	// link targets.
	Fetched bool `json:"fetched,omitempty"`

	// FetchedAt records when the page was fetched.
	FetchedAt time.Time `json:"fetched_at,omitzero"`

	// Label is the entity type, e.g. PERSON or GPE.
	Label string `json:"label,omitempty"`

	// Text is the entity surface text.
	Text string `json:"text,omitempty"`
}

// EdgeKey uniquely identifies an edge by its endpoints and type.
type EdgeKey struct {
	Source NodeKey  `json:"source"`
	Target NodeKey  `json:"target"`
	Type   EdgeType `json:"type"`
}

// Edge is a directed edge in the knowledge graph.
type Edge struct {
	EdgeKey

	// Count is the mention count for MENTIONS edges; zero for LINKS_TO.
	// Re-adding a MENTIONS edge overwrites the count.
	Count int `json:"count,omitempty"`
}

// SnapshotNode is a node with its computed degree, as exposed by
// Snapshot.
type SnapshotNode struct {
	Node

	// Degree is the number of edges touching the node, in or out.
	Degree int `json:"degree"`
}

// Snapshot is a consistent point-in-time copy of the graph in insertion
// order. It is detached from the Builder and safe to use concurrently
// with further updates.
type Snapshot struct {
	Nodes []SnapshotNode `json:"nodes"`
	Edges []Edge         `json:"edges"`
}

// pageKey builds the NodeKey for a normalized page URL.
func pageKey(url string) NodeKey {
	return NodeKey{Kind: NodeKindPage, Key: url}
}

// entityKey builds the NodeKey for an entity. Text and label are joined
// with a separator that cannot appear in normalized surface text.
func entityKey(text, label string) NodeKey {
	return NodeKey{Kind: NodeKindEntity, Key: label + "\x00" + text}
}

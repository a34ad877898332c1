package graph

import (
	"sort"
	"sync"

	"github.com/nao1215/knowledgemesh/internal/model"
	"github.com/nao1215/knowledgemesh/internal/urlnorm"
)

// Builder accumulates the knowledge graph across pipeline runs. The
// zero value is not usable; call NewBuilder.
//
// Design decision: adjacency maps guarded by a RWMutex rather than a
// graph library because:
//  1. The operations needed are upserts and two ranking queries
//  2. Insertion-order slices give deterministic snapshots for free
//  3. A dependency would bring traversal machinery nothing here uses
type Builder struct {
	mu sync.RWMutex

	nodes     map[NodeKey]*Node
	nodeOrder []NodeKey

	edges     map[EdgeKey]*Edge
	edgeOrder []EdgeKey
}

// NewBuilder creates an empty graph builder.
func NewBuilder() *Builder {
	return &Builder{
		nodes: make(map[NodeKey]*Node),
		edges: make(map[EdgeKey]*Edge),
	}
}

// AddPage upserts the fetched page as a graph node. A placeholder node
// created earlier by AddLinks is promoted in place; its edges survive.
// Returns how many nodes this call created.
func (b *Builder) AddPage(result *model.FetchResult) (model.GraphDelta, error) {
	if result == nil || result.URL == "" {
		return model.GraphDelta{}, ErrEmptyPageURL
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	var delta model.GraphDelta
	key := pageKey(result.URL)
	node, ok := b.nodes[key]
	if !ok {
		node = &Node{NodeKey: key}
		b.nodes[key] = node
		b.nodeOrder = append(b.nodeOrder, key)
		delta.NodesAdded++
	}

	node.Fetched = true
	node.Title = result.Title
	node.StatusCode = result.StatusCode
	node.FetchedAt = result.FetchedAt
	return delta, nil
}

// AddEntities upserts entity nodes and the MENTIONS edges from the page
// to each of them. Mention counts are overwritten, not accumulated, so
// re-processing a page converges instead of inflating.
func (b *Builder) AddEntities(pageURL string, entities []model.Entity) (model.GraphDelta, error) {
	if pageURL == "" {
		return model.GraphDelta{}, ErrEmptyPageURL
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	var delta model.GraphDelta
	source := pageKey(pageURL)
	b.ensurePage(source, &delta)

	for _, entity := range entities {
		if entity.Text == "" {
			return delta, ErrEmptyEntityText
		}

		key := entityKey(entity.Text, entity.Label)
		if _, ok := b.nodes[key]; !ok {
			b.nodes[key] = &Node{NodeKey: key, Text: entity.Text, Label: entity.Label}
			b.nodeOrder = append(b.nodeOrder, key)
			delta.NodesAdded++
		}

		edgeKey := EdgeKey{Source: source, Target: key, Type: EdgeTypeMentions}
		edge, ok := b.edges[edgeKey]
		if !ok {
			edge = &Edge{EdgeKey: edgeKey}
			b.edges[edgeKey] = edge
			b.edgeOrder = append(b.edgeOrder, edgeKey)
			delta.EdgesAdded++
		}
		edge.Count = entity.Count
	}
	return delta, nil
}

// AddLinks records LINKS_TO edges from the page to each link target.
// Unknown targets become placeholder page nodes; existing nodes are
// never demoted. Self-links are skipped.
func (b *Builder) AddLinks(pageURL string, links []string) (model.GraphDelta, error) {
	if pageURL == "" {
		return model.GraphDelta{}, ErrEmptyPageURL
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	var delta model.GraphDelta
	source := pageKey(pageURL)
	b.ensurePage(source, &delta)

	for _, link := range links {
		if link == "" || link == pageURL {
			continue
		}

		target := pageKey(link)
		b.ensurePage(target, &delta)

		edgeKey := EdgeKey{Source: source, Target: target, Type: EdgeTypeLinksTo}
		if _, ok := b.edges[edgeKey]; !ok {
			b.edges[edgeKey] = &Edge{EdgeKey: edgeKey}
			b.edgeOrder = append(b.edgeOrder, edgeKey)
			delta.EdgesAdded++
		}
	}
	return delta, nil
}

// ensurePage creates a placeholder page node if the key is unknown.
// Callers must hold the write lock.
func (b *Builder) ensurePage(key NodeKey, delta *model.GraphDelta) {
	if _, ok := b.nodes[key]; ok {
		return
	}
	b.nodes[key] = &Node{NodeKey: key}
	b.nodeOrder = append(b.nodeOrder, key)
	delta.NodesAdded++
}

// NodeCount returns the number of nodes in the graph.
func (b *Builder) NodeCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.nodes)
}

// EdgeCount returns the number of edges in the graph.
func (b *Builder) EdgeCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.edges)
}

// Snapshot returns a detached copy of the graph in insertion order,
// with each node's degree computed.
func (b *Builder) Snapshot() *Snapshot {
	b.mu.RLock()
	defer b.mu.RUnlock()

	degrees := make(map[NodeKey]int, len(b.nodes))
	for _, key := range b.edgeOrder {
		degrees[key.Source]++
		degrees[key.Target]++
	}

	snapshot := &Snapshot{
		Nodes: make([]SnapshotNode, 0, len(b.nodeOrder)),
		Edges: make([]Edge, 0, len(b.edgeOrder)),
	}
	for _, key := range b.nodeOrder {
		snapshot.Nodes = append(snapshot.Nodes, SnapshotNode{
			Node:   *b.nodes[key],
			Degree: degrees[key],
		})
	}
	for _, key := range b.edgeOrder {
		snapshot.Edges = append(snapshot.Edges, *b.edges[key])
	}
	return snapshot
}

// TopEntities ranks entities by total mentions across all pages,
// descending, ties broken by insertion order. Returns at most n.
func (b *Builder) TopEntities(n int) []model.EntityRank {
	b.mu.RLock()
	defer b.mu.RUnlock()

	mentions := make(map[NodeKey]int)
	for _, key := range b.edgeOrder {
		if key.Type == EdgeTypeMentions {
			mentions[key.Target] += b.edges[key].Count
		}
	}

	ranks := make([]model.EntityRank, 0, len(mentions))
	for _, key := range b.nodeOrder {
		if key.Kind != NodeKindEntity {
			continue
		}
		node := b.nodes[key]
		ranks = append(ranks, model.EntityRank{
			Text:     node.Text,
			Label:    node.Label,
			Mentions: mentions[key],
		})
	}

	sort.SliceStable(ranks, func(i, j int) bool {
		return ranks[i].Mentions > ranks[j].Mentions
	})
	if n > 0 && len(ranks) > n {
		ranks = ranks[:n]
	}
	return ranks
}

// TopDomains ranks link target hosts by inbound LINKS_TO edge count,
// descending, ties broken by first appearance. Returns at most n.
func (b *Builder) TopDomains(n int) []model.DomainRank {
	b.mu.RLock()
	defer b.mu.RUnlock()

	links := make(map[string]int)
	var order []string
	for _, key := range b.edgeOrder {
		if key.Type != EdgeTypeLinksTo {
			continue
		}
		domain := urlnorm.MustHost(key.Target.Key)
		if domain == "" {
			continue
		}
		if links[domain] == 0 {
			order = append(order, domain)
		}
		links[domain]++
	}

	ranks := make([]model.DomainRank, 0, len(order))
	for _, domain := range order {
		ranks = append(ranks, model.DomainRank{Domain: domain, Links: links[domain]})
	}

	sort.SliceStable(ranks, func(i, j int) bool {
		return ranks[i].Links > ranks[j].Links
	})
	if n > 0 && len(ranks) > n {
		ranks = ranks[:n]
	}
	return ranks
}

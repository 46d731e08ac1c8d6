// Package graph holds the knowledge graph built from a markdown corpus and
// the builder that produces it.
//
// A Graph is an immutable snapshot. Explicit LINK edges come from resolved
// markdown links; SAME_TYPE and SAME_CATEGORY relations are implied by the
// membership indexes and derived on demand by Neighbors, so they are never
// materialised as edge lists.
package graph

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/soundprediction/docgraph/pkg/types"
)

// Neighbor is a node reachable in one hop and the relation that reaches it.
type Neighbor struct {
	ID       string
	Relation types.RelationType
}

// Graph is a read-only view over parsed documents.
type Graph struct {
	nodes      []*types.DocumentNode
	byID       map[string]*types.DocumentNode
	order      map[string]int
	links      map[string][]string
	byType     map[string][]string
	byCategory map[string][]string
}

// New assembles a graph from nodes in discovery order. Resolved links that
// point outside the node set are dropped. Duplicate doc IDs are an error.
func New(nodes []*types.DocumentNode) (*Graph, error) {
	g := &Graph{
		nodes:      make([]*types.DocumentNode, 0, len(nodes)),
		byID:       make(map[string]*types.DocumentNode, len(nodes)),
		order:      make(map[string]int, len(nodes)),
		links:      make(map[string][]string, len(nodes)),
		byType:     make(map[string][]string),
		byCategory: make(map[string][]string),
	}
	for _, n := range nodes {
		if err := n.Validate(); err != nil {
			return nil, fmt.Errorf("invalid node %q: %w", n.FilePath, err)
		}
		if _, dup := g.byID[n.DocID]; dup {
			return nil, fmt.Errorf("duplicate doc_id %q (%s)", n.DocID, n.FilePath)
		}
		g.order[n.DocID] = len(g.nodes)
		g.byID[n.DocID] = n
		g.nodes = append(g.nodes, n)
		g.byType[n.DocType] = append(g.byType[n.DocType], n.DocID)
		g.byCategory[n.Category] = append(g.byCategory[n.Category], n.DocID)
	}
	for _, n := range g.nodes {
		kept := n.ResolvedLinks[:0:0]
		for _, id := range n.ResolvedLinks {
			if _, ok := g.byID[id]; ok && id != n.DocID {
				kept = append(kept, id)
			}
		}
		n.ResolvedLinks = kept
		g.links[n.DocID] = kept
	}
	return g, nil
}

// Len returns the number of documents.
func (g *Graph) Len() int {
	return len(g.nodes)
}

// Nodes returns the documents in discovery order. The slice is a copy; the
// nodes are shared and must not be modified.
func (g *Graph) Nodes() []*types.DocumentNode {
	return slices.Clone(g.nodes)
}

// Node looks up a document by ID.
func (g *Graph) Node(id string) (*types.DocumentNode, bool) {
	n, ok := g.byID[id]
	return n, ok
}

// Order returns the discovery position of id, or -1.
func (g *Graph) Order(id string) int {
	if i, ok := g.order[id]; ok {
		return i
	}
	return -1
}

// LinksMap returns a copy of the explicit link adjacency.
func (g *Graph) LinksMap() map[string][]string {
	out := make(map[string][]string, len(g.links))
	for id, l := range g.links {
		out[id] = slices.Clone(l)
	}
	return out
}

// Links returns the outgoing LINK targets of id.
func (g *Graph) Links(id string) []string {
	return slices.Clone(g.links[id])
}

// EdgeCount is the number of explicit LINK edges.
func (g *Graph) EdgeCount() int {
	total := 0
	for _, l := range g.links {
		total += len(l)
	}
	return total
}

// Neighbors lists every node one hop from id: LINK targets first, then the
// other members of its doc type, then the other members of its category,
// each group in discovery order. A node appears once, under the first
// relation that reaches it; id itself is never included.
func (g *Graph) Neighbors(id string) []Neighbor {
	n, ok := g.byID[id]
	if !ok {
		return nil
	}
	seen := map[string]struct{}{id: {}}
	var out []Neighbor
	add := func(ids []string, rel types.RelationType) {
		for _, other := range ids {
			if _, dup := seen[other]; dup {
				continue
			}
			seen[other] = struct{}{}
			out = append(out, Neighbor{ID: other, Relation: rel})
		}
	}
	add(g.links[id], types.RelationLink)
	add(g.byType[n.DocType], types.RelationSameType)
	add(g.byCategory[n.Category], types.RelationSameCategory)
	return out
}

// Relationships returns the explicit outgoing and incoming links of id.
// Incoming links are found by scanning every node's links.
func (g *Graph) Relationships(id string) (*types.Relationships, error) {
	n, ok := g.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", types.ErrDocumentNotFound, id)
	}
	rel := &types.Relationships{
		Document: ref(n),
		Outgoing: []types.DocumentRef{},
		Incoming: []types.DocumentRef{},
	}
	for _, target := range g.links[id] {
		rel.Outgoing = append(rel.Outgoing, ref(g.byID[target]))
	}
	for _, other := range g.nodes {
		if other.DocID == id {
			continue
		}
		if slices.Contains(g.links[other.DocID], id) {
			rel.Incoming = append(rel.Incoming, ref(other))
		}
	}
	return rel, nil
}

// Stats summarises the graph. topN bounds the most-connected list, which is
// ordered by outgoing link count with ties in discovery order.
func (g *Graph) Stats(topN int) *types.GraphStats {
	stats := &types.GraphStats{
		TotalDocuments:     len(g.nodes),
		TotalRelationships: g.EdgeCount(),
		ByType:             make(map[string]int, len(g.byType)),
		ByCategory:         make(map[string]int, len(g.byCategory)),
		MostConnected:      []types.ConnectedDocument{},
	}
	for t, ids := range g.byType {
		stats.ByType[t] = len(ids)
	}
	for c, ids := range g.byCategory {
		stats.ByCategory[c] = len(ids)
	}

	ranked := slices.Clone(g.nodes)
	slices.SortStableFunc(ranked, func(a, b *types.DocumentNode) int {
		return cmp.Compare(len(g.links[b.DocID]), len(g.links[a.DocID]))
	})
	if topN >= 0 && len(ranked) > topN {
		ranked = ranked[:topN]
	}
	for _, n := range ranked {
		stats.MostConnected = append(stats.MostConnected, types.ConnectedDocument{
			ID:          n.DocID,
			Title:       n.Title,
			Type:        n.DocType,
			Connections: len(g.links[n.DocID]),
		})
	}
	return stats
}

func ref(n *types.DocumentNode) types.DocumentRef {
	return types.DocumentRef{ID: n.DocID, Title: n.Title, Type: n.DocType, Category: n.Category}
}

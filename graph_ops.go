package docgraph

import (
	"context"
	"fmt"
	"math"
	"slices"

	"github.com/soundprediction/docgraph/pkg/types"
)

// DefaultVerifySample is the number of records VerifyIndex inspects when
// called with a non-positive sample size.
const DefaultVerifySample = 5

// Relationships returns the explicit outgoing and incoming links of docID.
func (c *Client) Relationships(docID string) (*types.Relationships, error) {
	g, err := c.currentGraph()
	if err != nil {
		return nil, err
	}
	return g.Relationships(docID)
}

// Stats summarises the current graph. Before the first build it returns
// empty statistics.
func (c *Client) Stats() *types.GraphStats {
	g := c.Graph()
	if g == nil {
		return &types.GraphStats{
			ByType:        map[string]int{},
			ByCategory:    map[string]int{},
			MostConnected: []types.ConnectedDocument{},
		}
	}
	return g.Stats(c.config.StatsTopN)
}

// IndexStats describes the collection the alias currently points at.
func (c *Client) IndexStats(ctx context.Context) (*types.IndexStats, error) {
	collection, err := c.activeCollection(ctx)
	if err != nil {
		return nil, err
	}
	records, err := c.store.List(ctx, collection, 0)
	if err != nil {
		return nil, err
	}
	stats := &types.IndexStats{Collection: collection, TotalDocuments: len(records)}
	for _, r := range records {
		links, _ := linkedDocs(r.Metadata)
		if len(links) > 0 {
			stats.DocumentsWithRelationship++
			stats.TotalRelationships += len(links)
		}
	}
	return stats, nil
}

// VerifyIndex checks a sample of stored records: vectors must be plain
// finite float arrays of the expected dimension and the linked_docs
// metadata must round-trip to the links in the current graph.
func (c *Client) VerifyIndex(ctx context.Context, sample int) (*types.VerifyReport, error) {
	if sample <= 0 {
		sample = DefaultVerifySample
	}
	collection, err := c.activeCollection(ctx)
	if err != nil {
		return nil, err
	}
	records, err := c.store.List(ctx, collection, sample)
	if err != nil {
		return nil, err
	}

	dim := c.config.Dimensions
	if dim <= 0 {
		dim = c.embedder.Dimensions()
	}
	report := &types.VerifyReport{Collection: collection, Checked: len(records), Dimension: dim}
	problem := func(format string, args ...any) {
		report.Problems = append(report.Problems, fmt.Sprintf(format, args...))
	}

	g := c.Graph()
	for _, r := range records {
		if len(r.Vector) != dim {
			problem("%s: vector has %d values, expected %d", r.ID, len(r.Vector), dim)
		}
		for i, x := range r.Vector {
			if math.IsNaN(float64(x)) || math.IsInf(float64(x), 0) {
				problem("%s: vector value %d is not finite", r.ID, i)
				break
			}
		}
		if id, _ := r.Metadata["doc_id"].(string); id != r.ID {
			problem("%s: metadata doc_id is %q", r.ID, id)
		}
		links, ok := linkedDocs(r.Metadata)
		if !ok {
			problem("%s: linked_docs metadata missing or not a string list", r.ID)
			continue
		}
		if g == nil {
			continue
		}
		if _, found := g.Node(r.ID); !found {
			problem("%s: stored record is not in the knowledge graph", r.ID)
			continue
		}
		if want := g.Links(r.ID); !slices.Equal(links, want) {
			problem("%s: linked_docs %v do not match graph links %v", r.ID, links, want)
		}
	}

	if report.OK() {
		c.logger.InfoContext(ctx, "Index verified", "collection", collection, "checked", report.Checked)
	} else {
		c.logger.WarnContext(ctx, "Index verification found problems", "collection", collection, "problems", len(report.Problems))
	}
	return report, nil
}

// linkedDocs reads the linked_docs metadata, which decodes as []any from
// JSON-backed stores.
func linkedDocs(metadata map[string]any) ([]string, bool) {
	switch v := metadata["linked_docs"].(type) {
	case []string:
		return v, true
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	default:
		return nil, false
	}
}

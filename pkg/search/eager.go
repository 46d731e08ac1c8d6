package search

import (
	"cmp"
	"context"
	"slices"

	"github.com/soundprediction/docgraph/pkg/graph"
	"github.com/soundprediction/docgraph/pkg/utils"
)

// RetrieveVector runs the Eager strategy for an already embedded query.
func (r *Retriever) RetrieveVector(ctx context.Context, vec []float32) ([]Result, error) {
	cfg := r.config
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.StartK == 0 || r.graph == nil || r.graph.Len() == 0 {
		return []Result{}, nil
	}

	seeds, err := r.seeds(ctx, vec, cfg.StartK)
	if err != nil {
		return nil, err
	}

	found := slices.Clone(seeds)
	visited := make(map[string]struct{}, len(seeds))
	for _, s := range seeds {
		visited[s.Node.DocID] = struct{}{}
	}

	frontier := seeds
	for depth := 1; depth <= cfg.MaxDepth && cfg.AdjacentK > 0 && len(frontier) > 0; depth++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		next, err := r.expand(ctx, vec, frontier, visited, depth)
		if err != nil {
			return nil, err
		}
		r.logger.Debug("Expanded frontier", "depth", depth, "frontier", len(frontier), "added", len(next))
		found = append(found, next...)
		frontier = next
	}

	results := r.rank(dedupe(found))
	if len(results) > cfg.SelectK {
		results = results[:cfg.SelectK]
	}
	return results, nil
}

// expand scores the unvisited neighbours of every frontier document and keeps
// the AdjacentK best per document. Vectors for all candidates of the hop are
// fetched in one store call; a candidate without a stored vector scores 0.
func (r *Retriever) expand(ctx context.Context, vec []float32, frontier []Result, visited map[string]struct{}, depth int) ([]Result, error) {
	neighbours := make([][]graph.Neighbor, len(frontier))
	var ids []string
	requested := make(map[string]struct{})
	for i, f := range frontier {
		neighbours[i] = r.graph.Neighbors(f.Node.DocID)
		for _, n := range neighbours[i] {
			if _, seen := visited[n.ID]; seen {
				continue
			}
			if _, dup := requested[n.ID]; dup {
				continue
			}
			requested[n.ID] = struct{}{}
			ids = append(ids, n.ID)
		}
	}
	if len(ids) == 0 {
		return nil, nil
	}

	records, err := r.store.Get(ctx, r.collection, ids)
	if err != nil {
		return nil, err
	}
	scores := make(map[string]float64, len(records))
	for _, rec := range records {
		scores[rec.ID] = utils.CosineSimilarity(vec, rec.Vector)
	}

	var next []Result
	for i := range frontier {
		var candidates []utils.ScoredItem[graph.Neighbor]
		for _, n := range neighbours[i] {
			if _, seen := visited[n.ID]; seen {
				continue
			}
			candidates = append(candidates, utils.ScoredItem[graph.Neighbor]{Item: n, Score: scores[n.ID]})
		}
		slices.SortStableFunc(candidates, func(a, b utils.ScoredItem[graph.Neighbor]) int {
			return cmp.Compare(r.graph.Order(a.Item.ID), r.graph.Order(b.Item.ID))
		})
		for _, c := range utils.TopK(candidates, r.config.AdjacentK) {
			node, _ := r.graph.Node(c.Item.ID)
			visited[c.Item.ID] = struct{}{}
			next = append(next, Result{Node: node, Score: c.Score, Depth: depth, Relation: c.Item.Relation})
		}
	}
	return next, nil
}

// dedupe keeps one result per document with the minimum depth and the
// maximum score seen for it.
func dedupe(results []Result) []Result {
	index := make(map[string]int, len(results))
	out := make([]Result, 0, len(results))
	for _, res := range results {
		i, ok := index[res.Node.DocID]
		if !ok {
			index[res.Node.DocID] = len(out)
			out = append(out, res)
			continue
		}
		if res.Depth < out[i].Depth {
			out[i].Depth = res.Depth
			out[i].Relation = res.Relation
		}
		out[i].Score = max(out[i].Score, res.Score)
	}
	return out
}

// rank orders by depth ascending, score descending, then discovery order.
func (r *Retriever) rank(results []Result) []Result {
	slices.SortStableFunc(results, func(a, b Result) int {
		if c := cmp.Compare(a.Depth, b.Depth); c != 0 {
			return c
		}
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		return cmp.Compare(r.graph.Order(a.Node.DocID), r.graph.Order(b.Node.DocID))
	})
	return results
}

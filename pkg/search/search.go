package search

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/soundprediction/docgraph/pkg/embedder"
	"github.com/soundprediction/docgraph/pkg/graph"
	"github.com/soundprediction/docgraph/pkg/types"
	"github.com/soundprediction/docgraph/pkg/vectorstore"
)

// EagerConfig bounds the Eager traversal.
type EagerConfig struct {
	// StartK is the number of vector search seeds.
	StartK int `json:"start_k" yaml:"start_k"`
	// AdjacentK is the number of neighbours kept per frontier document per hop.
	AdjacentK int `json:"adjacent_k" yaml:"adjacent_k"`
	// SelectK caps the final result count.
	SelectK int `json:"select_k" yaml:"select_k"`
	// MaxDepth is the number of hops away from the seeds.
	MaxDepth int `json:"max_depth" yaml:"max_depth"`
}

// Defaults for EagerConfig.
const (
	DefaultStartK    = 5
	DefaultAdjacentK = 10
	DefaultSelectK   = 20
	DefaultMaxDepth  = 2
)

// DefaultEagerConfig returns the standard traversal bounds.
func DefaultEagerConfig() EagerConfig {
	return EagerConfig{
		StartK:    DefaultStartK,
		AdjacentK: DefaultAdjacentK,
		SelectK:   DefaultSelectK,
		MaxDepth:  DefaultMaxDepth,
	}
}

// Validate rejects negative bounds.
func (c EagerConfig) Validate() error {
	if c.StartK < 0 || c.AdjacentK < 0 || c.SelectK < 0 || c.MaxDepth < 0 {
		return fmt.Errorf("eager bounds must not be negative: %+v", c)
	}
	return nil
}

// Result is a retrieved document with the score and depth it was found at.
// Depth 0 documents come straight from vector search.
type Result struct {
	Node  *types.DocumentNode `json:"node"`
	Score float64             `json:"score"`
	Depth int                 `json:"depth"`
	// Relation is how the document was reached; empty for seeds.
	Relation types.RelationType `json:"relation,omitempty"`
}

// Retriever runs Eager retrieval against one graph snapshot and one
// collection (name or alias) of the vector store.
type Retriever struct {
	graph      *graph.Graph
	store      vectorstore.Store
	embedder   embedder.Client
	collection string
	config     EagerConfig
	logger     *slog.Logger
}

// NewRetriever builds a retriever. A nil logger uses slog.Default().
func NewRetriever(g *graph.Graph, store vectorstore.Store, emb embedder.Client, collection string, cfg EagerConfig, logger *slog.Logger) *Retriever {
	if logger == nil {
		logger = slog.Default()
	}
	return &Retriever{
		graph:      g,
		store:      store,
		embedder:   emb,
		collection: collection,
		config:     cfg,
		logger:     logger,
	}
}

// Config returns the traversal bounds.
func (r *Retriever) Config() EagerConfig {
	return r.config
}

func (r *Retriever) embedQuery(ctx context.Context, query string) ([]float32, error) {
	vec, err := r.embedder.EmbedSingle(ctx, strings.ReplaceAll(query, "\n", " "))
	if err != nil {
		return nil, &types.EmbeddingError{Batch: 0, Err: fmt.Errorf("failed to create query embedding: %w", err)}
	}
	return vec, nil
}

// Retrieve embeds query and runs the Eager strategy.
func (r *Retriever) Retrieve(ctx context.Context, query string) ([]Result, error) {
	if err := r.config.Validate(); err != nil {
		return nil, err
	}
	if r.config.StartK == 0 || r.graph == nil || r.graph.Len() == 0 || strings.TrimSpace(query) == "" {
		return []Result{}, nil
	}
	vec, err := r.embedQuery(ctx, query)
	if err != nil {
		return nil, err
	}
	return r.RetrieveVector(ctx, vec)
}

// Similar returns the k nearest documents without graph expansion.
func (r *Retriever) Similar(ctx context.Context, query string, k int) ([]Result, error) {
	if k <= 0 || r.graph == nil || r.graph.Len() == 0 || strings.TrimSpace(query) == "" {
		return []Result{}, nil
	}
	vec, err := r.embedQuery(ctx, query)
	if err != nil {
		return nil, err
	}
	return r.seeds(ctx, vec, k)
}

// seeds runs the vector search and maps matches onto graph nodes. Matches
// for documents missing from the graph are skipped.
func (r *Retriever) seeds(ctx context.Context, vec []float32, k int) ([]Result, error) {
	matches, err := r.store.SimilaritySearch(ctx, r.collection, vec, k)
	if err != nil {
		return nil, err
	}
	out := make([]Result, 0, len(matches))
	for _, m := range matches {
		node, ok := r.graph.Node(m.ID)
		if !ok {
			r.logger.Debug("Vector match not in graph", "doc_id", m.ID)
			continue
		}
		out = append(out, Result{Node: node, Score: m.Score, Depth: 0})
	}
	return out, nil
}

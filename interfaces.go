package docgraph

import (
	"context"

	"github.com/soundprediction/docgraph/pkg/graph"
	"github.com/soundprediction/docgraph/pkg/types"
)

// The DocGraph interface is composed from these smaller interfaces.
// Consumers should depend on the smallest interface that meets their needs.

// GraphBuilder turns a markdown corpus into the current knowledge graph.
type GraphBuilder interface {
	// BuildGraph parses every document below root and replaces the current graph.
	BuildGraph(ctx context.Context, root string) (*graph.Graph, error)

	// LoadGraph restores the graph from a snapshot when it is still fresh,
	// building it otherwise.
	LoadGraph(ctx context.Context, root string) (*graph.Graph, error)
}

// Indexer writes the current graph into the vector store.
type Indexer interface {
	// Index embeds and stores every document; success is a nil error.
	// A failed run leaves the previously active index untouched.
	Index(ctx context.Context) error
}

// Querier answers questions over the indexed corpus.
type Querier interface {
	// Query retrieves documents for question and, with includeContext,
	// asks the language model for an answer.
	Query(ctx context.Context, question string, includeContext bool) (*types.QueryResult, error)

	// TestSearch runs a plain vector search for diagnostics.
	TestSearch(ctx context.Context, query string, k int) ([]types.DocumentSummary, error)
}

// GraphInspector provides read-only views of the graph and index.
type GraphInspector interface {
	// Relationships returns the outgoing and incoming links of a document.
	Relationships(docID string) (*types.Relationships, error)

	// Stats summarises the current graph.
	Stats() *types.GraphStats

	// IndexStats summarises the active vector collection.
	IndexStats(ctx context.Context) (*types.IndexStats, error)

	// VerifyIndex checks a sample of stored vectors and their metadata.
	VerifyIndex(ctx context.Context, sample int) (*types.VerifyReport, error)
}

// DocGraph is the full client surface used by the CLI and the HTTP server.
type DocGraph interface {
	GraphBuilder
	Indexer
	Querier
	GraphInspector

	// Close releases the store, embedder and language model.
	Close(ctx context.Context) error
}

var _ DocGraph = (*Client)(nil)

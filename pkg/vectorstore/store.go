// Package vectorstore holds document embeddings in named collections and
// answers nearest-neighbour queries over them.
//
// Collections are addressed either by their concrete name or by an alias.
// Aliases let an indexer build a fresh collection and promote it in one step
// with SwapAlias, so readers never observe a partially written index.
package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/soundprediction/docgraph/pkg/config"
)

var (
	// ErrCollectionNotFound is returned for a name that is neither a collection nor an alias.
	ErrCollectionNotFound = errors.New("collection not found")

	// ErrCollectionExists is returned when creating a collection twice.
	ErrCollectionExists = errors.New("collection already exists")

	// ErrAliasNotFound is returned by ResolveAlias for an unknown alias.
	ErrAliasNotFound = errors.New("alias not found")

	// ErrDimensionMismatch is returned when a vector does not match the collection dimension.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
)

// Record is a stored document embedding.
type Record struct {
	ID       string         `json:"id"`
	Vector   []float32      `json:"vector"`
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Match is a similarity search hit.
type Match struct {
	ID       string         `json:"id"`
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata,omitempty"`
	Score    float64        `json:"score"`
}

// Store is the vector index used by the indexer and the retriever.
// Every method taking a collection accepts either its name or an alias.
type Store interface {
	CreateCollection(ctx context.Context, name string, dimensions int) error
	Upsert(ctx context.Context, collection string, records []Record) error
	SimilaritySearch(ctx context.Context, collection string, vector []float32, k int) ([]Match, error)
	// Get returns the stored records for ids in the order requested. Unknown ids are skipped.
	Get(ctx context.Context, collection string, ids []string) ([]Record, error)
	// List returns up to limit records in storage order; limit <= 0 returns all.
	List(ctx context.Context, collection string, limit int) ([]Record, error)
	Count(ctx context.Context, collection string) (int, error)
	DropCollection(ctx context.Context, name string) error
	// Collections lists concrete collection names in lexical order.
	Collections(ctx context.Context) ([]string, error)
	// SwapAlias points alias at name and returns the collection it pointed at before,
	// or "" when the alias is new.
	SwapAlias(ctx context.Context, alias, name string) (string, error)
	ResolveAlias(ctx context.Context, alias string) (string, error)
	Close() error
}

// Driver names accepted by NewFromConfig.
const (
	DriverMemory = "memory"
	DriverBadger = "badger"
	DriverNeo4j  = "neo4j"
)

// NewFromConfig opens the backend selected by cfg.Driver.
func NewFromConfig(ctx context.Context, cfg config.VectorStoreConfig) (Store, error) {
	switch strings.ToLower(cfg.Driver) {
	case DriverMemory:
		return NewMemoryStore(), nil
	case "", DriverBadger:
		return NewBadgerStore(BadgerOptions{Path: cfg.Path})
	case DriverNeo4j:
		return NewNeo4jStore(ctx, Neo4jOptions{
			URI:      cfg.URI,
			Username: cfg.Username,
			Password: cfg.Password,
			Database: cfg.Database,
		})
	default:
		return nil, fmt.Errorf("unsupported vector store driver: %s", cfg.Driver)
	}
}

func checkDimensions(records []Record, dim int) error {
	for _, r := range records {
		if len(r.Vector) != dim {
			return fmt.Errorf("%w: record %s has %d values, collection expects %d",
				ErrDimensionMismatch, r.ID, len(r.Vector), dim)
		}
	}
	return nil
}

func cloneRecord(r Record) Record {
	out := Record{
		ID:      r.ID,
		Vector:  append([]float32(nil), r.Vector...),
		Content: r.Content,
	}
	if r.Metadata != nil {
		out.Metadata = make(map[string]any, len(r.Metadata))
		for k, v := range r.Metadata {
			out.Metadata[k] = v
		}
	}
	return out
}

package types

import (
	"errors"
	"fmt"
)

// Pipeline errors
var (
	// ErrParseFailure indicates a document could not be read or decoded.
	ErrParseFailure = errors.New("document could not be parsed")

	// ErrEmbedding indicates the embedding provider failed.
	ErrEmbedding = errors.New("embedding provider failed")

	// ErrVectorStore indicates the vector store failed.
	ErrVectorStore = errors.New("vector store failed")

	// ErrLLM indicates answer synthesis failed.
	ErrLLM = errors.New("language model failed")

	// ErrDocumentNotFound is returned when a doc_id is not part of the graph.
	ErrDocumentNotFound = errors.New("document not found")

	// ErrGraphNotBuilt is returned when an operation needs a graph and none was built.
	ErrGraphNotBuilt = errors.New("knowledge graph has not been built")

	// ErrIndexNotReady is returned when no collection has been promoted yet.
	ErrIndexNotReady = errors.New("vector index has no active collection")
)

// ParseError describes a document that was skipped during parsing.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support so callers can match ErrParseFailure.
func (e *ParseError) Is(target error) bool {
	return target == ErrParseFailure
}

// EmbeddingError describes a failed embedding batch.
type EmbeddingError struct {
	Batch int
	Err   error
}

func (e *EmbeddingError) Error() string {
	return fmt.Sprintf("embedding batch %d: %v", e.Batch, e.Err)
}

func (e *EmbeddingError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support so callers can match ErrEmbedding.
func (e *EmbeddingError) Is(target error) bool {
	return target == ErrEmbedding
}

// VectorStoreError describes a failed vector store operation.
type VectorStoreError struct {
	Op         string
	Collection string
	Err        error
}

func (e *VectorStoreError) Error() string {
	if e.Collection == "" {
		return fmt.Sprintf("vector store %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("vector store %s %q: %v", e.Op, e.Collection, e.Err)
}

func (e *VectorStoreError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support so callers can match ErrVectorStore.
func (e *VectorStoreError) Is(target error) bool {
	return target == ErrVectorStore
}

// NewVectorStoreError wraps err unless it already carries vector store context.
func NewVectorStoreError(op, collection string, err error) error {
	if err == nil {
		return nil
	}
	var vsErr *VectorStoreError
	if errors.As(err, &vsErr) {
		return err
	}
	return &VectorStoreError{Op: op, Collection: collection, Err: err}
}

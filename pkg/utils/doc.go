// Package utils holds the small helpers shared by the docgraph packages:
// a bounded worker pool used by the graph builder, slice batching for the
// indexer, panic recovery for goroutines and cosine similarity over
// embedding vectors.
package utils

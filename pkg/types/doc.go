// Package types defines the core data types for the docgraph knowledge graph.
//
// This package contains the fundamental types used throughout docgraph:
//   - DocumentNode: One parsed markdown document, the graph's vertex
//   - RelationType: LINK, SAME_TYPE and SAME_CATEGORY relations between documents
//   - QueryResult / DocumentSummary: The shape returned to question askers
//   - GraphStats / Relationships: Read-only views over a built graph
//   - Message / Response: LLM chat primitives shared by pkg/nlp
//
// # Identifiers
//
// A document's DocID is derived from its corpus-relative path, so re-parsing an
// unchanged corpus always yields the same identifiers:
//
//	04_marketing/02_offerings/01_suborbital.md -> 04_marketing_02_offerings_01_suborbital
//
// # Validation
//
// Types provide Validate() methods for input validation:
//
//	node := &types.DocumentNode{DocID: "a", FilePath: "a.md"}
//	if err := node.Validate(); err != nil {
//	    // Handle validation error
//	}
//
// # JSON Serialization
//
// All types are designed to be JSON-serializable with appropriate struct tags.
package types

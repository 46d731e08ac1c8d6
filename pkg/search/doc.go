// Package search retrieves documents for a question by combining vector
// similarity with traversal of the knowledge graph.
//
// # Eager retrieval
//
// The Eager strategy seeds the result set with the StartK nearest documents
// from the vector store (depth 0). Each hop then expands every frontier
// document through graph.Neighbors (LINK, SAME_TYPE and SAME_CATEGORY),
// scores the not yet visited neighbours against the query embedding, and
// keeps the AdjacentK best per frontier document at the next depth. After
// MaxDepth hops the results are ordered by depth, then score, then discovery
// order, and truncated to SelectK.
//
// # Usage
//
//	retriever := search.NewRetriever(g, store, emb, "docgraph", search.DefaultEagerConfig(), logger)
//	results, err := retriever.Retrieve(ctx, "what onboarding steps exist?")
//
// Setting AdjacentK or MaxDepth to zero reduces the strategy to plain vector
// search.
package search

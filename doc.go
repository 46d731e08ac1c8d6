// Package docgraph builds a knowledge graph from a tree of cross-linked
// markdown documents and answers questions over it.
//
// Retrieval combines vector similarity with traversal of the document graph:
// the nearest documents seed the result set and their LINK, SAME_TYPE and
// SAME_CATEGORY neighbours are added hop by hop, so documents that never
// mention the question's words can still be found through the documents
// that do.
//
// # Basic Usage
//
// Create a client from a vector store, an embedder and (optionally) a
// language model:
//
//	store, err := vectorstore.NewBadgerStore(vectorstore.BadgerOptions{Path: "/var/lib/docgraph"})
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	emb, err := embedder.NewOpenAIEmbedder("your-api-key", embedder.Config{Model: "text-embedding-3-small", Dimensions: 384})
//	if err != nil {
//		log.Fatal(err)
//	}
//	llmClient, err := nlp.NewOpenAIClient("your-api-key", nlp.Config{Model: "gpt-4o-mini"})
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	client, err := docgraph.NewClient(store, emb, llmClient, &docgraph.Config{CorpusRoot: "./docs"}, nil)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer client.Close(ctx)
//
// # Building and Indexing
//
//	if _, err := client.BuildGraph(ctx, ""); err != nil {
//		log.Fatal(err)
//	}
//	if err := client.Index(ctx); err != nil {
//		log.Fatal(err)
//	}
//
// Index is all-or-nothing. Each run writes into a fresh collection named
// <Collection>__<uuid> and moves the Collection alias onto it only when
// every batch has been embedded and stored; a failed or cancelled run
// leaves the previous index in place.
//
// # Querying
//
//	result, err := client.Query(ctx, "What does the lunar package include?", true)
//	if err != nil {
//		log.Fatal(err)
//	}
//	fmt.Println(result.Answer)
//	for _, doc := range result.RetrievedDocuments {
//		fmt.Printf("%s (depth %d, score %.3f)\n", doc.Title, doc.Depth, doc.SimilarityScore)
//	}
//
// A language model failure leaves Answer empty; the retrieved documents are
// still returned.
//
// # Error Handling
//
// Sentinel errors live in pkg/types:
//
//   - ErrGraphNotBuilt: an operation needs a graph and none was built
//   - ErrIndexNotReady: no collection has been promoted yet
//   - ErrDocumentNotFound: a doc_id is not part of the graph
//   - ErrEmbedding, ErrVectorStore: an index run failed
//
// # Architecture
//
//   - pkg/parser: markdown parsing, link extraction and classification
//   - pkg/resolver: link resolution over the complete document set
//   - pkg/graph: immutable graph snapshot and concurrent builder
//   - pkg/search: Eager hybrid retrieval
//   - pkg/vectorstore: memory, Badger and Neo4j vector stores
//   - pkg/embedder, pkg/nlp: embedding and language model clients
//   - pkg/cache, pkg/snapshot: Redis query cache and SQLite graph snapshots
//   - pkg/server: HTTP API
package docgraph

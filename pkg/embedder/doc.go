// Package embedder turns document and query text into float32 vectors.
//
// Two providers are available:
//   - OpenAI (and OpenAI-compatible servers): text-embedding-3-small and friends
//   - Hashing: a deterministic offline embedder for tests and air-gapped corpora
//
// Usage:
//
//	emb, err := embedder.NewOpenAIEmbedder(apiKey, embedder.Config{
//	    Model:      "text-embedding-3-small",
//	    Dimensions: 384,
//	})
//	vectors, err := emb.Embed(ctx, []string{"launch schedule", "crew training"})
//
// Embed splits its input into provider-sized batches; the returned slice is
// positional and always has one vector per input text.
package embedder

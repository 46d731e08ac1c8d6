// Package nlp provides the language model clients used to answer questions
// over retrieved documents.
//
// # Providers
//
//   - OpenAI and OpenAI-compatible servers (Ollama, vLLM) through go-openai
//   - Anthropic through its Messages HTTP API
//
// # Wrappers
//
//   - RetryClient: exponential backoff on rate limits and 5xx errors
//   - CircuitBreakerClient: stops calling a failing provider and raises an alert
//   - TokenTrackingClient: records token usage to Parquet files
//
// # Usage
//
//	client, err := nlp.NewOpenAIClient(apiKey, nlp.Config{Model: "gpt-4o-mini"})
//	answer, err := nlp.Complete(ctx, nlp.NewRetryClient(client, nil), prompt)
package nlp

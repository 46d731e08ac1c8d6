package embedder

import (
	"context"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/soundprediction/docgraph/pkg/types"
	"github.com/soundprediction/docgraph/pkg/utils"
)

// OpenAIEmbedder calls the OpenAI embeddings endpoint.
type OpenAIEmbedder struct {
	client *openai.Client
	config Config
}

// NewOpenAIEmbedder creates an embedder. BaseURL targets an OpenAI-compatible server.
func NewOpenAIEmbedder(apiKey string, config Config) (*OpenAIEmbedder, error) {
	if config.Model == "" {
		config.Model = string(openai.SmallEmbedding3)
	}
	if config.BatchSize <= 0 {
		config.BatchSize = defaultBatchSize
	}

	var client *openai.Client
	if config.BaseURL != "" {
		if apiKey == "" {
			apiKey = "dummy-key"
		}
		cc := openai.DefaultConfig(apiKey)
		cc.BaseURL = strings.TrimRight(config.BaseURL, "/")
		if !strings.HasSuffix(cc.BaseURL, "/v1") {
			cc.BaseURL += "/v1"
		}
		client = openai.NewClientWithConfig(cc)
	} else {
		if apiKey == "" {
			return nil, fmt.Errorf("openai api key is required")
		}
		client = openai.NewClient(apiKey)
	}
	return &OpenAIEmbedder{client: client, config: config}, nil
}

// Embed returns one vector per text, in input order.
func (e *OpenAIEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	out := make([][]float32, 0, len(texts))
	for i, batch := range utils.Batch(texts, e.config.BatchSize) {
		req := openai.EmbeddingRequestStrings{
			Input: batch,
			Model: openai.EmbeddingModel(e.config.Model),
		}
		if e.config.Dimensions > 0 {
			req.Dimensions = e.config.Dimensions
		}

		resp, err := e.client.CreateEmbeddings(ctx, req)
		if err != nil {
			return nil, &types.EmbeddingError{Batch: i, Err: err}
		}
		if len(resp.Data) != len(batch) {
			return nil, &types.EmbeddingError{Batch: i, Err: fmt.Errorf("expected %d embeddings, got %d", len(batch), len(resp.Data))}
		}

		vectors := make([][]float32, len(batch))
		for _, d := range resp.Data {
			if d.Index < 0 || d.Index >= len(batch) {
				return nil, &types.EmbeddingError{Batch: i, Err: fmt.Errorf("embedding index %d out of range", d.Index)}
			}
			vectors[d.Index] = d.Embedding
		}
		out = append(out, vectors...)
	}
	return out, nil
}

// EmbedSingle embeds one text.
func (e *OpenAIEmbedder) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// Dimensions reports the configured size, or the model's native size when unset.
func (e *OpenAIEmbedder) Dimensions() int {
	if e.config.Dimensions > 0 {
		return e.config.Dimensions
	}
	switch openai.EmbeddingModel(e.config.Model) {
	case openai.LargeEmbedding3:
		return 3072
	default:
		return 1536
	}
}

func (e *OpenAIEmbedder) Close() error {
	return nil
}

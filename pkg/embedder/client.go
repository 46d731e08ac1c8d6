package embedder

import (
	"context"
	"fmt"

	"github.com/soundprediction/docgraph/pkg/config"
)

// Client produces embeddings.
type Client interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedSingle(ctx context.Context, text string) ([]float32, error)
	Dimensions() int
	Close() error
}

// Config holds embedder settings.
type Config struct {
	Model string
	// BatchSize caps the texts sent per provider request.
	BatchSize int
	// Dimensions requests shortened vectors where the model supports it.
	Dimensions int
	BaseURL    string
}

const defaultBatchSize = 100

// NewFromConfig returns the embedder named by cfg.Provider. Without an API
// key the openai provider falls back to the hashing embedder.
func NewFromConfig(cfg config.EmbeddingConfig) (Client, error) {
	switch cfg.Provider {
	case "hashing":
		return NewHashingEmbedder(cfg.Dimensions), nil
	case "openai", "openai_compatible", "":
		if cfg.APIKey == "" && cfg.BaseURL == "" {
			return NewHashingEmbedder(cfg.Dimensions), nil
		}
		return NewOpenAIEmbedder(cfg.APIKey, Config{
			Model:      cfg.Model,
			Dimensions: cfg.Dimensions,
			BaseURL:    cfg.BaseURL,
		})
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Provider)
	}
}

package nlp

import (
	"fmt"
	"log/slog"

	"github.com/soundprediction/docgraph/pkg/alert"
	"github.com/soundprediction/docgraph/pkg/config"
)

// NewFromConfig builds the answer client described by cfg, wrapped in retry
// and, when enabled, circuit breaking. Provider "none" or an empty provider
// returns (nil, nil).
func NewFromConfig(cfg config.LLMConfig, cb config.CircuitBreakerConfig, alerter alert.Alerter, logger *slog.Logger) (Client, error) {
	clientCfg := Config{
		Model:   cfg.Model,
		BaseURL: cfg.BaseURL,
	}
	if cfg.Temperature > 0 {
		t := cfg.Temperature
		clientCfg.Temperature = &t
	}
	if cfg.MaxTokens > 0 {
		n := cfg.MaxTokens
		clientCfg.MaxTokens = &n
	}

	var base Client
	var err error
	switch ProviderID(cfg.Provider) {
	case "", ProviderNone:
		return nil, nil
	case ProviderOpenAI, ProviderOpenAICompatible:
		base, err = NewOpenAIClient(cfg.APIKey, clientCfg)
	case ProviderAnthropic:
		base, err = NewAnthropicClient(cfg.APIKey, clientCfg)
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}

	retryCfg := DefaultRetryConfig()
	retryCfg.MaxRetries = cfg.MaxRetries
	var client Client = NewRetryClient(base, retryCfg).WithLogger(logger)
	if cb.Enabled {
		client = NewCircuitBreakerClient(client, cb, alerter, logger, "llm-"+cfg.Provider)
	}
	return client, nil
}

// Package config loads docgraph settings from a YAML file, environment
// variables and defaults using viper. Only the cmd package reads it; library
// packages receive plain Config structs.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Log            LogConfig            `mapstructure:"log"`
	Corpus         CorpusConfig         `mapstructure:"corpus"`
	Retrieval      RetrievalConfig      `mapstructure:"retrieval"`
	Indexing       IndexingConfig       `mapstructure:"indexing"`
	Embedding      EmbeddingConfig      `mapstructure:"embedding"`
	LLM            LLMConfig            `mapstructure:"llm"`
	VectorStore    VectorStoreConfig    `mapstructure:"vector_store"`
	Cache          CacheConfig          `mapstructure:"cache"`
	Snapshot       SnapshotConfig       `mapstructure:"snapshot"`
	Server         ServerConfig         `mapstructure:"server"`
	Telemetry      TelemetryConfig      `mapstructure:"telemetry"`
	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuit_breaker"`
	Alert          AlertConfig          `mapstructure:"alert"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level string `mapstructure:"level"`
	Color bool   `mapstructure:"color"`
}

// CorpusConfig points at the markdown tree. Empty rule lists keep the
// built-in classification.
type CorpusConfig struct {
	Root          string         `mapstructure:"root"`
	ParseWorkers  int            `mapstructure:"parse_workers"`
	CategoryRules []ClassifyRule `mapstructure:"category_rules"`
	TypeRules     []ClassifyRule `mapstructure:"type_rules"`
}

// ClassifyRule tags a document whose relative path contains any of the
// substrings. Rules are tried in file order.
type ClassifyRule struct {
	Substrings []string `mapstructure:"substrings"`
	Tag        string   `mapstructure:"tag"`
}

// RetrievalConfig holds the Eager traversal bounds.
type RetrievalConfig struct {
	StartK       int `mapstructure:"start_k"`
	AdjacentK    int `mapstructure:"adjacent_k"`
	SelectK      int `mapstructure:"select_k"`
	MaxDepth     int `mapstructure:"max_depth"`
	ContextDocs  int `mapstructure:"context_docs"`
	PreviewChars int `mapstructure:"preview_chars"`
	ContextChars int `mapstructure:"context_chars"`
}

// IndexingConfig controls embedding batches during an index run.
type IndexingConfig struct {
	Collection      string  `mapstructure:"collection"`
	BatchSize       int     `mapstructure:"batch_size"`
	Concurrency     int     `mapstructure:"concurrency"`
	RequestsPerSec  float64 `mapstructure:"requests_per_second"`
	MaxContentChars int     `mapstructure:"max_content_chars"`
}

// EmbeddingConfig holds embedding configuration
type EmbeddingConfig struct {
	Provider   string `mapstructure:"provider"` // openai, hashing
	Model      string `mapstructure:"model"`
	APIKey     string `mapstructure:"api_key"`
	BaseURL    string `mapstructure:"base_url"`
	Dimensions int    `mapstructure:"dimensions"`
}

// LLMConfig holds the answer model configuration
type LLMConfig struct {
	Provider    string  `mapstructure:"provider"` // openai, anthropic, none
	Model       string  `mapstructure:"model"`
	APIKey      string  `mapstructure:"api_key"`
	BaseURL     string  `mapstructure:"base_url"`
	Temperature float32 `mapstructure:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens"`
	MaxRetries  int     `mapstructure:"max_retries"`
}

// VectorStoreConfig selects and configures the vector index backend.
type VectorStoreConfig struct {
	Driver   string `mapstructure:"driver"` // memory, badger, neo4j
	Path     string `mapstructure:"path"`
	URI      string `mapstructure:"uri"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
}

// CacheConfig enables the Redis query cache.
type CacheConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	URL     string `mapstructure:"url"`
	TTL     int    `mapstructure:"ttl"` // in seconds
}

// SnapshotConfig enables the sqlite graph snapshot.
type SnapshotConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // gin mode: debug, release, test
}

// TelemetryConfig holds telemetry configuration
type TelemetryConfig struct {
	ParquetPath string `mapstructure:"parquet_path"`
	SQLitePath  string `mapstructure:"sqlite_path"`
}

// CircuitBreakerConfig holds configuration for circuit breaking
type CircuitBreakerConfig struct {
	Enabled          bool    `mapstructure:"enabled"`
	MaxRequests      uint32  `mapstructure:"max_requests"`
	Interval         int     `mapstructure:"interval"` // in seconds
	Timeout          int     `mapstructure:"timeout"`  // in seconds
	ReadyToTripRatio float64 `mapstructure:"ready_to_trip_ratio"`
}

// AlertConfig holds configuration for alerting
type AlertConfig struct {
	Enabled  bool     `mapstructure:"enabled"`
	SMTPHost string   `mapstructure:"smtp_host"`
	SMTPPort int      `mapstructure:"smtp_port"`
	Username string   `mapstructure:"username"`
	Password string   `mapstructure:"password"`
	From     string   `mapstructure:"from"`
	To       []string `mapstructure:"to"`
}

// Load reads configuration from the global viper instance.
func Load() (*Config, error) {
	return LoadFrom(viper.GetViper())
}

// LoadFrom reads configuration from v after applying defaults and environment overrides.
func LoadFrom(v *viper.Viper) (*Config, error) {
	setDefaults(v)

	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	overrideWithEnv(config)
	return config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.color", true)

	v.SetDefault("corpus.root", "./docs")
	v.SetDefault("corpus.parse_workers", 0)

	v.SetDefault("retrieval.start_k", 5)
	v.SetDefault("retrieval.adjacent_k", 10)
	v.SetDefault("retrieval.select_k", 20)
	v.SetDefault("retrieval.max_depth", 2)
	v.SetDefault("retrieval.context_docs", 10)
	v.SetDefault("retrieval.preview_chars", 500)
	v.SetDefault("retrieval.context_chars", 1000)

	v.SetDefault("indexing.collection", "docgraph")
	v.SetDefault("indexing.batch_size", 50)
	v.SetDefault("indexing.concurrency", 4)
	v.SetDefault("indexing.requests_per_second", 5.0)
	v.SetDefault("indexing.max_content_chars", 8000)

	v.SetDefault("embedding.provider", "openai")
	v.SetDefault("embedding.model", "text-embedding-3-small")
	v.SetDefault("embedding.dimensions", 384)

	v.SetDefault("llm.provider", "openai")
	v.SetDefault("llm.model", "gpt-4o-mini")
	v.SetDefault("llm.temperature", 0.1)
	v.SetDefault("llm.max_tokens", 1024)
	v.SetDefault("llm.max_retries", 3)

	v.SetDefault("vector_store.driver", "badger")
	v.SetDefault("vector_store.database", "neo4j")

	v.SetDefault("cache.enabled", false)
	v.SetDefault("cache.url", "redis://localhost:6379/0")
	v.SetDefault("cache.ttl", 3600)

	v.SetDefault("snapshot.enabled", true)

	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "release")

	v.SetDefault("circuit_breaker.enabled", true)
	v.SetDefault("circuit_breaker.max_requests", 1)
	v.SetDefault("circuit_breaker.interval", 60)
	v.SetDefault("circuit_breaker.timeout", 30)
	v.SetDefault("circuit_breaker.ready_to_trip_ratio", 0.6)

	if home, err := os.UserHomeDir(); err == nil {
		base := filepath.Join(home, ".docgraph")
		v.SetDefault("vector_store.path", filepath.Join(base, "vectors"))
		v.SetDefault("snapshot.path", filepath.Join(base, "graph.db"))
		v.SetDefault("telemetry.parquet_path", filepath.Join(base, "telemetry"))
	}
}

// overrideWithEnv overrides config with environment variables
func overrideWithEnv(config *Config) {
	if apiKey := os.Getenv("OPENAI_API_KEY"); apiKey != "" {
		if config.Embedding.APIKey == "" {
			config.Embedding.APIKey = apiKey
		}
		if config.LLM.APIKey == "" && config.LLM.Provider == "openai" {
			config.LLM.APIKey = apiKey
		}
	}
	if apiKey := os.Getenv("ANTHROPIC_API_KEY"); apiKey != "" && config.LLM.Provider == "anthropic" && config.LLM.APIKey == "" {
		config.LLM.APIKey = apiKey
	}

	if uri := os.Getenv("NEO4J_URI"); uri != "" {
		config.VectorStore.URI = uri
	}
	if user := os.Getenv("NEO4J_USER"); user != "" {
		config.VectorStore.Username = user
	}
	if pass := os.Getenv("NEO4J_PASSWORD"); pass != "" {
		config.VectorStore.Password = pass
	}

	if url := os.Getenv("REDIS_URL"); url != "" {
		config.Cache.URL = url
	}
	if root := os.Getenv("DOCGRAPH_CORPUS_ROOT"); root != "" {
		config.Corpus.Root = root
	}
	if path := os.Getenv("TELEMETRY_PARQUET_PATH"); path != "" {
		config.Telemetry.ParquetPath = path
	}
}

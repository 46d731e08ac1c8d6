package docgraph

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/soundprediction/docgraph"
	"github.com/soundprediction/docgraph/pkg/alert"
	"github.com/soundprediction/docgraph/pkg/cache"
	"github.com/soundprediction/docgraph/pkg/config"
	"github.com/soundprediction/docgraph/pkg/embedder"
	docgraphLogger "github.com/soundprediction/docgraph/pkg/logger"
	"github.com/soundprediction/docgraph/pkg/nlp"
	"github.com/soundprediction/docgraph/pkg/snapshot"
	"github.com/soundprediction/docgraph/pkg/telemetry"
	"github.com/soundprediction/docgraph/pkg/vectorstore"
)

// app bundles the client with the resources that outlive it.
type app struct {
	cfg     *config.Config
	client  *docgraph.Client
	logger  *slog.Logger
	closers []func() error
}

// loadConfig reads the settings and applies command-line overrides.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	overrideConfigWithFlags(cmd, cfg)
	return cfg, nil
}

// newLogger builds the colour handler and layers the Parquet and sqlite
// error sinks on top when they are configured. Failures to open a sink are
// reported and the sink is skipped.
func newLogger(cfg *config.Config) (*slog.Logger, []func() error) {
	colorHandler := docgraphLogger.NewColorHandler(os.Stderr, &slog.HandlerOptions{
		Level: docgraphLogger.ParseLevel(cfg.Log.Level),
	})
	if !cfg.Log.Color {
		colorHandler = colorHandler.WithColor(false)
	}
	var handler slog.Handler = colorHandler

	var closers []func() error
	if path := cfg.Telemetry.ParquetPath; path != "" {
		ph, err := telemetry.NewParquetHandler(handler, path, 0)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: Failed to initialize error tracking: %v\n", err)
		} else {
			handler = ph
			closers = append(closers, ph.Close)
		}
	}
	if path := cfg.Telemetry.SQLitePath; path != "" {
		sh, err := telemetry.OpenSQLHandler(handler, path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: Failed to open telemetry database: %v\n", err)
		} else {
			handler = sh
			closers = append(closers, sh.Close)
		}
	}
	return slog.New(handler), closers
}

// newApp wires the configured store, embedder, model, cache and snapshot
// store into a client.
func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	logger, closers := newLogger(cfg)
	a := &app{cfg: cfg, logger: logger, closers: closers}

	if cfg.VectorStore.Driver == vectorstore.DriverBadger || cfg.VectorStore.Driver == "" {
		if err := os.MkdirAll(cfg.VectorStore.Path, 0o755); err != nil {
			return nil, a.fail(fmt.Errorf("failed to create vector store directory: %w", err))
		}
	}
	store, err := vectorstore.NewFromConfig(ctx, cfg.VectorStore)
	if err != nil {
		return nil, a.fail(fmt.Errorf("failed to open vector store: %w", err))
	}

	emb, err := embedder.NewFromConfig(cfg.Embedding)
	if err != nil {
		store.Close()
		return nil, a.fail(fmt.Errorf("failed to create embedder: %w", err))
	}

	alerter := alert.New(cfg.Alert, logger)
	llm, err := newLLM(cfg, alerter, logger)
	if err != nil {
		emb.Close()
		store.Close()
		return nil, a.fail(err)
	}

	client, err := docgraph.NewClient(store, emb, llm, docgraph.ConfigFromSettings(cfg), logger)
	if err != nil {
		emb.Close()
		store.Close()
		return nil, a.fail(fmt.Errorf("failed to create docgraph client: %w", err))
	}
	client.SetAlerter(alerter)
	a.client = client

	if cfg.Cache.Enabled {
		qc, err := cache.New(cache.Options{
			URL: cfg.Cache.URL,
			TTL: time.Duration(cfg.Cache.TTL) * time.Second,
		})
		if err != nil {
			logger.Warn("Query cache disabled", "url", cfg.Cache.URL, "error", err)
		} else {
			client.SetCache(qc)
		}
	}

	if cfg.Snapshot.Enabled && cfg.Snapshot.Path != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Snapshot.Path), 0o755); err != nil {
			logger.Warn("Graph snapshots disabled", "error", err)
		} else if snaps, err := snapshot.Open(cfg.Snapshot.Path); err != nil {
			logger.Warn("Graph snapshots disabled", "path", cfg.Snapshot.Path, "error", err)
		} else {
			client.SetSnapshotStore(snaps)
		}
	}

	logger.Debug("docgraph initialized",
		"vector_store", cfg.VectorStore.Driver,
		"embedding_provider", cfg.Embedding.Provider,
		"llm_provider", cfg.LLM.Provider)
	return a, nil
}

// newLLM returns the answer model, adding token tracking when a telemetry
// directory is configured. A nil client means answers are disabled.
func newLLM(cfg *config.Config, alerter alert.Alerter, logger *slog.Logger) (nlp.Client, error) {
	if cfg.LLM.Provider != string(nlp.ProviderNone) && cfg.LLM.Provider != "" && cfg.LLM.APIKey == "" && cfg.LLM.BaseURL == "" {
		logger.Warn("No API key for the language model, answers are disabled", "provider", cfg.LLM.Provider)
		return nil, nil
	}
	llm, err := nlp.NewFromConfig(cfg.LLM, cfg.CircuitBreaker, alerter, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create language model client: %w", err)
	}
	if llm == nil || cfg.Telemetry.ParquetPath == "" {
		return llm, nil
	}
	tracker, err := nlp.NewTokenTracker(cfg.Telemetry.ParquetPath)
	if err != nil {
		logger.Warn("Failed to initialize token tracker", "error", err)
		return llm, nil
	}
	return nlp.NewTokenTrackingClient(llm, tracker, logger), nil
}

// loadGraph restores the graph for commands that only read it.
func (a *app) loadGraph(ctx context.Context) error {
	_, err := a.client.LoadGraph(ctx, "")
	return err
}

func (a *app) fail(err error) error {
	return errors.Join(err, a.closeSinks())
}

// Close releases the client first so its final log lines still reach the sinks.
func (a *app) Close() error {
	var errs []error
	if a.client != nil {
		errs = append(errs, a.client.Close(context.Background()))
	}
	errs = append(errs, a.closeSinks())
	return errors.Join(errs...)
}

func (a *app) closeSinks() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}

// withApp loads the configuration, builds the app and always closes it.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app) error) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	runErr := fn(ctx, a)
	if err := a.Close(); err != nil {
		a.logger.Warn("Failed to close resources", "error", err)
	}
	return runErr
}

func overrideConfigWithFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("host") {
		cfg.Server.Host, _ = flags.GetString("host")
	}
	if flags.Changed("port") {
		cfg.Server.Port, _ = flags.GetInt("port")
	}
	if flags.Changed("mode") {
		cfg.Server.Mode, _ = flags.GetString("mode")
	}
	if flags.Changed("start-k") {
		cfg.Retrieval.StartK, _ = flags.GetInt("start-k")
	}
	if flags.Changed("adjacent-k") {
		cfg.Retrieval.AdjacentK, _ = flags.GetInt("adjacent-k")
	}
	if flags.Changed("select-k") {
		cfg.Retrieval.SelectK, _ = flags.GetInt("select-k")
	}
	if flags.Changed("max-depth") {
		cfg.Retrieval.MaxDepth, _ = flags.GetInt("max-depth")
	}
	if flags.Changed("batch-size") {
		cfg.Indexing.BatchSize, _ = flags.GetInt("batch-size")
	}
	if flags.Changed("concurrency") {
		cfg.Indexing.Concurrency, _ = flags.GetInt("concurrency")
	}
	if flags.Changed("collection") {
		cfg.Indexing.Collection, _ = flags.GetString("collection")
	}
	if flags.Changed("llm-provider") {
		cfg.LLM.Provider, _ = flags.GetString("llm-provider")
	}
	if flags.Changed("llm-model") {
		cfg.LLM.Model, _ = flags.GetString("llm-model")
	}
	if flags.Changed("embedding-provider") {
		cfg.Embedding.Provider, _ = flags.GetString("embedding-provider")
	}
	if flags.Changed("embedding-model") {
		cfg.Embedding.Model, _ = flags.GetString("embedding-model")
	}
	if flags.Changed("no-snapshot") {
		disabled, _ := flags.GetBool("no-snapshot")
		cfg.Snapshot.Enabled = !disabled
	}
	if flags.Changed("telemetry-parquet-path") {
		cfg.Telemetry.ParquetPath, _ = flags.GetString("telemetry-parquet-path")
	}
}

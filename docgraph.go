package docgraph

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/soundprediction/docgraph/pkg/alert"
	"github.com/soundprediction/docgraph/pkg/cache"
	"github.com/soundprediction/docgraph/pkg/config"
	"github.com/soundprediction/docgraph/pkg/embedder"
	"github.com/soundprediction/docgraph/pkg/graph"
	"github.com/soundprediction/docgraph/pkg/nlp"
	"github.com/soundprediction/docgraph/pkg/parser"
	"github.com/soundprediction/docgraph/pkg/search"
	"github.com/soundprediction/docgraph/pkg/snapshot"
	"github.com/soundprediction/docgraph/pkg/types"
	"github.com/soundprediction/docgraph/pkg/vectorstore"
)

// Config holds configuration for the docgraph client.
type Config struct {
	// CorpusRoot is used when BuildGraph is called with an empty root.
	CorpusRoot   string
	ParseWorkers int
	Parser       parser.Config

	// Retrieval bounds the Eager traversal.
	Retrieval search.EagerConfig
	// ContextDocs is the number of top documents placed in the LLM context.
	ContextDocs int
	// PreviewChars truncates the content preview of each retrieved document.
	PreviewChars int
	// ContextChars truncates each document body inside the LLM context.
	ContextChars int
	// StatsTopN is the length of the most-connected ranking.
	StatsTopN int

	// Collection is the alias queries read from. Index runs write into
	// <Collection>__<uuid> and promote it on success.
	Collection        string
	IndexBatchSize    int
	IndexConcurrency  int
	RequestsPerSecond float64
	// MaxContentChars truncates the text sent to the embedder; 0 disables.
	MaxContentChars int
	// Dimensions overrides the embedder's reported vector size.
	Dimensions int
}

// Defaults applied by NewClient to zero Config fields.
const (
	DefaultCollection       = "docgraph"
	DefaultIndexBatchSize   = 50
	DefaultIndexConcurrency = 4
	DefaultContextDocs      = 10
	DefaultPreviewChars     = 500
	DefaultContextChars     = 1000
	DefaultStatsTopN        = 10
)

// DefaultConfig returns a Config with every default filled in.
func DefaultConfig() *Config {
	cfg := &Config{Retrieval: search.DefaultEagerConfig()}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Retrieval == (search.EagerConfig{}) {
		c.Retrieval = search.DefaultEagerConfig()
	}
	if c.Collection == "" {
		c.Collection = DefaultCollection
	}
	if c.IndexBatchSize <= 0 {
		c.IndexBatchSize = DefaultIndexBatchSize
	}
	if c.IndexConcurrency <= 0 {
		c.IndexConcurrency = DefaultIndexConcurrency
	}
	if c.ContextDocs <= 0 {
		c.ContextDocs = DefaultContextDocs
	}
	if c.PreviewChars <= 0 {
		c.PreviewChars = DefaultPreviewChars
	}
	if c.ContextChars <= 0 {
		c.ContextChars = DefaultContextChars
	}
	if c.StatsTopN <= 0 {
		c.StatsTopN = DefaultStatsTopN
	}
}

// ConfigFromSettings maps loaded application settings onto a client Config.
func ConfigFromSettings(s *config.Config) *Config {
	return &Config{
		CorpusRoot:   s.Corpus.Root,
		ParseWorkers: s.Corpus.ParseWorkers,
		Parser: parser.Config{
			CategoryRules: classifyRules(s.Corpus.CategoryRules),
			TypeRules:     classifyRules(s.Corpus.TypeRules),
		},
		Retrieval: search.EagerConfig{
			StartK:    s.Retrieval.StartK,
			AdjacentK: s.Retrieval.AdjacentK,
			SelectK:   s.Retrieval.SelectK,
			MaxDepth:  s.Retrieval.MaxDepth,
		},
		ContextDocs:       s.Retrieval.ContextDocs,
		PreviewChars:      s.Retrieval.PreviewChars,
		ContextChars:      s.Retrieval.ContextChars,
		Collection:        s.Indexing.Collection,
		IndexBatchSize:    s.Indexing.BatchSize,
		IndexConcurrency:  s.Indexing.Concurrency,
		RequestsPerSecond: s.Indexing.RequestsPerSec,
		MaxContentChars:   s.Indexing.MaxContentChars,
		Dimensions:        s.Embedding.Dimensions,
	}
}

// classifyRules converts configured rules, keeping nil so the parser falls
// back to its defaults.
func classifyRules(in []config.ClassifyRule) parser.Rules {
	if len(in) == 0 {
		return nil
	}
	out := make(parser.Rules, 0, len(in))
	for _, r := range in {
		out = append(out, parser.Rule{Substrings: r.Substrings, Tag: r.Tag})
	}
	return out
}

// Client is the main implementation of the DocGraph interface.
//
// The knowledge graph is an immutable snapshot replaced wholesale by
// BuildGraph; readers take the pointer once and never hold the lock across
// network calls.
type Client struct {
	store    vectorstore.Store
	embedder embedder.Client
	llm      nlp.Client
	config   *Config
	logger   *slog.Logger

	alerter   alert.Alerter
	cache     *cache.QueryCache
	snapshots *snapshot.Store

	mu    sync.RWMutex
	graph *graph.Graph
	root  string

	// indexMu serialises index runs.
	indexMu sync.Mutex
}

// NewClient creates a client. llmClient may be nil, in which case queries
// return retrieval results with an empty answer.
func NewClient(store vectorstore.Store, embedderClient embedder.Client, llmClient nlp.Client, config *Config, logger *slog.Logger) (*Client, error) {
	if store == nil {
		return nil, errors.New("vector store is required")
	}
	if embedderClient == nil {
		return nil, errors.New("embedder is required")
	}
	if config == nil {
		config = DefaultConfig()
	}
	config.applyDefaults()
	if err := config.Retrieval.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		store:    store,
		embedder: embedderClient,
		llm:      llmClient,
		config:   config,
		logger:   logger,
		alerter:  &alert.NoOpAlerter{},
	}, nil
}

// SetAlerter sets the alerter notified when an index run fails.
func (c *Client) SetAlerter(a alert.Alerter) {
	if a == nil {
		a = &alert.NoOpAlerter{}
	}
	c.alerter = a
}

// SetCache enables the query result cache.
func (c *Client) SetCache(qc *cache.QueryCache) {
	c.cache = qc
}

// SetSnapshotStore enables persisting built graphs. Snapshots taken with
// other classification rules are treated as stale.
func (c *Client) SetSnapshotStore(s *snapshot.Store) {
	s.SetSalt(c.config.Parser.Key())
	c.snapshots = s
}

// Config returns the effective configuration.
func (c *Client) Config() Config {
	return *c.config
}

// Graph returns the current graph snapshot, or nil before the first build.
func (c *Client) Graph() *graph.Graph {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.graph
}

// SetGraph replaces the graph snapshot.
func (c *Client) SetGraph(root string, g *graph.Graph) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.graph = g
	c.root = root
}

func (c *Client) currentGraph() (*graph.Graph, error) {
	g := c.Graph()
	if g == nil {
		return nil, types.ErrGraphNotBuilt
	}
	return g, nil
}

func (c *Client) resolveRoot(root string) (string, error) {
	if root == "" {
		root = c.config.CorpusRoot
	}
	if root == "" {
		return "", errors.New("corpus root is not configured")
	}
	return root, nil
}

// BuildGraph parses the corpus below root (or Config.CorpusRoot) and makes
// the result the current graph. With a snapshot store configured the graph
// is also persisted.
func (c *Client) BuildGraph(ctx context.Context, root string) (*graph.Graph, error) {
	root, err := c.resolveRoot(root)
	if err != nil {
		return nil, err
	}
	builder := graph.NewBuilder(graph.BuilderConfig{
		ParseWorkers: c.config.ParseWorkers,
		Parser:       c.config.Parser,
	}, c.logger)

	g, err := builder.Build(ctx, root)
	if err != nil {
		return nil, fmt.Errorf("failed to build knowledge graph: %w", err)
	}
	c.SetGraph(root, g)

	if c.snapshots != nil {
		if err := c.snapshots.Save(ctx, root, g); err != nil {
			c.logger.Warn("Failed to save graph snapshot", "root", root, "error", err)
		} else {
			c.logger.Info("Saved graph snapshot", "root", root, "path", c.snapshots.Path())
		}
	}
	return g, nil
}

// LoadGraph restores the graph from a fresh snapshot when one exists and
// falls back to BuildGraph otherwise.
func (c *Client) LoadGraph(ctx context.Context, root string) (*graph.Graph, error) {
	root, err := c.resolveRoot(root)
	if err != nil {
		return nil, err
	}
	if c.snapshots != nil {
		g, err := c.snapshots.Load(ctx, root)
		if err == nil {
			c.logger.Debug("Loaded graph snapshot", "root", root, "documents", g.Len())
			c.SetGraph(root, g)
			return g, nil
		}
		if !errors.Is(err, snapshot.ErrNotFound) && !errors.Is(err, snapshot.ErrStale) {
			c.logger.Warn("Failed to load graph snapshot", "root", root, "error", err)
		} else {
			c.logger.Debug("Rebuilding graph", "root", root, "reason", err)
		}
	}
	return c.BuildGraph(ctx, root)
}

// Close releases every collaborator the client was given.
func (c *Client) Close(ctx context.Context) error {
	var errs []error
	if c.cache != nil {
		errs = append(errs, c.cache.Close())
	}
	if c.snapshots != nil {
		errs = append(errs, c.snapshots.Close())
	}
	if c.llm != nil {
		errs = append(errs, c.llm.Close())
	}
	errs = append(errs, c.embedder.Close(), c.store.Close())
	return errors.Join(errs...)
}

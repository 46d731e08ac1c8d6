package docgraph

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/soundprediction/docgraph/pkg/types"
	"github.com/soundprediction/docgraph/pkg/utils"
	"github.com/soundprediction/docgraph/pkg/vectorstore"
)

// IndexResult describes a successful index run.
type IndexResult struct {
	RunID      string        `json:"run_id" yaml:"run_id"`
	Collection string        `json:"collection" yaml:"collection"`
	Previous   string        `json:"previous,omitempty" yaml:"previous,omitempty"`
	Documents  int           `json:"documents" yaml:"documents"`
	Batches    int           `json:"batches" yaml:"batches"`
	Duration   time.Duration `json:"duration" yaml:"duration"`
}

// StagingCollection returns a fresh collection name for alias.
func StagingCollection(alias string) string {
	return alias + "__" + uuid.NewString()
}

// Index embeds every document of the current graph and stores it under the
// configured alias. It is all-or-nothing: documents are written to a new
// staging collection that replaces the alias target only after every batch
// succeeded. On failure or cancellation the staging collection is dropped
// and the alias keeps pointing at the previous index.
func (c *Client) Index(ctx context.Context) error {
	_, err := c.IndexWithResult(ctx)
	return err
}

// IndexWithResult is Index returning details of the promoted collection.
func (c *Client) IndexWithResult(ctx context.Context) (*IndexResult, error) {
	g, err := c.currentGraph()
	if err != nil {
		return nil, err
	}

	c.indexMu.Lock()
	defer c.indexMu.Unlock()

	start := time.Now()
	runID := uuid.NewString()
	ctx = context.WithValue(ctx, types.ContextKeyRunID, runID)

	dimensions := c.config.Dimensions
	if dimensions <= 0 {
		dimensions = c.embedder.Dimensions()
	}
	alias := c.config.Collection
	staging := StagingCollection(alias)
	nodes := g.Nodes()
	batches := utils.Batch(nodes, c.config.IndexBatchSize)

	c.logger.InfoContext(ctx, "Starting index run",
		"run_id", runID,
		"collection", staging,
		"documents", len(nodes),
		"batches", len(batches),
		"dimensions", dimensions)

	if err := c.store.CreateCollection(ctx, staging, dimensions); err != nil {
		return nil, c.indexFailed(ctx, runID, "", err)
	}

	if err := c.indexBatches(ctx, staging, batches); err != nil {
		return nil, c.indexFailed(ctx, runID, staging, err)
	}

	previous, err := c.store.SwapAlias(ctx, alias, staging)
	if err != nil {
		return nil, c.indexFailed(ctx, runID, staging, err)
	}

	if previous != "" {
		if err := c.store.DropCollection(ctx, previous); err != nil {
			c.logger.WarnContext(ctx, "Failed to drop previous collection", "collection", previous, "error", err)
		}
		if c.cache != nil {
			if _, err := c.cache.Invalidate(ctx, previous); err != nil {
				c.logger.WarnContext(ctx, "Failed to invalidate query cache", "collection", previous, "error", err)
			}
		}
	}

	result := &IndexResult{
		RunID:      runID,
		Collection: staging,
		Previous:   previous,
		Documents:  len(nodes),
		Batches:    len(batches),
		Duration:   time.Since(start),
	}
	c.logger.InfoContext(ctx, "Index swapped to new collection",
		"run_id", runID,
		"alias", alias,
		"collection", staging,
		"previous", previous,
		"documents", result.Documents,
		"duration", result.Duration.Round(time.Millisecond))
	return result, nil
}

// indexBatches embeds and upserts batches with bounded concurrency. The
// first failure cancels the group so no further batches start.
func (c *Client) indexBatches(ctx context.Context, collection string, batches [][]*types.DocumentNode) error {
	limit := rate.Inf
	if c.config.RequestsPerSecond > 0 {
		limit = rate.Limit(c.config.RequestsPerSecond)
	}
	limiter := rate.NewLimiter(limit, 1)

	eg, egctx := errgroup.WithContext(ctx)
	eg.SetLimit(c.config.IndexConcurrency)

	for i, batch := range batches {
		if egctx.Err() != nil {
			break
		}
		batchNum := i + 1
		eg.Go(func() (err error) {
			defer utils.RecoverAsError(&err)
			if err := egctx.Err(); err != nil {
				return err
			}
			if err := limiter.Wait(egctx); err != nil {
				return err
			}
			return c.indexBatch(egctx, collection, batchNum, batch)
		})
	}

	if err := eg.Wait(); err != nil {
		return err
	}
	// A cancelled parent can stop the loop without any batch failing.
	return ctx.Err()
}

func (c *Client) indexBatch(ctx context.Context, collection string, batchNum int, batch []*types.DocumentNode) error {
	texts := make([]string, len(batch))
	for i, n := range batch {
		texts[i] = c.embeddingText(n)
	}

	vectors, err := c.embedder.Embed(ctx, texts)
	if err != nil {
		return &types.EmbeddingError{Batch: batchNum, Err: err}
	}
	if len(vectors) != len(batch) {
		return &types.EmbeddingError{Batch: batchNum, Err: fmt.Errorf("got %d vectors for %d documents", len(vectors), len(batch))}
	}

	records := make([]vectorstore.Record, len(batch))
	for i, n := range batch {
		records[i] = vectorstore.Record{
			ID:       n.DocID,
			Vector:   vectors[i],
			Content:  n.Content,
			Metadata: n.Metadata(),
		}
	}
	if err := c.store.Upsert(ctx, collection, records); err != nil {
		return err
	}
	c.logger.DebugContext(ctx, "Upserted batch", "batch", batchNum, "documents", len(batch))
	return nil
}

func (c *Client) embeddingText(n *types.DocumentNode) string {
	text := n.Content
	if text == "" {
		text = n.Title
	}
	if limit := c.config.MaxContentChars; limit > 0 {
		text = truncateRunes(text, limit)
	}
	return text
}

// indexFailed drops the staging collection, alerts and returns err.
func (c *Client) indexFailed(ctx context.Context, runID, staging string, err error) error {
	cleanupCtx := context.WithoutCancel(ctx)
	if staging != "" {
		if dropErr := c.store.DropCollection(cleanupCtx, staging); dropErr != nil && !errors.Is(dropErr, vectorstore.ErrCollectionNotFound) {
			c.logger.WarnContext(cleanupCtx, "Failed to drop staging collection", "collection", staging, "error", dropErr)
		}
	}
	c.logger.ErrorContext(cleanupCtx, "Index run failed", "run_id", runID, "collection", staging, "error", err)
	if !errors.Is(err, context.Canceled) {
		if alertErr := c.alerter.Alert("docgraph index run failed",
			fmt.Sprintf("Run %s into %s failed: %v", runID, staging, err)); alertErr != nil {
			c.logger.WarnContext(cleanupCtx, "Failed to send alert", "error", alertErr)
		}
	}
	return fmt.Errorf("index run failed: %w", err)
}

package docgraph

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/soundprediction/docgraph/pkg/graph"
	"github.com/soundprediction/docgraph/pkg/nlp"
	"github.com/soundprediction/docgraph/pkg/search"
	"github.com/soundprediction/docgraph/pkg/types"
	"github.com/soundprediction/docgraph/pkg/vectorstore"
)

const answerPrompt = `Based on the following documents, please answer the question: %s

Documents:
%s

Please provide a comprehensive answer based on the information in these documents.`

// activeCollection resolves the configured alias to the collection queries read.
func (c *Client) activeCollection(ctx context.Context) (string, error) {
	name, err := c.store.ResolveAlias(ctx, c.config.Collection)
	if errors.Is(err, vectorstore.ErrAliasNotFound) {
		return "", fmt.Errorf("%w: %s", types.ErrIndexNotReady, c.config.Collection)
	}
	return name, err
}

func (c *Client) retriever(g *graph.Graph, collection string) *search.Retriever {
	return search.NewRetriever(g, c.store, c.embedder, collection, c.config.Retrieval, c.logger)
}

// retrieve runs fn against collection. An index run may drop the collection
// after this query resolved the alias; fn is then retried once against the
// collection the alias points at now.
func (c *Client) retrieve(ctx context.Context, collection string, fn func(string) ([]search.Result, error)) ([]search.Result, string, error) {
	results, err := fn(collection)
	if !errors.Is(err, vectorstore.ErrCollectionNotFound) {
		return results, collection, err
	}
	latest, resolveErr := c.activeCollection(ctx)
	if resolveErr != nil || latest == collection {
		return nil, collection, err
	}
	c.logger.DebugContext(ctx, "Active collection replaced during query, retrying",
		"collection", collection, "active", latest)
	results, err = fn(latest)
	return results, latest, err
}

// Query answers question from the indexed corpus. Retrieved documents are
// always returned; with includeContext the top documents are also assembled
// into a context block and passed to the language model. A failing model
// leaves Answer empty rather than failing the query.
func (c *Client) Query(ctx context.Context, question string, includeContext bool) (*types.QueryResult, error) {
	if strings.TrimSpace(question) == "" {
		return nil, types.ErrEmptyQuestion
	}
	g, err := c.currentGraph()
	if err != nil {
		return nil, err
	}
	collection, err := c.activeCollection(ctx)
	if err != nil {
		return nil, err
	}

	if c.cache != nil {
		cached, err := c.cache.Get(ctx, collection, question, includeContext)
		if err != nil {
			c.logger.WarnContext(ctx, "Query cache read failed", "error", err)
		} else if cached != nil {
			c.logger.DebugContext(ctx, "Query cache hit", "question", question)
			return cached, nil
		}
	}

	start := time.Now()
	results, collection, err := c.retrieve(ctx, collection, func(name string) ([]search.Result, error) {
		return c.retriever(g, name).Retrieve(ctx, question)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve documents: %w", err)
	}

	result := &types.QueryResult{
		Question:           question,
		RetrievedDocuments: c.summarize(results),
		RelatedDocuments:   groupByType(results),
	}

	var answerErr error
	if includeContext {
		result.Context = c.buildContext(results)
		result.Answer, answerErr = c.answer(ctx, question, result.Context)
	}

	c.logger.InfoContext(ctx, "Processed query",
		"question", question,
		"documents", len(results),
		"answered", result.Answer != "",
		"duration", time.Since(start).Round(time.Millisecond))

	// A failed answer is not cached so the next ask reaches the model again.
	if c.cache != nil && answerErr == nil {
		if err := c.cache.Set(ctx, collection, includeContext, result); err != nil {
			c.logger.WarnContext(ctx, "Query cache write failed", "error", err)
		}
	}
	return result, nil
}

// TestSearch runs a plain similarity search against the active collection
// and returns the k nearest documents with content previews.
func (c *Client) TestSearch(ctx context.Context, query string, k int) ([]types.DocumentSummary, error) {
	g, err := c.currentGraph()
	if err != nil {
		return nil, err
	}
	collection, err := c.activeCollection(ctx)
	if err != nil {
		return nil, err
	}
	results, _, err := c.retrieve(ctx, collection, func(name string) ([]search.Result, error) {
		return c.retriever(g, name).Similar(ctx, query, k)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search documents: %w", err)
	}
	return c.summarize(results), nil
}

func (c *Client) summarize(results []search.Result) []types.DocumentSummary {
	out := make([]types.DocumentSummary, 0, len(results))
	for _, r := range results {
		out = append(out, types.DocumentSummary{
			DocID:           r.Node.DocID,
			Title:           r.Node.Title,
			DocType:         r.Node.DocType,
			Category:        r.Node.Category,
			Content:         preview(r.Node.Content, c.config.PreviewChars),
			SimilarityScore: r.Score,
			Depth:           r.Depth,
		})
	}
	return out
}

// groupByType lists retrieved titles per doc type in result order.
func groupByType(results []search.Result) map[string][]string {
	groups := make(map[string][]string)
	for _, r := range results {
		groups[r.Node.DocType] = append(groups[r.Node.DocType], r.Node.Title)
	}
	return groups
}

func (c *Client) buildContext(results []search.Result) string {
	n := min(len(results), c.config.ContextDocs)
	parts := make([]string, 0, 4*n)
	for _, r := range results[:n] {
		parts = append(parts,
			"Document: "+r.Node.Title,
			"Type: "+r.Node.DocType,
			"Content: "+truncateRunes(r.Node.Content, c.config.ContextChars)+"...",
			"---")
	}
	return strings.Join(parts, "\n")
}

// answer asks the language model. The returned error is already logged;
// callers only use it to decide whether the result may be cached.
func (c *Client) answer(ctx context.Context, question, contextBlock string) (string, error) {
	if c.llm == nil {
		c.logger.DebugContext(ctx, "No language model configured, skipping answer")
		return "", nil
	}
	answer, err := nlp.Complete(ctx, c.llm, fmt.Sprintf(answerPrompt, question, contextBlock))
	if err != nil {
		c.logger.ErrorContext(ctx, "Error generating answer", "error", err)
		return "", err
	}
	return answer, nil
}

// preview truncates s to limit runes, marking the cut with "...".
func preview(s string, limit int) string {
	if len([]rune(s)) <= limit {
		return s
	}
	return truncateRunes(s, limit) + "..."
}

func truncateRunes(s string, limit int) string {
	if limit <= 0 || len(s) <= limit {
		return s
	}
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit])
}

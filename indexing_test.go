package docgraph_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soundprediction/docgraph"
	"github.com/soundprediction/docgraph/pkg/embedder"
	"github.com/soundprediction/docgraph/pkg/types"
	"github.com/soundprediction/docgraph/pkg/utils"
	"github.com/soundprediction/docgraph/pkg/vectorstore"
)

func TestIndexPromotesStagingCollection(t *testing.T) {
	f := newFixture(t, &docgraph.Config{IndexBatchSize: 2})
	ctx := context.Background()
	_, err := f.client.BuildGraph(ctx, "")
	require.NoError(t, err)

	first, err := f.client.IndexWithResult(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, first.Documents)
	assert.Equal(t, 3, first.Batches)
	assert.Empty(t, first.Previous)

	target, err := f.store.ResolveAlias(ctx, docgraph.DefaultCollection)
	require.NoError(t, err)
	assert.Equal(t, first.Collection, target)

	second, err := f.client.IndexWithResult(ctx)
	require.NoError(t, err)
	assert.Equal(t, first.Collection, second.Previous)
	assert.NotEqual(t, first.Collection, second.Collection)

	names, err := f.store.Collections(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{second.Collection}, names, "previous collection is dropped")
}

func TestIndexFailureKeepsPreviousIndex(t *testing.T) {
	// Five documents in batches of two give three batches; the second fails.
	f := newFixture(t, &docgraph.Config{IndexBatchSize: 2, IndexConcurrency: 1})
	ctx := context.Background()
	f.buildAndIndex(t)

	previous, err := f.store.ResolveAlias(ctx, docgraph.DefaultCollection)
	require.NoError(t, err)

	before := f.emb.calls.Load()
	f.emb.failOn.Store(before + 2)

	err = f.client.Index(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrEmbedding)

	var embErr *types.EmbeddingError
	require.True(t, errors.As(err, &embErr))
	assert.Equal(t, 2, embErr.Batch)
	assert.Equal(t, before+2, f.emb.calls.Load(), "no batch starts after the failure")

	target, err := f.store.ResolveAlias(ctx, docgraph.DefaultCollection)
	require.NoError(t, err)
	assert.Equal(t, previous, target)

	names, err := f.store.Collections(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{previous}, names, "staging collection is dropped")

	count, err := f.store.Count(ctx, docgraph.DefaultCollection)
	require.NoError(t, err)
	assert.Equal(t, 5, count)
}

func TestIndexCancelledLeavesNoStaging(t *testing.T) {
	f := newFixture(t, nil)
	_, err := f.client.BuildGraph(context.Background(), "")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err = f.client.Index(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)

	names, err := f.store.Collections(context.Background())
	require.NoError(t, err)
	assert.Empty(t, names)

	_, err = f.store.ResolveAlias(context.Background(), docgraph.DefaultCollection)
	assert.Error(t, err)
}

func TestIndexStoresMetadata(t *testing.T) {
	f := newFixture(t, nil)
	f.buildAndIndex(t)

	records, err := f.store.Get(context.Background(), docgraph.DefaultCollection, []string{"01_corporate_mission"})
	require.NoError(t, err)
	require.Len(t, records, 1)

	meta := records[0].Metadata
	assert.Equal(t, "Mission", meta["title"])
	assert.Equal(t, "01_corporate/mission.md", meta["file_path"])
	assert.Equal(t, "1.0", meta["version"])
	assert.ElementsMatch(t, []string{"04_marketing_02_offerings_lunar", "03_hr_policy"}, meta["linked_docs"])
	assert.Len(t, records[0].Vector, testDims)
}

func TestIndexEmptyCorpus(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	_, err := f.client.BuildGraph(ctx, t.TempDir())
	require.NoError(t, err)

	require.NoError(t, f.client.Index(ctx))

	count, err := f.store.Count(ctx, docgraph.DefaultCollection)
	require.NoError(t, err)
	assert.Zero(t, count)
}

type panicEmbedder struct {
	*embedder.HashingEmbedder
}

func (p *panicEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	panic("provider returned malformed payload")
}

func TestIndexRecoversEmbedderPanic(t *testing.T) {
	store := vectorstore.NewMemoryStore()
	client, err := docgraph.NewClient(store, &panicEmbedder{embedder.NewHashingEmbedder(testDims)}, nil,
		&docgraph.Config{CorpusRoot: writeCorpus(t, corpus)}, nil)
	require.NoError(t, err)
	ctx := context.Background()
	_, err = client.BuildGraph(ctx, "")
	require.NoError(t, err)

	err = client.Index(ctx)
	var panicErr *utils.PanicError
	require.ErrorAs(t, err, &panicErr)

	names, err := store.Collections(ctx)
	require.NoError(t, err)
	assert.Empty(t, names)
}

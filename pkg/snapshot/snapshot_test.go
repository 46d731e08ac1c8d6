package snapshot

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soundprediction/docgraph/pkg/graph"
)

func writeCorpus(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		full := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
	}
	return root
}

var corpus = map[string]string{
	"01_corporate/mission.md":            "# Mission\n**Document Version**: 2.1\nSee [lunar](../offerings/lunar.md).",
	"04_marketing/02_offerings/lunar.md": "# Lunar Package\n[mars](./mars.md)",
	"04_marketing/02_offerings/mars.md":  "# Mars Package\n[lunar](lunar.md) [mission](/01_corporate/mission.md)",
}

func setup(t *testing.T) (*Store, string, *graph.Graph) {
	t.Helper()
	root := writeCorpus(t, corpus)
	g, err := graph.NewBuilder(graph.BuilderConfig{ParseWorkers: 2}, nil).Build(context.Background(), root)
	require.NoError(t, err)

	store, err := Open(filepath.Join(t.TempDir(), "snap", "graph.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store, root, g
}

func TestSaveLoadRoundTrip(t *testing.T) {
	store, root, g := setup(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, root, g))

	loaded, err := store.Load(ctx, root)
	require.NoError(t, err)

	require.Equal(t, g.Len(), loaded.Len())
	assert.Equal(t, g.EdgeCount(), loaded.EdgeCount())
	for i, n := range g.Nodes() {
		got := loaded.Nodes()[i]
		assert.Equal(t, n.DocID, got.DocID)
		assert.Equal(t, n.Title, got.Title)
		assert.Equal(t, n.Content, got.Content)
		assert.Equal(t, n.FilePath, got.FilePath)
		assert.Equal(t, n.DocType, got.DocType)
		assert.Equal(t, n.Category, got.Category)
		assert.ElementsMatch(t, n.RawLinks, got.RawLinks)
		assert.ElementsMatch(t, g.Links(n.DocID), loaded.Links(n.DocID))
		assert.Equal(t, len(n.ExtractedFields), len(got.ExtractedFields))
		for k, v := range n.ExtractedFields {
			assert.Equal(t, v, got.ExtractedFields[k])
		}
	}

	info, err := store.Info(ctx, root)
	require.NoError(t, err)
	assert.Equal(t, 3, info.Documents)
	assert.NotEmpty(t, info.Fingerprint)
	assert.WithinDuration(t, time.Now(), info.CreatedAt, time.Minute)
}

func TestSaveReplacesPreviousSnapshot(t *testing.T) {
	store, root, g := setup(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, root, g))
	require.NoError(t, store.Save(ctx, root, g))

	loaded, err := store.Load(ctx, root)
	require.NoError(t, err)
	assert.Equal(t, g.Len(), loaded.Len())
	assert.Equal(t, g.EdgeCount(), loaded.EdgeCount())
}

func TestLoadMissing(t *testing.T) {
	store, root, _ := setup(t)

	_, err := store.Load(context.Background(), root)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLoadStaleAfterEdit(t *testing.T) {
	store, root, g := setup(t)
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, root, g))

	path := filepath.Join(root, "04_marketing", "02_offerings", "mars.md")
	require.NoError(t, os.WriteFile(path, []byte("# Mars Package\nrewritten with more text"), 0o644))

	_, err := store.Load(ctx, root)
	assert.ErrorIs(t, err, ErrStale)
}

func TestLoadStaleAfterNewFile(t *testing.T) {
	store, root, g := setup(t)
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, root, g))

	require.NoError(t, os.WriteFile(filepath.Join(root, "new.md"), []byte("# New"), 0o644))

	_, err := store.Load(ctx, root)
	assert.ErrorIs(t, err, ErrStale)
}

func TestSaltMakesSnapshotStale(t *testing.T) {
	store, root, g := setup(t)
	ctx := context.Background()

	store.SetSalt("rules-a")
	require.NoError(t, store.Save(ctx, root, g))
	_, err := store.Load(ctx, root)
	require.NoError(t, err)

	store.SetSalt("rules-b")
	_, err = store.Load(ctx, root)
	assert.ErrorIs(t, err, ErrStale)

	store.SetSalt("")
	_, err = store.Load(ctx, root)
	assert.ErrorIs(t, err, ErrStale)
}

func TestFingerprintIsDeterministic(t *testing.T) {
	root := writeCorpus(t, corpus)

	a, err := Fingerprint(root)
	require.NoError(t, err)
	b, err := Fingerprint(root)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	_, err = Fingerprint(filepath.Join(root, "missing"))
	assert.Error(t, err)
}

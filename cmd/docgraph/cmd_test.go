package docgraph

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/soundprediction/docgraph"
	"github.com/soundprediction/docgraph/pkg/config"
	"github.com/soundprediction/docgraph/pkg/types"
)

func TestRenderFormats(t *testing.T) {
	stats := &types.GraphStats{
		TotalDocuments:     3,
		TotalRelationships: 2,
		ByType:             map[string]int{"policy": 2, "offering": 1},
		ByCategory:         map[string]int{"hr": 3},
	}
	text := func(w io.Writer) error { return writeGraphStats(w, stats) }

	var buf bytes.Buffer
	require.NoError(t, render(&buf, "json", stats, text))
	var decoded types.GraphStats
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, 3, decoded.TotalDocuments)

	buf.Reset()
	require.NoError(t, render(&buf, "yaml", stats, text))
	var fromYAML map[string]any
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &fromYAML))
	assert.Equal(t, 2, fromYAML["total_relationships"])

	buf.Reset()
	require.NoError(t, render(&buf, "text", stats, text))
	out := buf.String()
	assert.Contains(t, out, "Documents:     3")
	assert.Less(t, strings.Index(out, "offering"), strings.Index(out, "policy"), "types are sorted")

	assert.Error(t, render(&buf, "xml", stats, text))
}

func TestTextWriters(t *testing.T) {
	var buf bytes.Buffer

	require.NoError(t, writeQueryResult(&buf, &types.QueryResult{
		Question:           "q",
		RetrievedDocuments: []types.DocumentSummary{{Title: "Mission", DocType: "corporate", SimilarityScore: 0.5}},
		RelatedDocuments:   map[string][]string{"corporate": {"Mission"}},
		Answer:             "42",
	}))
	assert.Contains(t, buf.String(), " 1. Mission [corporate] score=0.500 depth=0")
	assert.Contains(t, buf.String(), "Answer:\n42")

	buf.Reset()
	require.NoError(t, writeSummaries(&buf, nil))
	assert.Equal(t, "No documents found.\n", buf.String())

	buf.Reset()
	require.NoError(t, writeVerifyReport(&buf, &types.VerifyReport{Collection: "c", Problems: []string{"bad"}}))
	assert.Contains(t, buf.String(), "1 problems:\n  - bad")

	buf.Reset()
	require.NoError(t, writeIndexResult(&buf, &docgraph.IndexResult{
		Collection: "docgraph__new",
		Previous:   "docgraph__old",
		Documents:  5,
		Batches:    1,
		Duration:   1500 * time.Millisecond,
	}))
	assert.Contains(t, buf.String(), "Indexed 5 documents in 1 batches (1.5s)")
	assert.Contains(t, buf.String(), "Replaced: docgraph__old")
}

func TestOverrideConfigWithFlags(t *testing.T) {
	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().Int("port", 8080, "")
	cmd.Flags().Int("start-k", 5, "")
	cmd.Flags().Bool("no-snapshot", false, "")
	cmd.Flags().String("llm-provider", "openai", "")
	require.NoError(t, cmd.Flags().Parse([]string{"--port", "9000", "--start-k", "3", "--no-snapshot"}))

	cfg := &config.Config{
		Server:    config.ServerConfig{Port: 8080},
		Retrieval: config.RetrievalConfig{StartK: 5, AdjacentK: 10},
		Snapshot:  config.SnapshotConfig{Enabled: true},
		LLM:       config.LLMConfig{Provider: "anthropic"},
	}
	overrideConfigWithFlags(cmd, cfg)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, 3, cfg.Retrieval.StartK)
	assert.Equal(t, 10, cfg.Retrieval.AdjacentK, "unset flags keep config values")
	assert.False(t, cfg.Snapshot.Enabled)
	assert.Equal(t, "anthropic", cfg.LLM.Provider, "unchanged flag defaults do not override")
}

func TestValidateServerConfig(t *testing.T) {
	cfg := &config.Config{Server: config.ServerConfig{Port: 8080}, Corpus: config.CorpusConfig{Root: "./docs"}}
	assert.NoError(t, validateServerConfig(cfg))

	cfg.Server.Port = 70000
	assert.Error(t, validateServerConfig(cfg))

	cfg.Server.Port = 8080
	cfg.Corpus.Root = ""
	assert.Error(t, validateServerConfig(cfg))
}

func TestBuildAndIndexCommand(t *testing.T) {
	dir := t.TempDir()
	corpus := filepath.Join(dir, "docs")
	files := map[string]string{
		"01_corporate/mission.md": "# Mission\nWe fly tourists to the moon. See [hr](../03_hr/policy.md).",
		"03_hr/policy.md":         "# HR Policy\nEmployees get training.",
	}
	for rel, content := range files {
		full := filepath.Join(corpus, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
	}

	cfgPath := filepath.Join(dir, "docgraph.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`
log:
  level: error
  color: false
corpus:
  root: `+corpus+`
embedding:
  provider: hashing
  dimensions: 32
llm:
  provider: none
vector_store:
  driver: memory
snapshot:
  enabled: false
telemetry:
  parquet_path: ""
circuit_breaker:
  enabled: false
`), 0o644))

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"--config", cfgPath, "-o", "json", "build", "--index"})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
		outputFormat = formatText
	})
	require.NoError(t, Execute())

	dec := json.NewDecoder(&out)
	var summary buildSummary
	require.NoError(t, dec.Decode(&summary))
	assert.Equal(t, 2, summary.Documents)
	assert.Equal(t, 1, summary.Relationships)

	var result docgraph.IndexResult
	require.NoError(t, dec.Decode(&result))
	assert.Equal(t, 2, result.Documents)
	assert.True(t, strings.HasPrefix(result.Collection, "docgraph__"))
}

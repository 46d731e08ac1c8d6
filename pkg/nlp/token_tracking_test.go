package nlp

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/parquet-go/parquet-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soundprediction/docgraph/pkg/types"
)

func TestTokenTrackingClient(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "tokens")
	tracker, err := NewTokenTracker(dir)
	require.NoError(t, err)

	mock := &mockClient{responseToReturn: &types.Response{
		Content:    "ok",
		Model:      "gpt-test",
		TokensUsed: &types.TokenUsage{PromptTokens: 10, CompletionTokens: 20, TotalTokens: 30},
	}}
	client := NewTokenTrackingClient(mock, tracker, nil)

	ctx := context.WithValue(context.Background(), types.ContextKeyRunID, "run-42")
	ctx = context.WithValue(ctx, types.ContextKeyRequestSource, "cli")
	_, err = client.Chat(ctx, userMsg())
	require.NoError(t, err)
	require.NoError(t, client.Close())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, strings.HasPrefix(entries[0].Name(), "token_usage_"))

	rows, err := parquet.ReadFile[TokenUsageRecord](filepath.Join(dir, entries[0].Name()))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "gpt-test", rows[0].Model)
	assert.Equal(t, 30, rows[0].TotalTokens)
	assert.Equal(t, "run-42", rows[0].RunID)
	assert.Equal(t, "cli", rows[0].RequestSource)
}

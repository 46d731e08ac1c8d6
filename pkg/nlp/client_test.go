package nlp

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soundprediction/docgraph/pkg/types"
)

func TestComplete(t *testing.T) {
	ctx := context.Background()

	t.Run("returns trimmed content", func(t *testing.T) {
		mock := &mockClient{responseToReturn: &types.Response{Content: "  the answer \n"}}
		got, err := Complete(ctx, mock, "question")
		require.NoError(t, err)
		assert.Equal(t, "the answer", got)
	})

	t.Run("wraps provider errors as ErrLLM", func(t *testing.T) {
		mock := &mockClient{failUntilCall: 1, errorToReturn: errors.New("down")}
		_, err := Complete(ctx, mock, "question")
		assert.ErrorIs(t, err, types.ErrLLM)
		assert.ErrorContains(t, err, "down")
	})

	t.Run("empty answer is an error", func(t *testing.T) {
		mock := &mockClient{responseToReturn: &types.Response{Content: "   "}}
		_, err := Complete(ctx, mock, "question")
		assert.ErrorIs(t, err, types.ErrLLM)
		assert.ErrorIs(t, err, ErrEmptyResponse)
	})

	t.Run("nil client", func(t *testing.T) {
		_, err := Complete(ctx, nil, "question")
		assert.ErrorIs(t, err, types.ErrLLM)
	})
}

func TestMessageHelpers(t *testing.T) {
	assert.Equal(t, types.Message{Role: RoleSystem, Content: "s"}, NewSystemMessage("s"))
	assert.Equal(t, types.Message{Role: RoleUser, Content: "u"}, NewUserMessage("u"))
}

package nlp

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRateLimitError(t *testing.T) {
	assert.Equal(t, "rate limit exceeded. Please try again later", NewRateLimitError().Error())
	assert.Equal(t, "custom", NewRateLimitError("custom").Error())

	wrapped := fmt.Errorf("chat: %w", NewRateLimitError())
	assert.ErrorIs(t, wrapped, &RateLimitError{})
	assert.ErrorIs(t, wrapped, ErrRateLimit)
}

func TestRefusalAndEmptyErrors(t *testing.T) {
	refusal := fmt.Errorf("x: %w", NewRefusalError("no"))
	assert.ErrorIs(t, refusal, ErrRefusal)
	assert.False(t, errors.Is(refusal, ErrEmptyResponse))

	empty := NewEmptyResponseError("nothing")
	assert.Equal(t, "nothing", empty.Error())
	assert.ErrorIs(t, empty, ErrEmptyResponse)
}

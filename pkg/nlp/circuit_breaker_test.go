package nlp

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soundprediction/docgraph/pkg/config"
)

type recordingAlerter struct {
	mu       sync.Mutex
	subjects []string
}

func (r *recordingAlerter) Alert(subject, _ string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subjects = append(r.subjects, subject)
	return nil
}

func TestCircuitBreakerOpensAfterFailures(t *testing.T) {
	mock := &mockClient{failUntilCall: 100, errorToReturn: errors.New("boom")}
	alerter := &recordingAlerter{}
	cb := NewCircuitBreakerClient(mock, config.CircuitBreakerConfig{
		Enabled: true, MaxRequests: 1, Interval: 60, Timeout: 60, ReadyToTripRatio: 0.5,
	}, alerter, nil, "test")

	for i := 0; i < 3; i++ {
		_, err := cb.Chat(context.Background(), userMsg())
		require.Error(t, err)
	}
	assert.Equal(t, "open", cb.State())

	_, err := cb.Chat(context.Background(), userMsg())
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.Equal(t, 3, mock.callCount, "open breaker must not call the provider")
	assert.Len(t, alerter.subjects, 1)
}

func TestCircuitBreakerPassesThrough(t *testing.T) {
	mock := &mockClient{}
	cb := NewCircuitBreakerClient(mock, config.CircuitBreakerConfig{Enabled: true, Timeout: 1}, nil, nil, "ok")

	resp, err := cb.Chat(context.Background(), userMsg())
	require.NoError(t, err)
	assert.Equal(t, "success", resp.Content)
	assert.Equal(t, "closed", cb.State())
	require.NoError(t, cb.Close())
	assert.True(t, mock.closed)
}

func TestCircuitBreakerIgnoresCancellation(t *testing.T) {
	mock := &mockClient{failUntilCall: 100, errorToReturn: context.Canceled}
	cb := NewCircuitBreakerClient(mock, config.CircuitBreakerConfig{Enabled: true, Timeout: 60}, nil, nil, "cancel")

	for i := 0; i < 5; i++ {
		_, _ = cb.Chat(context.Background(), userMsg())
	}
	assert.Equal(t, "closed", cb.State())
}

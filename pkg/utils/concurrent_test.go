package utils

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkerPoolProcessKeepsOrder(t *testing.T) {
	pool := NewWorkerPool(3, func(_ context.Context, s string) (int, error) {
		return len(s), nil
	})

	results, errs := pool.Process(context.Background(), []string{"a", "bbb", "cc", "dddd"})

	assert.Equal(t, []int{1, 3, 2, 4}, results)
	for _, err := range errs {
		assert.NoError(t, err)
	}
}

func TestWorkerPoolProcessErrorsArePositional(t *testing.T) {
	boom := errors.New("boom")
	pool := NewWorkerPool(2, func(_ context.Context, s string) (string, error) {
		if s == "bad" {
			return "", boom
		}
		return strings.ToUpper(s), nil
	})

	results, errs := pool.Process(context.Background(), []string{"ok", "bad", "fine"})

	assert.Equal(t, "OK", results[0])
	assert.Equal(t, "FINE", results[2])
	assert.NoError(t, errs[0])
	assert.ErrorIs(t, errs[1], boom)
	assert.NoError(t, errs[2])
}

func TestWorkerPoolRecoversPanics(t *testing.T) {
	pool := NewWorkerPool(1, func(_ context.Context, n int) (int, error) {
		if n == 2 {
			panic("worker exploded")
		}
		return n * 10, nil
	})

	results, errs := pool.Process(context.Background(), []int{1, 2, 3})

	assert.Equal(t, 10, results[0])
	assert.Equal(t, 30, results[2])
	var panicErr *PanicError
	require.ErrorAs(t, errs[1], &panicErr)
	assert.Equal(t, "worker exploded", panicErr.Value)
}

func TestWorkerPoolCancelledContext(t *testing.T) {
	var calls atomic.Int32
	pool := NewWorkerPool(2, func(_ context.Context, n int) (int, error) {
		calls.Add(1)
		return n, nil
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, errs := pool.Process(ctx, []int{1, 2, 3})

	assert.Zero(t, calls.Load())
	for _, err := range errs {
		assert.ErrorIs(t, err, context.Canceled)
	}
}

func TestWorkerPoolEmptyInput(t *testing.T) {
	pool := NewWorkerPool(0, func(_ context.Context, n int) (int, error) { return n, nil })
	results, errs := pool.Process(context.Background(), nil)
	assert.Nil(t, results)
	assert.Nil(t, errs)
	assert.Positive(t, pool.Workers())
}

func TestWorkerLimitFromEnv(t *testing.T) {
	t.Setenv("DOCGRAPH_WORKERS", "3")
	assert.Equal(t, 3, WorkerLimit())

	t.Setenv("DOCGRAPH_WORKERS", "nope")
	assert.Positive(t, WorkerLimit())
}

func TestBatch(t *testing.T) {
	tests := []struct {
		name  string
		items []int
		size  int
		want  [][]int
	}{
		{"even split", []int{1, 2, 3, 4}, 2, [][]int{{1, 2}, {3, 4}}},
		{"remainder", []int{1, 2, 3, 4, 5}, 2, [][]int{{1, 2}, {3, 4}, {5}}},
		{"size larger than input", []int{1, 2}, 50, [][]int{{1, 2}}},
		{"empty", nil, 3, [][]int{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Batch(tt.items, tt.size))
		})
	}
}

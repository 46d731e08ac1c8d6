package utils

import (
	"context"
	"os"
	"runtime"
	"strconv"
	"sync"
)

// DefaultWorkers is used when neither the caller nor DOCGRAPH_WORKERS sets a pool size.
const DefaultWorkers = 8

// WorkerLimit returns the worker count from DOCGRAPH_WORKERS, falling back to
// min(DefaultWorkers, NumCPU).
func WorkerLimit() int {
	if val := os.Getenv("DOCGRAPH_WORKERS"); val != "" {
		if n, err := strconv.Atoi(val); err == nil && n > 0 {
			return n
		}
	}
	return min(DefaultWorkers, runtime.NumCPU())
}

// Worker processes a single item.
type Worker[T any, R any] func(ctx context.Context, item T) (R, error)

// WorkerPool runs a Worker over a slice of items with a fixed number of
// goroutines. Results and errors are positional: results[i] and errs[i]
// belong to items[i], so callers keep input order without sorting.
//
// Items not picked up before ctx is cancelled get ctx.Err() as their error.
type WorkerPool[T any, R any] struct {
	workers int
	worker  Worker[T, R]
}

// NewWorkerPool creates a pool. workers <= 0 means WorkerLimit().
func NewWorkerPool[T any, R any](workers int, worker Worker[T, R]) *WorkerPool[T, R] {
	if workers <= 0 {
		workers = WorkerLimit()
	}
	return &WorkerPool[T, R]{workers: workers, worker: worker}
}

// Workers reports the pool size.
func (wp *WorkerPool[T, R]) Workers() int {
	return wp.workers
}

// Process blocks until every item has been handled or ctx is done.
// A panicking worker yields a *PanicError for its item.
func (wp *WorkerPool[T, R]) Process(ctx context.Context, items []T) ([]R, []error) {
	if len(items) == 0 {
		return nil, nil
	}

	indexes := make(chan int, len(items))
	for i := range items {
		indexes <- i
	}
	close(indexes)

	results := make([]R, len(items))
	errs := make([]error, len(items))
	done := make([]bool, len(items))

	var wg sync.WaitGroup
	for w := 0; w < min(wp.workers, len(items)); w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indexes {
				if ctx.Err() != nil {
					return
				}
				wp.run(ctx, items, i, results, errs)
				done[i] = true
			}
		}()
	}
	wg.Wait()

	for i := range items {
		if !done[i] {
			errs[i] = ctx.Err()
		}
	}
	return results, errs
}

func (wp *WorkerPool[T, R]) run(ctx context.Context, items []T, i int, results []R, errs []error) {
	defer RecoverWithCallback(func(err error) {
		errs[i] = err
	})
	results[i], errs[i] = wp.worker(ctx, items[i])
}

// Batch splits items into consecutive chunks of at most size elements.
// The chunks share the backing array of items.
func Batch[T any](items []T, size int) [][]T {
	if size <= 0 {
		size = 10
	}
	batches := make([][]T, 0, (len(items)+size-1)/size)
	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))
		batches = append(batches, items[start:end])
	}
	return batches
}

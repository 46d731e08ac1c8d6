package telemetry

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/parquet-go/parquet-go"
)

// DefaultBatchSize is the number of error records buffered before a Parquet file is written.
const DefaultBatchSize = 100

// parquetSink is shared by a handler and every handler derived from it.
type parquetSink struct {
	mu        sync.Mutex
	dir       string
	batchSize int
	buffer    []ErrorRecord
}

// ParquetHandler writes ERROR records to Parquet files under a directory.
type ParquetHandler struct {
	next  slog.Handler
	attrs []slog.Attr
	sink  *parquetSink
}

// NewParquetHandler creates dir if needed. batchSize <= 0 means DefaultBatchSize.
func NewParquetHandler(next slog.Handler, dir string, batchSize int) (*ParquetHandler, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create telemetry directory: %w", err)
	}
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &ParquetHandler{
		next: next,
		sink: &parquetSink{dir: dir, batchSize: batchSize},
	}, nil
}

func (h *ParquetHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *ParquetHandler) Handle(ctx context.Context, r slog.Record) error {
	if err := h.next.Handle(ctx, r); err != nil {
		return err
	}
	if r.Level < slog.LevelError {
		return nil
	}

	rec := newErrorRecord(ctx, r, h.attrs)

	h.sink.mu.Lock()
	defer h.sink.mu.Unlock()
	h.sink.buffer = append(h.sink.buffer, rec)
	if len(h.sink.buffer) >= h.sink.batchSize {
		return h.sink.flush()
	}
	return nil
}

func (h *ParquetHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ParquetHandler{
		next:  h.next.WithAttrs(attrs),
		attrs: append(append([]slog.Attr(nil), h.attrs...), attrs...),
		sink:  h.sink,
	}
}

func (h *ParquetHandler) WithGroup(name string) slog.Handler {
	return &ParquetHandler{next: h.next.WithGroup(name), attrs: h.attrs, sink: h.sink}
}

// Flush writes any buffered records to a new file.
func (h *ParquetHandler) Flush() error {
	h.sink.mu.Lock()
	defer h.sink.mu.Unlock()
	return h.sink.flush()
}

// Close flushes the buffer.
func (h *ParquetHandler) Close() error {
	return h.Flush()
}

// caller holds s.mu
func (s *parquetSink) flush() error {
	if len(s.buffer) == 0 {
		return nil
	}
	now := time.Now()
	name := fmt.Sprintf("docgraph_errors_%s_%d.parquet", now.Format("20060102_150405"), now.UnixNano())
	if err := parquet.WriteFile(filepath.Join(s.dir, name), s.buffer); err != nil {
		return fmt.Errorf("failed to write telemetry parquet file: %w", err)
	}
	s.buffer = s.buffer[:0]
	return nil
}

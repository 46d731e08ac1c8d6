// Package telemetry captures ERROR level log records from index runs and
// queries so failures can be inspected after the process exits. Records go
// to Parquet files or to a sqlite table; both handlers decorate another
// slog.Handler and pass every record through to it first.
package telemetry

import (
	"context"
	"encoding/json"
	"log/slog"
	"runtime"
	"time"

	"github.com/google/uuid"

	"github.com/soundprediction/docgraph/pkg/types"
)

// ErrorRecord is one captured log entry.
type ErrorRecord struct {
	ID            string    `parquet:"id"`
	Timestamp     time.Time `parquet:"timestamp"`
	Level         string    `parquet:"level"`
	Message       string    `parquet:"message"`
	RunID         string    `parquet:"run_id"`
	SessionID     string    `parquet:"session_id"`
	RequestSource string    `parquet:"request_source"`
	SourceFile    string    `parquet:"source_file"`
	LineNumber    int       `parquet:"line_number"`
	Attributes    string    `parquet:"attributes"` // JSON object
}

// newErrorRecord builds a record from r. attrs are the handler's accumulated
// WithAttrs values and come before the record's own attributes.
func newErrorRecord(ctx context.Context, r slog.Record, attrs []slog.Attr) ErrorRecord {
	rec := ErrorRecord{
		ID:        uuid.NewString(),
		Timestamp: r.Time.UTC(),
		Level:     r.Level.String(),
		Message:   r.Message,
	}
	if v, ok := ctx.Value(types.ContextKeyRunID).(string); ok {
		rec.RunID = v
	}
	if v, ok := ctx.Value(types.ContextKeySessionID).(string); ok {
		rec.SessionID = v
	}
	if v, ok := ctx.Value(types.ContextKeyRequestSource).(string); ok {
		rec.RequestSource = v
	}

	fields := make(map[string]any, len(attrs)+r.NumAttrs())
	for _, a := range attrs {
		fields[a.Key] = attrValue(a.Value)
	}
	r.Attrs(func(a slog.Attr) bool {
		fields[a.Key] = attrValue(a.Value)
		return true
	})
	if b, err := json.Marshal(fields); err == nil {
		rec.Attributes = string(b)
	}

	if r.PC != 0 {
		f, _ := runtime.CallersFrames([]uintptr{r.PC}).Next()
		rec.SourceFile = f.File
		rec.LineNumber = f.Line
	}
	return rec
}

func attrValue(v slog.Value) any {
	v = v.Resolve()
	if err, ok := v.Any().(error); ok {
		return err.Error()
	}
	return v.Any()
}

package telemetry

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"

	_ "modernc.org/sqlite"
)

const sqlTable = "telemetry_errors"

// SQLHandler writes ERROR records into a sqlite table.
type SQLHandler struct {
	next  slog.Handler
	attrs []slog.Attr
	db    *sql.DB
	owned bool
}

// NewSQLHandler uses an already open database and creates the table if missing.
func NewSQLHandler(next slog.Handler, db *sql.DB) (*SQLHandler, error) {
	h := &SQLHandler{next: next, db: db}
	if err := h.ensureTable(); err != nil {
		return nil, fmt.Errorf("failed to ensure telemetry table: %w", err)
	}
	return h, nil
}

// OpenSQLHandler opens (or creates) a sqlite file at path. Close releases it.
func OpenSQLHandler(next slog.Handler, path string) (*SQLHandler, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open telemetry database: %w", err)
	}
	h, err := NewSQLHandler(next, db)
	if err != nil {
		db.Close()
		return nil, err
	}
	h.owned = true
	return h, nil
}

func (h *SQLHandler) ensureTable() error {
	_, err := h.db.Exec(`CREATE TABLE IF NOT EXISTS ` + sqlTable + ` (
		id TEXT PRIMARY KEY,
		timestamp DATETIME,
		level TEXT,
		message TEXT,
		run_id TEXT,
		session_id TEXT,
		request_source TEXT,
		source_file TEXT,
		line_number INTEGER,
		attributes TEXT
	)`)
	return err
}

func (h *SQLHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *SQLHandler) Handle(ctx context.Context, r slog.Record) error {
	if err := h.next.Handle(ctx, r); err != nil {
		return err
	}
	if r.Level < slog.LevelError {
		return nil
	}

	rec := newErrorRecord(ctx, r, h.attrs)
	_, err := h.db.ExecContext(context.WithoutCancel(ctx), `INSERT INTO `+sqlTable+`
		(id, timestamp, level, message, run_id, session_id, request_source, source_file, line_number, attributes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Timestamp, rec.Level, rec.Message, rec.RunID, rec.SessionID,
		rec.RequestSource, rec.SourceFile, rec.LineNumber, rec.Attributes)
	if err != nil {
		// never fail the logging chain on a telemetry write
		fmt.Fprintf(os.Stderr, "failed to write telemetry record: %v\n", err)
	}
	return nil
}

func (h *SQLHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &SQLHandler{
		next:  h.next.WithAttrs(attrs),
		attrs: append(append([]slog.Attr(nil), h.attrs...), attrs...),
		db:    h.db,
	}
}

func (h *SQLHandler) WithGroup(name string) slog.Handler {
	return &SQLHandler{next: h.next.WithGroup(name), attrs: h.attrs, db: h.db}
}

// Count returns the number of stored records.
func (h *SQLHandler) Count(ctx context.Context) (int, error) {
	var n int
	err := h.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+sqlTable).Scan(&n)
	return n, err
}

// Close closes the database when the handler opened it.
func (h *SQLHandler) Close() error {
	if !h.owned {
		return nil
	}
	return h.db.Close()
}

// Package snapshot persists a built knowledge graph in SQLite so commands
// that only read the graph can skip re-parsing the corpus.
//
// A snapshot is keyed by the absolute corpus root and carries a fingerprint
// of the markdown files it was built from. Load refuses a snapshot whose
// fingerprint no longer matches the files on disk.
package snapshot

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/soundprediction/docgraph/pkg/graph"
	"github.com/soundprediction/docgraph/pkg/types"
)

var (
	// ErrNotFound is returned when no snapshot exists for a corpus root.
	ErrNotFound = errors.New("no graph snapshot for corpus")

	// ErrStale is returned when the corpus changed since the snapshot was taken.
	ErrStale = errors.New("graph snapshot is stale")
)

const schema = `
CREATE TABLE IF NOT EXISTS snapshots (
	root        TEXT PRIMARY KEY,
	fingerprint TEXT NOT NULL,
	documents   INTEGER NOT NULL,
	created_at  DATETIME NOT NULL
);
CREATE TABLE IF NOT EXISTS documents (
	root     TEXT NOT NULL,
	position INTEGER NOT NULL,
	doc_id   TEXT NOT NULL,
	node     TEXT NOT NULL,
	PRIMARY KEY (root, position)
);
CREATE TABLE IF NOT EXISTS links (
	root     TEXT NOT NULL,
	source   TEXT NOT NULL,
	position INTEGER NOT NULL,
	target   TEXT NOT NULL,
	PRIMARY KEY (root, source, position)
);
`

// Info describes a stored snapshot.
type Info struct {
	Root        string    `json:"root" yaml:"root"`
	Fingerprint string    `json:"fingerprint" yaml:"fingerprint"`
	Documents   int       `json:"documents" yaml:"documents"`
	CreatedAt   time.Time `json:"created_at" yaml:"created_at"`
}

// Store reads and writes graph snapshots.
type Store struct {
	db   *sql.DB
	path string
	salt string
}

// Open opens (or creates) the snapshot database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("creating snapshot directory: %w", err)
	}
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening snapshot database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating snapshot schema: %w", err)
	}
	return &Store{db: db, path: path}, nil
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// SetSalt mixes salt into every fingerprint, so snapshots saved under a
// different salt load as stale. Callers pass a key of the parse settings.
func (s *Store) SetSalt(salt string) {
	s.salt = salt
}

func (s *Store) fingerprint(root string) (string, error) {
	fp, err := Fingerprint(root)
	if err != nil || s.salt == "" {
		return fp, err
	}
	sum := sha256.Sum256([]byte(fp + "\n" + s.salt))
	return hex.EncodeToString(sum[:]), nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Fingerprint hashes the path, size and modification time of every markdown
// file under root.
func Fingerprint(root string) (string, error) {
	files, err := graph.Discover(root)
	if err != nil {
		return "", err
	}
	h := sha256.New()
	for _, rel := range files {
		info, err := os.Stat(filepath.Join(root, filepath.FromSlash(rel)))
		if err != nil {
			return "", fmt.Errorf("stat %s: %w", rel, err)
		}
		h.Write([]byte(rel))
		h.Write([]byte{0})
		h.Write([]byte(strconv.FormatInt(info.Size(), 10)))
		h.Write([]byte{0})
		h.Write([]byte(strconv.FormatInt(info.ModTime().UnixNano(), 10)))
		h.Write([]byte{'\n'})
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func canonicalRoot(root string) (string, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("resolving corpus root: %w", err)
	}
	return abs, nil
}

// Save replaces the snapshot for root with g.
func (s *Store) Save(ctx context.Context, root string, g *graph.Graph) error {
	root, err := canonicalRoot(root)
	if err != nil {
		return err
	}
	fingerprint, err := s.fingerprint(root)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning snapshot transaction: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"snapshots", "documents", "links"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE root = ?", root); err != nil {
			return fmt.Errorf("clearing %s: %w", table, err)
		}
	}

	docStmt, err := tx.PrepareContext(ctx, "INSERT INTO documents (root, position, doc_id, node) VALUES (?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("preparing document insert: %w", err)
	}
	defer docStmt.Close()
	linkStmt, err := tx.PrepareContext(ctx, "INSERT INTO links (root, source, position, target) VALUES (?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("preparing link insert: %w", err)
	}
	defer linkStmt.Close()

	nodes := g.Nodes()
	for i, n := range nodes {
		stored := *n
		stored.ResolvedLinks = nil
		data, err := json.Marshal(stored)
		if err != nil {
			return fmt.Errorf("encoding %s: %w", n.DocID, err)
		}
		if _, err := docStmt.ExecContext(ctx, root, i, n.DocID, string(data)); err != nil {
			return fmt.Errorf("inserting %s: %w", n.DocID, err)
		}
		for j, target := range g.Links(n.DocID) {
			if _, err := linkStmt.ExecContext(ctx, root, n.DocID, j, target); err != nil {
				return fmt.Errorf("inserting link %s -> %s: %w", n.DocID, target, err)
			}
		}
	}

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO snapshots (root, fingerprint, documents, created_at) VALUES (?, ?, ?, ?)",
		root, fingerprint, len(nodes), time.Now().UTC()); err != nil {
		return fmt.Errorf("recording snapshot: %w", err)
	}
	return tx.Commit()
}

// Info returns the stored snapshot metadata for root.
func (s *Store) Info(ctx context.Context, root string) (*Info, error) {
	root, err := canonicalRoot(root)
	if err != nil {
		return nil, err
	}
	info := &Info{Root: root}
	err = s.db.QueryRowContext(ctx,
		"SELECT fingerprint, documents, created_at FROM snapshots WHERE root = ?", root).
		Scan(&info.Fingerprint, &info.Documents, &info.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, root)
	}
	if err != nil {
		return nil, fmt.Errorf("reading snapshot: %w", err)
	}
	return info, nil
}

// Load rebuilds the graph stored for root. It returns ErrStale when the
// markdown files changed after the snapshot was saved.
func (s *Store) Load(ctx context.Context, root string) (*graph.Graph, error) {
	info, err := s.Info(ctx, root)
	if err != nil {
		return nil, err
	}
	current, err := s.fingerprint(info.Root)
	if err != nil {
		return nil, err
	}
	if current != info.Fingerprint {
		return nil, fmt.Errorf("%w: %s", ErrStale, info.Root)
	}

	links := make(map[string][]string)
	rows, err := s.db.QueryContext(ctx,
		"SELECT source, target FROM links WHERE root = ? ORDER BY source, position", info.Root)
	if err != nil {
		return nil, fmt.Errorf("reading links: %w", err)
	}
	for rows.Next() {
		var source, target string
		if err := rows.Scan(&source, &target); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning link: %w", err)
		}
		links[source] = append(links[source], target)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading links: %w", err)
	}

	rows, err = s.db.QueryContext(ctx,
		"SELECT node FROM documents WHERE root = ? ORDER BY position", info.Root)
	if err != nil {
		return nil, fmt.Errorf("reading documents: %w", err)
	}
	defer rows.Close()

	nodes := make([]*types.DocumentNode, 0, info.Documents)
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scanning document: %w", err)
		}
		var n types.DocumentNode
		if err := json.Unmarshal([]byte(data), &n); err != nil {
			return nil, fmt.Errorf("decoding document: %w", err)
		}
		n.ResolvedLinks = links[n.DocID]
		nodes = append(nodes, &n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading documents: %w", err)
	}
	return graph.New(nodes)
}

package graph

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/soundprediction/docgraph/pkg/parser"
	"github.com/soundprediction/docgraph/pkg/resolver"
	"github.com/soundprediction/docgraph/pkg/types"
	"github.com/soundprediction/docgraph/pkg/utils"
)

// BuilderConfig configures graph construction.
type BuilderConfig struct {
	// ParseWorkers bounds concurrent file parsing; <= 0 uses utils.WorkerLimit().
	ParseWorkers int
	Parser       parser.Config
}

// Builder walks a corpus and produces a Graph.
type Builder struct {
	cfg      BuilderConfig
	logger   *slog.Logger
	resolver *resolver.Resolver
}

// NewBuilder creates a builder. A nil logger means slog.Default().
func NewBuilder(cfg BuilderConfig, logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{
		cfg:      cfg,
		logger:   logger,
		resolver: resolver.New(logger),
	}
}

// Build discovers every *.md file below root, parses them concurrently and,
// once all parses have finished, resolves links over the complete node set.
// Files that fail to parse are logged and skipped. An empty corpus gives an
// empty graph; a missing root is an error.
func (b *Builder) Build(ctx context.Context, root string) (*Graph, error) {
	start := time.Now()

	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("corpus root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("corpus root %s is not a directory", root)
	}

	p, err := parser.New(root, b.cfg.Parser)
	if err != nil {
		return nil, err
	}
	files, err := Discover(p.Root())
	if err != nil {
		return nil, err
	}
	b.logger.Debug("Discovered documents", "root", p.Root(), "count", len(files))

	pool := utils.NewWorkerPool(b.cfg.ParseWorkers, func(_ context.Context, rel string) (*types.DocumentNode, error) {
		return p.Parse(rel)
	})
	parsed, errs := pool.Process(ctx, files)
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("build cancelled: %w", err)
	}

	nodes := make([]*types.DocumentNode, 0, len(parsed))
	seen := make(map[string]string, len(parsed))
	skipped := 0
	for i, node := range parsed {
		if errs[i] != nil {
			skipped++
			b.logger.Warn("Skipping unparseable document", "path", files[i], "error", errs[i])
			continue
		}
		if prev, dup := seen[node.DocID]; dup {
			skipped++
			b.logger.Warn("Skipping document with duplicate doc_id", "path", node.FilePath, "doc_id", node.DocID, "kept", prev)
			continue
		}
		seen[node.DocID] = node.FilePath
		nodes = append(nodes, node)
	}

	unresolved := b.resolver.ResolveAll(nodes)

	g, err := New(nodes)
	if err != nil {
		return nil, err
	}
	b.logger.Info("Built knowledge graph",
		"documents", g.Len(),
		"links", g.EdgeCount(),
		"skipped", skipped,
		"unresolved_links", unresolved,
		"duration", time.Since(start).Round(time.Millisecond))
	return g, nil
}

// Discover returns the corpus-relative paths of all markdown files below
// root in lexical walk order. Hidden directories are not entered.
func Discover(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if filepath.Ext(d.Name()) != types.DocumentExtension {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk corpus: %w", err)
	}
	return files, nil
}

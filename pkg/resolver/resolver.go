// Package resolver maps the raw link targets of parsed documents onto doc IDs.
//
// Resolution runs after every document of a corpus has been parsed. Each raw
// target is matched in two steps:
//
//  1. canonical: the target equals a document's relative path, with or
//     without the .md extension;
//  2. fallback: the first document, in discovery order, whose relative path,
//     lower-cased title or any path segment contains the target. When more
//     than one document qualifies the choice is logged as ambiguous.
//
// Targets that match nothing are dropped. Resolved IDs are unique per
// document and never point back at the document itself.
package resolver

import (
	"log/slog"
	"strings"

	"github.com/soundprediction/docgraph/pkg/types"
)

// Resolver resolves raw links against a node set.
type Resolver struct {
	logger *slog.Logger
}

// New creates a Resolver. A nil logger means slog.Default().
func New(logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{logger: logger.With("component", "resolver")}
}

// Resolve maps raw targets to doc IDs of nodes. nodes must be in discovery order.
func (r *Resolver) Resolve(raw []string, nodes []*types.DocumentNode) []string {
	return r.newIndex(nodes).resolve("", raw)
}

// ResolveAll fills ResolvedLinks of every node and returns the number of
// links that could not be resolved.
func (r *Resolver) ResolveAll(nodes []*types.DocumentNode) int {
	idx := r.newIndex(nodes)
	unresolved := 0
	for _, n := range nodes {
		n.ResolvedLinks = idx.resolve(n.DocID, n.RawLinks)
		unresolved += idx.lastUnresolved
	}
	return unresolved
}

type index struct {
	r      *Resolver
	nodes  []*types.DocumentNode
	titles []string
	exact  map[string]string

	lastUnresolved int
}

func (r *Resolver) newIndex(nodes []*types.DocumentNode) *index {
	idx := &index{
		r:      r,
		nodes:  nodes,
		titles: make([]string, len(nodes)),
		exact:  make(map[string]string, 2*len(nodes)),
	}
	for i, n := range nodes {
		idx.titles[i] = strings.ToLower(n.Title)
		// first in discovery order wins on collision
		for _, key := range []string{n.FilePath, strings.TrimSuffix(n.FilePath, types.DocumentExtension)} {
			if _, ok := idx.exact[key]; !ok {
				idx.exact[key] = n.DocID
			}
		}
	}
	return idx
}

// resolve drops links to self when self is non-empty.
func (idx *index) resolve(self string, raw []string) []string {
	idx.lastUnresolved = 0
	var out []string
	seen := make(map[string]struct{}, len(raw))
	for _, link := range raw {
		id, ok := idx.match(self, link)
		if !ok {
			idx.lastUnresolved++
			idx.r.logger.Debug("Dropping unresolved link", "from", self, "link", link)
			continue
		}
		if id == self {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func (idx *index) match(self, link string) (string, bool) {
	if link == "" {
		return "", false
	}
	if id, ok := idx.exact[link]; ok {
		return id, true
	}

	var first string
	candidates := 0
	for i, n := range idx.nodes {
		if !fallbackMatch(link, n.FilePath, idx.titles[i]) {
			continue
		}
		if candidates == 0 {
			first = n.DocID
		}
		candidates++
	}
	if candidates == 0 {
		return "", false
	}
	if candidates > 1 {
		idx.r.logger.Warn("Ambiguous link resolved by first match",
			"from", self, "link", link, "chosen", first, "candidates", candidates)
	}
	return first, true
}

func fallbackMatch(link, filePath, lowerTitle string) bool {
	if strings.Contains(filePath, link) || strings.Contains(lowerTitle, link) {
		return true
	}
	for _, seg := range strings.Split(filePath, "/") {
		if strings.Contains(seg, link) {
			return true
		}
	}
	return false
}

package resolver

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/soundprediction/docgraph/pkg/types"
)

func node(path, title string, raw ...string) *types.DocumentNode {
	return &types.DocumentNode{
		DocID:    types.DocIDFromPath(path),
		FilePath: path,
		Title:    title,
		RawLinks: raw,
	}
}

func TestResolveCanonicalBeforeFallback(t *testing.T) {
	nodes := []*types.DocumentNode{
		node("archive/offerings/lunar.md", "Old Lunar"),
		node("offerings/lunar.md", "Lunar"),
	}
	r := New(nil)

	// a substring scan would pick the archive copy first
	assert.Equal(t, []string{"offerings_lunar"}, r.Resolve([]string{"offerings/lunar.md"}, nodes))
	assert.Equal(t, []string{"offerings_lunar"}, r.Resolve([]string{"offerings/lunar"}, nodes))
}

func TestResolveFallbackFragment(t *testing.T) {
	nodes := []*types.DocumentNode{
		node("01_corporate/mission.md", "Mission"),
		node("04_marketing/02_offerings/x.md", "X Package"),
	}
	r := New(nil)

	assert.Equal(t, []string{"04_marketing_02_offerings_x"}, r.Resolve([]string{"offerings/x.md"}, nodes))
	assert.Equal(t, []string{"01_corporate_mission"}, r.Resolve([]string{"mission"}, nodes), "title and segment match")
}

func TestResolveLogsAmbiguity(t *testing.T) {
	var buf bytes.Buffer
	r := New(slog.New(slog.NewTextHandler(&buf, nil)))
	nodes := []*types.DocumentNode{
		node("hr/policy.md", "Leave Policy"),
		node("legal/policy.md", "Privacy Policy"),
	}

	got := r.Resolve([]string{"policy.md"}, nodes)

	assert.Equal(t, []string{"hr_policy"}, got, "first in discovery order")
	assert.Contains(t, buf.String(), "Ambiguous link")
	assert.Contains(t, buf.String(), "candidates=2")
}

func TestResolveDropsUnknownDuplicatesAndSelf(t *testing.T) {
	a := node("a.md", "A", "b.md", "nowhere.md", "b", "a.md")
	b := node("b.md", "B", "a.md")
	nodes := []*types.DocumentNode{a, b}

	unresolved := New(nil).ResolveAll(nodes)

	assert.Equal(t, []string{"b"}, a.ResolvedLinks)
	assert.Equal(t, []string{"a"}, b.ResolvedLinks)
	assert.Equal(t, 1, unresolved)
}

func TestResolveOnlyKnownIDs(t *testing.T) {
	nodes := []*types.DocumentNode{
		node("x/one.md", "One", "two.md", "three.md"),
		node("x/two.md", "Two", "one.md"),
	}
	New(nil).ResolveAll(nodes)

	ids := map[string]bool{}
	for _, n := range nodes {
		ids[n.DocID] = true
	}
	for _, n := range nodes {
		for _, l := range n.ResolvedLinks {
			assert.True(t, ids[l], "dangling link %s", l)
		}
	}
}

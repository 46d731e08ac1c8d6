package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeLink(t *testing.T) {
	tests := []struct {
		name   string
		target string
		want   string
	}{
		{"parent segment becomes root relative", "../offerings/x", "offerings/x"},
		{"parent with extension and anchor", "../offerings/x.md#pricing", "offerings/x.md"},
		{"current dir", "./sibling.md", "sibling.md"},
		{"nested parents", "../../a/./b/../c.md", "a/b/c.md"},
		{"absolute with corpus root", "/docs/hr/policy.md", "hr/policy.md"},
		{"absolute without corpus root", "/hr/policy.md", "hr/policy.md"},
		{"query string", "guide.md?plain=1", "guide.md"},
		{"escaped spaces", "crew%20guide.md", "crew guide.md"},
		{"http url", "https://example.com/a.md", ""},
		{"mailto", "mailto:ops@example.com", ""},
		{"protocol relative", "//cdn.example.com/a.md", ""},
		{"pure anchor", "#section", ""},
		{"empty", "  ", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeLink(tt.target, "docs"))
		})
	}
}

func TestExtractLinksFiltersNonDocuments(t *testing.T) {
	content := `[a](a.md) [b](b.MD) ![img](pic.md) [c](c.pdf) [d](dir/) [e](spaced%20name.md)
[a again](./a.md#x) [titled](t.md "Title")`

	assert.Equal(t, []string{"a.md", "b.MD", "spaced name.md", "t.md"}, ExtractLinks(content, "docs"))
}

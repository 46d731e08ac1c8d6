package parser

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/soundprediction/docgraph/pkg/types"
)

// Inline links with an optional title: [text](target "title"). The leading
// group captures "!" so images can be skipped without lookbehind.
var linkPattern = regexp.MustCompile(`(!?)\[[^\]]*\]\(\s*<?([^)\s>]+)>?(?:\s+"[^"]*")?\s*\)`)

var schemePattern = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9+.-]*:`)

// ExtractLinks returns the normalised targets of every internal markdown link
// in content, first occurrence order, without duplicates. rootName is the
// base name of the corpus root used to strip absolute-looking targets.
func ExtractLinks(content, rootName string) []string {
	var links []string
	seen := make(map[string]struct{})
	for _, m := range linkPattern.FindAllStringSubmatch(content, -1) {
		if m[1] == "!" {
			continue
		}
		target := NormalizeLink(m[2], rootName)
		if target == "" || !strings.HasSuffix(strings.ToLower(target), types.DocumentExtension) {
			continue
		}
		if _, ok := seen[target]; ok {
			continue
		}
		seen[target] = struct{}{}
		links = append(links, target)
	}
	return links
}

// NormalizeLink turns a link target into a corpus-root-relative path:
// the #anchor and ?query are dropped, every "." and ".." segment is removed
// and a leading slash, optionally followed by rootName, is stripped.
// External targets (any URL scheme, mailto:) and pure anchors give "".
//
//	NormalizeLink("../offerings/x.md#price", "docs") == "offerings/x.md"
//	NormalizeLink("/docs/hr/policy.md", "docs")      == "hr/policy.md"
func NormalizeLink(target, rootName string) string {
	target = strings.TrimSpace(target)
	if target == "" || strings.HasPrefix(target, "#") || schemePattern.MatchString(target) || strings.HasPrefix(target, "//") {
		return ""
	}
	if i := strings.IndexAny(target, "#?"); i >= 0 {
		target = target[:i]
	}
	if unescaped, err := url.PathUnescape(target); err == nil {
		target = unescaped
	}
	target = strings.ReplaceAll(target, "\\", "/")

	absolute := strings.HasPrefix(target, "/")
	segments := make([]string, 0, strings.Count(target, "/")+1)
	for _, seg := range strings.Split(target, "/") {
		switch seg {
		case "", ".", "..":
			continue
		}
		segments = append(segments, seg)
	}
	if absolute && rootName != "" && len(segments) > 1 && segments[0] == rootName {
		segments = segments[1:]
	}
	return strings.Join(segments, "/")
}

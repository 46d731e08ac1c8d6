package parser

import (
	"path"
	"regexp"
	"strings"
)

var titlePattern = regexp.MustCompile(`(?m)^#[ \t]+(.+?)[ \t]*\r?$`)

// fieldPatterns map the bold labels used in corpus headers to metadata keys.
var fieldPatterns = []struct {
	key     string
	pattern *regexp.Regexp
}{
	{"version", regexp.MustCompile(`\*\*Document Version\*\*:\s*([^\n]+)`)},
	{"effective_date", regexp.MustCompile(`\*\*Effective Date\*\*:\s*([^\n]+)`)},
	{"prepared_by", regexp.MustCompile(`\*\*Prepared by\*\*:\s*([^\n]+)`)},
	{"approved_by", regexp.MustCompile(`\*\*Approved by\*\*:\s*([^\n]+)`)},
}

// ExtractTitle returns the first level-one heading, else the file name without extension.
func ExtractTitle(content, relPath string) string {
	if m := titlePattern.FindStringSubmatch(content); m != nil {
		return strings.TrimSpace(m[1])
	}
	base := path.Base(relPath)
	return strings.TrimSuffix(base, path.Ext(base))
}

// ExtractFields returns the header fields present in content. Absent fields
// have no key; the map is never nil.
func ExtractFields(content string) map[string]string {
	fields := make(map[string]string)
	for _, f := range fieldPatterns {
		if m := f.pattern.FindStringSubmatch(content); m != nil {
			if v := strings.TrimSpace(m[1]); v != "" {
				fields[f.key] = v
			}
		}
	}
	return fields
}

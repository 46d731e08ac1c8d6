package parser

import (
	"strings"

	"github.com/soundprediction/docgraph/pkg/types"
)

// Rule assigns Tag when the lower-cased relative path contains any of Substrings.
type Rule struct {
	Substrings []string `mapstructure:"substrings" yaml:"substrings"`
	Tag        string   `mapstructure:"tag" yaml:"tag"`
}

// Rules are evaluated in order; the first match wins.
type Rules []Rule

// Classify returns the tag of the first matching rule, or types.DefaultTag.
func (rs Rules) Classify(relPath string) string {
	p := strings.ToLower(relPath)
	for _, r := range rs {
		for _, s := range r.Substrings {
			if s != "" && strings.Contains(p, strings.ToLower(s)) {
				return r.Tag
			}
		}
	}
	return types.DefaultTag
}

// DefaultCategoryRules follow the numbered top-level folders of the corpus.
var DefaultCategoryRules = Rules{
	{Substrings: []string{"01_corporate"}, Tag: "corporate"},
	{Substrings: []string{"02_customer_service"}, Tag: "customer_service"},
	{Substrings: []string{"03_hr"}, Tag: "hr"},
	{Substrings: []string{"04_marketing"}, Tag: "marketing"},
	{Substrings: []string{"05_legal"}, Tag: "legal"},
	{Substrings: []string{"06_technical"}, Tag: "technical"},
	{Substrings: []string{"07_finance"}, Tag: "finance"},
	{Substrings: []string{"08_it"}, Tag: "it"},
	{Substrings: []string{"09_emergency"}, Tag: "emergency"},
}

// DefaultTypeRules classify by topic words anywhere in the path. Order
// matters: "it" matches inside many words and is tried late.
var DefaultTypeRules = Rules{
	{Substrings: []string{"offerings"}, Tag: "offering"},
	{Substrings: []string{"spacecraft", "specs"}, Tag: "spacecraft"},
	{Substrings: []string{"training", "certification"}, Tag: "training"},
	{Substrings: []string{"research"}, Tag: "research"},
	{Substrings: []string{"corporate"}, Tag: "corporate"},
	{Substrings: []string{"hr"}, Tag: "hr"},
	{Substrings: []string{"marketing"}, Tag: "marketing"},
	{Substrings: []string{"technical"}, Tag: "technical"},
	{Substrings: []string{"legal"}, Tag: "legal"},
	{Substrings: []string{"finance"}, Tag: "finance"},
	{Substrings: []string{"it"}, Tag: "it"},
	{Substrings: []string{"emergency"}, Tag: "emergency"},
}

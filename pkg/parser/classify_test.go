package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultRules(t *testing.T) {
	tests := []struct {
		path         string
		wantCategory string
		wantType     string
	}{
		{"01_corporate/mission.md", "corporate", "corporate"},
		{"04_marketing/02_offerings/01_lunar.md", "marketing", "offering"},
		{"06_technical/01_spacecraft/vehicle.md", "technical", "spacecraft"},
		{"06_technical/specs/engine.md", "technical", "spacecraft"},
		{"03_hr/training/onboarding.md", "hr", "training"},
		{"07_finance/budget.md", "finance", "finance"},
		{"09_emergency/procedures.md", "emergency", "emergency"},
		{"README.md", "general", "general"},
		{"03_HR/Handbook.md", "hr", "hr"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.wantCategory, DefaultCategoryRules.Classify(tt.path))
			assert.Equal(t, tt.wantType, DefaultTypeRules.Classify(tt.path))
		})
	}
}

func TestRulesFirstMatchWins(t *testing.T) {
	rules := Rules{
		{Substrings: []string{"a"}, Tag: "first"},
		{Substrings: []string{"ab"}, Tag: "second"},
	}
	assert.Equal(t, "first", rules.Classify("ab.md"))
	assert.Equal(t, "general", Rules(nil).Classify("ab.md"))
}

func TestConfigKey(t *testing.T) {
	assert.Empty(t, Config{}.Key())

	custom := Config{TypeRules: Rules{{Substrings: []string{"faq"}, Tag: "faq"}}}
	assert.NotEmpty(t, custom.Key())
	assert.Equal(t, custom.Key(), Config{TypeRules: Rules{{Substrings: []string{"faq"}, Tag: "faq"}}}.Key())

	extended := Config{TypeRules: Rules{{Substrings: []string{"faq"}, Tag: "faq"}, {Substrings: []string{"x"}, Tag: "x"}}}
	assert.NotEqual(t, custom.Key(), extended.Key())
}

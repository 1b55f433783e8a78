package internal

import (
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
)

func TestMakeSlug(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "spaces", input: "About Us", want: "about-us"},
		{name: "punctuation", input: "  Pricing & Plans! ", want: "pricing-plans"},
		{name: "dashes collapse", input: "a -- b", want: "a-b"},
		{name: "empty falls back", input: "???", want: "page"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, makeSlug(tt.input))
		})
	}
}

func TestSanitizeIdentifier(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "empty", input: "", expected: ""},
		{name: "simple", input: "pages", expected: pgx.Identifier{"pages"}.Sanitize()},
		{name: "schema qualified", input: "studio.pages", expected: pgx.Identifier{"studio", "pages"}.Sanitize()},
		{name: "quoted parts", input: `"studio"."blocks"`, expected: pgx.Identifier{"studio", "blocks"}.Sanitize()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, sanitizeIdentifier(tt.input))
		})
	}
}

func TestStem(t *testing.T) {
	assert.Equal(t, "HeroSplit", stem("/themes/a/blocks/HeroSplit.json"))
	assert.Equal(t, "nav", stem("nav.html"))
}

func TestSortedKeys(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, sortedKeys(map[string]int{"c": 1, "a": 2, "b": 3}))
}

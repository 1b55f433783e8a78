package internal

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/lychee-technology/studiokit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInferCategory(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{name: "HeroSplit", want: "hero"},
		{name: "FAQAccordion", want: "faq"},
		{name: "RandomWidget", want: "other"},
		{name: "FeatureGrid", want: "features"},
		{name: "PricingTable", want: "pricing"},
		{name: "CTABanner", want: "cta"},
		{name: "TestimonialSlider", want: "testimonials"},
		{name: "TeamGrid", want: "team"},
		{name: "StatsRow", want: "stats"},
		{name: "LogoCloud", want: "logos"},
		{name: "Footer4Col", want: "footer"},
		{name: "NavbarSticky", want: "navigation"},
		{name: "NavMinimal", want: "navigation"},
		{name: "FormNewsletter", want: "forms"},
		{name: "ContactSplit", want: "forms"},
		{name: "ContentBlock", want: "content"},
		{name: "SplitImage", want: "content"},
		{name: "  hero  ", want: "hero"},
		{name: "", want: "other"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, InferCategory(tt.name))
		})
	}
}

func writeCatalogBlocks(t *testing.T, dir string) {
	t.Helper()
	writeFile(t, filepath.Join(dir, "HeroSplit.json"), heroFieldsJSON)
	writeFile(t, filepath.Join(dir, "HeroSplit.html"), "<section></section>")
	writeFile(t, filepath.Join(dir, "FAQAccordion.json"), `{
		"makeStudioFields": true, "version": 1,
		"fields": [
			{"type": "rich-text", "name": "Intro", "default": "<p>Common <b>questions</b> &amp; answers</p>"},
			{"type": "select", "name": "Style", "config": {"options": ["plain", {"label": "Boxed", "value": "boxed"}]}}
		]
	}`)
	writeFile(t, filepath.Join(dir, "RandomWidget.json"), `{"makeStudioFields": true, "version": 1, "fields": []}`)
	writeFile(t, filepath.Join(dir, "FeatureGrid.json"), `{"makeStudioFields": true, "version": 1, "fields": [{"type": "text", "name": "Title"}]}`)
	writeFile(t, filepath.Join(dir, "Broken.json"), `{"makeStudioFields": true, "fields": [`)
	writeFile(t, filepath.Join(dir, "NotStudio.json"), `{"fields": []}`)
	writeFile(t, filepath.Join(dir, "README.md"), "ignored")
}

func TestCatalogGenerator_Generate(t *testing.T) {
	dir := t.TempDir()
	writeCatalogBlocks(t, dir)
	fixed := time.Date(2025, 3, 1, 12, 0, 0, 0, time.FixedZone("CET", 3600))
	gen := NewCatalogGenerator(WithCatalogClock(func() time.Time { return fixed }))

	catalog, fe := gen.Generate("studio", dir)

	assert.Equal(t, "studio", catalog.Theme)
	assert.Equal(t, "2025-03-01T11:00:00Z", catalog.GeneratedAt)

	names := make([]string, 0, len(catalog.Blocks))
	for _, b := range catalog.Blocks {
		names = append(names, b.Category+"/"+b.Name)
	}
	assert.Equal(t, []string{"faq/FAQAccordion", "features/FeatureGrid", "hero/HeroSplit", "other/RandomWidget"}, names)

	require.True(t, fe.HasErrors())
	assert.Equal(t, 2, fe.FailureCount)
	assert.Equal(t, 4, fe.SuccessCount)
	assert.Equal(t, map[string]int{studiokit.ErrCodeParseFailed: 2}, fe.Summary())
	assert.Equal(t, filepath.Join(dir, "Broken.json"), fe.Errors[0].Path)
	assert.Equal(t, "Broken", fe.Errors[0].Block)
}

func TestCatalogGenerator_Flattening(t *testing.T) {
	dir := t.TempDir()
	writeCatalogBlocks(t, dir)
	catalog, _ := NewCatalogGenerator().Generate("studio", dir)

	faq := catalog.Blocks[0]
	require.Equal(t, "FAQAccordion", faq.Name)
	require.Len(t, faq.Fields, 2)
	assert.Equal(t, "Common questions & answers", faq.Fields[0].Preview)

	options, err := json.Marshal(faq.Fields[1].Options)
	require.NoError(t, err)
	assert.JSONEq(t, `["plain", {"label": "Boxed", "value": "boxed"}]`, string(options))
	assert.Nil(t, faq.Fields[1].Fields)

	hero := catalog.Blocks[2]
	require.Equal(t, "HeroSplit", hero.Name)
	assert.Equal(t, "HeroSplit.html", hero.Template)
	assert.Equal(t, "Hero with image", hero.Description)
	features := hero.Fields[3]
	assert.Equal(t, "repeater", features.Type)
	require.Len(t, features.Fields, 1)
	assert.Equal(t, "Title", features.Fields[0].Name)
	assert.Equal(t, []any{map[string]any{"title": "Fast"}}, features.Default)
	assert.Empty(t, catalog.Blocks[1].Template)
}

func TestCatalogGenerator_Deterministic(t *testing.T) {
	dir := t.TempDir()
	writeCatalogBlocks(t, dir)

	first, _ := NewCatalogGenerator().Generate("studio", dir)
	second, _ := NewCatalogGenerator().Generate("studio", dir)

	a, err := json.Marshal(first.Blocks)
	require.NoError(t, err)
	b, err := json.Marshal(second.Blocks)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}

func TestCatalogGenerator_MissingDirectory(t *testing.T) {
	catalog, fe := NewCatalogGenerator().Generate("studio", filepath.Join(t.TempDir(), "nope"))
	assert.Empty(t, catalog.Blocks)
	assert.False(t, fe.HasErrors())
}

func TestWriteCatalog(t *testing.T) {
	themeDir := t.TempDir()
	catalog := &studiokit.Catalog{
		Theme:       "studio",
		GeneratedAt: "2025-01-01T00:00:00Z",
		Blocks:      []studiokit.CatalogBlock{{Name: "HeroSplit", Category: "hero", Fields: []studiokit.CatalogField{}}},
	}
	path := CatalogPath(themeDir)
	require.NoError(t, WriteCatalog(path, catalog))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"theme": "studio",
		"generatedAt": "2025-01-01T00:00:00Z",
		"blocks": [{"name": "HeroSplit", "category": "hero", "fields": []}]
	}`, string(data))
	assert.Equal(t, byte('\n'), data[len(data)-1])
	assert.Equal(t, filepath.Join(themeDir, "blocks"), BlocksDir(themeDir))
}

package internal

import (
	"encoding/json"
	"fmt"
	"html"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/lychee-technology/studiokit"
	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"
)

// CategoryOther is assigned to blocks no rule matches.
const CategoryOther = "other"

type categoryRule struct {
	prefixes []string
	category string
}

// Order is significant: the first matching rule wins.
var categoryRules = []categoryRule{
	{[]string{"hero"}, "hero"},
	{[]string{"feature"}, "features"},
	{[]string{"pricing"}, "pricing"},
	{[]string{"cta"}, "cta"},
	{[]string{"faq"}, "faq"},
	{[]string{"testimonial"}, "testimonials"},
	{[]string{"team"}, "team"},
	{[]string{"stat"}, "stats"},
	{[]string{"logo"}, "logos"},
	{[]string{"footer"}, "footer"},
	{[]string{"navbar", "nav"}, "navigation"},
	{[]string{"form", "contact"}, "forms"},
	{[]string{"content", "split"}, "content"},
}

// InferCategory derives a catalog category from a block name prefix.
func InferCategory(name string) string {
	lower := strings.ToLower(strings.TrimSpace(name))
	for _, rule := range categoryRules {
		for _, prefix := range rule.prefixes {
			if strings.HasPrefix(lower, prefix) {
				return rule.category
			}
		}
	}
	return CategoryOther
}

// CatalogGenerator builds the block catalog of a theme.
type CatalogGenerator struct {
	now    func() time.Time
	policy *bluemonday.Policy
}

// CatalogOption configures a CatalogGenerator.
type CatalogOption func(*CatalogGenerator)

// WithCatalogClock sets the clock used for generatedAt.
func WithCatalogClock(now func() time.Time) CatalogOption {
	return func(g *CatalogGenerator) {
		if now != nil {
			g.now = now
		}
	}
}

func NewCatalogGenerator(opts ...CatalogOption) *CatalogGenerator {
	g := &CatalogGenerator{
		now:    time.Now,
		policy: bluemonday.StrictPolicy(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate reads every block file of blocksDir. Files that fail to parse are logged,
// recorded in the returned FileErrors and left out of the catalog.
func (g *CatalogGenerator) Generate(theme, blocksDir string) (*studiokit.Catalog, *studiokit.FileErrors) {
	fe := studiokit.NewFileErrors()
	catalog := &studiokit.Catalog{
		Theme:       theme,
		GeneratedAt: g.now().UTC().Format(time.RFC3339),
		Blocks:      []studiokit.CatalogBlock{},
	}

	sources, err := loadBlockSources(blocksDir, fe)
	if err != nil {
		zap.S().Warnw("cannot read blocks directory", "dir", blocksDir, "error", err)
		fe.Add(studiokit.NewParseError(blocksDir, err))
		return catalog, fe
	}
	for _, e := range fe.Errors {
		zap.S().Warnw("skipping block file", "path", e.Path, "error", e.Cause)
	}

	for _, src := range sources {
		fe.Succeeded()
		block := studiokit.CatalogBlock{
			Name:          src.Name,
			Category:      InferCategory(src.Name),
			Description:   src.File.Description,
			ThumbnailType: src.File.ThumbnailType,
			Fields:        g.flattenFields(src.File.Fields),
		}
		if src.TemplatePath != "" {
			block.Template = filepath.Base(src.TemplatePath)
		}
		catalog.Blocks = append(catalog.Blocks, block)
	}

	sort.SliceStable(catalog.Blocks, func(i, j int) bool {
		a, b := catalog.Blocks[i], catalog.Blocks[j]
		if a.Category != b.Category {
			return a.Category < b.Category
		}
		return a.Name < b.Name
	})

	zap.S().Infow("catalog generated", "theme", theme, "blocks", len(catalog.Blocks), "skipped", fe.FailureCount)
	return catalog, fe
}

func (g *CatalogGenerator) flattenFields(fields []studiokit.SourceField) []studiokit.CatalogField {
	out := make([]studiokit.CatalogField, 0, len(fields))
	for _, f := range fields {
		out = append(out, g.flattenField(f))
	}
	return out
}

func (g *CatalogGenerator) flattenField(f studiokit.SourceField) studiokit.CatalogField {
	dbType, ok := studiokit.LookupFieldType(f.Type)
	if !ok {
		dbType = studiokit.FieldTypeText
	}
	out := studiokit.CatalogField{
		Name:    f.Name,
		Type:    f.Type,
		Default: studiokit.PlainOf(f.Default),
	}
	if f.Config != nil {
		switch dbType {
		case studiokit.FieldTypeSelect:
			out.Options = f.Config.Options
		case studiokit.FieldTypeItems, studiokit.FieldTypeGroup:
			if len(f.Config.Fields) > 0 {
				out.Fields = g.flattenFields(f.Config.Fields)
			}
		}
	}
	if dbType == studiokit.FieldTypeWysiwyg {
		if text, ok := f.Default.(studiokit.Text); ok && text != "" {
			out.Preview = g.preview(string(text))
		}
	}
	return out
}

// preview strips markup and collapses whitespace.
func (g *CatalogGenerator) preview(markup string) string {
	plain := html.UnescapeString(g.policy.Sanitize(markup))
	return strings.Join(strings.Fields(plain), " ")
}

// WriteCatalog writes the catalog as indented JSON.
func WriteCatalog(path string, catalog *studiokit.Catalog) error {
	data, err := json.MarshalIndent(catalog, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal catalog: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create catalog directory: %w", err)
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

// CatalogPath returns <themeDir>/catalog.json.
func CatalogPath(themeDir string) string {
	return filepath.Join(themeDir, catalogFileName)
}

// BlocksDir returns <themeDir>/blocks.
func BlocksDir(themeDir string) string {
	return filepath.Join(themeDir, blocksDirName)
}

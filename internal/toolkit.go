package internal

import (
	"context"
	"time"

	"github.com/lychee-technology/studiokit"
	"go.uber.org/zap"
)

type toolkit struct {
	transformer *FieldTransformer
	pages       *PageImporter
	themes      *ThemeImporter
	exporter    *SiteExporter
	catalogs    *CatalogGenerator
	validator   *ThemeValidator
	timeout     time.Duration
}

// NewToolkit wires the transform, import, export, catalog and validation components
// around store. newID may be nil to use studiokit.NewID.
func NewToolkit(store studiokit.Store, config *studiokit.Config, newID studiokit.IDGenerator) studiokit.Toolkit {
	if config == nil {
		config = studiokit.DefaultConfig()
	}
	if newID == nil {
		newID = studiokit.NewID
	}
	transformer := NewFieldTransformer(
		WithIDGenerator(newID),
		WithUnknownTypePolicy(config.Transform.UnknownTypePolicy),
		WithItemIDPolicy(config.Transform.ItemIDPolicy),
	)
	resolver := NewContentResolver(config.Transform.ItemIDPolicy, newID)

	zap.S().Debugw("toolkit ready", "driver", config.Store.Driver,
		"unknownTypes", config.Transform.UnknownTypePolicy, "itemIds", config.Transform.ItemIDPolicy)

	return &toolkit{
		transformer: transformer,
		pages:       NewPageImporter(store, resolver),
		themes:      NewThemeImporter(store, transformer),
		exporter:    NewSiteExporter(store),
		catalogs:    NewCatalogGenerator(),
		validator:   NewThemeValidator(config.Transform.UnknownTypePolicy),
		timeout:     config.Store.Timeout,
	}
}

// withTimeout bounds one toolkit operation by the configured store timeout.
func (tk *toolkit) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if tk.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, tk.timeout)
}

func (tk *toolkit) TransformField(field studiokit.SourceField) (studiokit.DbField, error) {
	return tk.transformer.TransformField(field)
}

func (tk *toolkit) ReverseField(field studiokit.DbField) studiokit.SourceField {
	return ReverseField(field)
}

func (tk *toolkit) ImportPage(ctx context.Context, siteID string, page *studiokit.PageFile, opts studiokit.ImportOptions) (*studiokit.ImportResult, error) {
	ctx, cancel := tk.withTimeout(ctx)
	defer cancel()
	return tk.pages.ImportPage(ctx, siteID, page, opts)
}

func (tk *toolkit) ImportSite(ctx context.Context, siteDir string, opts studiokit.ImportOptions) (*studiokit.SiteImportResult, error) {
	ctx, cancel := tk.withTimeout(ctx)
	defer cancel()
	return tk.pages.ImportSite(ctx, siteDir, opts)
}

func (tk *toolkit) ImportTheme(ctx context.Context, siteID, themeDir string) (*studiokit.ThemeImportResult, error) {
	ctx, cancel := tk.withTimeout(ctx)
	defer cancel()
	return tk.themes.ImportTheme(ctx, siteID, themeDir)
}

func (tk *toolkit) ExportSite(ctx context.Context, siteID string, sink studiokit.FileSink, opts studiokit.ExportOptions) (*studiokit.ExportResult, error) {
	ctx, cancel := tk.withTimeout(ctx)
	defer cancel()
	return tk.exporter.ExportSite(ctx, siteID, sink, opts)
}

func (tk *toolkit) GenerateCatalog(theme, blocksDir string) (*studiokit.Catalog, *studiokit.FileErrors) {
	return tk.catalogs.Generate(theme, blocksDir)
}

func (tk *toolkit) ValidateTheme(themeDir string) *studiokit.ValidationReport {
	return tk.validator.ValidateTheme(themeDir)
}

package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/lychee-technology/studiokit"
	"github.com/lychee-technology/studiokit/factory"
	"github.com/lychee-technology/studiokit/internal"
	"go.uber.org/zap"
)

// openToolkit opens the configured store and wraps it in a Toolkit. The returned
// func closes the store.
func openToolkit(ctx context.Context, cfg *studiokit.Config) (studiokit.Toolkit, func(), error) {
	store, err := factory.NewStore(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	closeStore := func() {
		if err := store.Close(context.Background()); err != nil {
			zap.S().Warnw("closing store", "error", err)
		}
	}
	tk, err := factory.NewToolkitWithConfig(cfg, store)
	if err != nil {
		closeStore()
		return nil, nil, err
	}
	return tk, closeStore, nil
}

func runImportPage(args []string) error {
	var configPath, siteID, pagePath string
	var dryRun bool
	flags := newFlagSet("import-page", "-site <id> -page <file> [options]", &configPath)
	flags.StringVar(&siteID, "site", "", "target site id")
	flags.StringVar(&pagePath, "page", "", "page interchange file")
	flags.BoolVar(&dryRun, "dry-run", false, "resolve content without writing")
	if done, err := parseFlags(flags, args); done {
		return err
	}
	if siteID == "" || pagePath == "" {
		return errors.New("-site and -page are required")
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	page, err := internal.ReadPageFile(pagePath)
	if err != nil {
		return err
	}

	ctx := context.Background()
	tk, closeStore, err := openToolkit(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	result, err := tk.ImportPage(ctx, siteID, page, studiokit.ImportOptions{DryRun: dryRun})
	if err != nil {
		return err
	}
	if err := printResult(result); err != nil {
		return err
	}
	if !result.Success {
		return fmt.Errorf("page %q was not imported", page.Name)
	}
	return nil
}

func runImportSite(args []string) error {
	var configPath, siteDir, siteID string
	var dryRun bool
	flags := newFlagSet("import-site", "-dir <site dir> [options]", &configPath)
	flags.StringVar(&siteDir, "dir", "", "site directory holding site.json and pages/")
	flags.StringVar(&siteID, "site", "", "target site id, overrides site.json")
	flags.BoolVar(&dryRun, "dry-run", false, "resolve content without writing")
	if done, err := parseFlags(flags, args); done {
		return err
	}
	if siteDir == "" {
		return errors.New("-dir is required")
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	ctx := context.Background()
	tk, closeStore, err := openToolkit(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	result, err := tk.ImportSite(ctx, siteDir, studiokit.ImportOptions{DryRun: dryRun, SiteID: siteID})
	if result != nil {
		if perr := printResult(result); perr != nil {
			return perr
		}
	}
	if err != nil {
		return err
	}
	if result.Errors.HasErrors() {
		zap.S().Warn(result.Errors.Report())
	}
	if !result.Success() {
		return fmt.Errorf("site %s was not fully imported", result.SiteID)
	}
	return nil
}

func runPushTheme(args []string) error {
	var configPath, siteID, themeDir string
	flags := newFlagSet("push-theme", "-site <id> -theme <dir> [options]", &configPath)
	flags.StringVar(&siteID, "site", "", "target site id")
	flags.StringVar(&themeDir, "theme", "", "theme directory holding blocks/ and partials/")
	if done, err := parseFlags(flags, args); done {
		return err
	}
	if siteID == "" || themeDir == "" {
		return errors.New("-site and -theme are required")
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	ctx := context.Background()
	tk, closeStore, err := openToolkit(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	result, err := tk.ImportTheme(ctx, siteID, themeDir)
	if err != nil {
		return err
	}
	if err := printResult(result); err != nil {
		return err
	}
	return result.Errors.ToError()
}

func runExportSite(args []string) error {
	var configPath, siteID, outDir string
	var skipPages bool
	flags := newFlagSet("export-site", "-site <id> [-out <dir>] [options]", &configPath)
	flags.StringVar(&siteID, "site", "", "site id to export")
	flags.StringVar(&outDir, "out", "", "output directory; the configured S3 bucket is used when empty")
	flags.BoolVar(&skipPages, "skip-pages", false, "export the theme only")
	if done, err := parseFlags(flags, args); done {
		return err
	}
	if siteID == "" {
		return errors.New("-site is required")
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	ctx := context.Background()
	sink, err := factory.NewExportSink(ctx, cfg, outDir)
	if err != nil {
		return err
	}
	tk, closeStore, err := openToolkit(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	result, err := tk.ExportSite(ctx, siteID, sink, studiokit.ExportOptions{SkipPages: skipPages})
	if err != nil {
		return err
	}
	return printResult(result)
}

type catalogResult struct {
	Path       string                `json:"path"`
	Theme      string                `json:"theme"`
	Blocks     int                   `json:"blocks"`
	FileErrors *studiokit.FileErrors `json:"fileErrors,omitempty"`
}

func runCatalog(args []string) error {
	var configPath, themeDir, themeName, out string
	flags := newFlagSet("catalog", "-theme <dir> [options]", &configPath)
	flags.StringVar(&themeDir, "theme", "", "theme directory holding blocks/")
	flags.StringVar(&themeName, "name", "", "theme name written to the catalog (default: directory name)")
	flags.StringVar(&out, "out", "", "output file (default: <theme>/catalog.json)")
	if done, err := parseFlags(flags, args); done {
		return err
	}
	if themeDir == "" {
		return errors.New("-theme is required")
	}
	if _, err := loadConfig(configPath); err != nil {
		return err
	}
	if themeName == "" {
		themeName = filepath.Base(filepath.Clean(themeDir))
	}
	if out == "" {
		out = internal.CatalogPath(themeDir)
	}

	catalog, fe := internal.NewCatalogGenerator().Generate(themeName, internal.BlocksDir(themeDir))
	if err := internal.WriteCatalog(out, catalog); err != nil {
		return err
	}
	result := catalogResult{Path: out, Theme: themeName, Blocks: len(catalog.Blocks)}
	if fe.HasErrors() {
		result.FileErrors = fe
		zap.S().Warn(fe.Report())
	}
	if err := printResult(result); err != nil {
		return err
	}
	return fe.ToError()
}

func runValidate(args []string) error {
	var configPath, themeDir string
	var strict bool
	flags := newFlagSet("validate", "-theme <dir> [options]", &configPath)
	flags.StringVar(&themeDir, "theme", "", "theme directory holding blocks/")
	flags.BoolVar(&strict, "strict", false, "treat unknown field types as errors")
	if done, err := parseFlags(flags, args); done {
		return err
	}
	if themeDir == "" {
		return errors.New("-theme is required")
	}
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	policy := cfg.Transform.UnknownTypePolicy
	if strict {
		policy = studiokit.UnknownTypeStrict
	}

	report := internal.NewThemeValidator(policy).ValidateTheme(themeDir)
	if err := printResult(report); err != nil {
		return err
	}
	if !report.Valid() {
		return fmt.Errorf("theme %s has validation errors", themeDir)
	}
	return nil
}

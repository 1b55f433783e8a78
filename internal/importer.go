package internal

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/lychee-technology/studiokit"
	"go.uber.org/zap"
)

// PageImporter writes page interchange files into a site.
type PageImporter struct {
	store    studiokit.Store
	resolver *ContentResolver
}

func NewPageImporter(store studiokit.Store, resolver *ContentResolver) *PageImporter {
	return &PageImporter{store: store, resolver: resolver}
}

// ImportPage resolves every block of page against the live blocks of the site and
// creates the page. Blocks that do not exist are reported in the result and skipped;
// when none resolves nothing is written. Store failures are returned as errors.
func (p *PageImporter) ImportPage(ctx context.Context, siteID string, page *studiokit.PageFile, opts studiokit.ImportOptions) (*studiokit.ImportResult, error) {
	result := &studiokit.ImportResult{
		Page:     page.Name,
		DryRun:   opts.DryRun,
		Errors:   []string{},
		Warnings: []string{},
	}

	if _, err := p.store.GetSite(ctx, siteID); err != nil {
		return nil, err
	}
	blocks, err := p.store.ListBlocks(ctx, siteID)
	if err != nil {
		return nil, err
	}
	byName := make(map[string]*studiokit.Block, len(blocks))
	for _, b := range blocks {
		key := studiokit.FieldNameKey(b.Name)
		if _, exists := byName[key]; !exists {
			byName[key] = b
		}
	}

	resolved := &studiokit.Page{
		Name:     page.Name,
		SiteID:   siteID,
		Settings: page.Settings,
		Blocks:   make([]studiokit.PageBlock, 0, len(page.Blocks)),
	}
	for _, pb := range page.Blocks {
		block, ok := byName[studiokit.FieldNameKey(pb.Block)]
		if !ok {
			result.Errors = append(result.Errors, studiokit.NewBlockNotFoundError(pb.Block, siteID).Message)
			continue
		}
		res := p.resolver.ResolveContent(block.ID, pb.Content, NewFieldIndex(block.Fields), block.Fields)
		for _, w := range res.Warnings {
			result.Warnings = append(result.Warnings, fmt.Sprintf("block %q: %s", block.Name, w))
		}
		resolved.Blocks = append(resolved.Blocks, studiokit.PageBlock{BlockID: block.ID, Content: res.Content})
		result.BlocksImported++
	}

	if result.BlocksImported == 0 {
		if len(page.Blocks) == 0 {
			result.Errors = append(result.Errors, "page has no blocks")
		}
		zap.S().Warnw("page import resolved no blocks", "page", page.Name, "siteID", siteID, "errors", len(result.Errors))
		return result, nil
	}

	result.Resolved = resolved
	if opts.DryRun {
		result.Success = true
		zap.S().Infow("dry run resolved page", "page", page.Name, "blocks", result.BlocksImported)
		return result, nil
	}

	created, err := p.store.CreatePage(ctx, resolved)
	if err != nil {
		return nil, err
	}
	result.Success = true
	result.PageID = created.ID
	result.PagesCreated = 1
	result.Resolved = created
	zap.S().Infow("page created", "page", page.Name, "pageID", created.ID, "siteID", siteID, "blocks", result.BlocksImported)
	return result, nil
}

// ImportSite imports every pages/*.json of siteDir in name order. The target site
// comes from site.json unless opts.SiteID is set. Page files that fail to parse are
// recorded and skipped; a store failure stops the run.
func (p *PageImporter) ImportSite(ctx context.Context, siteDir string, opts studiokit.ImportOptions) (*studiokit.SiteImportResult, error) {
	siteID := opts.SiteID
	if siteID == "" {
		site, err := readSiteFile(siteDir)
		if err != nil {
			return nil, fmt.Errorf("read site config: %w", err)
		}
		siteID = site.SiteID
	}
	if siteID == "" {
		return nil, errors.New("site id is not set in site.json or options")
	}

	out := &studiokit.SiteImportResult{
		SiteID: siteID,
		Pages:  []*studiokit.ImportResult{},
		Errors: studiokit.NewFileErrors(),
	}
	paths, err := listFiles(filepath.Join(siteDir, pagesDirName), ".json")
	if err != nil {
		return nil, err
	}
	for _, path := range paths {
		page, err := ReadPageFile(path)
		if err != nil {
			var se *studiokit.StudioError
			if !asStudioError(err, &se) {
				se = studiokit.NewParseError(path, err)
			}
			zap.S().Warnw("skipping page file", "path", path, "error", err)
			out.Errors.Add(se)
			continue
		}
		out.Errors.Succeeded()
		res, err := p.ImportPage(ctx, siteID, page, opts)
		if err != nil {
			return out, fmt.Errorf("import %s: %w", filepath.Base(path), err)
		}
		out.Pages = append(out.Pages, res)
		out.PagesCreated += res.PagesCreated
	}
	return out, nil
}

package internal

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strings"

	"github.com/lychee-technology/studiokit"
	"go.uber.org/zap"
)

// SiteExporter writes a site back into its source layout.
type SiteExporter struct {
	store studiokit.Store
}

func NewSiteExporter(store studiokit.Store) *SiteExporter {
	return &SiteExporter{store: store}
}

// ExportSite writes site.json, blocks/<name>.json|html, partials/<name>.html and
// pages/<slug>.json to sink. Page content is keyed by field name and repeater
// record ids are stripped, so the output can be imported again.
func (e *SiteExporter) ExportSite(ctx context.Context, siteID string, sink studiokit.FileSink, opts studiokit.ExportOptions) (*studiokit.ExportResult, error) {
	site, err := e.store.GetSite(ctx, siteID)
	if err != nil {
		return nil, err
	}
	result := &studiokit.ExportResult{SiteID: siteID, Files: []string{}, Warnings: []string{}}
	w := &exportWriter{ctx: ctx, sink: sink, result: result}

	if err := w.json(siteFileName, studiokit.SiteFile{SiteID: site.ID, Theme: site.Theme, Name: site.Name}); err != nil {
		return nil, err
	}

	blocks, err := e.store.ListBlocks(ctx, siteID)
	if err != nil {
		return nil, err
	}
	blockByID := make(map[string]*studiokit.Block, len(blocks))
	for _, b := range blocks {
		blockByID[b.ID] = b
		file := studiokit.BlockFile{
			MakeStudioFields: true,
			Version:          blockFileFormat,
			Description:      b.Description,
			ThumbnailType:    b.ThumbnailType,
			Fields:           ReverseFields(b.Fields),
		}
		name := fileName(b.Name)
		if err := w.json(path.Join(blocksDirName, name+".json"), file); err != nil {
			return nil, err
		}
		if err := w.raw(path.Join(blocksDirName, name+".html"), []byte(b.Template)); err != nil {
			return nil, err
		}
	}

	partials, err := e.store.ListPartials(ctx, siteID)
	if err != nil {
		return nil, err
	}
	for _, p := range partials {
		if err := w.raw(path.Join(partialsDirName, fileName(p.Name)+".html"), []byte(p.Template)); err != nil {
			return nil, err
		}
	}

	if !opts.SkipPages {
		pages, err := e.store.ListPages(ctx, siteID)
		if err != nil {
			return nil, err
		}
		used := make(map[string]int, len(pages))
		for _, p := range pages {
			file := e.pageFile(p, blockByID, result)
			slug := makeSlug(p.Name)
			if n := used[slug]; n > 0 {
				used[slug] = n + 1
				slug = fmt.Sprintf("%s-%d", slug, n+1)
			} else {
				used[slug] = 1
			}
			if err := w.json(path.Join(pagesDirName, slug+".json"), file); err != nil {
				return nil, err
			}
		}
	}

	zap.S().Infow("site exported", "siteID", siteID, "files", len(result.Files), "warnings", len(result.Warnings))
	return result, nil
}

func (e *SiteExporter) pageFile(p *studiokit.Page, blockByID map[string]*studiokit.Block, result *studiokit.ExportResult) studiokit.PageFile {
	file := studiokit.PageFile{
		Name:     p.Name,
		Settings: p.Settings,
		Blocks:   make([]studiokit.PageFileBlock, 0, len(p.Blocks)),
	}
	for _, pb := range p.Blocks {
		block, ok := blockByID[pb.BlockID]
		if !ok {
			result.Warnings = append(result.Warnings, fmt.Sprintf("page %q: block %s no longer exists", p.Name, pb.BlockID))
			continue
		}
		content := make(map[string]any, len(pb.Content))
		for _, fieldID := range sortedKeys(pb.Content) {
			field, ok := block.FieldByID(fieldID)
			if !ok {
				result.Warnings = append(result.Warnings,
					fmt.Sprintf("page %q: block %q has no field %s", p.Name, block.Name, fieldID))
				continue
			}
			value := pb.Content[fieldID].Value
			if items, ok := value.(studiokit.Items); ok {
				value = items.WithoutIDs()
			}
			content[field.Name] = studiokit.PlainOf(value)
		}
		file.Blocks = append(file.Blocks, studiokit.PageFileBlock{Block: block.Name, Content: content})
	}
	return file
}

type exportWriter struct {
	ctx    context.Context
	sink   studiokit.FileSink
	result *studiokit.ExportResult
}

func (w *exportWriter) json(p string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return studiokit.NewExportError(p, err)
	}
	return w.raw(p, append(data, '\n'))
}

func (w *exportWriter) raw(p string, data []byte) error {
	if err := w.sink.WriteFile(w.ctx, p, data); err != nil {
		return studiokit.NewExportError(p, err)
	}
	w.result.Files = append(w.result.Files, p)
	return nil
}

// fileName keeps a record name usable as a single path element.
func fileName(name string) string {
	name = strings.TrimSpace(name)
	name = strings.NewReplacer("/", "-", "\\", "-").Replace(name)
	if name == "" || name == "." || name == ".." {
		return "unnamed"
	}
	return name
}

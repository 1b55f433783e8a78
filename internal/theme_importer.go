package internal

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/lychee-technology/studiokit"
	"go.uber.org/zap"
)

// ThemeImporter pushes a theme's block and partial sources into a site.
type ThemeImporter struct {
	store       studiokit.Store
	transformer *FieldTransformer
}

func NewThemeImporter(store studiokit.Store, transformer *FieldTransformer) *ThemeImporter {
	return &ThemeImporter{store: store, transformer: transformer}
}

// ImportTheme transforms every block of themeDir/blocks and saves it. A block that
// already exists keeps its id, and fields whose names match keep their ids so stored
// page content stays joined. Partials come from themeDir/partials/*.html.
func (ti *ThemeImporter) ImportTheme(ctx context.Context, siteID, themeDir string) (*studiokit.ThemeImportResult, error) {
	if _, err := ti.store.GetSite(ctx, siteID); err != nil {
		return nil, err
	}

	result := &studiokit.ThemeImportResult{
		SiteID:   siteID,
		Warnings: []string{},
		Errors:   studiokit.NewFileErrors(),
	}

	sources, err := loadBlockSources(BlocksDir(themeDir), result.Errors)
	if err != nil {
		return nil, fmt.Errorf("read blocks: %w", err)
	}

	existing, err := ti.store.ListBlocks(ctx, siteID)
	if err != nil {
		return nil, err
	}
	byName := make(map[string]*studiokit.Block, len(existing))
	for _, b := range existing {
		byName[studiokit.FieldNameKey(b.Name)] = b
	}

	for _, src := range sources {
		fields, err := ti.transformer.TransformFields(src.File.Fields)
		if err != nil {
			var se *studiokit.StudioError
			if !asStudioError(err, &se) {
				se = studiokit.NewParseError(src.JSONPath, err)
			}
			result.Errors.Add(se.WithPath(src.JSONPath).WithBlock(src.Name))
			continue
		}
		result.Errors.Succeeded()
		if src.TemplatePath == "" {
			result.Warnings = append(result.Warnings, fmt.Sprintf("block %q has no template", src.Name))
		}

		block := &studiokit.Block{
			Name:          src.Name,
			Description:   src.File.Description,
			ThumbnailType: src.File.ThumbnailType,
			SiteID:        siteID,
			Template:      string(src.Template),
			Fields:        fields,
		}
		current, update := byName[studiokit.FieldNameKey(src.Name)]
		if update {
			block.ID = current.ID
			block.Name = current.Name
			reuseFieldIDs(current.Fields, block.Fields)
		}

		saved, err := ti.store.SaveBlock(ctx, block)
		if err != nil {
			return nil, err
		}
		if update {
			result.BlocksUpdated++
			zap.S().Infow("block updated", "block", saved.Name, "blockID", saved.ID, "fields", len(saved.Fields))
		} else {
			result.BlocksCreated++
			zap.S().Infow("block created", "block", saved.Name, "blockID", saved.ID, "fields", len(saved.Fields))
		}
	}

	if err := ti.importPartials(ctx, siteID, filepath.Join(themeDir, partialsDirName), result); err != nil {
		return nil, err
	}
	return result, nil
}

func (ti *ThemeImporter) importPartials(ctx context.Context, siteID, dir string, result *studiokit.ThemeImportResult) error {
	paths, err := listFiles(dir, ".html")
	if err != nil {
		return fmt.Errorf("read partials: %w", err)
	}
	if len(paths) == 0 {
		return nil
	}
	existing, err := ti.store.ListPartials(ctx, siteID)
	if err != nil {
		return err
	}
	byName := make(map[string]*studiokit.Partial, len(existing))
	for _, p := range existing {
		byName[studiokit.FieldNameKey(p.Name)] = p
	}

	for _, path := range paths {
		tpl, err := os.ReadFile(path)
		if err != nil {
			result.Errors.Add(studiokit.NewParseError(path, err))
			continue
		}
		result.Errors.Succeeded()
		partial := &studiokit.Partial{Name: stem(path), SiteID: siteID, Template: string(tpl)}
		current, update := byName[studiokit.FieldNameKey(partial.Name)]
		if update {
			partial.ID = current.ID
			partial.Name = current.Name
		}
		if _, err := ti.store.SavePartial(ctx, partial); err != nil {
			return err
		}
		if update {
			result.PartialsUpdated++
		} else {
			result.PartialsCreated++
		}
	}
	return nil
}

// reuseFieldIDs copies ids from current onto next for fields matched by name,
// recursing into nested field lists.
func reuseFieldIDs(current, next []studiokit.DbField) {
	byName := make(map[string]studiokit.DbField, len(current))
	for _, f := range current {
		key := studiokit.FieldNameKey(f.Name)
		if _, exists := byName[key]; !exists {
			byName[key] = f
		}
	}
	for i := range next {
		old, ok := byName[studiokit.FieldNameKey(next[i].Name)]
		if !ok {
			continue
		}
		next[i].ID = old.ID
		if next[i].Config != nil && old.Config != nil {
			reuseFieldIDs(old.Config.Fields, next[i].Config.Fields)
		}
	}
}

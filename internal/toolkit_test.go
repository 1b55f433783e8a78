package internal

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/lychee-technology/studiokit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stallingStore blocks GetSite until the context ends.
type stallingStore struct {
	*MemoryStore
}

func (s stallingStore) GetSite(ctx context.Context, siteID string) (*studiokit.Site, error) {
	<-ctx.Done()
	return nil, studiokit.NewStorageError("get site", ctx.Err())
}

func TestToolkit_Workflow(t *testing.T) {
	store := NewMemoryStore(sequentialIDs("rec"))
	siteID := seedSite(t, store, "Acme")
	tk := NewToolkit(store, nil, sequentialIDs("id"))

	themeDir := t.TempDir()
	writeTheme(t, themeDir)

	report := tk.ValidateTheme(themeDir)
	require.True(t, report.Valid())

	catalog, fe := tk.GenerateCatalog("acme", BlocksDir(themeDir))
	require.False(t, fe.HasErrors())
	require.Len(t, catalog.Blocks, 1)
	assert.Equal(t, "hero", catalog.Blocks[0].Category)

	pushed, err := tk.ImportTheme(t.Context(), siteID, themeDir)
	require.NoError(t, err)
	assert.Equal(t, 1, pushed.BlocksCreated)

	result, err := tk.ImportPage(t.Context(), siteID, &studiokit.PageFile{
		Name:   "Home",
		Blocks: []studiokit.PageFileBlock{{Block: "HeroSplit", Content: map[string]any{"headline": "Hi"}}},
	}, studiokit.ImportOptions{})
	require.NoError(t, err)
	require.True(t, result.Success)

	sink := newMemorySink()
	exported, err := tk.ExportSite(t.Context(), siteID, sink, studiokit.ExportOptions{})
	require.NoError(t, err)
	assert.Contains(t, exported.Files, "pages/home.json")

	field, err := tk.TransformField(studiokit.SourceField{Type: "toggle", Name: "Show"})
	require.NoError(t, err)
	assert.Equal(t, studiokit.FieldTypeSelect, field.Type)
	assert.Equal(t, "toggle", tk.ReverseField(field).Type)
}

func TestToolkit_StrictConfig(t *testing.T) {
	cfg := studiokit.DefaultConfig()
	cfg.Transform.UnknownTypePolicy = studiokit.UnknownTypeStrict
	tk := NewToolkit(NewMemoryStore(nil), cfg, nil)

	_, err := tk.TransformField(studiokit.SourceField{Type: "map", Name: "Where"})
	assert.True(t, studiokit.IsStudioError(err, studiokit.ErrCodeUnknownFieldType))

	themeDir := t.TempDir()
	writeFile(t, filepath.Join(themeDir, blocksDirName, "MapEmbed.json"),
		`{"makeStudioFields": true, "version": 1, "fields": [{"type": "map", "name": "Where"}]}`)
	writeFile(t, filepath.Join(themeDir, blocksDirName, "MapEmbed.html"), "<div></div>")
	assert.False(t, tk.ValidateTheme(themeDir).Valid())
}

func TestToolkit_StoreTimeout(t *testing.T) {
	cfg := studiokit.DefaultConfig()
	cfg.Store.Timeout = 20 * time.Millisecond
	tk := NewToolkit(stallingStore{NewMemoryStore(nil)}, cfg, nil)

	_, err := tk.ImportPage(t.Context(), "s1", &studiokit.PageFile{Name: "Home"}, studiokit.ImportOptions{})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

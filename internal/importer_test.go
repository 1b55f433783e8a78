package internal

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/lychee-technology/studiokit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// importFixture is a memory store holding one site with the HeroSplit theme pushed.
type importFixture struct {
	store    *MemoryStore
	siteID   string
	importer *PageImporter
	hero     *studiokit.Block
}

func newImportFixture(t *testing.T) *importFixture {
	t.Helper()
	store := NewMemoryStore(sequentialIDs("rec"))
	siteID := seedSite(t, store, "Acme")

	themeDir := t.TempDir()
	writeTheme(t, themeDir)
	themes := NewThemeImporter(store, NewFieldTransformer(WithIDGenerator(sequentialIDs("fld"))))
	_, err := themes.ImportTheme(t.Context(), siteID, themeDir)
	require.NoError(t, err)

	blocks, err := store.ListBlocks(t.Context(), siteID)
	require.NoError(t, err)
	require.Len(t, blocks, 1)

	return &importFixture{
		store:    store,
		siteID:   siteID,
		importer: NewPageImporter(store, NewContentResolver(studiokit.ItemIDRandom, sequentialIDs("item"))),
		hero:     blocks[0],
	}
}

func (f *importFixture) fieldID(t *testing.T, name string) string {
	t.Helper()
	field, ok := f.hero.FieldByName(name)
	require.True(t, ok, "field %s", name)
	return field.ID
}

func TestPageImporter_PartialFailure(t *testing.T) {
	f := newImportFixture(t)
	page := &studiokit.PageFile{
		Name:     "Home",
		Settings: studiokit.PageSettings{Title: "Welcome"},
		Blocks: []studiokit.PageFileBlock{
			{Block: "herosplit", Content: map[string]any{"Headline": "Hello there"}},
			{Block: "Nonexistent", Content: map[string]any{"title": "x"}},
		},
	}

	result, err := f.importer.ImportPage(t.Context(), f.siteID, page, studiokit.ImportOptions{})
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, 1, result.BlocksImported)
	assert.Equal(t, 1, result.PagesCreated)
	assert.Equal(t, []string{fmt.Sprintf("block %q not found in site %s", "Nonexistent", f.siteID)}, result.Errors)
	assert.NotEmpty(t, result.PageID)

	pages, err := f.store.ListPages(t.Context(), f.siteID)
	require.NoError(t, err)
	require.Len(t, pages, 1)
	stored := pages[0]
	assert.Equal(t, result.PageID, stored.ID)
	assert.Equal(t, "Welcome", stored.Settings.Title)
	require.Len(t, stored.Blocks, 1)
	assert.Equal(t, f.hero.ID, stored.Blocks[0].BlockID)

	content := stored.Blocks[0].Content
	assert.Len(t, content, len(f.hero.Fields))
	assert.Equal(t, studiokit.Text("Hello there"), content[f.fieldID(t, "Headline")].Value)
	assert.Equal(t, studiokit.Text("Start"), content[f.fieldID(t, "CTA Label")].Value)

	site, err := f.store.GetSite(t.Context(), f.siteID)
	require.NoError(t, err)
	assert.Equal(t, []studiokit.Ref{{ID: result.PageID, Name: "Home"}}, site.Pages)
}

func TestPageImporter_NothingResolved(t *testing.T) {
	f := newImportFixture(t)
	page := &studiokit.PageFile{
		Name:   "Ghost",
		Blocks: []studiokit.PageFileBlock{{Block: "Missing"}},
	}

	result, err := f.importer.ImportPage(t.Context(), f.siteID, page, studiokit.ImportOptions{})
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Zero(t, result.PagesCreated)
	assert.Zero(t, result.BlocksImported)
	assert.Len(t, result.Errors, 1)
	assert.Nil(t, result.Resolved)

	pages, err := f.store.ListPages(t.Context(), f.siteID)
	require.NoError(t, err)
	assert.Empty(t, pages)

	empty, err := f.importer.ImportPage(t.Context(), f.siteID, &studiokit.PageFile{Name: "Empty"}, studiokit.ImportOptions{})
	require.NoError(t, err)
	assert.False(t, empty.Success)
	assert.Equal(t, []string{"page has no blocks"}, empty.Errors)
}

func TestPageImporter_DryRun(t *testing.T) {
	f := newImportFixture(t)
	page := &studiokit.PageFile{
		Name: "Preview",
		Blocks: []studiokit.PageFileBlock{{Block: "HeroSplit", Content: map[string]any{
			"features": []any{map[string]any{"Title": "Quick", "id": "keep-me"}},
			"subtitle": "unknown",
		}}},
	}

	result, err := f.importer.ImportPage(t.Context(), f.siteID, page, studiokit.ImportOptions{DryRun: true})
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.True(t, result.DryRun)
	assert.Zero(t, result.PagesCreated)
	assert.Empty(t, result.PageID)
	assert.Equal(t, []string{`block "HeroSplit": field "subtitle" not found`}, result.Warnings)

	require.NotNil(t, result.Resolved)
	items := result.Resolved.Blocks[0].Content[f.fieldID(t, "Features")].Value.(studiokit.Items)
	require.Len(t, items, 1)
	assert.Equal(t, "item-1", items[0].ID, "supplied ids are replaced")
	assert.Equal(t, studiokit.Text("Quick"), items[0].Props["title"])

	pages, err := f.store.ListPages(t.Context(), f.siteID)
	require.NoError(t, err)
	assert.Empty(t, pages)
}

func TestPageImporter_ReimportMintsNewItemIDs(t *testing.T) {
	f := newImportFixture(t)
	page := &studiokit.PageFile{
		Name: "Home",
		Blocks: []studiokit.PageFileBlock{{Block: "HeroSplit", Content: map[string]any{
			"Features": []any{map[string]any{"title": "Fast"}},
		}}},
	}

	first, err := f.importer.ImportPage(t.Context(), f.siteID, page, studiokit.ImportOptions{})
	require.NoError(t, err)
	second, err := f.importer.ImportPage(t.Context(), f.siteID, page, studiokit.ImportOptions{})
	require.NoError(t, err)

	featuresID := f.fieldID(t, "Features")
	a := first.Resolved.Blocks[0].Content[featuresID].Value.(studiokit.Items)
	b := second.Resolved.Blocks[0].Content[featuresID].Value.(studiokit.Items)
	assert.NotEqual(t, a[0].ID, b[0].ID)
	assert.NotEqual(t, first.PageID, second.PageID)

	pages, err := f.store.ListPages(t.Context(), f.siteID)
	require.NoError(t, err)
	assert.Len(t, pages, 2)
}

func TestPageImporter_UnknownSite(t *testing.T) {
	f := newImportFixture(t)
	_, err := f.importer.ImportPage(t.Context(), "missing", &studiokit.PageFile{Name: "Home"}, studiokit.ImportOptions{})
	require.Error(t, err)
	assert.True(t, studiokit.IsNotFoundError(err))
}

type failingPageStore struct {
	*MemoryStore
}

func (s failingPageStore) CreatePage(ctx context.Context, page *studiokit.Page) (*studiokit.Page, error) {
	return nil, studiokit.NewStorageError("insert into pages", errors.New("connection reset"))
}

func TestPageImporter_StoreFailurePropagates(t *testing.T) {
	f := newImportFixture(t)
	importer := NewPageImporter(failingPageStore{f.store}, NewContentResolver("", nil))
	page := &studiokit.PageFile{Name: "Home", Blocks: []studiokit.PageFileBlock{{Block: "HeroSplit"}}}

	_, err := importer.ImportPage(t.Context(), f.siteID, page, studiokit.ImportOptions{})
	require.Error(t, err)
	assert.True(t, studiokit.IsStudioError(err, studiokit.ErrCodeStorageFailed))
}

func TestPageImporter_ImportSite(t *testing.T) {
	f := newImportFixture(t)
	siteDir := t.TempDir()
	writeFile(t, filepath.Join(siteDir, siteFileName), fmt.Sprintf(`{"siteId": %q, "theme": "default", "name": "Acme"}`, f.siteID))
	writeFile(t, filepath.Join(siteDir, pagesDirName, "about.json"), `{
		"name": "About",
		"settings": {"title": "About us"},
		"blocks": [{"block": "HeroSplit", "content": {"headline": "Who we are"}}]
	}`)
	writeFile(t, filepath.Join(siteDir, pagesDirName, "broken.json"), `{"name": `)
	writeFile(t, filepath.Join(siteDir, pagesDirName, "ghost.json"), `{"name": "Ghost", "blocks": [{"block": "Nope"}]}`)

	result, err := f.importer.ImportSite(t.Context(), siteDir, studiokit.ImportOptions{})
	require.NoError(t, err)

	assert.Equal(t, f.siteID, result.SiteID)
	assert.Equal(t, 1, result.PagesCreated)
	require.Len(t, result.Pages, 2)
	assert.Equal(t, "About", result.Pages[0].Page)
	assert.True(t, result.Pages[0].Success)
	assert.False(t, result.Pages[1].Success)
	assert.Equal(t, 1, result.Errors.FailureCount)
	assert.False(t, result.Success())
}

func TestPageImporter_ImportSiteNeedsSiteID(t *testing.T) {
	f := newImportFixture(t)
	siteDir := t.TempDir()
	writeFile(t, filepath.Join(siteDir, siteFileName), `{"theme": "default", "name": "Acme"}`)

	_, err := f.importer.ImportSite(t.Context(), siteDir, studiokit.ImportOptions{})
	require.Error(t, err)

	result, err := f.importer.ImportSite(t.Context(), siteDir, studiokit.ImportOptions{SiteID: f.siteID, DryRun: true})
	require.NoError(t, err)
	assert.Empty(t, result.Pages)
	assert.True(t, result.Success())
}

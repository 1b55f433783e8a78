package internal

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/lychee-technology/studiokit"
	"github.com/stretchr/testify/require"
)

// sequentialIDs returns a generator producing prefix-1, prefix-2, ...
func sequentialIDs(prefix string) studiokit.IDGenerator {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("%s-%d", prefix, n)
	}
}

func parseSourceFields(t *testing.T, raw string) []studiokit.SourceField {
	t.Helper()
	var fields []studiokit.SourceField
	require.NoError(t, json.Unmarshal([]byte(raw), &fields))
	return fields
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

const heroFieldsJSON = `{
  "makeStudioFields": true,
  "version": 1,
  "description": "Hero with image",
  "fields": [
    {"type": "text", "name": "Headline", "default": "Build faster"},
    {"type": "image", "name": "Photo", "default": "https://cdn.example.com/hero.png"},
    {"type": "text", "name": "CTA Label", "default": "Start"},
    {"type": "repeater", "name": "Features", "default": [{"title": "Fast"}],
     "config": {"fields": [{"type": "text", "name": "Title"}]}}
  ]
}`

// writeTheme lays out a minimal theme with one block and one partial.
func writeTheme(t *testing.T, dir string) {
	t.Helper()
	writeFile(t, filepath.Join(dir, blocksDirName, "HeroSplit.json"), heroFieldsJSON)
	writeFile(t, filepath.Join(dir, blocksDirName, "HeroSplit.html"), "<section>{{headline}}</section>")
	writeFile(t, filepath.Join(dir, partialsDirName, "footer.html"), "<footer></footer>")
}

// seedSite stores an empty site and returns its id.
func seedSite(t *testing.T, store studiokit.Store, name string) string {
	t.Helper()
	site, err := store.SaveSite(t.Context(), &studiokit.Site{Name: name, Theme: "default"})
	require.NoError(t, err)
	return site.ID
}

package internal

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/lychee-technology/studiokit"
)

// Theme and site directory layout.
const (
	blocksDirName   = "blocks"
	partialsDirName = "partials"
	pagesDirName    = "pages"
	siteFileName    = "site.json"
	catalogFileName = "catalog.json"
	blockFileFormat = 1
)

// blockSource is a parsed block file pair.
type blockSource struct {
	Name         string
	JSONPath     string
	TemplatePath string
	File         *studiokit.BlockFile
	Template     []byte
}

func readBlockFile(path string) (*studiokit.BlockFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return parseBlockFile(data)
}

func parseBlockFile(data []byte) (*studiokit.BlockFile, error) {
	var file studiokit.BlockFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, err
	}
	if !file.MakeStudioFields {
		return nil, errors.New("makeStudioFields must be true")
	}
	if file.Fields == nil {
		return nil, errors.New("missing required key \"fields\"")
	}
	return &file, nil
}

// listFiles returns the files of dir with the given extension in name order. A
// missing directory yields no files.
func listFiles(dir, ext string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	paths := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ext) {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	sort.Strings(paths)
	return paths, nil
}

// loadBlockSources reads every <name>.json of dir with its sibling <name>.html.
// Files that fail to parse are recorded in fe and skipped; callers record successes.
func loadBlockSources(dir string, fe *studiokit.FileErrors) ([]blockSource, error) {
	paths, err := listFiles(dir, ".json")
	if err != nil {
		return nil, err
	}
	sources := make([]blockSource, 0, len(paths))
	for _, path := range paths {
		file, err := readBlockFile(path)
		if err != nil {
			fe.Add(studiokit.NewParseError(path, err).WithBlock(stem(path)))
			continue
		}
		src := blockSource{Name: stem(path), JSONPath: path, File: file}
		htmlPath := strings.TrimSuffix(path, filepath.Ext(path)) + ".html"
		if tpl, err := os.ReadFile(htmlPath); err == nil {
			src.TemplatePath = htmlPath
			src.Template = tpl
		} else if !errors.Is(err, os.ErrNotExist) {
			fe.Add(studiokit.NewParseError(htmlPath, err).WithBlock(src.Name))
			continue
		}
		sources = append(sources, src)
	}
	return sources, nil
}

func readSiteFile(siteDir string) (*studiokit.SiteFile, error) {
	path := filepath.Join(siteDir, siteFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var site studiokit.SiteFile
	if err := json.Unmarshal(data, &site); err != nil {
		return nil, studiokit.NewParseError(path, err)
	}
	return &site, nil
}

// ReadPageFile parses a page interchange file.
func ReadPageFile(path string) (*studiokit.PageFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var page studiokit.PageFile
	if err := json.Unmarshal(data, &page); err != nil {
		return nil, studiokit.NewParseError(path, err)
	}
	if page.Name == "" {
		return nil, studiokit.NewParseError(path, fmt.Errorf("missing required key %q", "name"))
	}
	return &page, nil
}

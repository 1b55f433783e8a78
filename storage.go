package studiokit

import (
	"context"
)

// Store is the document store holding sites, blocks, partials and pages.
type Store interface {
	// GetSite returns a NOT_FOUND StudioError when the site does not exist.
	GetSite(ctx context.Context, siteID string) (*Site, error)
	ListBlocks(ctx context.Context, siteID string) ([]*Block, error)
	ListPartials(ctx context.Context, siteID string) ([]*Partial, error)
	ListPages(ctx context.Context, siteID string) ([]*Page, error)

	// SaveSite inserts a site with an empty id or replaces the stored one.
	SaveSite(ctx context.Context, site *Site) (*Site, error)
	// SaveBlock inserts a block with an empty id, or replaces the stored one, and
	// keeps the site's block index current.
	SaveBlock(ctx context.Context, block *Block) (*Block, error)
	SavePartial(ctx context.Context, partial *Partial) (*Partial, error)
	// CreatePage inserts the page and appends it to the site's page index as one unit.
	CreatePage(ctx context.Context, page *Page) (*Page, error)

	Close(ctx context.Context) error
}

// FileSink receives exported files. Paths are slash-separated and relative.
type FileSink interface {
	WriteFile(ctx context.Context, path string, data []byte) error
}

package internal

import (
	"context"
	"sync"

	"github.com/lychee-technology/studiokit"
)

// MemoryStore keeps records in process memory. Used for dry runs and tests.
type MemoryStore struct {
	mu       sync.RWMutex
	newID    studiokit.IDGenerator
	sites    map[string]*studiokit.Site
	blocks   map[string]*studiokit.Block
	partials map[string]*studiokit.Partial
	pages    map[string]*studiokit.Page
}

var _ studiokit.Store = (*MemoryStore)(nil)

func NewMemoryStore(newID studiokit.IDGenerator) *MemoryStore {
	if newID == nil {
		newID = studiokit.NewID
	}
	return &MemoryStore{
		newID:    newID,
		sites:    make(map[string]*studiokit.Site),
		blocks:   make(map[string]*studiokit.Block),
		partials: make(map[string]*studiokit.Partial),
		pages:    make(map[string]*studiokit.Page),
	}
}

func (s *MemoryStore) GetSite(ctx context.Context, siteID string) (*studiokit.Site, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	site, ok := s.sites[siteID]
	if !ok {
		return nil, studiokit.NewNotFoundError("site", siteID)
	}
	return cloneSite(site), nil
}

func (s *MemoryStore) ListBlocks(ctx context.Context, siteID string) ([]*studiokit.Block, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	site, ok := s.sites[siteID]
	if !ok {
		return nil, studiokit.NewNotFoundError("site", siteID)
	}
	out := make([]*studiokit.Block, 0, len(site.Blocks))
	for _, ref := range site.Blocks {
		if b, ok := s.blocks[ref.ID]; ok {
			out = append(out, cloneBlock(b))
		}
	}
	return out, nil
}

func (s *MemoryStore) ListPartials(ctx context.Context, siteID string) ([]*studiokit.Partial, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	site, ok := s.sites[siteID]
	if !ok {
		return nil, studiokit.NewNotFoundError("site", siteID)
	}
	out := make([]*studiokit.Partial, 0, len(site.Partials))
	for _, ref := range site.Partials {
		if p, ok := s.partials[ref.ID]; ok {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *MemoryStore) ListPages(ctx context.Context, siteID string) ([]*studiokit.Page, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	site, ok := s.sites[siteID]
	if !ok {
		return nil, studiokit.NewNotFoundError("site", siteID)
	}
	out := make([]*studiokit.Page, 0, len(site.Pages))
	for _, ref := range site.Pages {
		if p, ok := s.pages[ref.ID]; ok {
			out = append(out, clonePage(p))
		}
	}
	return out, nil
}

func (s *MemoryStore) SaveSite(ctx context.Context, site *studiokit.Site) (*studiokit.Site, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := cloneSite(site)
	if cp.ID == "" {
		cp.ID = s.newID()
	}
	s.sites[cp.ID] = cp
	return cloneSite(cp), nil
}

func (s *MemoryStore) SaveBlock(ctx context.Context, block *studiokit.Block) (*studiokit.Block, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	site, ok := s.sites[block.SiteID]
	if !ok {
		return nil, studiokit.NewNotFoundError("site", block.SiteID)
	}
	cp := cloneBlock(block)
	if cp.ID == "" {
		cp.ID = s.newID()
	}
	s.blocks[cp.ID] = cp
	site.Blocks = upsertRef(site.Blocks, studiokit.Ref{ID: cp.ID, Name: cp.Name})
	return cloneBlock(cp), nil
}

func (s *MemoryStore) SavePartial(ctx context.Context, partial *studiokit.Partial) (*studiokit.Partial, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	site, ok := s.sites[partial.SiteID]
	if !ok {
		return nil, studiokit.NewNotFoundError("site", partial.SiteID)
	}
	cp := *partial
	if cp.ID == "" {
		cp.ID = s.newID()
	}
	s.partials[cp.ID] = &cp
	site.Partials = upsertRef(site.Partials, studiokit.Ref{ID: cp.ID, Name: cp.Name})
	out := cp
	return &out, nil
}

// CreatePage holds the write lock across both writes, so the page and the index
// entry appear together.
func (s *MemoryStore) CreatePage(ctx context.Context, page *studiokit.Page) (*studiokit.Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	site, ok := s.sites[page.SiteID]
	if !ok {
		return nil, studiokit.NewNotFoundError("site", page.SiteID)
	}
	cp := clonePage(page)
	cp.ID = s.newID()
	s.pages[cp.ID] = cp
	site.Pages = append(site.Pages, studiokit.Ref{ID: cp.ID, Name: cp.Name})
	return clonePage(cp), nil
}

func (s *MemoryStore) Close(ctx context.Context) error {
	return nil
}

func upsertRef(refs []studiokit.Ref, ref studiokit.Ref) []studiokit.Ref {
	for i := range refs {
		if refs[i].ID == ref.ID {
			refs[i] = ref
			return refs
		}
	}
	return append(refs, ref)
}

func cloneSite(site *studiokit.Site) *studiokit.Site {
	cp := *site
	cp.Blocks = append([]studiokit.Ref{}, site.Blocks...)
	cp.Partials = append([]studiokit.Ref{}, site.Partials...)
	cp.Pages = append([]studiokit.Ref{}, site.Pages...)
	return &cp
}

func cloneBlock(block *studiokit.Block) *studiokit.Block {
	cp := *block
	cp.Fields = append([]studiokit.DbField{}, block.Fields...)
	return &cp
}

func clonePage(page *studiokit.Page) *studiokit.Page {
	cp := *page
	cp.Blocks = make([]studiokit.PageBlock, 0, len(page.Blocks))
	for _, pb := range page.Blocks {
		content := make(map[string]studiokit.FieldContent, len(pb.Content))
		for k, v := range pb.Content {
			content[k] = v
		}
		cp.Blocks = append(cp.Blocks, studiokit.PageBlock{BlockID: pb.BlockID, Content: content})
	}
	return &cp
}

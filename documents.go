package studiokit

// Ref is an entry of a site index.
type Ref struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Site is the site record. Blocks, Partials and Pages index the site's records.
type Site struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Theme    string `json:"theme,omitempty"`
	Blocks   []Ref  `json:"blocks"`
	Partials []Ref  `json:"partials"`
	Pages    []Ref  `json:"pages"`
}

// Block is the database block record.
type Block struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Description   string    `json:"description,omitempty"`
	ThumbnailType string    `json:"thumbnailType,omitempty"`
	SiteID        string    `json:"siteId"`
	Template      string    `json:"template"`
	Fields        []DbField `json:"fields"`
}

// FieldByName finds a top-level field case-insensitively.
func (b *Block) FieldByName(name string) (DbField, bool) {
	key := FieldNameKey(name)
	for _, f := range b.Fields {
		if FieldNameKey(f.Name) == key {
			return f, true
		}
	}
	return DbField{}, false
}

// FieldByID finds a top-level field by id.
func (b *Block) FieldByID(id string) (DbField, bool) {
	for _, f := range b.Fields {
		if f.ID == id {
			return f, true
		}
	}
	return DbField{}, false
}

// Partial is a shared HTML fragment of a site.
type Partial struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	SiteID   string `json:"siteId"`
	Template string `json:"template"`
}

// PageSettings holds page metadata.
type PageSettings struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

// PageBlock is one block instance on a page. Content is keyed by field id.
type PageBlock struct {
	BlockID string                  `json:"blockId"`
	Content map[string]FieldContent `json:"content"`
}

// Page is the database page record.
type Page struct {
	ID       string       `json:"id"`
	Name     string       `json:"name"`
	SiteID   string       `json:"siteId"`
	Settings PageSettings `json:"settings"`
	Blocks   []PageBlock  `json:"blocks"`
}

// SiteFile is sites/<name>/site.json.
type SiteFile struct {
	SiteID string `json:"siteId"`
	Theme  string `json:"theme"`
	Name   string `json:"name"`
}

// PageFile is the page interchange file, sites/<name>/pages/<page>.json.
type PageFile struct {
	Name     string          `json:"name"`
	Settings PageSettings    `json:"settings"`
	Blocks   []PageFileBlock `json:"blocks"`
}

// PageFileBlock names a block and its content keyed by field name.
type PageFileBlock struct {
	Block   string         `json:"block"`
	Content map[string]any `json:"content"`
}

// BlockFile is the JSON half of a source block pair.
type BlockFile struct {
	MakeStudioFields bool          `json:"makeStudioFields"`
	Version          int           `json:"version"`
	Description      string        `json:"description,omitempty"`
	ThumbnailType    string        `json:"thumbnailType,omitempty"`
	Fields           []SourceField `json:"fields"`
}

// Catalog is the derived, read-only index of a theme's blocks.
type Catalog struct {
	Theme       string         `json:"theme"`
	GeneratedAt string         `json:"generatedAt"`
	Blocks      []CatalogBlock `json:"blocks"`
}

// CatalogBlock describes one block of a theme.
type CatalogBlock struct {
	Name          string         `json:"name"`
	Category      string         `json:"category"`
	Description   string         `json:"description,omitempty"`
	ThumbnailType string         `json:"thumbnailType,omitempty"`
	Template      string         `json:"template,omitempty"`
	Fields        []CatalogField `json:"fields"`
}

// CatalogField is a flattened field description.
type CatalogField struct {
	Name    string         `json:"name"`
	Type    string         `json:"type"`
	Default any            `json:"default,omitempty"`
	Options []Option       `json:"options,omitempty"`
	Fields  []CatalogField `json:"fields,omitempty"`
	Preview string         `json:"preview,omitempty"`
}

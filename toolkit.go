package studiokit

import (
	"context"
)

// Toolkit is the entry point used by the CLI and by embedding programs.
type Toolkit interface {
	TransformField(field SourceField) (DbField, error)
	ReverseField(field DbField) SourceField

	ImportPage(ctx context.Context, siteID string, page *PageFile, opts ImportOptions) (*ImportResult, error)
	// ImportSite imports every pages/*.json of a site directory in name order.
	ImportSite(ctx context.Context, siteDir string, opts ImportOptions) (*SiteImportResult, error)
	ImportTheme(ctx context.Context, siteID, themeDir string) (*ThemeImportResult, error)
	ExportSite(ctx context.Context, siteID string, sink FileSink, opts ExportOptions) (*ExportResult, error)

	GenerateCatalog(theme, blocksDir string) (*Catalog, *FileErrors)
	ValidateTheme(themeDir string) *ValidationReport
}

// ImportOptions controls a page import.
type ImportOptions struct {
	// DryRun resolves content without writing.
	DryRun bool `json:"dryRun"`
	// SiteID overrides the siteId of site.json in ImportSite.
	SiteID string `json:"siteId,omitempty"`
}

// ImportResult reports one page import. Errors and Warnings are human-readable.
type ImportResult struct {
	Success        bool     `json:"success"`
	Page           string   `json:"page"`
	PageID         string   `json:"pageId,omitempty"`
	PagesCreated   int      `json:"pagesCreated"`
	BlocksImported int      `json:"blocksImported"`
	Errors         []string `json:"errors"`
	Warnings       []string `json:"warnings"`
	DryRun         bool     `json:"dryRun"`

	// Resolved is the page that was, or in a dry run would have been, written.
	Resolved *Page `json:"resolved,omitempty"`
}

// SiteImportResult aggregates the page imports of a site directory.
type SiteImportResult struct {
	SiteID       string          `json:"siteId"`
	Pages        []*ImportResult `json:"pages"`
	PagesCreated int             `json:"pagesCreated"`
	Errors       *FileErrors     `json:"fileErrors,omitempty"`
}

// Success reports whether every page file parsed and imported.
func (r *SiteImportResult) Success() bool {
	if r.Errors.HasErrors() {
		return false
	}
	for _, p := range r.Pages {
		if !p.Success {
			return false
		}
	}
	return true
}

// ThemeImportResult reports a theme push.
type ThemeImportResult struct {
	SiteID          string      `json:"siteId"`
	BlocksCreated   int         `json:"blocksCreated"`
	BlocksUpdated   int         `json:"blocksUpdated"`
	PartialsCreated int         `json:"partialsCreated"`
	PartialsUpdated int         `json:"partialsUpdated"`
	Warnings        []string    `json:"warnings"`
	Errors          *FileErrors `json:"fileErrors,omitempty"`
}

// ExportOptions controls a site export.
type ExportOptions struct {
	SkipPages bool `json:"skipPages"`
}

// ExportResult lists the files written by an export.
type ExportResult struct {
	SiteID   string   `json:"siteId"`
	Files    []string `json:"files"`
	Warnings []string `json:"warnings"`
}

// Severity of a validation issue.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// ValidationIssue is one finding of ValidateTheme.
type ValidationIssue struct {
	Severity Severity `json:"severity"`
	Code     string   `json:"code"`
	Path     string   `json:"path"`
	Block    string   `json:"block,omitempty"`
	Field    string   `json:"field,omitempty"`
	Message  string   `json:"message"`
}

// ValidationReport lists every issue found in a theme.
type ValidationReport struct {
	ThemeDir     string            `json:"themeDir"`
	FilesChecked int               `json:"filesChecked"`
	Issues       []ValidationIssue `json:"issues"`
}

// Valid reports whether the report carries no error-severity issue.
func (r *ValidationReport) Valid() bool {
	for _, issue := range r.Issues {
		if issue.Severity == SeverityError {
			return false
		}
	}
	return true
}

package internal

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/lychee-technology/studiokit"
	"go.uber.org/zap"
)

//go:embed schemas/block.schema.json
var blockSchemaJSON []byte

var (
	blockSchemaOnce     sync.Once
	blockSchemaResolved *jsonschema.Resolved
	blockSchemaErr      error
)

func blockSchema() (*jsonschema.Resolved, error) {
	blockSchemaOnce.Do(func() {
		var schema jsonschema.Schema
		if err := json.Unmarshal(blockSchemaJSON, &schema); err != nil {
			blockSchemaErr = fmt.Errorf("failed to unmarshal block schema: %w", err)
			return
		}
		blockSchemaResolved, blockSchemaErr = schema.Resolve(&jsonschema.ResolveOptions{})
		if blockSchemaErr != nil {
			blockSchemaErr = fmt.Errorf("failed to resolve block schema: %w", blockSchemaErr)
		}
	})
	return blockSchemaResolved, blockSchemaErr
}

// ThemeValidator checks a theme directory without touching the store.
type ThemeValidator struct {
	unknownTypes studiokit.UnknownTypePolicy
}

func NewThemeValidator(policy studiokit.UnknownTypePolicy) *ThemeValidator {
	if policy == "" {
		policy = studiokit.UnknownTypeLenient
	}
	return &ThemeValidator{unknownTypes: policy}
}

// ValidateTheme validates every block file of themeDir/blocks and reports all
// findings instead of stopping at the first one.
func (v *ThemeValidator) ValidateTheme(themeDir string) *studiokit.ValidationReport {
	report := &studiokit.ValidationReport{ThemeDir: themeDir, Issues: []studiokit.ValidationIssue{}}
	dir := BlocksDir(themeDir)

	schema, err := blockSchema()
	if err != nil {
		addIssue(report, studiokit.SeverityError, studiokit.ErrCodeInternalError, dir, "", "", err.Error())
		return report
	}

	jsonPaths, err := listFiles(dir, ".json")
	if err != nil {
		addIssue(report, studiokit.SeverityError, studiokit.ErrCodeParseFailed, dir, "", "", err.Error())
		return report
	}
	htmlPaths, err := listFiles(dir, ".html")
	if err != nil {
		addIssue(report, studiokit.SeverityError, studiokit.ErrCodeParseFailed, dir, "", "", err.Error())
		return report
	}

	seen := make(map[string]bool, len(jsonPaths))
	for _, path := range jsonPaths {
		report.FilesChecked++
		name := stem(path)
		seen[strings.ToLower(name)] = true
		v.validateBlock(report, schema, path, name)
	}
	for _, path := range htmlPaths {
		if !seen[strings.ToLower(stem(path))] {
			addIssue(report, studiokit.SeverityWarning, studiokit.ErrCodeMissingTemplate, path, stem(path), "",
				"template has no field file")
		}
	}

	zap.S().Infow("theme validated", "theme", themeDir, "files", report.FilesChecked, "issues", len(report.Issues))
	return report
}

func (v *ThemeValidator) validateBlock(report *studiokit.ValidationReport, schema *jsonschema.Resolved, path, name string) {
	data, err := os.ReadFile(path)
	if err != nil {
		addIssue(report, studiokit.SeverityError, studiokit.ErrCodeParseFailed, path, name, "", err.Error())
		return
	}
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		addIssue(report, studiokit.SeverityError, studiokit.ErrCodeInvalidJSON, path, name, "", err.Error())
		return
	}
	if err := schema.Validate(doc); err != nil {
		addIssue(report, studiokit.SeverityError, studiokit.ErrCodeSchemaInvalid, path, name, "", err.Error())
		return
	}
	file, err := parseBlockFile(data)
	if err != nil {
		addIssue(report, studiokit.SeverityError, studiokit.ErrCodeParseFailed, path, name, "", err.Error())
		return
	}

	v.validateFields(report, path, name, "", file.Fields)

	htmlPath := strings.TrimSuffix(path, filepath.Ext(path)) + ".html"
	if _, err := os.Stat(htmlPath); err != nil {
		addIssue(report, studiokit.SeverityError, studiokit.ErrCodeMissingTemplate, path, name, "",
			fmt.Sprintf("missing template %s", filepath.Base(htmlPath)))
	}
}

func (v *ThemeValidator) validateFields(report *studiokit.ValidationReport, path, block, parent string, fields []studiokit.SourceField) {
	names := make(map[string]bool, len(fields))
	for _, f := range fields {
		qualified := f.Name
		if parent != "" {
			qualified = parent + "." + f.Name
		}

		key := studiokit.FieldNameKey(f.Name)
		if names[key] {
			addIssue(report, studiokit.SeverityError, studiokit.ErrCodeDuplicateField, path, block, qualified,
				fmt.Sprintf("duplicate field name %q", f.Name))
		}
		names[key] = true

		severity := studiokit.SeverityWarning
		if v.unknownTypes == studiokit.UnknownTypeStrict {
			severity = studiokit.SeverityError
		}
		dbType, ok := studiokit.LookupFieldType(f.Type)
		if !ok {
			addIssue(report, severity, studiokit.ErrCodeUnknownFieldType, path, block, qualified,
				fmt.Sprintf("unknown field type %q", f.Type))
			dbType = studiokit.FieldTypeText
		}
		if f.Default != nil {
			if _, err := studiokit.CoerceValue(dbType, f.Default); err != nil {
				addIssue(report, severity, studiokit.ErrCodeTypeMismatch, path, block, qualified, err.Error())
			}
		}
		if f.Config != nil && len(f.Config.Fields) > 0 {
			v.validateFields(report, path, block, qualified, f.Config.Fields)
		}
	}
}

func addIssue(report *studiokit.ValidationReport, severity studiokit.Severity, code, path, block, field, message string) {
	report.Issues = append(report.Issues, studiokit.ValidationIssue{
		Severity: severity,
		Code:     code,
		Path:     path,
		Block:    block,
		Field:    field,
		Message:  message,
	})
}

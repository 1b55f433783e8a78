package studiokit

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrorType represents the category of error
type ErrorType string

const (
	ErrorTypeValidation ErrorType = "validation"
	ErrorTypeParse      ErrorType = "parse"
	ErrorTypeNotFound   ErrorType = "not_found"
	ErrorTypeReference  ErrorType = "reference"
	ErrorTypeStorage    ErrorType = "storage"
	ErrorTypeExport     ErrorType = "export"
	ErrorTypeInternal   ErrorType = "internal"
)

// StudioError is the error returned by toolkit operations.
type StudioError struct {
	Type    ErrorType      `json:"type"`
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Path    string         `json:"path,omitempty"`
	Block   string         `json:"block,omitempty"`
	Field   string         `json:"field,omitempty"`
	Details map[string]any `json:"details,omitempty"`
	Cause   error          `json:"-"`
}

func (e *StudioError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s:%s]", e.Type, e.Code)
	if e.Path != "" {
		fmt.Fprintf(&b, " %s:", e.Path)
	}
	if e.Block != "" {
		fmt.Fprintf(&b, " block '%s'", e.Block)
	}
	if e.Field != "" {
		fmt.Fprintf(&b, " field '%s'", e.Field)
	}
	if e.Block != "" || e.Field != "" {
		b.WriteString(":")
	}
	b.WriteString(" ")
	b.WriteString(e.Message)
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

func (e *StudioError) Unwrap() error {
	return e.Cause
}

// WithDetail adds a single detail to a StudioError
func (e *StudioError) WithDetail(key string, value any) *StudioError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// WithCause adds a cause to a StudioError
func (e *StudioError) WithCause(cause error) *StudioError {
	e.Cause = cause
	return e
}

// WithPath adds file context to a StudioError
func (e *StudioError) WithPath(path string) *StudioError {
	e.Path = path
	return e
}

// WithBlock adds block context to a StudioError
func (e *StudioError) WithBlock(block string) *StudioError {
	e.Block = block
	return e
}

// WithField adds field context to a StudioError
func (e *StudioError) WithField(field string) *StudioError {
	e.Field = field
	return e
}

const (
	ErrCodeNotFound          = "NOT_FOUND"
	ErrCodeBlockNotFound     = "BLOCK_NOT_FOUND"
	ErrCodeParseFailed       = "PARSE_FAILED"
	ErrCodeInvalidJSON       = "INVALID_JSON"
	ErrCodeSchemaInvalid     = "SCHEMA_INVALID"
	ErrCodeUnknownFieldType  = "UNKNOWN_FIELD_TYPE"
	ErrCodeTypeMismatch      = "TYPE_MISMATCH"
	ErrCodeDuplicateField    = "DUPLICATE_FIELD"
	ErrCodeMissingTemplate   = "MISSING_TEMPLATE"
	ErrCodeStorageFailed     = "STORAGE_FAILED"
	ErrCodeTransactionFailed = "TRANSACTION_FAILED"
	ErrCodeExportFailed      = "EXPORT_FAILED"
	ErrCodeInternalError     = "INTERNAL_ERROR"
)

// NewStudioError creates a new StudioError
func NewStudioError(errorType ErrorType, code, message string) *StudioError {
	return &StudioError{
		Type:    errorType,
		Code:    code,
		Message: message,
	}
}

// NewNotFoundError creates a not found error for a stored record.
func NewNotFoundError(kind, id string) *StudioError {
	return &StudioError{
		Type:    ErrorTypeNotFound,
		Code:    ErrCodeNotFound,
		Message: fmt.Sprintf("%s %s not found", kind, id),
		Details: map[string]any{"kind": kind, "id": id},
	}
}

// NewBlockNotFoundError reports a page block that does not exist in the site.
func NewBlockNotFoundError(block, siteID string) *StudioError {
	return &StudioError{
		Type:    ErrorTypeReference,
		Code:    ErrCodeBlockNotFound,
		Message: fmt.Sprintf("block %q not found in site %s", block, siteID),
		Block:   block,
	}
}

// NewParseError creates an error for a malformed source file.
func NewParseError(path string, cause error) *StudioError {
	return &StudioError{
		Type:    ErrorTypeParse,
		Code:    ErrCodeParseFailed,
		Message: "cannot parse file",
		Path:    path,
		Cause:   cause,
	}
}

// NewUnknownTypeError reports a source type absent from TypeMap.
func NewUnknownTypeError(field, sourceType string) *StudioError {
	return &StudioError{
		Type:    ErrorTypeValidation,
		Code:    ErrCodeUnknownFieldType,
		Message: fmt.Sprintf("unknown field type %q", sourceType),
		Field:   field,
		Details: map[string]any{"sourceType": sourceType},
	}
}

// NewTypeMismatchError reports a value whose variant cannot represent the field type.
func NewTypeMismatchError(t FieldType, kind ValueKind) *StudioError {
	return &StudioError{
		Type:    ErrorTypeValidation,
		Code:    ErrCodeTypeMismatch,
		Message: fmt.Sprintf("%s value cannot be stored in a %s field", kind, t),
		Details: map[string]any{"fieldType": string(t), "valueKind": string(kind)},
	}
}

// NewValidationError creates a validation error
func NewValidationError(code, message string) *StudioError {
	return &StudioError{
		Type:    ErrorTypeValidation,
		Code:    code,
		Message: message,
	}
}

// NewStorageError wraps a database failure.
func NewStorageError(message string, cause error) *StudioError {
	return &StudioError{
		Type:    ErrorTypeStorage,
		Code:    ErrCodeStorageFailed,
		Message: message,
		Cause:   cause,
	}
}

// NewTransactionError creates a transaction error
func NewTransactionError(message string, cause error) *StudioError {
	return &StudioError{
		Type:    ErrorTypeStorage,
		Code:    ErrCodeTransactionFailed,
		Message: message,
		Cause:   cause,
	}
}

// NewExportError wraps a sink failure for one output path.
func NewExportError(path string, cause error) *StudioError {
	return &StudioError{
		Type:    ErrorTypeExport,
		Code:    ErrCodeExportFailed,
		Message: "cannot write export file",
		Path:    path,
		Cause:   cause,
	}
}

// NewInternalError creates an internal error
func NewInternalError(message string, cause error) *StudioError {
	return &StudioError{
		Type:    ErrorTypeInternal,
		Code:    ErrCodeInternalError,
		Message: message,
		Cause:   cause,
	}
}

// FileErrors collects per-file failures of a theme operation. A failed file never
// aborts the operation; it is recorded here and skipped.
type FileErrors struct {
	Errors       []*StudioError `json:"errors"`
	SuccessCount int            `json:"successCount"`
	FailureCount int            `json:"failureCount"`
	TotalCount   int            `json:"totalCount"`
}

// NewFileErrors creates an empty FileErrors
func NewFileErrors() *FileErrors {
	return &FileErrors{Errors: make([]*StudioError, 0)}
}

// Error implements the error interface for FileErrors
func (fe *FileErrors) Error() string {
	if len(fe.Errors) == 0 {
		return "no file errors"
	}
	if len(fe.Errors) == 1 {
		return fmt.Sprintf("%s (ok: %d/%d)", fe.Errors[0].Error(), fe.SuccessCount, fe.TotalCount)
	}
	return fmt.Sprintf("%d files failed (ok: %d/%d)", len(fe.Errors), fe.SuccessCount, fe.TotalCount)
}

// Add records a failed file.
func (fe *FileErrors) Add(err *StudioError) {
	fe.Errors = append(fe.Errors, err)
	fe.FailureCount++
	fe.TotalCount++
}

// Succeeded records a file that was processed.
func (fe *FileErrors) Succeeded() {
	fe.SuccessCount++
	fe.TotalCount++
}

// HasErrors returns true if any file failed
func (fe *FileErrors) HasErrors() bool {
	return fe != nil && len(fe.Errors) > 0
}

// ToError returns fe as an error when a file failed, nil otherwise.
func (fe *FileErrors) ToError() error {
	if fe.HasErrors() {
		return fe
	}
	return nil
}

// Summary counts failures by error code.
func (fe *FileErrors) Summary() map[string]int {
	summary := make(map[string]int)
	for _, err := range fe.Errors {
		summary[err.Code]++
	}
	return summary
}

// Report returns a multi-line report for logs and CLI output.
func (fe *FileErrors) Report() string {
	if !fe.HasErrors() {
		return fmt.Sprintf("all files processed: %d/%d", fe.SuccessCount, fe.TotalCount)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d/%d files processed, %d failed\n", fe.SuccessCount, fe.TotalCount, fe.FailureCount)
	summary := fe.Summary()
	codes := make([]string, 0, len(summary))
	for code := range summary {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	for _, code := range codes {
		fmt.Fprintf(&b, "  %s: %d\n", code, summary[code])
	}
	const maxErrors = 10
	for i, err := range fe.Errors {
		if i >= maxErrors {
			fmt.Fprintf(&b, "  ... and %d more\n", len(fe.Errors)-maxErrors)
			break
		}
		fmt.Fprintf(&b, "  %d. %s\n", i+1, err.Error())
	}
	return b.String()
}

// IsStudioError reports whether err wraps a StudioError with the given code.
func IsStudioError(err error, code string) bool {
	var se *StudioError
	if errors.As(err, &se) {
		return se.Code == code
	}
	return false
}

// IsNotFoundError checks if an error is a not found error
func IsNotFoundError(err error) bool {
	var se *StudioError
	if errors.As(err, &se) {
		return se.Type == ErrorTypeNotFound
	}
	return false
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	var se *StudioError
	if errors.As(err, &se) {
		return se.Type == ErrorTypeValidation
	}
	return false
}

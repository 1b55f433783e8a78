package studiokit

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStudioError_Error(t *testing.T) {
	err := NewUnknownTypeError("Badge", "video").WithBlock("Hero")
	assert.Equal(t, `[validation:UNKNOWN_FIELD_TYPE] block 'Hero' field 'Badge': unknown field type "video"`, err.Error())

	parse := NewParseError("blocks/hero.json", errors.New("unexpected EOF"))
	assert.Equal(t, "[parse:PARSE_FAILED] blocks/hero.json: cannot parse file: unexpected EOF", parse.Error())
}

func TestStudioError_Predicates(t *testing.T) {
	wrapped := fmt.Errorf("load site: %w", NewNotFoundError("site", "s1"))
	assert.True(t, IsNotFoundError(wrapped))
	assert.True(t, IsStudioError(wrapped, ErrCodeNotFound))
	assert.False(t, IsValidationError(wrapped))
	assert.False(t, IsNotFoundError(errors.New("plain")))

	cause := errors.New("connection reset")
	storage := NewStorageError("insert page", cause)
	assert.ErrorIs(t, storage, cause)
}

func TestFileErrors(t *testing.T) {
	fe := NewFileErrors()
	assert.False(t, fe.HasErrors())
	assert.NoError(t, fe.ToError())

	fe.Succeeded()
	fe.Add(NewParseError("a.json", errors.New("bad")))
	fe.Add(NewParseError("b.json", errors.New("bad")))

	require.Error(t, fe.ToError())
	assert.Equal(t, 3, fe.TotalCount)
	assert.Equal(t, 1, fe.SuccessCount)
	assert.Equal(t, 2, fe.FailureCount)
	assert.Equal(t, map[string]int{ErrCodeParseFailed: 2}, fe.Summary())
	assert.Contains(t, fe.Report(), "PARSE_FAILED: 2")
	assert.Equal(t, "2 files failed (ok: 1/3)", fe.Error())

	var nilErrors *FileErrors
	assert.False(t, nilErrors.HasErrors())
}

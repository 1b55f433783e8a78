package studiokit

import (
	"strings"

	"github.com/google/uuid"
)

// FieldType is the database field type vocabulary.
type FieldType string

const (
	FieldTypeText     FieldType = "text"
	FieldTypeTextarea FieldType = "textarea"
	FieldTypeWysiwyg  FieldType = "wysiwyg"
	FieldTypeImage    FieldType = "image"
	FieldTypeItems    FieldType = "items"
	FieldTypeSelect   FieldType = "select"
	FieldTypeGroup    FieldType = "group"
	FieldTypeNumber   FieldType = "number"
	FieldTypeDate     FieldType = "date"
)

// FieldTypes lists the database vocabulary in a stable order.
var FieldTypes = []FieldType{
	FieldTypeText,
	FieldTypeTextarea,
	FieldTypeWysiwyg,
	FieldTypeImage,
	FieldTypeItems,
	FieldTypeSelect,
	FieldTypeGroup,
	FieldTypeNumber,
	FieldTypeDate,
}

// TypeMap maps authored source types onto database types.
var TypeMap = map[string]FieldType{
	"text":      FieldTypeText,
	"textarea":  FieldTypeTextarea,
	"rich-text": FieldTypeWysiwyg,
	"richText":  FieldTypeWysiwyg,
	"wysiwyg":   FieldTypeWysiwyg,
	"image":     FieldTypeImage,
	"items":     FieldTypeItems,
	"repeater":  FieldTypeItems,
	"select":    FieldTypeSelect,
	"toggle":    FieldTypeSelect,
	"group":     FieldTypeGroup,
	"number":    FieldTypeNumber,
	"date":      FieldTypeDate,
}

// LookupFieldType resolves a source type. ok is false for types absent from TypeMap.
func LookupFieldType(sourceType string) (FieldType, bool) {
	t, ok := TypeMap[sourceType]
	return t, ok
}

// IsValid reports whether t belongs to the database vocabulary.
func (t FieldType) IsValid() bool {
	for _, known := range FieldTypes {
		if t == known {
			return true
		}
	}
	return false
}

// UnknownTypePolicy decides what happens to source types missing from TypeMap.
type UnknownTypePolicy string

const (
	// UnknownTypeLenient maps unknown types to text and logs a warning.
	UnknownTypeLenient UnknownTypePolicy = "lenient"
	// UnknownTypeStrict rejects unknown types and undecodable defaults.
	UnknownTypeStrict UnknownTypePolicy = "strict"
)

// ItemIDPolicy decides how ids of repeater records are produced.
type ItemIDPolicy string

const (
	// ItemIDRandom mints a fresh id for every record on every run.
	ItemIDRandom ItemIDPolicy = "random"
	// ItemIDKeyed derives the id from the record's "key" property when present.
	ItemIDKeyed ItemIDPolicy = "keyed"
)

// ItemKeyProperty is the record property consulted by ItemIDKeyed.
const ItemKeyProperty = "key"

// IDGenerator mints identifiers for fields and repeater records.
type IDGenerator func() string

// NewID is the default IDGenerator.
func NewID() string {
	return uuid.Must(uuid.NewV7()).String()
}

var itemNamespace = uuid.MustParse("6f1c8f52-3a4e-4b7e-9d0a-2f5b9c1e7a10")

// KeyedItemID derives a stable record id from its scope and key.
func KeyedItemID(scope []string, key string) string {
	name := strings.Join(append(append([]string{}, scope...), key), "/")
	return uuid.NewSHA1(itemNamespace, []byte(name)).String()
}

// ItemKey returns the property key of a repeater item-field: the name lower-cased
// with whitespace runs replaced by underscores.
func ItemKey(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), "_")
}

// FieldNameKey normalises a field name for case-insensitive lookup.
func FieldNameKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

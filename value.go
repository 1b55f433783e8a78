package studiokit

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ValueKind tags the variant held by a Value.
type ValueKind string

const (
	KindText   ValueKind = "text"
	KindNumber ValueKind = "number"
	KindBool   ValueKind = "bool"
	KindImage  ValueKind = "image"
	KindItems  ValueKind = "items"
	KindGroup  ValueKind = "group"
	KindList   ValueKind = "list"
)

// Value is a field value. The set of implementations is closed: Text, Number, Bool,
// Image, Items, Group and List. A nil Value means the value is undefined.
type Value interface {
	Kind() ValueKind
	// Plain returns the JSON-compatible representation.
	Plain() any
	IsEmpty() bool
	isValue()
}

// Text holds text, rich text, dates and select option values.
type Text string

func (Text) Kind() ValueKind { return KindText }
func (v Text) Plain() any { return string(v) }
func (v Text) IsEmpty() bool { return v == "" }
func (Text) isValue() {}
func (v Text) String() string { return string(v) }

// Number holds numeric values.
type Number float64

func (Number) Kind() ValueKind { return KindNumber }
func (v Number) Plain() any { return float64(v) }
func (Number) IsEmpty() bool { return false }
func (Number) isValue() {}

// Bool holds toggle values.
type Bool bool

func (Bool) Kind() ValueKind { return KindBool }
func (v Bool) Plain() any { return bool(v) }
func (Bool) IsEmpty() bool { return false }
func (Bool) isValue() {}

// Image is an image reference. An image authored as a bare URL string is written
// back as one.
type Image struct {
	Src   string
	Alt   string
	Extra map[string]Value

	bare   bool
	srcKey string
}

// NewImageURL returns an image written as a bare URL.
func NewImageURL(src string) Image {
	return Image{Src: src, bare: true}
}

func (Image) Kind() ValueKind { return KindImage }
func (v Image) IsEmpty() bool { return v.Src == "" }
func (Image) isValue() {}

func (v Image) Plain() any {
	if v.bare && v.Alt == "" && len(v.Extra) == 0 {
		return v.Src
	}
	out := make(map[string]any, len(v.Extra)+2)
	for k, x := range v.Extra {
		out[k] = plainOf(x)
	}
	key := v.srcKey
	if key == "" {
		key = "src"
	}
	out[key] = v.Src
	if v.Alt != "" {
		out["alt"] = v.Alt
	}
	return out
}

// Item is one record of a repeater value.
type Item struct {
	ID    string
	Props map[string]Value
}

// Plain returns the record as a map; the id key is omitted when ID is empty.
func (it Item) Plain() map[string]any {
	out := make(map[string]any, len(it.Props)+1)
	for k, v := range it.Props {
		out[k] = plainOf(v)
	}
	if it.ID != "" {
		out["id"] = it.ID
	}
	return out
}

// Keys returns the property keys in sorted order.
func (it Item) Keys() []string {
	keys := make([]string, 0, len(it.Props))
	for k := range it.Props {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Items is an ordered repeater value.
type Items []Item

func (Items) Kind() ValueKind { return KindItems }
func (v Items) IsEmpty() bool { return len(v) == 0 }
func (Items) isValue() {}

func (v Items) Plain() any {
	out := make([]any, 0, len(v))
	for _, it := range v {
		out = append(out, it.Plain())
	}
	return out
}

// WithoutIDs returns a copy of the records with ids cleared.
func (v Items) WithoutIDs() Items {
	out := make(Items, 0, len(v))
	for _, it := range v {
		out = append(out, Item{Props: it.Props})
	}
	return out
}

// Group is a nested group of named values.
type Group map[string]Value

func (Group) Kind() ValueKind { return KindGroup }
func (v Group) IsEmpty() bool { return len(v) == 0 }
func (Group) isValue() {}

func (v Group) Plain() any {
	out := make(map[string]any, len(v))
	for k, x := range v {
		out[k] = plainOf(x)
	}
	return out
}

// List is an array that is not a record sequence.
type List []Value

func (List) Kind() ValueKind { return KindList }
func (v List) IsEmpty() bool { return len(v) == 0 }
func (List) isValue() {}

func (v List) Plain() any {
	out := make([]any, 0, len(v))
	for _, x := range v {
		out = append(out, plainOf(x))
	}
	return out
}

func plainOf(v Value) any {
	if v == nil {
		return nil
	}
	return v.Plain()
}

// PlainOf returns the JSON-compatible form of v, nil for an undefined value.
func PlainOf(v Value) any {
	return plainOf(v)
}

// IsEmptyValue reports whether v is undefined or empty.
func IsEmptyValue(v Value) bool {
	return v == nil || v.IsEmpty()
}

// InferValue builds a Value from decoded JSON or BSON without type information.
// Arrays whose elements are all objects become Items; the "id" (or "_id") key of
// each object becomes the record id.
func InferValue(plain any) Value {
	switch v := normalizePlain(plain).(type) {
	case nil:
		return nil
	case string:
		return Text(v)
	case float64:
		return Number(v)
	case bool:
		return Bool(v)
	case map[string]any:
		group := make(Group, len(v))
		for k, x := range v {
			group[k] = InferValue(x)
		}
		return group
	case []any:
		if len(v) == 0 {
			return Items{}
		}
		if items, ok := inferItems(v); ok {
			return items
		}
		list := make(List, 0, len(v))
		for _, x := range v {
			list = append(list, InferValue(x))
		}
		return list
	default:
		return Text(fmt.Sprintf("%v", v))
	}
}

func inferItems(values []any) (Items, bool) {
	items := make(Items, 0, len(values))
	for _, raw := range values {
		m, ok := raw.(map[string]any)
		if !ok {
			return nil, false
		}
		items = append(items, ItemFromPlain(m))
	}
	return items, true
}

// ItemFromPlain converts a decoded record. "id" wins over "_id"; both are removed
// from the properties.
func ItemFromPlain(m map[string]any) Item {
	item := Item{Props: make(map[string]Value, len(m))}
	for k, raw := range m {
		switch k {
		case "id":
			item.ID = idString(raw)
		case "_id":
			if item.ID == "" {
				item.ID = idString(raw)
			}
		default:
			item.Props[k] = InferValue(raw)
		}
	}
	return item
}

func idString(raw any) string {
	switch v := normalizePlain(raw).(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprintf("%v", v)
	}
}

// EmptyValue returns the value materialised for a field without a default: an empty
// record list for items, zero for number and "" for every other type.
func EmptyValue(t FieldType) Value {
	switch t {
	case FieldTypeItems:
		return Items{}
	case FieldTypeNumber:
		return Number(0)
	case FieldTypeImage:
		return NewImageURL("")
	default:
		return Text("")
	}
}

// CoerceValue retags v for the database type t. It fails when no variant permitted
// for t can represent v. An undefined value stays undefined.
func CoerceValue(t FieldType, v Value) (Value, error) {
	if v == nil {
		return nil, nil
	}
	switch t {
	case FieldTypeText, FieldTypeTextarea, FieldTypeWysiwyg, FieldTypeDate:
		switch x := v.(type) {
		case Text:
			return x, nil
		case Number:
			return Text(strconv.FormatFloat(float64(x), 'f', -1, 64)), nil
		case Bool:
			return Text(strconv.FormatBool(bool(x))), nil
		}
	case FieldTypeNumber:
		switch x := v.(type) {
		case Number:
			return x, nil
		case Text:
			if f, err := strconv.ParseFloat(strings.TrimSpace(string(x)), 64); err == nil {
				return Number(f), nil
			}
		}
	case FieldTypeSelect:
		switch x := v.(type) {
		case Text, Bool, Number:
			return x, nil
		}
	case FieldTypeImage:
		switch x := v.(type) {
		case Image:
			return x, nil
		case Text:
			return NewImageURL(string(x)), nil
		case Group:
			if img, ok := imageFromGroup(x); ok {
				return img, nil
			}
		}
	case FieldTypeItems:
		switch x := v.(type) {
		case Items:
			return x, nil
		case List:
			if len(x) == 0 {
				return Items{}, nil
			}
		}
	case FieldTypeGroup:
		switch x := v.(type) {
		case Group:
			return x, nil
		case Text:
			// an unset group is stored as ""
			if x == "" {
				return x, nil
			}
		}
	}
	return nil, NewTypeMismatchError(t, v.Kind())
}

// DecodeValue decodes a plain value for the database type t.
func DecodeValue(t FieldType, plain any) (Value, error) {
	return CoerceValue(t, InferValue(plain))
}

func imageFromGroup(g Group) (Image, bool) {
	img := Image{}
	for _, key := range []string{"src", "url"} {
		if src, ok := g[key].(Text); ok {
			img.Src = string(src)
			img.srcKey = key
			break
		}
	}
	if img.srcKey == "" {
		return Image{}, false
	}
	for k, x := range g {
		switch {
		case k == img.srcKey:
		case k == "alt":
			if alt, ok := x.(Text); ok {
				img.Alt = string(alt)
				continue
			}
			fallthrough
		default:
			if img.Extra == nil {
				img.Extra = make(map[string]Value)
			}
			img.Extra[k] = x
		}
	}
	return img, true
}

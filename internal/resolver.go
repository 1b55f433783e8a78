package internal

import (
	"fmt"

	"github.com/lychee-technology/studiokit"
)

// FieldRef is an entry of a FieldIndex.
type FieldRef struct {
	ID    string
	Field studiokit.DbField
}

// FieldIndex maps lower-cased field names to live block fields.
type FieldIndex map[string]FieldRef

// NewFieldIndex indexes the top-level fields of a block. When two names collide
// case-insensitively the first one wins.
func NewFieldIndex(fields []studiokit.DbField) FieldIndex {
	index := make(FieldIndex, len(fields))
	for _, f := range fields {
		key := studiokit.FieldNameKey(f.Name)
		if _, exists := index[key]; exists {
			continue
		}
		index[key] = FieldRef{ID: f.ID, Field: f}
	}
	return index
}

// Lookup finds a field by name, ignoring case and surrounding whitespace.
func (idx FieldIndex) Lookup(name string) (FieldRef, bool) {
	ref, ok := idx[studiokit.FieldNameKey(name)]
	return ref, ok
}

// Resolution is the field-id keyed content of one page block.
type Resolution struct {
	Content  map[string]studiokit.FieldContent
	Warnings []string
}

// ContentResolver maps name-keyed page content onto live block fields.
type ContentResolver struct {
	itemIDs studiokit.ItemIDPolicy
	newID   studiokit.IDGenerator
}

func NewContentResolver(itemIDs studiokit.ItemIDPolicy, newID studiokit.IDGenerator) *ContentResolver {
	if itemIDs == "" {
		itemIDs = studiokit.ItemIDRandom
	}
	if newID == nil {
		newID = studiokit.NewID
	}
	return &ContentResolver{itemIDs: itemIDs, newID: newID}
}

// ResolveContent seeds the result with every live field value, then overlays the
// provided content. Names that match no field and values that cannot be coerced are
// skipped and reported in Warnings. Provided names are visited in sorted order so
// warnings are deterministic.
func (r *ContentResolver) ResolveContent(blockID string, content map[string]any, index FieldIndex, blockFields []studiokit.DbField) Resolution {
	res := Resolution{Content: make(map[string]studiokit.FieldContent, len(blockFields))}

	for _, f := range blockFields {
		if f.Value != nil {
			res.Content[f.ID] = studiokit.FieldContent{Value: f.Value}
		}
	}

	for _, name := range sortedKeys(content) {
		ref, ok := index.Lookup(name)
		if !ok {
			res.warn("field %q not found", name)
			continue
		}
		raw := content[name]
		if raw == nil {
			res.warn("field %q: null value ignored", name)
			continue
		}

		if ref.Field.Type == studiokit.FieldTypeItems {
			items, ok := r.resolveItems(&res, []string{blockID, ref.ID}, ref.Field, studiokit.InferValue(raw))
			if !ok {
				continue
			}
			res.Content[ref.ID] = studiokit.FieldContent{Value: items}
			continue
		}

		value, err := studiokit.CoerceValue(ref.Field.Type, studiokit.InferValue(raw))
		if err != nil {
			res.warn("field %q: %v", name, err)
			continue
		}
		res.Content[ref.ID] = studiokit.FieldContent{Value: value}
	}
	return res
}

func (r *ContentResolver) resolveItems(res *Resolution, scope []string, field studiokit.DbField, value studiokit.Value) (studiokit.Items, bool) {
	var provided studiokit.Items
	switch v := value.(type) {
	case studiokit.Items:
		provided = v
	case studiokit.List:
		if len(v) > 0 {
			res.warn("field %q: items must be objects", field.Name)
			return nil, false
		}
	default:
		res.warn("field %q: expected a list of items, got %s", field.Name, value.Kind())
		return nil, false
	}

	itemFields := field.ItemFields()
	lookup := make(map[string]studiokit.DbField, len(itemFields)*2)
	for _, f := range itemFields {
		for _, key := range []string{studiokit.FieldNameKey(f.Name), studiokit.ItemKey(f.Name)} {
			if _, exists := lookup[key]; !exists {
				lookup[key] = f
			}
		}
	}

	out := make(studiokit.Items, 0, len(provided))
	for _, it := range provided {
		props := make(map[string]studiokit.Value, len(it.Props))
		for _, key := range it.Keys() {
			v := it.Props[key]
			if len(itemFields) == 0 {
				props[key] = v
				continue
			}
			f, ok := lookup[studiokit.FieldNameKey(key)]
			if !ok {
				f, ok = lookup[studiokit.ItemKey(key)]
			}
			if !ok {
				if key != studiokit.ItemKeyProperty {
					res.warn("field %q: item property %q matches no item field", field.Name, key)
				}
				props[key] = v
				continue
			}
			outKey := studiokit.ItemKey(f.Name)
			if f.Type == studiokit.FieldTypeItems {
				nested, ok := r.resolveItems(res, append(append([]string{}, scope...), f.ID), f, v)
				if ok {
					props[outKey] = nested
				}
				continue
			}
			coerced, err := studiokit.CoerceValue(f.Type, v)
			if err != nil {
				res.warn("field %q: item property %q: %v", field.Name, key, err)
				continue
			}
			props[outKey] = coerced
		}
		out = append(out, studiokit.Item{ID: r.itemID(scope, props), Props: props})
	}
	return out, true
}

func (r *ContentResolver) itemID(scope []string, props map[string]studiokit.Value) string {
	if r.itemIDs == studiokit.ItemIDKeyed {
		if key, ok := props[studiokit.ItemKeyProperty].(studiokit.Text); ok && key != "" {
			return studiokit.KeyedItemID(scope, string(key))
		}
	}
	return r.newID()
}

func (res *Resolution) warn(format string, args ...any) {
	res.Warnings = append(res.Warnings, fmt.Sprintf(format, args...))
}

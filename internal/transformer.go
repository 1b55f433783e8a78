package internal

import (
	"github.com/lychee-technology/studiokit"
	"go.uber.org/zap"
)

// FieldTransformer converts authored field definitions into database field records.
// It holds no mutable state and is safe for concurrent use when its IDGenerator is.
type FieldTransformer struct {
	unknownTypes studiokit.UnknownTypePolicy
	itemIDs      studiokit.ItemIDPolicy
	newID        studiokit.IDGenerator
}

// TransformerOption configures a FieldTransformer.
type TransformerOption func(*FieldTransformer)

// WithIDGenerator replaces the id source.
func WithIDGenerator(gen studiokit.IDGenerator) TransformerOption {
	return func(t *FieldTransformer) {
		if gen != nil {
			t.newID = gen
		}
	}
}

// WithUnknownTypePolicy sets the unknown source type policy.
func WithUnknownTypePolicy(policy studiokit.UnknownTypePolicy) TransformerOption {
	return func(t *FieldTransformer) {
		if policy != "" {
			t.unknownTypes = policy
		}
	}
}

// WithItemIDPolicy sets the repeater record id policy.
func WithItemIDPolicy(policy studiokit.ItemIDPolicy) TransformerOption {
	return func(t *FieldTransformer) {
		if policy != "" {
			t.itemIDs = policy
		}
	}
}

// NewFieldTransformer creates a transformer with lenient unknown types, random item
// ids and UUIDv7 identifiers unless overridden.
func NewFieldTransformer(opts ...TransformerOption) *FieldTransformer {
	t := &FieldTransformer{
		unknownTypes: studiokit.UnknownTypeLenient,
		itemIDs:      studiokit.ItemIDRandom,
		newID:        studiokit.NewID,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// TransformField converts one source field. It fails only under the strict unknown
// type policy.
func (t *FieldTransformer) TransformField(src studiokit.SourceField) (studiokit.DbField, error) {
	return t.transform(src, nil)
}

// TransformFields converts a field list and stops at the first error.
func (t *FieldTransformer) TransformFields(src []studiokit.SourceField) ([]studiokit.DbField, error) {
	out := make([]studiokit.DbField, 0, len(src))
	for _, f := range src {
		db, err := t.TransformField(f)
		if err != nil {
			return nil, err
		}
		out = append(out, db)
	}
	return out, nil
}

func (t *FieldTransformer) transform(src studiokit.SourceField, scope []string) (studiokit.DbField, error) {
	dbType, ok := studiokit.LookupFieldType(src.Type)
	if !ok {
		if t.unknownTypes == studiokit.UnknownTypeStrict {
			return studiokit.DbField{}, studiokit.NewUnknownTypeError(src.Name, src.Type)
		}
		zap.S().Warnw("unknown field type, storing as text", "field", src.Name, "sourceType", src.Type)
		dbType = studiokit.FieldTypeText
	}

	out := studiokit.DbField{
		ID:    t.newID(),
		Type:  dbType,
		Name:  src.Name,
		Extra: copyMap(src.Extra),
	}
	if src.Type != string(dbType) {
		out.SourceType = src.Type
	}

	path := append(append([]string{}, scope...), src.Name)

	if src.Config != nil {
		cfg := &studiokit.DbConfig{
			Options: append([]studiokit.Option(nil), src.Config.Options...),
			Extra:   copyMap(src.Config.Extra),
		}
		for _, child := range src.Config.Fields {
			db, err := t.transform(child, path)
			if err != nil {
				return studiokit.DbField{}, err
			}
			cfg.Fields = append(cfg.Fields, db)
		}
		out.Config = cfg
	}

	value, err := t.materialize(src, dbType, path)
	if err != nil {
		return studiokit.DbField{}, err
	}
	out.Value = value
	return out, nil
}

func (t *FieldTransformer) materialize(src studiokit.SourceField, dbType studiokit.FieldType, path []string) (studiokit.Value, error) {
	if src.Default == nil {
		return studiokit.EmptyValue(dbType), nil
	}
	value, err := studiokit.CoerceValue(dbType, src.Default)
	if err != nil {
		if t.unknownTypes == studiokit.UnknownTypeStrict {
			var se *studiokit.StudioError
			if asStudioError(err, &se) {
				return nil, se.WithField(src.Name)
			}
			return nil, err
		}
		zap.S().Warnw("default does not fit field type, keeping it as authored",
			"field", src.Name, "type", dbType, "kind", src.Default.Kind())
		value = src.Default
	}
	if items, ok := value.(studiokit.Items); ok && dbType == studiokit.FieldTypeItems {
		return t.identify(items, path), nil
	}
	return value, nil
}

// identify assigns record ids. Ids present on the input are always replaced.
func (t *FieldTransformer) identify(items studiokit.Items, scope []string) studiokit.Items {
	out := make(studiokit.Items, 0, len(items))
	for _, it := range items {
		props := make(map[string]studiokit.Value, len(it.Props))
		for k, v := range it.Props {
			props[k] = v
		}
		out = append(out, studiokit.Item{ID: t.itemID(scope, props), Props: props})
	}
	return out
}

func (t *FieldTransformer) itemID(scope []string, props map[string]studiokit.Value) string {
	if t.itemIDs == studiokit.ItemIDKeyed {
		if key, ok := props[studiokit.ItemKeyProperty].(studiokit.Text); ok && key != "" {
			return studiokit.KeyedItemID(scope, string(key))
		}
	}
	return t.newID()
}

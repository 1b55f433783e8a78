package internal

import (
	"github.com/lychee-technology/studiokit"
)

// ReverseField converts a database field back into its authored form. Record ids are
// stripped from repeater values, which are always written back, even when empty. Other
// fields omit empty defaults.
func ReverseField(f studiokit.DbField) studiokit.SourceField {
	out := studiokit.SourceField{
		Type:  f.AuthoredType(),
		Name:  f.Name,
		Extra: copyMap(f.Extra),
	}

	if f.Type == studiokit.FieldTypeItems {
		switch v := f.Value.(type) {
		case nil:
		case studiokit.Items:
			out.Default = v.WithoutIDs()
		default:
			out.Default = v
		}
	} else if !studiokit.IsEmptyValue(f.Value) {
		out.Default = f.Value
	}

	if !f.Config.IsEmpty() {
		cfg := &studiokit.SourceConfig{
			Options: append([]studiokit.Option(nil), f.Config.Options...),
			Extra:   copyMap(f.Config.Extra),
		}
		for _, child := range f.Config.Fields {
			cfg.Fields = append(cfg.Fields, ReverseField(child))
		}
		out.Config = cfg
	}
	return out
}

// ReverseFields reverses a field list.
func ReverseFields(fields []studiokit.DbField) []studiokit.SourceField {
	out := make([]studiokit.SourceField, 0, len(fields))
	for _, f := range fields {
		out = append(out, ReverseField(f))
	}
	return out
}

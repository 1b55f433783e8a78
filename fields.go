package studiokit

import (
	"encoding/json"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

// Option is one choice of a select field. An option authored as a bare string (or
// number) is written back the same way.
type Option struct {
	Label string
	Value any
	Extra map[string]any

	bare bool
}

// NewOption returns an option written as an object.
func NewOption(label string, value any) Option {
	return Option{Label: label, Value: value}
}

func (o Option) Plain() any {
	if o.bare && len(o.Extra) == 0 {
		return o.Value
	}
	out := copyPlainMap(o.Extra)
	if out == nil {
		out = make(map[string]any, 2)
	}
	out["label"] = o.Label
	out["value"] = o.Value
	return out
}

func (o Option) MarshalJSON() ([]byte, error) {
	return json.Marshal(o.Plain())
}

func (o *Option) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := optionFromPlain(raw)
	if err != nil {
		return err
	}
	*o = parsed
	return nil
}

func optionFromPlain(raw any) (Option, error) {
	switch v := normalizePlain(raw).(type) {
	case string:
		return Option{Label: v, Value: v, bare: true}, nil
	case float64, bool:
		return Option{Label: fmt.Sprintf("%v", v), Value: v, bare: true}, nil
	case map[string]any:
		opt := Option{}
		for k, x := range v {
			switch k {
			case "label":
				opt.Label = fmt.Sprintf("%v", x)
			case "value":
				opt.Value = x
			default:
				if opt.Extra == nil {
					opt.Extra = make(map[string]any)
				}
				opt.Extra[k] = x
			}
		}
		if _, ok := v["value"]; !ok {
			opt.Value = opt.Label
		}
		return opt, nil
	default:
		return Option{}, fmt.Errorf("option must be a string or object, got %T", raw)
	}
}

func optionsFromPlain(raw any) ([]Option, error) {
	list, ok := normalizePlain(raw).([]any)
	if !ok {
		return nil, fmt.Errorf("options must be an array, got %T", raw)
	}
	out := make([]Option, 0, len(list))
	for i, item := range list {
		opt, err := optionFromPlain(item)
		if err != nil {
			return nil, fmt.Errorf("options[%d]: %w", i, err)
		}
		out = append(out, opt)
	}
	return out, nil
}

func optionsPlain(options []Option) []any {
	out := make([]any, 0, len(options))
	for _, o := range options {
		out = append(out, o.Plain())
	}
	return out
}

// SourceConfig is the config bag of an authored field. Keys other than fields and
// options are kept verbatim in Extra.
type SourceConfig struct {
	Fields  []SourceField
	Options []Option
	Extra   map[string]any
}

// IsEmpty reports whether the config carries nothing.
func (c *SourceConfig) IsEmpty() bool {
	return c == nil || (len(c.Fields) == 0 && len(c.Options) == 0 && len(c.Extra) == 0)
}

func (c *SourceConfig) plain() map[string]any {
	out := copyPlainMap(c.Extra)
	if out == nil {
		out = make(map[string]any)
	}
	if len(c.Fields) > 0 {
		fields := make([]any, 0, len(c.Fields))
		for _, f := range c.Fields {
			fields = append(fields, f.plain())
		}
		out["fields"] = fields
	}
	if len(c.Options) > 0 {
		out["options"] = optionsPlain(c.Options)
	}
	return out
}

func sourceConfigFromPlain(m map[string]any) (*SourceConfig, error) {
	cfg := &SourceConfig{}
	for k, raw := range m {
		switch k {
		case "fields":
			list, ok := raw.([]any)
			if !ok {
				return nil, fmt.Errorf("config.fields must be an array, got %T", raw)
			}
			for i, item := range list {
				fm, ok := item.(map[string]any)
				if !ok {
					return nil, fmt.Errorf("config.fields[%d] must be an object", i)
				}
				child, err := sourceFieldFromPlain(fm)
				if err != nil {
					return nil, fmt.Errorf("config.fields[%d]: %w", i, err)
				}
				cfg.Fields = append(cfg.Fields, child)
			}
		case "options":
			options, err := optionsFromPlain(raw)
			if err != nil {
				return nil, fmt.Errorf("config.%w", err)
			}
			cfg.Options = options
		default:
			if cfg.Extra == nil {
				cfg.Extra = make(map[string]any)
			}
			cfg.Extra[k] = raw
		}
	}
	return cfg, nil
}

// SourceField is a field definition as authored in version control.
type SourceField struct {
	Type    string
	Name    string
	Default Value
	Config  *SourceConfig
	// Extra holds authored keys this toolkit does not interpret (labels, help text).
	Extra map[string]any
}

func (f SourceField) plain() map[string]any {
	out := copyPlainMap(f.Extra)
	if out == nil {
		out = make(map[string]any, 4)
	}
	out["type"] = f.Type
	out["name"] = f.Name
	if f.Default != nil {
		out["default"] = f.Default.Plain()
	}
	if !f.Config.IsEmpty() {
		out["config"] = f.Config.plain()
	}
	return out
}

func sourceFieldFromPlain(m map[string]any) (SourceField, error) {
	f := SourceField{}
	var err error
	if f.Type, err = stringOf(m, "type"); err != nil {
		return SourceField{}, err
	}
	if f.Name, err = stringOf(m, "name"); err != nil {
		return SourceField{}, err
	}
	for k, raw := range m {
		switch k {
		case "type", "name":
		case "default":
			f.Default = InferValue(raw)
		case "config":
			if raw == nil {
				continue
			}
			cm, ok := raw.(map[string]any)
			if !ok {
				return SourceField{}, fmt.Errorf("field %q: config must be an object, got %T", f.Name, raw)
			}
			if f.Config, err = sourceConfigFromPlain(cm); err != nil {
				return SourceField{}, fmt.Errorf("field %q: %w", f.Name, err)
			}
		default:
			if f.Extra == nil {
				f.Extra = make(map[string]any)
			}
			f.Extra[k] = raw
		}
	}
	return f, nil
}

func (f SourceField) MarshalJSON() ([]byte, error) {
	return json.Marshal(f.plain())
}

func (f *SourceField) UnmarshalJSON(data []byte) error {
	m, err := decodeJSONMap(data)
	if err != nil {
		return err
	}
	parsed, err := sourceFieldFromPlain(m)
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}

// DbConfig is the config bag of a database field.
type DbConfig struct {
	Fields  []DbField
	Options []Option
	Extra   map[string]any
}

// IsEmpty reports whether the config carries nothing.
func (c *DbConfig) IsEmpty() bool {
	return c == nil || (len(c.Fields) == 0 && len(c.Options) == 0 && len(c.Extra) == 0)
}

func (c *DbConfig) plain() map[string]any {
	out := copyPlainMap(c.Extra)
	if out == nil {
		out = make(map[string]any)
	}
	if len(c.Fields) > 0 {
		fields := make([]any, 0, len(c.Fields))
		for _, f := range c.Fields {
			fields = append(fields, f.plain())
		}
		out["fields"] = fields
	}
	if len(c.Options) > 0 {
		out["options"] = optionsPlain(c.Options)
	}
	return out
}

func dbConfigFromPlain(m map[string]any) (*DbConfig, error) {
	cfg := &DbConfig{}
	for k, raw := range m {
		switch k {
		case "fields":
			list, ok := raw.([]any)
			if !ok {
				return nil, fmt.Errorf("config.fields must be an array, got %T", raw)
			}
			for i, item := range list {
				fm, ok := item.(map[string]any)
				if !ok {
					return nil, fmt.Errorf("config.fields[%d] must be an object", i)
				}
				child, err := dbFieldFromPlain(fm)
				if err != nil {
					return nil, fmt.Errorf("config.fields[%d]: %w", i, err)
				}
				cfg.Fields = append(cfg.Fields, child)
			}
		case "options":
			options, err := optionsFromPlain(raw)
			if err != nil {
				return nil, fmt.Errorf("config.%w", err)
			}
			cfg.Options = options
		default:
			if cfg.Extra == nil {
				cfg.Extra = make(map[string]any)
			}
			cfg.Extra[k] = raw
		}
	}
	return cfg, nil
}

// ItemFields returns the nested field definitions of a repeater field.
func (f DbField) ItemFields() []DbField {
	if f.Config == nil {
		return nil
	}
	return f.Config.Fields
}

// DbField is the database-resident field record.
type DbField struct {
	ID   string
	Type FieldType
	Name string
	// SourceType is the authored type when it differs from Type (toggle, repeater, richText).
	SourceType string
	Value      Value
	Config     *DbConfig
	Extra      map[string]any
}

func (f DbField) plain() map[string]any {
	out := copyPlainMap(f.Extra)
	if out == nil {
		out = make(map[string]any, 6)
	}
	out["id"] = f.ID
	out["type"] = string(f.Type)
	out["name"] = f.Name
	if f.SourceType != "" && f.SourceType != string(f.Type) {
		out["sourceType"] = f.SourceType
	}
	if f.Value != nil {
		out["value"] = f.Value.Plain()
	}
	if !f.Config.IsEmpty() {
		out["config"] = f.Config.plain()
	}
	return out
}

func dbFieldFromPlain(m map[string]any) (DbField, error) {
	f := DbField{}
	var err error
	if f.ID, err = stringOf(m, "id"); err != nil {
		return DbField{}, err
	}
	typ, err := stringOf(m, "type")
	if err != nil {
		return DbField{}, err
	}
	f.Type = FieldType(typ)
	if f.Name, err = stringOf(m, "name"); err != nil {
		return DbField{}, err
	}
	if f.SourceType, err = stringOf(m, "sourceType"); err != nil {
		return DbField{}, err
	}
	for k, raw := range m {
		switch k {
		case "id", "type", "name", "sourceType":
		case "value":
			if raw == nil {
				continue
			}
			value, err := DecodeValue(f.Type, raw)
			if err != nil {
				// lenient transforms keep defaults that do not fit the type
				zap.S().Debugw("stored field value does not match its type, keeping it",
					"field", f.Name, "fieldID", f.ID, "type", f.Type, "error", err)
				value = InferValue(raw)
			}
			f.Value = value
		case "config":
			if raw == nil {
				continue
			}
			cm, ok := raw.(map[string]any)
			if !ok {
				return DbField{}, fmt.Errorf("field %q: config must be an object, got %T", f.Name, raw)
			}
			if f.Config, err = dbConfigFromPlain(cm); err != nil {
				return DbField{}, fmt.Errorf("field %q: %w", f.Name, err)
			}
		default:
			if f.Extra == nil {
				f.Extra = make(map[string]any)
			}
			f.Extra[k] = raw
		}
	}
	return f, nil
}

func (f DbField) MarshalJSON() ([]byte, error) {
	return json.Marshal(f.plain())
}

func (f *DbField) UnmarshalJSON(data []byte) error {
	m, err := decodeJSONMap(data)
	if err != nil {
		return err
	}
	parsed, err := dbFieldFromPlain(m)
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}

func (f DbField) MarshalBSON() ([]byte, error) {
	return bson.Marshal(f.plain())
}

func (f *DbField) UnmarshalBSON(data []byte) error {
	m, err := decodeBSONMap(data)
	if err != nil {
		return err
	}
	parsed, err := dbFieldFromPlain(m)
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}

// AuthoredType returns the type to write back to source files.
func (f DbField) AuthoredType() string {
	if f.SourceType != "" {
		return f.SourceType
	}
	return string(f.Type)
}

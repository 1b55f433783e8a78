package studiokit

import (
	"encoding/json"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// normalizePlain converts decoded JSON or BSON into the plain vocabulary used by the
// codecs: nil, string, float64, bool, map[string]any and []any.
func normalizePlain(v any) any {
	switch x := v.(type) {
	case nil, string, bool, float64:
		return x
	case float32:
		return float64(x)
	case int:
		return float64(x)
	case int32:
		return float64(x)
	case int64:
		return float64(x)
	case uint:
		return float64(x)
	case uint32:
		return float64(x)
	case uint64:
		return float64(x)
	case json.Number:
		if f, err := x.Float64(); err == nil {
			return f
		}
		return x.String()
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, item := range x {
			out[k] = normalizePlain(item)
		}
		return out
	case primitive.M:
		out := make(map[string]any, len(x))
		for k, item := range x {
			out[k] = normalizePlain(item)
		}
		return out
	case primitive.D:
		out := make(map[string]any, len(x))
		for _, e := range x {
			out[e.Key] = normalizePlain(e.Value)
		}
		return out
	case []any:
		out := make([]any, 0, len(x))
		for _, item := range x {
			out = append(out, normalizePlain(item))
		}
		return out
	case primitive.A:
		out := make([]any, 0, len(x))
		for _, item := range x {
			out = append(out, normalizePlain(item))
		}
		return out
	case []map[string]any:
		out := make([]any, 0, len(x))
		for _, item := range x {
			out = append(out, normalizePlain(item))
		}
		return out
	case primitive.ObjectID:
		return x.Hex()
	case primitive.DateTime:
		return x.Time().UTC().Format(time.RFC3339)
	case time.Time:
		return x.UTC().Format(time.RFC3339)
	default:
		return x
	}
}

// NormalizePlain exposes normalizePlain to storage adapters.
func NormalizePlain(v any) any {
	return normalizePlain(v)
}

func normalizeMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out, _ := normalizePlain(m).(map[string]any)
	return out
}

func copyPlainMap(m map[string]any) map[string]any {
	if len(m) == 0 {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func stringOf(m map[string]any, key string) (string, error) {
	raw, ok := m[key]
	if !ok || raw == nil {
		return "", nil
	}
	s, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("key %q must be a string, got %T", key, raw)
	}
	return s, nil
}

func decodeJSONMap(data []byte) (map[string]any, error) {
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return normalizeMap(m), nil
}

func decodeBSONMap(data []byte) (map[string]any, error) {
	var m bson.M
	if err := bson.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	out, _ := normalizePlain(m).(map[string]any)
	return out, nil
}

// FieldContent is the stored content of one field on a page.
type FieldContent struct {
	Value Value
}

func (c FieldContent) plain() map[string]any {
	return map[string]any{"value": plainOf(c.Value)}
}

func (c FieldContent) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.plain())
}

func (c *FieldContent) UnmarshalJSON(data []byte) error {
	m, err := decodeJSONMap(data)
	if err != nil {
		return err
	}
	c.Value = InferValue(m["value"])
	return nil
}

func (c FieldContent) MarshalBSON() ([]byte, error) {
	return bson.Marshal(c.plain())
}

func (c *FieldContent) UnmarshalBSON(data []byte) error {
	m, err := decodeBSONMap(data)
	if err != nil {
		return err
	}
	c.Value = InferValue(m["value"])
	return nil
}

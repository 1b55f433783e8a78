package studiokit

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

const sourceFieldJSON = `{
	"type": "repeater",
	"name": "Slides",
	"label": "Hero slides",
	"default": [{"title": "One", "cta": {"url": "/go"}}],
	"config": {
		"fields": [
			{"type": "text", "name": "Title"},
			{"type": "select", "name": "Style", "config": {"options": ["light", {"label": "Dark", "value": "dark"}]}}
		],
		"max": 4
	}
}`

func TestSourceField_JSONRoundTrip(t *testing.T) {
	var field SourceField
	require.NoError(t, json.Unmarshal([]byte(sourceFieldJSON), &field))

	assert.Equal(t, "repeater", field.Type)
	assert.Equal(t, "Slides", field.Name)
	assert.Equal(t, "Hero slides", field.Extra["label"])
	require.NotNil(t, field.Config)
	require.Len(t, field.Config.Fields, 2)
	assert.Equal(t, float64(4), field.Config.Extra["max"])

	options := field.Config.Fields[1].Config.Options
	require.Len(t, options, 2)
	assert.Equal(t, "light", options[0].Plain())
	assert.Equal(t, map[string]any{"label": "Dark", "value": "dark"}, options[1].Plain())

	out, err := json.Marshal(field)
	require.NoError(t, err)
	assert.JSONEq(t, sourceFieldJSON, string(out))
}

func TestSourceField_RejectsNonStringName(t *testing.T) {
	var field SourceField
	err := json.Unmarshal([]byte(`{"type": "text", "name": 3}`), &field)
	assert.Error(t, err)
}

func TestDbField_BSONRoundTrip(t *testing.T) {
	field := DbField{
		ID:         "f-1",
		Type:       FieldTypeItems,
		Name:       "Slides",
		SourceType: "repeater",
		Value: Items{
			{ID: "i-1", Props: map[string]Value{"title": Text("One")}},
		},
		Config: &DbConfig{
			Fields: []DbField{{ID: "f-2", Type: FieldTypeText, Name: "Title", Value: Text("")}},
		},
	}

	data, err := bson.Marshal(field)
	require.NoError(t, err)

	var decoded DbField
	require.NoError(t, bson.Unmarshal(data, &decoded))
	assert.Equal(t, field.ID, decoded.ID)
	assert.Equal(t, field.SourceType, decoded.SourceType)
	assert.Equal(t, field.Value.Plain(), decoded.Value.Plain())
	require.Len(t, decoded.ItemFields(), 1)
	assert.Equal(t, "f-2", decoded.ItemFields()[0].ID)
	assert.Equal(t, "repeater", decoded.AuthoredType())
}

func TestDbField_UnfittingValueIsKept(t *testing.T) {
	var field DbField
	require.NoError(t, json.Unmarshal([]byte(`{"id": "f", "type": "items", "name": "Slides", "value": "oops"}`), &field))
	assert.Equal(t, Text("oops"), field.Value)

	require.NoError(t, json.Unmarshal([]byte(`{"id": "g", "type": "text", "name": "Lines", "value": {"en": "Hi"}}`), &field))
	assert.Equal(t, Group{"en": Text("Hi")}, field.Value)
}

func TestDbField_OmitsSourceTypeWhenSame(t *testing.T) {
	out, err := json.Marshal(DbField{ID: "f", Type: FieldTypeText, Name: "Title", SourceType: "text", Value: Text("x")})
	require.NoError(t, err)
	assert.JSONEq(t, `{"id": "f", "type": "text", "name": "Title", "value": "x"}`, string(out))
}

func TestFieldContent_Codecs(t *testing.T) {
	content := FieldContent{Value: Items{{ID: "a", Props: map[string]Value{"cta_label": Text("Go")}}}}

	j, err := json.Marshal(content)
	require.NoError(t, err)
	assert.JSONEq(t, `{"value": [{"id": "a", "cta_label": "Go"}]}`, string(j))

	b, err := bson.Marshal(content)
	require.NoError(t, err)
	var decoded FieldContent
	require.NoError(t, bson.Unmarshal(b, &decoded))
	assert.Equal(t, content.Value.Plain(), decoded.Value.Plain())
}

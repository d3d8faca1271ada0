package toolspec

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riskpilot/riskpilot/internal/schema"
)

func TestSynthesize_RequiredOptionalPartition(t *testing.T) {
	raw := json.RawMessage(`{
		"type": "object",
		"properties": {
			"age": {"type": "integer", "description": "Age in years"},
			"bmi": {"type": "number"}
		},
		"required": ["age"]
	}`)

	spec := Synthesize("score", "Scores a patient", raw)

	require.Len(t, spec.Args, 2)
	assert.False(t, spec.IsFallback())
	assert.Equal(t, []string{"age"}, spec.Required())
	assert.Equal(t, []string{"bmi"}, spec.Optional())

	age, ok := spec.Arg("age")
	require.True(t, ok)
	assert.Equal(t, TypeInteger, age.Type)
	assert.Equal(t, "Age in years", age.Description)

	bmi, ok := spec.Arg("bmi")
	require.True(t, ok)
	assert.Equal(t, TypeNumber, bmi.Type)
	assert.False(t, bmi.Required)
}

func TestSynthesize_TypeMapping(t *testing.T) {
	raw := json.RawMessage(`{"properties": {
		"s": {"type": "string"},
		"n": {"type": "number"},
		"i": {"type": "integer"},
		"b": {"type": "boolean"},
		"l": {"type": "array", "items": {"type": "integer"}},
		"o": {"type": "object"},
		"u": {"type": "date-time"},
		"m": {}
	}}`)

	spec := Synthesize("t", "", raw)

	want := map[string]ArgType{
		"s": TypeText, "n": TypeNumber, "i": TypeInteger, "b": TypeBoolean,
		"l": TypeList, "o": TypeObject, "u": TypeText, "m": TypeText,
	}
	for name, typ := range want {
		a, ok := spec.Arg(name)
		require.True(t, ok, name)
		assert.Equal(t, typ, a.Type, name)
	}
	l, _ := spec.Arg("l")
	assert.Equal(t, TypeInteger, l.Items)
	assert.Empty(t, spec.Required())
}

func TestSynthesize_NullableUnions(t *testing.T) {
	raw := json.RawMessage(`{"properties": {
		"a": {"anyOf": [{"type": "null"}, {"type": "integer"}]},
		"b": {"type": ["null", "boolean"]},
		"c": {"oneOf": [{"type": "number"}]}
	}}`)

	spec := Synthesize("t", "", raw)

	a, _ := spec.Arg("a")
	b, _ := spec.Arg("b")
	c, _ := spec.Arg("c")
	assert.Equal(t, TypeInteger, a.Type)
	assert.Equal(t, TypeBoolean, b.Type)
	assert.Equal(t, TypeNumber, c.Type)
}

func TestSynthesize_FallbackToPayload(t *testing.T) {
	cases := map[string]json.RawMessage{
		"nil":           nil,
		"empty":         json.RawMessage(``),
		"not json":      json.RawMessage(`{oops`),
		"array":         json.RawMessage(`[1,2]`),
		"string":        json.RawMessage(`"object"`),
		"null":          json.RawMessage(`null`),
		"no properties": json.RawMessage(`{"type":"object"}`),
		"empty props":   json.RawMessage(`{"type":"object","properties":{}}`),
		"bad props":     json.RawMessage(`{"properties":[1]}`),
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			spec := Synthesize("t", "d", raw)
			require.Len(t, spec.Args, 1)
			assert.True(t, spec.IsFallback())
			assert.Equal(t, PayloadField, spec.Args[0].Name)
			assert.Equal(t, TypeObject, spec.Args[0].Type)
			assert.True(t, spec.Args[0].Required)
		})
	}
}

func TestSynthesize_Deterministic(t *testing.T) {
	raw := json.RawMessage(`{"properties":{"z":{"type":"string"},"a":{"type":"number"},"m":{"type":"boolean"}},"required":["m","z"]}`)
	first := Synthesize("t", "", raw)
	for i := 0; i < 20; i++ {
		assert.Equal(t, first, Synthesize("t", "", raw))
	}
	assert.Equal(t, "a", first.Args[0].Name)
	assert.Equal(t, []string{"m", "z"}, first.Required())
}

func TestSynthesize_RequiredUnknownPropertyIgnored(t *testing.T) {
	raw := json.RawMessage(`{"properties":{"x":{"type":"string"}},"required":["x","ghost"]}`)
	spec := Synthesize("t", "", raw)
	assert.Equal(t, []string{"x"}, spec.Required())
	_, ok := spec.Arg("ghost")
	assert.False(t, ok)
}

func TestArgumentSpec_JSONSchemaRoundTrip(t *testing.T) {
	raw := json.RawMessage(`{"properties":{"age":{"type":"integer"},"tags":{"type":"array"}},"required":["age"]}`)
	spec := Synthesize("t", "desc", raw)

	def := spec.Definition("t_bound")
	assert.Equal(t, "t_bound", def.Name)
	assert.Equal(t, "desc", def.Description)
	assert.Equal(t, []string{"age"}, def.Required())

	tags, _ := def.Properties()["tags"].(map[string]any)
	require.NotNil(t, tags)
	assert.Equal(t, "array", tags["type"])
	assert.Equal(t, map[string]any{"type": "string"}, tags["items"])

	data, err := json.Marshal(def.Parameters)
	require.NoError(t, err)
	again := Synthesize("t", "desc", data)
	assert.Equal(t, spec.Required(), again.Required())
	assert.Equal(t, spec.Optional(), again.Optional())
}

func TestFromDescriptor(t *testing.T) {
	spec := FromDescriptor(schema.ToolDescriptor{
		Name:        "Get Diabetes Score",
		Description: "Diabetes risk",
		InputSchema: json.RawMessage(`{"properties":{"patient_data":{"type":"object"}},"required":["patient_data"]}`),
	})
	assert.Equal(t, "Get Diabetes Score", spec.Tool)
	assert.Equal(t, []string{"patient_data"}, spec.Required())
}

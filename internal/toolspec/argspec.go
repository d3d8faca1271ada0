// Package toolspec turns remote tool parameter schemas into typed argument
// specifications that can be bound to a language model.
//
// Synthesis never fails: a schema that is absent, malformed or declares no
// properties degrades to a single free-form object argument named payload,
// so every discovered tool stays callable.
package toolspec

import (
	"encoding/json"
	"sort"

	"github.com/riskpilot/riskpilot/internal/schema"
)

// ArgType is the type tag of one argument.
type ArgType string

const (
	TypeText    ArgType = "text"
	TypeNumber  ArgType = "number"
	TypeInteger ArgType = "integer"
	TypeBoolean ArgType = "boolean"
	TypeList    ArgType = "list"
	TypeObject  ArgType = "object"
)

// PayloadField is the single argument of a degenerate spec.
const PayloadField = "payload"

var jsonToArgType = map[string]ArgType{
	"string":  TypeText,
	"number":  TypeNumber,
	"integer": TypeInteger,
	"boolean": TypeBoolean,
	"array":   TypeList,
	"object":  TypeObject,
}

// ParseArgType maps a JSON Schema type name to an ArgType; unknown or empty
// names map to TypeText.
func ParseArgType(jsonType string) ArgType {
	if t, ok := jsonToArgType[jsonType]; ok {
		return t
	}
	return TypeText
}

// JSONType returns the JSON Schema type name for t.
func (t ArgType) JSONType() string {
	switch t {
	case TypeNumber:
		return "number"
	case TypeInteger:
		return "integer"
	case TypeBoolean:
		return "boolean"
	case TypeList:
		return "array"
	case TypeObject:
		return "object"
	}
	return "string"
}

// Argument is one named parameter of a tool.
type Argument struct {
	Name        string
	Type        ArgType
	Required    bool
	Description string
	// Items is the element type of a list argument.
	Items ArgType
}

// ArgumentSpec is the derived, immutable argument specification of one tool.
// Args are sorted by name.
type ArgumentSpec struct {
	Tool        string
	Description string
	Args        []Argument
	fallback    bool
}

// IsFallback reports whether the spec degraded to the free-form payload.
func (s ArgumentSpec) IsFallback() bool { return s.fallback }

// Arg returns the argument named name.
func (s ArgumentSpec) Arg(name string) (Argument, bool) {
	for _, a := range s.Args {
		if a.Name == name {
			return a, true
		}
	}
	return Argument{}, false
}

// Required returns the names of required arguments in spec order.
func (s ArgumentSpec) Required() []string {
	var out []string
	for _, a := range s.Args {
		if a.Required {
			out = append(out, a.Name)
		}
	}
	return out
}

// Optional returns the names of optional arguments in spec order.
func (s ArgumentSpec) Optional() []string {
	var out []string
	for _, a := range s.Args {
		if !a.Required {
			out = append(out, a.Name)
		}
	}
	return out
}

// JSONSchema renders the spec as a JSON Schema object.
func (s ArgumentSpec) JSONSchema() map[string]any {
	props := make(map[string]any, len(s.Args))
	required := make([]string, 0, len(s.Args))
	for _, a := range s.Args {
		p := map[string]any{"type": a.Type.JSONType()}
		if a.Description != "" {
			p["description"] = a.Description
		}
		if a.Type == TypeList {
			items := a.Items
			if items == "" {
				items = TypeText
			}
			p["items"] = map[string]any{"type": items.JSONType()}
		}
		props[a.Name] = p
		if a.Required {
			required = append(required, a.Name)
		}
	}
	return map[string]any{
		"type":       "object",
		"properties": props,
		"required":   required,
	}
}

// Definition binds the spec to a model under bindingName.
func (s ArgumentSpec) Definition(bindingName string) schema.ToolDefinition {
	return schema.ToolDefinition{
		Name:        bindingName,
		Description: s.Description,
		Parameters:  s.JSONSchema(),
	}
}

// FromDescriptor synthesizes the spec of a registry tool.
func FromDescriptor(d schema.ToolDescriptor) ArgumentSpec {
	return Synthesize(d.Name, d.Description, d.InputSchema)
}

// Synthesize converts a raw JSON Schema into an ArgumentSpec. It is pure and
// deterministic and never fails.
func Synthesize(name, description string, raw json.RawMessage) ArgumentSpec {
	spec := ArgumentSpec{Tool: name, Description: description}

	var root map[string]any
	if len(raw) == 0 || json.Unmarshal(raw, &root) != nil || root == nil {
		return withPayload(spec)
	}
	props, _ := root["properties"].(map[string]any)
	if len(props) == 0 {
		return withPayload(spec)
	}

	required := map[string]bool{}
	if list, ok := root["required"].([]any); ok {
		for _, r := range list {
			if s, ok := r.(string); ok {
				required[s] = true
			}
		}
	}

	names := make([]string, 0, len(props))
	for n := range props {
		names = append(names, n)
	}
	sort.Strings(names)

	for _, n := range names {
		prop, _ := props[n].(map[string]any)
		arg := Argument{
			Name:     n,
			Type:     ParseArgType(propType(prop)),
			Required: required[n],
		}
		if prop != nil {
			arg.Description, _ = prop["description"].(string)
			if arg.Type == TypeList {
				items, _ := prop["items"].(map[string]any)
				arg.Items = ParseArgType(propType(items))
			}
		}
		spec.Args = append(spec.Args, arg)
	}
	return spec
}

func withPayload(spec ArgumentSpec) ArgumentSpec {
	spec.Args = []Argument{{
		Name:        PayloadField,
		Type:        TypeObject,
		Required:    true,
		Description: "Free-form payload",
	}}
	spec.fallback = true
	return spec
}

// propType returns the JSON type name declared by a property schema.
// Nullable unions ("type": ["integer", "null"] or anyOf/oneOf with a null
// member) resolve to their first non-null member.
func propType(prop map[string]any) string {
	if prop == nil {
		return ""
	}
	switch t := prop["type"].(type) {
	case string:
		return t
	case []any:
		for _, v := range t {
			if s, ok := v.(string); ok && s != "null" {
				return s
			}
		}
	}
	for _, key := range []string{"anyOf", "oneOf"} {
		alts, _ := prop[key].([]any)
		for _, alt := range alts {
			m, _ := alt.(map[string]any)
			if t := propType(m); t != "" && t != "null" {
				return t
			}
		}
	}
	return ""
}

package schema

import "encoding/json"

// ToolDescriptor describes one remotely invocable capability as advertised by
// the tool registry. Descriptors are immutable once listed.
type ToolDescriptor struct {
	Name        string
	Description string
	// InputSchema is the raw JSON Schema of the tool's parameters. It may be
	// empty or malformed; consumers must not assume it parses.
	InputSchema json.RawMessage
	// Server is the registry server that owns the tool.
	Server string
}

// ToolDefinition is a tool as bound to a language model: a provider-safe name,
// a description and a JSON Schema object for the arguments.
type ToolDefinition struct {
	Name        string
	Description string
	Parameters  map[string]any
}

// WireMap returns the definition in OpenAI function-calling format.
func (d ToolDefinition) WireMap() map[string]any {
	return map[string]any{
		"type": "function",
		"function": map[string]any{
			"name":        d.Name,
			"description": d.Description,
			"parameters":  d.Parameters,
		},
	}
}

// Properties returns the "properties" object of the parameter schema.
func (d ToolDefinition) Properties() map[string]any {
	props, _ := d.Parameters["properties"].(map[string]any)
	if props == nil {
		props = map[string]any{}
	}
	return props
}

// Required returns the "required" list of the parameter schema.
func (d ToolDefinition) Required() []string {
	switch req := d.Parameters["required"].(type) {
	case []string:
		return req
	case []any:
		out := make([]string, 0, len(req))
		for _, r := range req {
			if s, ok := r.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

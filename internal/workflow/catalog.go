package workflow

import (
	_ "embed"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/riskpilot/riskpilot/internal/toolspec"
)

//go:embed models.yaml
var defaultModels []byte

// Param is one declared input of a risk model.
type Param struct {
	Name        string           `yaml:"name"`
	Type        toolspec.ArgType `yaml:"type"`
	Description string           `yaml:"description"`
}

// Model is one risk-scoring model the workflow can execute.
type Model struct {
	// Intent is the extraction tool name the language model calls.
	Intent  string `yaml:"intent"`
	Display string `yaml:"display"`
	// Tool is the remote tool that scores the patient.
	Tool string `yaml:"tool"`
	// Argument wraps the extracted data under one key when set.
	Argument    string  `yaml:"argument"`
	Description string  `yaml:"description"`
	Params      []Param `yaml:"params"`
}

// Required returns the declared parameter names in catalogue order.
func (m Model) Required() []string {
	out := make([]string, len(m.Params))
	for i, p := range m.Params {
		out[i] = p.Name
	}
	return out
}

// Param returns the declared parameter named name.
func (m Model) Param(name string) (Param, bool) {
	for _, p := range m.Params {
		if p.Name == name {
			return p, true
		}
	}
	return Param{}, false
}

// ExtractionSpec is the argument spec bound to the model during intent
// analysis. Every parameter is optional so partial data still comes back.
func (m Model) ExtractionSpec() toolspec.ArgumentSpec {
	props := make(map[string]any, len(m.Params))
	for _, p := range m.Params {
		props[p.Name] = map[string]any{
			"type":        p.Type.JSONType(),
			"description": p.Description,
		}
	}
	raw, _ := json.Marshal(map[string]any{
		"type":       "object",
		"properties": props,
	})
	return toolspec.Synthesize(m.Intent, m.Description, raw)
}

// Catalog is the ordered set of risk models.
type Catalog struct {
	models []Model
}

// DefaultCatalog returns the embedded catalogue.
func DefaultCatalog() *Catalog {
	c, err := ParseCatalog(defaultModels)
	if err != nil {
		panic(fmt.Sprintf("embedded model catalogue: %v", err))
	}
	return c
}

// ParseCatalog decodes a YAML catalogue and validates it.
func ParseCatalog(data []byte) (*Catalog, error) {
	var doc struct {
		Models []Model `yaml:"models"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse catalogue: %w", err)
	}
	if len(doc.Models) == 0 {
		return nil, fmt.Errorf("catalogue declares no models")
	}

	seen := map[string]bool{}
	for i := range doc.Models {
		m := &doc.Models[i]
		if m.Intent == "" || m.Tool == "" {
			return nil, fmt.Errorf("model %d: intent and tool are required", i)
		}
		if seen[m.Intent] {
			return nil, fmt.Errorf("model %q declared twice", m.Intent)
		}
		seen[m.Intent] = true
		if len(m.Params) == 0 {
			return nil, fmt.Errorf("model %q declares no params", m.Intent)
		}
		if m.Display == "" {
			m.Display = m.Intent
		}
		// Unknown type tags fall back to text.
		for j := range m.Params {
			m.Params[j].Type = toolspec.ParseArgType(m.Params[j].Type.JSONType())
		}
	}
	return &Catalog{models: doc.Models}, nil
}

// Models returns the models in catalogue order.
func (c *Catalog) Models() []Model {
	out := make([]Model, len(c.models))
	copy(out, c.models)
	return out
}

// Lookup returns the model with the given intent.
func (c *Catalog) Lookup(intent string) (Model, bool) {
	for _, m := range c.models {
		if m.Intent == intent {
			return m, true
		}
	}
	return Model{}, false
}

package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/riskpilot/riskpilot/internal/schema"
)

func TestCoerceArgs(t *testing.T) {
	d, _ := DefaultCatalog().Lookup("predict_diabetes")
	got := coerceArgs(d, map[string]any{
		"age":             "45",
		"gender":          " Female ",
		"hypertension":    "true",
		"heart_disease":   0.0,
		"smoking_history": nil,
		"bmi":             "not measured",
		"HbA1c_level":     "",
		"glucose":         140.0,
	})

	assert.Equal(t, map[string]any{
		"age":           45.0,
		"gender":        "Female",
		"hypertension":  1,
		"heart_disease": 0,
	}, got)
}

func TestCoerceArgs_RejectsNonFiniteAndFractional(t *testing.T) {
	h, _ := DefaultCatalog().Lookup("predict_hypertension")
	got := coerceArgs(h, map[string]any{
		"age":         "52",
		"height":      "NaN",
		"weight":      "+Inf",
		"ap_hi":       140.0,
		"ap_lo":       "85.5",
		"cholesterol": 1.7,
		"gluc":        1e20,
		"smoke":       "false",
	})

	assert.Equal(t, map[string]any{"age": 52, "ap_hi": 140, "smoke": 0}, got)
	assert.Equal(t, []string{"gender", "height", "weight", "ap_lo", "cholesterol", "gluc", "alco", "active"},
		Missing(h.Required(), got))
}

func TestRiskScore(t *testing.T) {
	cases := []struct {
		name  string
		res   schema.ToolResult
		want  float64
		valid bool
	}{
		{"bare number", schema.StructuredResult(0.42), 0.42, true},
		{"numeric text", schema.TextResult(" 0.73\n"), 0.73, true},
		{"risk_score", schema.StructuredResult(map[string]any{"risk_score": 0.61, "explanation": "x"}), 0.61, true},
		{"probability", schema.StructuredResult(map[string]any{"probability": "0.2"}), 0.2, true},
		{"prediction_probability", schema.StructuredResult(map[string]any{"prediction_probability": 1.0}), 1, true},
		{"wrapped result", schema.StructuredResult(map[string]any{"result": 0.5}), 0.5, true},
		{"boundary zero", schema.StructuredResult(0.0), 0, true},
		{"above one", schema.StructuredResult(1.5), 0, false},
		{"negative", schema.StructuredResult(map[string]any{"score": -0.1}), 0, false},
		{"no score key", schema.StructuredResult(map[string]any{"label": "high"}), 0, false},
		{"prose", schema.TextResult("risk is high"), 0, false},
		{"bool", schema.StructuredResult(true), 0, false},
		{"error", schema.ErrorResult("boom"), 0, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := riskScore(tc.res)
			assert.Equal(t, tc.valid, ok)
			assert.InDelta(t, tc.want, got, 1e-9)
		})
	}
}

package workflow

import (
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/spf13/cast"

	"github.com/riskpilot/riskpilot/internal/schema"
	"github.com/riskpilot/riskpilot/internal/toolspec"
)

// coerceArgs keeps the declared, non-empty arguments of an extraction call
// and converts each to its declared type. Values that cannot be converted
// are dropped so the parameter is reported as missing.
func coerceArgs(m Model, args map[string]any) map[string]any {
	out := make(map[string]any, len(args))
	for name, v := range args {
		p, ok := m.Param(name)
		if !ok {
			slog.Debug("Dropping undeclared argument", "intent", m.Intent, "name", name)
			continue
		}
		if isEmpty(v) {
			continue
		}
		cv, err := coerce(p.Type, v)
		if err != nil {
			slog.Debug("Dropping argument", "intent", m.Intent, "name", name, "err", err)
			continue
		}
		out[name] = cv
	}
	return out
}

func coerce(t toolspec.ArgType, v any) (any, error) {
	switch t {
	case toolspec.TypeNumber:
		f, err := cast.ToFloat64E(trimString(v))
		if err != nil {
			return nil, err
		}
		return finite(f)
	case toolspec.TypeInteger:
		f, err := cast.ToFloat64E(trimString(v))
		if err != nil {
			return flag(v, err)
		}
		return integral(f)
	case toolspec.TypeBoolean:
		return cast.ToBoolE(trimString(v))
	case toolspec.TypeText:
		s, err := cast.ToStringE(v)
		return strings.TrimSpace(s), err
	}
	return v, nil
}

func finite(f float64) (float64, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%v is not a finite number", f)
	}
	return f, nil
}

func integral(f float64) (int, error) {
	if _, err := finite(f); err != nil {
		return 0, err
	}
	if f != math.Trunc(f) {
		return 0, fmt.Errorf("%v is not a whole number", f)
	}
	if f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, fmt.Errorf("%v is out of range", f)
	}
	return int(f), nil
}

// flag accepts "true"/"false" style answers for 0/1 parameters.
func flag(v any, numErr error) (int, error) {
	b, err := cast.ToBoolE(trimString(v))
	if err != nil {
		return 0, numErr
	}
	if b {
		return 1, nil
	}
	return 0, nil
}

func trimString(v any) any {
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s)
	}
	return v
}

func isEmpty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		s := strings.TrimSpace(t)
		return s == "" || strings.EqualFold(s, "null") || strings.EqualFold(s, "none")
	}
	return false
}

// scoreKeys are the fields a structured tool result may carry the
// probability in, in lookup order.
var scoreKeys = []string{"risk_score", "probability", "prediction_probability", "score", "result"}

// riskScore pulls a probability out of a risk tool result. A result that
// carries no number in [0, 1] yields false.
func riskScore(res schema.ToolResult) (float64, bool) {
	switch res.Kind() {
	case schema.ResultStructured:
		return scoreOf(res.Value())
	case schema.ResultText:
		return scoreOf(res.Text())
	}
	return 0, false
}

func scoreOf(v any) (float64, bool) {
	switch t := v.(type) {
	case map[string]any:
		for _, k := range scoreKeys {
			if inner, ok := t[k]; ok {
				return scoreOf(inner)
			}
		}
		return 0, false
	case bool, nil:
		return 0, false
	}
	f, err := cast.ToFloat64E(trimString(v))
	if err != nil || math.IsNaN(f) || f < 0 || f > 1 {
		return 0, false
	}
	return f, true
}

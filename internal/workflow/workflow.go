// Package workflow implements the risk-assessment state machine: intent and
// parameter extraction, completeness validation, one risk-model execution
// and a clinical report pass.
package workflow

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/riskpilot/riskpilot/internal/schema"
	"github.com/riskpilot/riskpilot/internal/shared/llmutils"
)

// State names one node of the workflow graph.
type State string

const (
	StateAnalyzeIntent    State = "analyze_intent"
	StateValidateData     State = "validate_data"
	StateExecuteModel     State = "execute_model"
	StateClinicalAnalyzer State = "clinical_analyzer"
	StateAskUser          State = "ask_user"
	StateEnd              State = "end"
)

const (
	msgNoIntent = "I was unable to determine the intent. Please be more specific."
	msgNoResult = "Missing model result or extracted data. Cannot generate report."
	msgNoReport = "I could not produce a report for this result."
)

const analyzePrompt = `You are an expert medical assistant. Read the conversation and:
1. Determine the primary intent: one of %s.
2. Extract every parameter value the user has given so far, across all of their messages.

Call exactly one tool, the one matching the intent, with the values you found. Leave out parameters the user has not provided. Never guess values.`

// Invoker runs a remote tool by name.
type Invoker interface {
	Invoke(ctx context.Context, name string, args map[string]any) schema.ToolResult
}

// Engine runs the workflow once per user turn.
type Engine struct {
	provider schema.LLMProvider
	invoker  Invoker
	catalog  *Catalog
	settings schema.AgentSettings
}

var _ schema.Engine = (*Engine)(nil)

func New(provider schema.LLMProvider, invoker Invoker, catalog *Catalog, settings schema.AgentSettings) *Engine {
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	return &Engine{
		provider: provider,
		invoker:  invoker,
		catalog:  catalog,
		settings: settings,
	}
}

// Catalog returns the models the engine can run.
func (e *Engine) Catalog() *Catalog { return e.catalog }

// run is the state of one workflow execution. It lives for a single turn.
type run struct {
	history  schema.History
	intent   string
	model    Model
	required []string
	data     map[string]any
	result   *schema.ModelResult
	reply    string
	trace    []string
}

func (r *run) snapshot() *schema.WorkflowSnapshot {
	return &schema.WorkflowSnapshot{
		Intent:         r.intent,
		RequiredParams: r.required,
		ExtractedData:  r.data,
		ModelResult:    r.result,
		Trace:          r.trace,
	}
}

// Process implements schema.Engine. The returned history holds the user
// message and the final reply; model errors abort the turn.
func (e *Engine) Process(ctx context.Context, history schema.History, text string) (schema.TurnResult, error) {
	r := &run{
		history: history.Append(schema.NewUserMessage(text)),
		data:    map[string]any{},
	}

	state := StateAnalyzeIntent
	for state != StateEnd {
		r.trace = append(r.trace, string(state))
		slog.Debug("Workflow state", "state", state, "intent", r.intent)

		var err error
		switch state {
		case StateAnalyzeIntent:
			if err = e.analyzeIntent(ctx, r); err == nil {
				state = StateValidateData
			}
		case StateValidateData:
			state = Route(r.intent, r.required, r.data)
		case StateAskUser:
			r.reply = AskUserMessage(r.model.Display, r.intent, Missing(r.required, r.data))
			state = StateEnd
		case StateExecuteModel:
			e.executeModel(ctx, r)
			state = StateClinicalAnalyzer
		case StateClinicalAnalyzer:
			if err = e.clinicalAnalyzer(ctx, r); err == nil {
				state = StateEnd
			}
		default:
			err = fmt.Errorf("unknown workflow state %q", state)
		}
		if err != nil {
			return schema.TurnResult{}, fmt.Errorf("%s: %w", state, err)
		}
	}

	slog.Info("Workflow finished", "intent", r.intent, "path", strings.Join(r.trace, " > "))
	return schema.TurnResult{
		Reply:    r.reply,
		History:  r.history.Append(schema.NewAssistantMessage(r.reply, nil)),
		Workflow: r.snapshot(),
	}, nil
}

// analyzeIntent asks the model to pick a risk model and extract its
// parameters. The first call naming a known model wins.
func (e *Engine) analyzeIntent(ctx context.Context, r *run) error {
	models := e.catalog.Models()
	defs := make([]schema.ToolDefinition, 0, len(models))
	intents := make([]string, 0, len(models))
	for _, m := range models {
		defs = append(defs, m.ExtractionSpec().Definition(m.Intent))
		intents = append(intents, "'"+m.Intent+"'")
	}

	system := schema.NewSystemMessage(fmt.Sprintf(analyzePrompt, strings.Join(intents, " or ")))
	msgs := r.history.Conversational().Prepend(system)

	resp, err := e.provider.Chat(ctx, msgs, defs, e.settings.ChatOptions())
	if err != nil {
		return err
	}

	for _, tc := range resp.ToolCalls {
		m, ok := e.catalog.Lookup(tc.Name)
		if !ok {
			slog.Warn("Ignoring unknown extraction call", "name", tc.Name)
			continue
		}
		if r.intent != "" {
			slog.Warn("Ignoring extra extraction call", "name", tc.Name, "intent", r.intent)
			continue
		}
		r.intent = m.Intent
		r.model = m
		r.required = m.Required()
		r.data = coerceArgs(m, tc.Arguments)
	}
	if r.intent == "" {
		slog.Info("No intent recognised", "tool_calls", len(resp.ToolCalls))
	}
	return nil
}

// Route is the validation step: with no intent or missing parameters the
// workflow asks the user, otherwise it executes the model.
func Route(intent string, required []string, data map[string]any) State {
	if intent == "" {
		return StateAskUser
	}
	if len(Missing(required, data)) > 0 {
		return StateAskUser
	}
	return StateExecuteModel
}

// Missing returns the required names absent from data, in required order.
func Missing(required []string, data map[string]any) []string {
	var out []string
	seen := map[string]bool{}
	for _, name := range required {
		if seen[name] {
			continue
		}
		seen[name] = true
		if _, ok := data[name]; !ok {
			out = append(out, name)
		}
	}
	return out
}

// AskUserMessage is the clarification sent when the workflow cannot run.
func AskUserMessage(display, intent string, missing []string) string {
	if intent == "" {
		return msgNoIntent
	}
	return fmt.Sprintf("The following parameters are missing for the %s model: **%s**. Please provide them to proceed.",
		llmutils.StringOrDefault(display, intent), strings.Join(missing, ", "))
}

// executeModel runs the risk tool for the chosen model. A failed call or an
// unusable score leaves the result empty.
func (e *Engine) executeModel(ctx context.Context, r *run) {
	args := r.data
	if r.model.Argument != "" {
		args = map[string]any{r.model.Argument: r.data}
	}

	res := e.invoker.Invoke(ctx, r.model.Tool, args)
	if res.IsError() {
		slog.Warn("Risk model failed", "tool", r.model.Tool, "err", res.Err())
		return
	}
	score, ok := riskScore(res)
	if !ok {
		slog.Warn("Risk model returned no usable score", "tool", r.model.Tool, "result", llmutils.Truncate(res.String(), 200))
		return
	}

	report := res.Value()
	if report == nil {
		report = res.Text()
	}
	r.result = &schema.ModelResult{
		Disease:    r.model.Display,
		RiskScore:  score,
		FullReport: report,
	}
	slog.Info("Risk model scored", "tool", r.model.Tool, "score", score, "high_risk", r.result.HighRisk())
}

// clinicalAnalyzer writes the final report with a single tool-free pass.
func (e *Engine) clinicalAnalyzer(ctx context.Context, r *run) error {
	if r.result == nil {
		r.reply = msgNoResult
		return nil
	}

	prompt := schema.NewHistory(schema.NewUserMessage(reportPrompt(r.data, *r.result)))
	opts := e.settings.ChatOptions().WithModel(e.settings.ReportModel).WithoutTools()
	resp, err := e.provider.Chat(ctx, prompt, nil, opts)
	if err != nil {
		return err
	}
	if resp.HasToolCalls() {
		slog.Warn("Ignoring tool calls requested in the report pass", "count", len(resp.ToolCalls))
	}
	r.reply = llmutils.StringOrDefault(resp.Content, msgNoReport)
	return nil
}

// Close releases the tool connection when the engine owns it.
func (e *Engine) Close() error {
	if c, ok := e.invoker.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

package schema

import (
	"encoding/json"
	"fmt"
)

// ResultKind tags the populated variant of a ToolResult.
type ResultKind int

const (
	ResultStructured ResultKind = iota + 1
	ResultText
	ResultError
)

func (k ResultKind) String() string {
	switch k {
	case ResultStructured:
		return "structured"
	case ResultText:
		return "text"
	case ResultError:
		return "error"
	}
	return "unknown"
}

// ToolResult is the normalised outcome of one tool invocation. Exactly one
// variant is populated; construct values with StructuredResult, TextResult or
// ErrorResult.
type ToolResult struct {
	kind  ResultKind
	value any
	text  string
}

// StructuredResult wraps a decoded JSON value.
func StructuredResult(v any) ToolResult {
	return ToolResult{kind: ResultStructured, value: v}
}

// TextResult wraps plain text content.
func TextResult(s string) ToolResult {
	return ToolResult{kind: ResultText, text: s}
}

// ErrorResult wraps a human-readable failure message.
func ErrorResult(msg string) ToolResult {
	return ToolResult{kind: ResultError, text: msg}
}

// ErrorResultf is ErrorResult with fmt.Sprintf formatting.
func ErrorResultf(format string, args ...any) ToolResult {
	return ErrorResult(fmt.Sprintf(format, args...))
}

func (r ToolResult) Kind() ResultKind { return r.kind }

func (r ToolResult) IsError() bool { return r.kind == ResultError }

// Value returns the structured payload, or nil for other variants.
func (r ToolResult) Value() any {
	if r.kind != ResultStructured {
		return nil
	}
	return r.value
}

// Text returns the text payload, or "" for other variants.
func (r ToolResult) Text() string {
	if r.kind != ResultText {
		return ""
	}
	return r.text
}

// Err returns the error message, or "" for other variants.
func (r ToolResult) Err() string {
	if r.kind != ResultError {
		return ""
	}
	return r.text
}

// String renders the populated variant as the text a model sees.
// Structured values are rendered as compact JSON.
func (r ToolResult) String() string {
	switch r.kind {
	case ResultStructured:
		if s, ok := r.value.(string); ok {
			return s
		}
		data, err := json.Marshal(r.value)
		if err != nil {
			return fmt.Sprint(r.value)
		}
		return string(data)
	case ResultText, ResultError:
		return r.text
	}
	return ""
}

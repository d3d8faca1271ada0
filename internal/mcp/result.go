package mcp

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/riskpilot/riskpilot/internal/schema"
)

const noOutput = "(no output)"

// wireResult is the subset of a tools/call result the gateway reads.
type wireResult struct {
	Content           []wireContent   `json:"content"`
	StructuredContent json.RawMessage `json:"structuredContent"`
	IsError           bool            `json:"isError"`
}

type wireContent struct {
	Type     string `json:"type"`
	Text     string `json:"text"`
	Resource *struct {
		Text string `json:"text"`
	} `json:"resource"`
}

// normalize reduces a tools/call result to a ToolResult.
func normalize(res *mcp.CallToolResult) schema.ToolResult {
	if res == nil {
		return schema.TextResult(noOutput)
	}
	data, err := json.Marshal(res)
	if err != nil {
		return schema.ErrorResultf("decode tool result: %v", err)
	}
	return normalizeJSON(data)
}

// normalizeJSON applies the result preference order: tool-reported error,
// structured content, the first content block that decodes as JSON, then all
// text blocks joined by a blank line.
func normalizeJSON(data []byte) schema.ToolResult {
	var w wireResult
	if err := json.Unmarshal(data, &w); err != nil {
		return schema.ErrorResultf("decode tool result: %v", err)
	}

	texts := w.texts()

	if w.IsError {
		msg := strings.Join(texts, "\n\n")
		if msg == "" {
			msg = "tool reported an error"
		}
		return schema.ErrorResult(msg)
	}

	if sc := bytes.TrimSpace(w.StructuredContent); len(sc) > 0 && !bytes.Equal(sc, []byte("null")) {
		var v any
		if json.Unmarshal(sc, &v) == nil {
			return schema.StructuredResult(v)
		}
	}

	for _, t := range texts {
		if v, ok := decodeBlock(t); ok {
			return schema.StructuredResult(v)
		}
	}

	if len(texts) == 0 {
		return schema.TextResult(noOutput)
	}
	return schema.TextResult(strings.Join(texts, "\n\n"))
}

func (w wireResult) texts() []string {
	var out []string
	for _, c := range w.Content {
		switch {
		case c.Type == "text":
			out = append(out, c.Text)
		case c.Type == "resource" && c.Resource != nil && c.Resource.Text != "":
			out = append(out, c.Resource.Text)
		}
	}
	return out
}

// decodeBlock decodes a text block holding a JSON object or array.
func decodeBlock(s string) (any, bool) {
	s = strings.TrimSpace(s)
	if s == "" || (s[0] != '{' && s[0] != '[') {
		return nil, false
	}
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return nil, false
	}
	return v, true
}

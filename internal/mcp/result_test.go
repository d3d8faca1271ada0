package mcp

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/riskpilot/riskpilot/internal/schema"
)

func TestNormalizeJSON(t *testing.T) {
	cases := []struct {
		name string
		in   string
		kind schema.ResultKind
		want string
	}{
		{
			name: "structured content wins over text",
			in:   `{"content":[{"type":"text","text":"ignored"}],"structuredContent":{"risk_score":0.8}}`,
			kind: schema.ResultStructured,
			want: `{"risk_score":0.8}`,
		},
		{
			name: "json text block",
			in:   `{"content":[{"type":"text","text":" [1, 2] "}]}`,
			kind: schema.ResultStructured,
			want: `[1,2]`,
		},
		{
			name: "bare number stays text",
			in:   `{"content":[{"type":"text","text":"0.73"}]}`,
			kind: schema.ResultText,
			want: "0.73",
		},
		{
			name: "text blocks joined in order",
			in:   `{"content":[{"type":"text","text":"a"},{"type":"image","data":"xx"},{"type":"text","text":"b"}]}`,
			kind: schema.ResultText,
			want: "a\n\nb",
		},
		{
			name: "embedded resource text",
			in:   `{"content":[{"type":"resource","resource":{"uri":"x","text":"doc"}}]}`,
			kind: schema.ResultText,
			want: "doc",
		},
		{
			name: "empty content",
			in:   `{"content":[]}`,
			kind: schema.ResultText,
			want: noOutput,
		},
		{
			name: "null structured content ignored",
			in:   `{"content":[{"type":"text","text":"plain"}],"structuredContent":null}`,
			kind: schema.ResultText,
			want: "plain",
		},
		{
			name: "tool error",
			in:   `{"content":[{"type":"text","text":"bad input"}],"isError":true}`,
			kind: schema.ResultError,
			want: "bad input",
		},
		{
			name: "tool error without text",
			in:   `{"isError":true}`,
			kind: schema.ResultError,
			want: "tool reported an error",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := normalizeJSON([]byte(tc.in))
			assert.Equal(t, tc.kind, got.Kind())
			assert.Equal(t, tc.want, got.String())
		})
	}
}

func TestNormalize_Nil(t *testing.T) {
	assert.Equal(t, noOutput, normalize(nil).Text())
}

func TestNormalize_TextContent(t *testing.T) {
	got := normalize(textResult("hello"))
	assert.Equal(t, schema.ResultText, got.Kind())
	assert.Equal(t, "hello", got.Text())
}

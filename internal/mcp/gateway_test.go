package mcp

import (
	"context"
	"errors"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riskpilot/riskpilot/internal/schema"
)

type fakeSession struct {
	tools   []mcp.Tool
	listErr error
	results map[string]*mcp.CallToolResult
	errs    map[string]error
	calls   []mcp.CallToolRequest
	lists   int
	closed  bool
}

func (f *fakeSession) ListTools(_ context.Context, _ mcp.ListToolsRequest) (*mcp.ListToolsResult, error) {
	f.lists++
	if f.listErr != nil {
		return nil, f.listErr
	}
	return &mcp.ListToolsResult{Tools: f.tools}, nil
}

func (f *fakeSession) CallTool(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	f.calls = append(f.calls, req)
	if err := f.errs[req.Params.Name]; err != nil {
		return nil, err
	}
	return f.results[req.Params.Name], nil
}

func (f *fakeSession) Close() error {
	f.closed = true
	return nil
}

func textResult(texts ...string) *mcp.CallToolResult {
	res := &mcp.CallToolResult{}
	for _, t := range texts {
		res.Content = append(res.Content, mcp.NewTextContent(t))
	}
	return res
}

func newTestGateway(sessions map[string]*fakeSession) (*Gateway, *int) {
	opened := 0
	servers := map[string]ServerConfig{}
	for name := range sessions {
		servers[name] = ServerConfig{URL: "http://" + name}
	}
	g := newGateway(servers, func(_ context.Context, name string, _ ServerConfig) (Session, error) {
		opened++
		s, ok := sessions[name]
		if !ok {
			return nil, errors.New("refused")
		}
		return s, nil
	})
	return g, &opened
}

func TestGateway_ListToolsCachesDescriptors(t *testing.T) {
	sess := &fakeSession{tools: []mcp.Tool{{
		Name:        "Get Diabetes Score",
		Description: "diabetes",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]any{"patient_data": map[string]any{"type": "object"}},
			Required:   []string{"patient_data"},
		},
	}}}
	g, opened := newTestGateway(map[string]*fakeSession{"medical": sess})

	tools, err := g.ListTools(context.Background())
	require.NoError(t, err)
	require.Len(t, tools, 1)
	assert.Equal(t, "Get Diabetes Score", tools[0].Name)
	assert.Equal(t, "medical", tools[0].Server)
	assert.Contains(t, string(tools[0].InputSchema), "patient_data")

	_, err = g.ListTools(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, sess.lists)
	assert.Equal(t, 1, *opened)

	require.NoError(t, g.Refresh(context.Background()))
	assert.Equal(t, 2, sess.lists)
}

func TestGateway_InvokeJoinsTextBlocks(t *testing.T) {
	sess := &fakeSession{
		tools:   []mcp.Tool{{Name: "echo"}},
		results: map[string]*mcp.CallToolResult{"echo": textResult("first", "second")},
	}
	g, _ := newTestGateway(map[string]*fakeSession{"s": sess})

	res := g.Invoke(context.Background(), "echo", map[string]any{"x": 1})

	assert.Equal(t, schema.ResultText, res.Kind())
	assert.Equal(t, "first\n\nsecond", res.Text())
	require.Len(t, sess.calls, 1)
	assert.Equal(t, "echo", sess.calls[0].Params.Name)
}

func TestGateway_InvokeDecodesJSONBlock(t *testing.T) {
	sess := &fakeSession{
		tools:   []mcp.Tool{{Name: "score"}},
		results: map[string]*mcp.CallToolResult{"score": textResult("note", `{"risk_score": 0.42}`)},
	}
	g, _ := newTestGateway(map[string]*fakeSession{"s": sess})

	res := g.Invoke(context.Background(), "score", nil)

	require.Equal(t, schema.ResultStructured, res.Kind())
	assert.Equal(t, map[string]any{"risk_score": 0.42}, res.Value())
}

func TestGateway_UnknownToolIsError(t *testing.T) {
	sess := &fakeSession{tools: []mcp.Tool{{Name: "echo"}}}
	g, _ := newTestGateway(map[string]*fakeSession{"s": sess})

	first := g.Invoke(context.Background(), "nope", nil)
	second := g.Invoke(context.Background(), "nope", nil)

	assert.True(t, first.IsError())
	assert.Contains(t, first.Err(), `unknown tool "nope"`)
	assert.Equal(t, first, second)
	assert.Empty(t, sess.calls)
}

func TestGateway_UnknownToolTriggersRelist(t *testing.T) {
	sess := &fakeSession{
		tools:   []mcp.Tool{{Name: "a"}},
		results: map[string]*mcp.CallToolResult{"b": textResult("late")},
	}
	g, _ := newTestGateway(map[string]*fakeSession{"s": sess})
	_, err := g.ListTools(context.Background())
	require.NoError(t, err)

	sess.tools = append(sess.tools, mcp.Tool{Name: "b"})
	res := g.Invoke(context.Background(), "b", nil)

	assert.Equal(t, "late", res.Text())
	assert.Equal(t, 2, sess.lists)
}

func TestGateway_TransportErrorIsError(t *testing.T) {
	sess := &fakeSession{
		tools: []mcp.Tool{{Name: "flaky"}},
		errs:  map[string]error{"flaky": errors.New("connection reset")},
	}
	g, _ := newTestGateway(map[string]*fakeSession{"s": sess})

	res := g.Invoke(context.Background(), "flaky", nil)

	assert.True(t, res.IsError())
	assert.Contains(t, res.Err(), "connection reset")
}

func TestGateway_ConnectFailureIsError(t *testing.T) {
	g := newGateway(map[string]ServerConfig{"down": {URL: "http://down"}},
		func(context.Context, string, ServerConfig) (Session, error) {
			return nil, errors.New("dial tcp: refused")
		})

	res := g.Invoke(context.Background(), "anything", nil)
	assert.True(t, res.IsError())
	assert.Contains(t, res.Err(), "refused")

	_, err := g.ListTools(context.Background())
	assert.Error(t, err)
}

func TestGateway_NoServers(t *testing.T) {
	g := NewGateway(nil)
	_, err := g.ListTools(context.Background())
	assert.ErrorIs(t, err, ErrNoServers)
}

func TestGateway_DuplicateToolFirstServerWins(t *testing.T) {
	a := &fakeSession{
		tools:   []mcp.Tool{{Name: "dup"}},
		results: map[string]*mcp.CallToolResult{"dup": textResult("from a")},
	}
	b := &fakeSession{
		tools:   []mcp.Tool{{Name: "dup"}, {Name: "only-b"}},
		results: map[string]*mcp.CallToolResult{"dup": textResult("from b")},
	}
	g, _ := newTestGateway(map[string]*fakeSession{"a": a, "b": b})

	tools, err := g.ListTools(context.Background())
	require.NoError(t, err)
	assert.Len(t, tools, 2)
	assert.Equal(t, "from a", g.Invoke(context.Background(), "dup", nil).Text())
}

func TestGateway_PartialServerFailure(t *testing.T) {
	ok := &fakeSession{tools: []mcp.Tool{{Name: "t"}}}
	g, _ := newTestGateway(map[string]*fakeSession{"ok": ok})
	g.servers["broken"] = ServerConfig{URL: "http://broken"}

	tools, err := g.ListTools(context.Background())
	require.NoError(t, err)
	assert.Len(t, tools, 1)
}

func TestGateway_CloseReleasesSessions(t *testing.T) {
	sess := &fakeSession{tools: []mcp.Tool{{Name: "t"}}}
	g, opened := newTestGateway(map[string]*fakeSession{"s": sess})
	require.NoError(t, g.Connect(context.Background()))

	require.NoError(t, g.Close())
	assert.True(t, sess.closed)

	_, err := g.ListTools(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, *opened)
}

func TestGateway_SessionOutlivesOpeningRequest(t *testing.T) {
	sess := &fakeSession{tools: []mcp.Tool{{Name: "t"}}}
	var sessCtx context.Context
	g := newGateway(map[string]ServerConfig{"s": {URL: "http://s"}},
		func(ctx context.Context, _ string, _ ServerConfig) (Session, error) {
			sessCtx = ctx
			return sess, nil
		})

	reqCtx, cancel := context.WithCancel(context.Background())
	_, err := g.ListTools(reqCtx)
	require.NoError(t, err)
	cancel()

	require.NotNil(t, sessCtx)
	assert.NoError(t, sessCtx.Err(), "session context must not follow the request")

	require.NoError(t, g.Close())
	assert.Error(t, sessCtx.Err(), "Close cancels the session context")
}

func TestGateway_CancelledHandshakeIsNotCached(t *testing.T) {
	sess := &fakeSession{tools: []mcp.Tool{{Name: "t"}}}
	ctx, cancel := context.WithCancel(context.Background())
	g := newGateway(map[string]ServerConfig{"s": {URL: "http://s"}},
		func(context.Context, string, ServerConfig) (Session, error) {
			cancel()
			return sess, nil
		})

	_, err := g.ListTools(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.True(t, sess.closed)
	assert.Empty(t, g.sessions)
}

func TestGateway_TransportErrorDropsSession(t *testing.T) {
	sess := &fakeSession{
		tools: []mcp.Tool{{Name: "score"}},
		errs:  map[string]error{"score": errors.New("stream closed")},
	}
	g, opened := newTestGateway(map[string]*fakeSession{"medical": sess})

	res := g.Invoke(context.Background(), "score", nil)
	require.True(t, res.IsError())
	assert.True(t, sess.closed)
	assert.NotContains(t, g.sessions, "medical")

	sess.errs = nil
	sess.results = map[string]*mcp.CallToolResult{"score": textResult("0.4")}
	res = g.Invoke(context.Background(), "score", nil)
	assert.Equal(t, "0.4", res.Text())
	assert.Equal(t, 2, *opened)
	assert.Equal(t, 1, sess.lists, "reconnect keeps the cached tool list")
}

func TestGateway_ListFailureDropsSession(t *testing.T) {
	sess := &fakeSession{listErr: errors.New("stream closed")}
	g, opened := newTestGateway(map[string]*fakeSession{"medical": sess})

	_, err := g.ListTools(context.Background())
	require.Error(t, err)
	assert.True(t, sess.closed)

	sess.listErr = nil
	sess.tools = []mcp.Tool{{Name: "score"}}
	tools, err := g.ListTools(context.Background())
	require.NoError(t, err)
	assert.Len(t, tools, 1)
	assert.Equal(t, 2, *opened)
}

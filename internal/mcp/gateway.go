// Package mcp is the invocation gateway to remote MCP tool servers.
//
// A Gateway owns one session per configured server: sessions are opened on
// first use under the gateway's own context, dropped when their transport
// fails and reopened by the next call, and released by Close. Every failure on
// the invoke path is folded into a schema.ToolResult error; nothing raised by
// a transport or a remote tool escapes Invoke.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/riskpilot/riskpilot/internal/schema"
	"github.com/riskpilot/riskpilot/internal/shared/llmutils"
)

// ErrNoServers is returned when the gateway has nothing to connect to.
var ErrNoServers = errors.New("no MCP servers configured")

type openFunc func(ctx context.Context, name string, cfg ServerConfig) (Session, error)

// Gateway lists and invokes tools across the configured MCP servers.
type Gateway struct {
	servers map[string]ServerConfig
	open    openFunc

	mu       sync.Mutex
	base     context.Context
	stop     context.CancelFunc
	sessions map[string]*conn
	tools    []schema.ToolDescriptor
	owners   map[string]string // tool name → server name
	listed   bool
}

// NewGateway returns a Gateway for servers. No connection is made until the
// first ListTools, Invoke or Connect call.
func NewGateway(servers map[string]ServerConfig) *Gateway {
	return newGateway(servers, Open)
}

func newGateway(servers map[string]ServerConfig, open openFunc) *Gateway {
	base, stop := context.WithCancel(context.Background())
	return &Gateway{
		servers:  servers,
		open:     open,
		base:     base,
		stop:     stop,
		sessions: map[string]*conn{},
		owners:   map[string]string{},
	}
}

// conn is an open session and the cancel func of the context it lives in.
type conn struct {
	Session
	cancel context.CancelFunc
}

func (c *conn) release() error {
	defer c.cancel()
	return c.Close()
}

// Connect opens a session to every server that is not yet connected.
// Servers that fail are logged and skipped; an error is returned only when
// no session at all is available.
func (g *Gateway) Connect(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.connectLocked(ctx)
}

func (g *Gateway) connectLocked(ctx context.Context) error {
	if len(g.servers) == 0 {
		return ErrNoServers
	}
	var errs []error
	for _, name := range sortedKeys(g.servers) {
		if _, ok := g.sessions[name]; ok {
			continue
		}
		s, err := g.openLocked(ctx, name)
		if err != nil {
			slog.Error("MCP server connect failed", "server", name, "err", err)
			errs = append(errs, err)
			continue
		}
		g.sessions[name] = s
	}
	if len(g.sessions) == 0 {
		return errors.Join(errs...)
	}
	return nil
}

// openLocked opens name under a context derived from the gateway, not from
// ctx, so the session survives the request that opened it. ctx still bounds
// the handshake.
func (g *Gateway) openLocked(ctx context.Context, name string) (*conn, error) {
	sctx, cancel := context.WithCancel(g.base)
	stop := context.AfterFunc(ctx, cancel)
	s, err := g.open(sctx, name, g.servers[name])
	if !stop() && err == nil {
		_ = s.Close()
		err = fmt.Errorf("open %s: %w", name, context.Cause(ctx))
	}
	if err != nil {
		cancel()
		return nil, err
	}
	return &conn{Session: s, cancel: cancel}, nil
}

// dropLocked releases the session of server so the next call reconnects.
func (g *Gateway) dropLocked(server string, err error) {
	c, ok := g.sessions[server]
	if !ok {
		return
	}
	delete(g.sessions, server)
	_ = c.release()
	slog.Warn("MCP session dropped", "server", server, "err", err)
}

// ListTools returns the tool descriptors of all connected servers, listing
// them on first use and serving the cached set afterwards.
func (g *Gateway) ListTools(ctx context.Context) ([]schema.ToolDescriptor, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.listed {
		if err := g.refreshLocked(ctx); err != nil {
			return nil, err
		}
	}
	out := make([]schema.ToolDescriptor, len(g.tools))
	copy(out, g.tools)
	return out, nil
}

// Refresh drops the cached descriptors and lists every server again.
func (g *Gateway) Refresh(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.refreshLocked(ctx)
}

func (g *Gateway) refreshLocked(ctx context.Context) error {
	if err := g.connectLocked(ctx); err != nil {
		return err
	}

	var (
		tools  []schema.ToolDescriptor
		owners = map[string]string{}
		errs   []error
	)
	for _, name := range sortedKeys(g.sessions) {
		res, err := g.sessions[name].ListTools(ctx, mcp.ListToolsRequest{})
		if err != nil {
			slog.Error("MCP server list_tools failed", "server", name, "err", err)
			errs = append(errs, fmt.Errorf("list tools on %s: %w", name, err))
			g.dropLocked(name, err)
			continue
		}
		for _, t := range res.Tools {
			if t.Name == "" {
				continue
			}
			if owner, dup := owners[t.Name]; dup {
				slog.Warn("Duplicate MCP tool ignored", "tool", t.Name, "server", name, "owner", owner)
				continue
			}
			owners[t.Name] = name
			tools = append(tools, descriptor(name, t))
			slog.Debug("MCP tool registered", "server", name, "tool", t.Name)
		}
		slog.Info("MCP server connected", "server", name, "tools", len(res.Tools))
	}
	if len(owners) == 0 && len(errs) > 0 {
		return errors.Join(errs...)
	}

	g.tools, g.owners, g.listed = tools, owners, true
	return nil
}

// Invoke calls the named tool with args and normalises the outcome.
// It never returns a Go error and never panics past this boundary.
func (g *Gateway) Invoke(ctx context.Context, name string, args map[string]any) (result schema.ToolResult) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("MCP tool panicked", "tool", name, "panic", r)
			result = schema.ErrorResultf("tool %q panicked: %v", name, r)
		}
	}()

	server, sess, err := g.resolve(ctx, name)
	if err != nil {
		return schema.ErrorResult(err.Error())
	}

	if args == nil {
		args = map[string]any{}
	}
	argsJSON, _ := json.Marshal(args)
	slog.Debug("MCP tools/call", "tool", name, "args", llmutils.Truncate(string(argsJSON), 200))

	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args
	res, err := sess.CallTool(ctx, req)
	if err != nil {
		if ctx.Err() == nil {
			g.evict(server, sess, err)
		}
		return schema.ErrorResultf("call %s: %v", name, err)
	}
	return normalize(res)
}

// resolve finds the session owning name, listing the servers once more when
// the name is unknown so tools added after connection become callable. A
// dropped session is reopened here.
func (g *Gateway) resolve(ctx context.Context, name string) (string, *conn, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	server, ok := g.owners[name]
	if !ok {
		if err := g.refreshLocked(ctx); err != nil {
			return "", nil, fmt.Errorf("unknown tool %q: %w", name, err)
		}
		if server, ok = g.owners[name]; !ok {
			return "", nil, fmt.Errorf("unknown tool %q", name)
		}
	}
	if _, ok := g.sessions[server]; !ok {
		if err := g.connectLocked(ctx); err != nil {
			return "", nil, fmt.Errorf("tool %q: %w", name, err)
		}
	}
	sess, ok := g.sessions[server]
	if !ok {
		return "", nil, fmt.Errorf("tool %q: server %q is not connected", name, server)
	}
	return server, sess, nil
}

// evict drops sess after a transport failure unless it was already replaced.
func (g *Gateway) evict(server string, sess *conn, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.sessions[server] == sess {
		g.dropLocked(server, err)
	}
}

// Close releases every session and forgets the cached descriptors.
func (g *Gateway) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	var errs []error
	for name, c := range g.sessions {
		if err := c.release(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", name, err))
		}
	}
	g.stop()
	g.base, g.stop = context.WithCancel(context.Background())
	g.sessions = map[string]*conn{}
	g.tools, g.owners, g.listed = nil, map[string]string{}, false
	return errors.Join(errs...)
}

func descriptor(server string, t mcp.Tool) schema.ToolDescriptor {
	raw := t.RawInputSchema
	if len(raw) == 0 {
		raw, _ = json.Marshal(t.InputSchema)
	}
	return schema.ToolDescriptor{
		Name:        t.Name,
		Description: t.Description,
		InputSchema: raw,
		Server:      server,
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

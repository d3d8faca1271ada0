// Package container wires riskpilot services using go.uber.org/dig.
package container

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"go.uber.org/dig"

	"github.com/riskpilot/riskpilot/internal/agent"
	"github.com/riskpilot/riskpilot/internal/config"
	agentcfg "github.com/riskpilot/riskpilot/internal/config/agent"
	"github.com/riskpilot/riskpilot/internal/mcp"
	"github.com/riskpilot/riskpilot/internal/ocr"
	"github.com/riskpilot/riskpilot/internal/providers"
	"github.com/riskpilot/riskpilot/internal/schema"
	"github.com/riskpilot/riskpilot/internal/session"
	"github.com/riskpilot/riskpilot/internal/workflow"
)

// Container holds the resolved service singletons.
// Callers use the typed getter methods; they never need to import dig directly.
type Container struct {
	provider schema.LLMProvider
	gateway  *mcp.Gateway
	engine   schema.Engine
	service  *agent.Service
	ocr      *ocr.Client
}

func (c *Container) Provider() schema.LLMProvider { return c.provider }
func (c *Container) Gateway() *mcp.Gateway        { return c.gateway }
func (c *Container) Engine() schema.Engine        { return c.engine }
func (c *Container) Service() *agent.Service      { return c.service }
func (c *Container) OCR() *ocr.Client             { return c.ocr }

// Close releases the engine, its tool connection, the session store and
// the provider client.
func (c *Container) Close() error {
	errs := []error{c.service.Close()}
	if cl, ok := c.provider.(io.Closer); ok {
		errs = append(errs, cl.Close())
	}
	return errors.Join(errs...)
}

// New builds and wires all services from cfg. ctx bounds store setup.
func New(ctx context.Context, cfg *config.Config) (*Container, error) {
	d := dig.New()

	for _, ctor := range []any{
		func() context.Context { return ctx },
		func() *config.Config { return cfg },
		newProvider,
		newSettings,
		newGateway,
		newEngine,
		newSessionStore,
		session.NewManager,
		agent.NewService,
		newOCRClient,
	} {
		if err := d.Provide(ctor); err != nil {
			return nil, err
		}
	}

	var result *Container
	err := d.Invoke(func(
		provider schema.LLMProvider,
		gateway *mcp.Gateway,
		engine schema.Engine,
		service *agent.Service,
		ocrClient *ocr.Client,
	) {
		result = &Container{
			provider: provider,
			gateway:  gateway,
			engine:   engine,
			service:  service,
			ocr:      ocrClient,
		}
	})
	if err != nil {
		return nil, dig.RootCause(err)
	}
	return result, nil
}

func newProvider(cfg *config.Config) (schema.LLMProvider, error) {
	model := cfg.Agents.Defaults.Model
	result := cfg.MatchProvider(model)

	if result.Provider == nil {
		return nil, fmt.Errorf("no provider configured for model %q; edit %s or set an API key variable", model, config.ConfigPath())
	}

	apiBase := result.Provider.APIBase
	if apiBase == "" {
		apiBase = cfg.GetAPIBase(model)
	}
	return providers.New(providers.Params{
		APIKey:       result.Provider.APIKey,
		APIBase:      apiBase,
		ExtraHeaders: result.Provider.ExtraHeaders,
		DefaultModel: model,
		ProviderName: result.Name,
	})
}

func newSettings(cfg *config.Config, p schema.LLMProvider) schema.AgentSettings {
	d := cfg.Agents.Defaults
	model := d.Model
	if model == "" {
		model = p.DefaultModel()
	}
	return schema.NewAgentSettings(model, d.ReportModel, d.Temperature, d.MaxTokens, d.MemoryWindow)
}

func newGateway(cfg *config.Config) *mcp.Gateway {
	servers := make(map[string]mcp.ServerConfig, len(cfg.Tools.MCPServers))
	for name, s := range cfg.Tools.MCPServers {
		servers[name] = mcp.ServerConfig{
			Command:   s.Command,
			Args:      s.Args,
			Env:       s.Env,
			URL:       s.URL,
			Transport: s.Transport,
			Headers:   s.Headers,
		}
	}
	return mcp.NewGateway(servers)
}

// newEngine selects the turn engine for the configured mode. Both engines
// own the gateway and close it with themselves.
func newEngine(cfg *config.Config, p schema.LLMProvider, gw *mcp.Gateway, settings schema.AgentSettings) (schema.Engine, error) {
	switch mode := cfg.Agents.Defaults.Mode; mode {
	case agentcfg.ModeChat:
		return agent.NewController(p, gw, settings, agent.NewPromptBuilder(cfg.WorkspacePath())), nil
	case agentcfg.ModeWorkflow, "":
		return workflow.New(p, gw, workflow.DefaultCatalog(), settings), nil
	default:
		return nil, fmt.Errorf("unknown agent mode %q (want %q or %q)", mode, agentcfg.ModeChat, agentcfg.ModeWorkflow)
	}
}

func newSessionStore(ctx context.Context, cfg *config.Config) (session.Store, error) {
	st, err := session.OpenStore(ctx, cfg.Session.Backend, cfg.SessionDSN())
	if err != nil {
		return nil, err
	}
	slog.Debug("Session store opened", "backend", cfg.Session.Backend)
	return st, nil
}

func newOCRClient(cfg *config.Config) *ocr.Client {
	o := cfg.Tools.OCR
	return ocr.NewClient(o.URL, time.Duration(o.Timeout)*time.Second)
}

package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/riskpilot/riskpilot/internal/schema"
	"github.com/riskpilot/riskpilot/internal/session"
	"github.com/riskpilot/riskpilot/internal/shared/llmutils"
)

const helpText = "riskpilot commands:\n/new - Start a new conversation\n/help - Show available commands"

// Service runs turns against stored sessions. Turns on the same session key
// are processed one at a time; different keys run concurrently.
type Service struct {
	engine   schema.Engine
	sessions *session.Manager
	settings schema.AgentSettings

	locks sync.Map // key → *sync.Mutex
}

func NewService(engine schema.Engine, sessions *session.Manager, settings schema.AgentSettings) *Service {
	return &Service{engine: engine, sessions: sessions, settings: settings}
}

// ProcessDirect handles one user message for the session key and returns
// the turn result with the session's full history. The session is only
// updated when the turn succeeds.
func (s *Service) ProcessDirect(ctx context.Context, content, key string) (schema.TurnResult, error) {
	mu := s.lock(key)
	mu.Lock()
	defer mu.Unlock()

	if res, ok, err := s.handleSlashCommand(ctx, content, key); ok {
		return res, err
	}

	slog.Info("Processing message", "session", key, "content", llmutils.Truncate(content, 80))

	sess, err := s.sessions.GetOrCreate(ctx, key)
	if err != nil {
		return schema.TurnResult{}, fmt.Errorf("load session %s: %w", key, err)
	}

	window := sess.Window(s.settings.MemoryWindow)
	res, err := s.engine.Process(ctx, window, content)
	if err != nil {
		return schema.TurnResult{}, err
	}

	full := sess.History().Append(res.History.Since(window.Len())...)
	sess.Commit(full)
	if err := s.sessions.Save(ctx, sess); err != nil {
		slog.Error("Failed to save session", "session", key, "err", err)
	}

	slog.Info("Response", "session", key, "length", len(res.Reply))
	res.History = full
	return res, nil
}

// Process runs a turn against a caller-supplied history without touching
// any stored session.
func (s *Service) Process(ctx context.Context, history schema.History, content string) (schema.TurnResult, error) {
	return s.engine.Process(ctx, history, content)
}

// Sessions exposes the session manager for listing and resets.
func (s *Service) Sessions() *session.Manager { return s.sessions }

// Close releases the engine and the session store.
func (s *Service) Close() error {
	return errors.Join(s.engine.Close(), s.sessions.Close())
}

// handleSlashCommand checks content for a known slash command and handles
// it. ok is true when the command was handled.
func (s *Service) handleSlashCommand(ctx context.Context, content, key string) (res schema.TurnResult, ok bool, err error) {
	switch strings.TrimSpace(strings.ToLower(content)) {
	case "/new":
		if err := s.sessions.Reset(ctx, key); err != nil {
			return schema.TurnResult{}, true, fmt.Errorf("reset session %s: %w", key, err)
		}
		return schema.TurnResult{Reply: "New session started."}, true, nil
	case "/help":
		return schema.TurnResult{Reply: helpText}, true, nil
	}
	return schema.TurnResult{}, false, nil
}

func (s *Service) lock(key string) *sync.Mutex {
	v, _ := s.locks.LoadOrStore(key, &sync.Mutex{})
	return v.(*sync.Mutex)
}

package session

import (
	"sync"
	"time"

	"github.com/riskpilot/riskpilot/internal/schema"
)

// Session holds one conversation's history and metadata.
type Session struct {
	Key       string
	CreatedAt time.Time
	UpdatedAt time.Time
	Metadata  map[string]any

	mu      sync.Mutex
	history schema.History
}

// New returns an empty session for key.
func New(key string) *Session {
	now := time.Now()
	return &Session{
		Key:       key,
		CreatedAt: now,
		UpdatedAt: now,
		Metadata:  map[string]any{},
	}
}

func restore(key string, h schema.History, createdAt, updatedAt time.Time, meta map[string]any) *Session {
	if meta == nil {
		meta = map[string]any{}
	}
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	if updatedAt.IsZero() {
		updatedAt = createdAt
	}
	return &Session{
		Key:       key,
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
		Metadata:  meta,
		history:   h,
	}
}

// History returns the current history value.
func (s *Session) History() schema.History {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history
}

// Window returns the last maxMessages messages for the LLM.
func (s *Session) Window(maxMessages int) schema.History {
	return s.History().Window(maxMessages)
}

// Commit replaces the history with the outcome of a completed turn.
func (s *Session) Commit(h schema.History) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = h
	s.UpdatedAt = time.Now()
}

// Len returns the number of messages in the session.
func (s *Session) Len() int {
	return s.History().Len()
}

// Clear drops all messages.
func (s *Session) Clear() {
	s.Commit(schema.History{})
}

// snapshot copies the fields a store persists under the lock.
func (s *Session) snapshot() (schema.History, time.Time, time.Time, map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	meta := make(map[string]any, len(s.Metadata))
	for k, v := range s.Metadata {
		meta[k] = v
	}
	return s.history, s.CreatedAt, s.UpdatedAt, meta
}

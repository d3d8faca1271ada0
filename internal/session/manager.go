package session

import (
	"context"
	"errors"
	"sync"
)

// Manager caches sessions in memory in front of a Store.
type Manager struct {
	store Store
	cache sync.Map // key → *Session
}

func NewManager(store Store) *Manager {
	return &Manager{store: store}
}

// GetOrCreate returns the cached session for key, loading it from the store
// if needed, or creating an empty new one.
func (m *Manager) GetOrCreate(ctx context.Context, key string) (*Session, error) {
	if v, ok := m.cache.Load(key); ok {
		return v.(*Session), nil
	}

	s, err := m.store.Load(ctx, key)
	switch {
	case errors.Is(err, ErrNotFound):
		s = New(key)
	case err != nil:
		return nil, err
	}

	actual, _ := m.cache.LoadOrStore(key, s)
	return actual.(*Session), nil
}

// Save persists the session and updates the cache.
func (m *Manager) Save(ctx context.Context, s *Session) error {
	if err := m.store.Save(ctx, s); err != nil {
		return err
	}
	m.cache.Store(s.Key, s)
	return nil
}

// Reset clears the session's history and persists the empty session.
func (m *Manager) Reset(ctx context.Context, key string) error {
	s, err := m.GetOrCreate(ctx, key)
	if err != nil {
		return err
	}
	s.Clear()
	return m.Save(ctx, s)
}

// Delete removes the session from the store and the cache.
func (m *Manager) Delete(ctx context.Context, key string) error {
	m.cache.Delete(key)
	return m.store.Delete(ctx, key)
}

// Invalidate removes a session from the in-memory cache.
func (m *Manager) Invalidate(key string) {
	m.cache.Delete(key)
}

// List returns every stored session, newest first.
func (m *Manager) List(ctx context.Context) ([]Info, error) {
	return m.store.List(ctx)
}

func (m *Manager) Close() error {
	return m.store.Close()
}

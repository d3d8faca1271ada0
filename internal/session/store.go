package session

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned by Store.Load when no session exists for a key.
var ErrNotFound = errors.New("session not found")

// Info summarises one stored session.
type Info struct {
	Key       string
	CreatedAt time.Time
	UpdatedAt time.Time
	Messages  int
	Location  string // file path or table the session lives in
}

// Store persists sessions.
type Store interface {
	Load(ctx context.Context, key string) (*Session, error)
	Save(ctx context.Context, s *Session) error
	Delete(ctx context.Context, key string) error
	// List returns every stored session, newest first.
	List(ctx context.Context) ([]Info, error)
	Close() error
}

// Backend names accepted by OpenStore.
const (
	BackendJSONL    = "jsonl"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// OpenStore opens the store for backend. dsn is a directory for jsonl, a
// database file for sqlite and a connection string for postgres.
func OpenStore(ctx context.Context, backend, dsn string) (Store, error) {
	switch backend {
	case BackendJSONL, "":
		return NewJSONLStore(dsn)
	case BackendSQLite:
		return NewSQLiteStore(dsn)
	case BackendPostgres:
		return NewPostgresStore(ctx, dsn)
	default:
		return nil, fmt.Errorf("unknown session backend %q", backend)
	}
}

package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore keeps sessions in a Postgres table, one row per session.
type PostgresStore struct {
	DB *pgxpool.Pool
}

var _ Store = (*PostgresStore)(nil)

// NewPostgresStore connects to Postgres and creates the sessions table if needed.
func NewPostgresStore(ctx context.Context, connStr string) (*PostgresStore, error) {
	db, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Postgres: %w", err)
	}
	ps := &PostgresStore{DB: db}
	if err := ps.CreateSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return ps, nil
}

// CreateSchema creates the sessions table.
func (ps *PostgresStore) CreateSchema(ctx context.Context) error {
	_, err := ps.DB.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS riskpilot_sessions (
			key TEXT PRIMARY KEY,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL,
			metadata JSONB NOT NULL DEFAULT '{}'::jsonb,
			messages JSONB NOT NULL DEFAULT '[]'::jsonb,
			message_count INTEGER NOT NULL DEFAULT 0
		);
		CREATE INDEX IF NOT EXISTS riskpilot_sessions_updated ON riskpilot_sessions (updated_at DESC);
	`)
	if err != nil {
		return fmt.Errorf("create sessions schema: %w", err)
	}
	return nil
}

func (ps *PostgresStore) Load(ctx context.Context, key string) (*Session, error) {
	var (
		createdAt, updatedAt time.Time
		metaJSON, msgsJSON   string
	)
	err := ps.DB.QueryRow(ctx, `
		SELECT created_at, updated_at, metadata::text, messages::text
		FROM riskpilot_sessions WHERE key = $1
	`, key).Scan(&createdAt, &updatedAt, &metaJSON, &msgsJSON)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", key, err)
	}

	h, err := decodeHistory([]byte(msgsJSON))
	if err != nil {
		return nil, fmt.Errorf("decode session %s: %w", key, err)
	}
	return restore(key, h, createdAt, updatedAt, decodeMetadata([]byte(metaJSON))), nil
}

func (ps *PostgresStore) Save(ctx context.Context, s *Session) error {
	h, createdAt, updatedAt, meta := s.snapshot()
	msgsJSON, err := encodeHistory(h)
	if err != nil {
		return fmt.Errorf("encode session %s: %w", s.Key, err)
	}

	_, err = ps.DB.Exec(ctx, `
		INSERT INTO riskpilot_sessions (key, created_at, updated_at, metadata, messages, message_count)
		VALUES ($1, $2, $3, $4::jsonb, $5::jsonb, $6)
		ON CONFLICT (key) DO UPDATE SET
			updated_at = EXCLUDED.updated_at,
			metadata = EXCLUDED.metadata,
			messages = EXCLUDED.messages,
			message_count = EXCLUDED.message_count
	`, s.Key, createdAt, updatedAt, string(encodeMetadata(meta)), string(msgsJSON), h.Len())
	if err != nil {
		return fmt.Errorf("save session %s: %w", s.Key, err)
	}
	return nil
}

func (ps *PostgresStore) Delete(ctx context.Context, key string) error {
	if _, err := ps.DB.Exec(ctx, `DELETE FROM riskpilot_sessions WHERE key = $1`, key); err != nil {
		return fmt.Errorf("delete session %s: %w", key, err)
	}
	return nil
}

func (ps *PostgresStore) List(ctx context.Context) ([]Info, error) {
	rows, err := ps.DB.Query(ctx, `
		SELECT key, created_at, updated_at, message_count
		FROM riskpilot_sessions ORDER BY updated_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var out []Info
	for rows.Next() {
		info := Info{Location: "riskpilot_sessions"}
		if err := rows.Scan(&info.Key, &info.CreatedAt, &info.UpdatedAt, &info.Messages); err != nil {
			return nil, err
		}
		out = append(out, info)
	}
	return out, rows.Err()
}

// Close releases the underlying Postgres connection pool.
func (ps *PostgresStore) Close() error {
	ps.DB.Close()
	return nil
}

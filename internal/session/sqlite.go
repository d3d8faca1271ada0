package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore keeps sessions in a single SQLite database file.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

var _ Store = (*SQLiteStore)(nil)

func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_journal=WAL&_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	st := &SQLiteStore{db: db, path: path}
	if err := st.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return st, nil
}

func (st *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		key TEXT PRIMARY KEY,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		metadata_json TEXT NOT NULL DEFAULT '{}',
		messages_json TEXT NOT NULL DEFAULT '[]',
		message_count INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_sessions_updated ON sessions(updated_at DESC);
	`
	_, err := st.db.Exec(schema)
	return err
}

func (st *SQLiteStore) Load(ctx context.Context, key string) (*Session, error) {
	var (
		createdAt, updatedAt time.Time
		metaJSON, msgsJSON   string
	)
	err := st.db.QueryRowContext(ctx, `
		SELECT created_at, updated_at, metadata_json, messages_json
		FROM sessions WHERE key = ?
	`, key).Scan(&createdAt, &updatedAt, &metaJSON, &msgsJSON)
	if errors.Is(err, sql.ErrNoRows) {
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

func (st *SQLiteStore) Save(ctx context.Context, s *Session) error {
	h, createdAt, updatedAt, meta := s.snapshot()
	msgsJSON, err := encodeHistory(h)
	if err != nil {
		return fmt.Errorf("encode session %s: %w", s.Key, err)
	}

	_, err = st.db.ExecContext(ctx, `
		INSERT INTO sessions (key, created_at, updated_at, metadata_json, messages_json, message_count)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			updated_at = excluded.updated_at,
			metadata_json = excluded.metadata_json,
			messages_json = excluded.messages_json,
			message_count = excluded.message_count
	`, s.Key, createdAt.UTC(), updatedAt.UTC(), string(encodeMetadata(meta)), string(msgsJSON), h.Len())
	if err != nil {
		return fmt.Errorf("save session %s: %w", s.Key, err)
	}
	return nil
}

func (st *SQLiteStore) Delete(ctx context.Context, key string) error {
	if _, err := st.db.ExecContext(ctx, `DELETE FROM sessions WHERE key = ?`, key); err != nil {
		return fmt.Errorf("delete session %s: %w", key, err)
	}
	return nil
}

func (st *SQLiteStore) List(ctx context.Context) ([]Info, error) {
	rows, err := st.db.QueryContext(ctx, `
		SELECT key, created_at, updated_at, message_count
		FROM sessions ORDER BY updated_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var out []Info
	for rows.Next() {
		info := Info{Location: st.path}
		if err := rows.Scan(&info.Key, &info.CreatedAt, &info.UpdatedAt, &info.Messages); err != nil {
			return nil, err
		}
		out = append(out, info)
	}
	return out, rows.Err()
}

func (st *SQLiteStore) Close() error {
	return st.db.Close()
}

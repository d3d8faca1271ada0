package store

const (
	BackendJSONL    = "jsonl"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// SessionConfig selects where conversation histories are persisted.
// DSN is a file path for sqlite and a connection string for postgres;
// the jsonl backend ignores it.
type SessionConfig struct {
	Backend string `json:"backend"`
	DSN     string `json:"dsn,omitempty"`
}

func DefaultSessionConfig() SessionConfig {
	return SessionConfig{Backend: BackendJSONL}
}

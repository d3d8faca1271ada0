// Package session persists per-conversation history.
//
// Three stores are provided: JSONL files (one file per session), SQLite and
// Postgres. The JSONL format is
//
//	Line 1:  {"_type":"metadata","key":"…","created_at":"…","updated_at":"…","metadata":{…}}
//	Line 2+: one JSON message object per line
package session

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/riskpilot/riskpilot/internal/schema"
)

// JSONLStore keeps one JSONL file per session in a directory.
type JSONLStore struct {
	dir string
}

var _ Store = (*JSONLStore)(nil)

// NewJSONLStore creates the directory if necessary.
func NewJSONLStore(dir string) (*JSONLStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create sessions dir: %w", err)
	}
	return &JSONLStore{dir: dir}, nil
}

func (st *JSONLStore) Load(_ context.Context, key string) (*Session, error) {
	path := st.sessionPath(key)

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("open session %s: %w", path, err)
	}
	defer f.Close()

	var (
		msgs                 []schema.Message
		meta                 = map[string]any{}
		createdAt, updatedAt time.Time
	)

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 1<<20), 1<<20) // 1 MB per line
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var data map[string]any
		if err := json.Unmarshal(line, &data); err != nil {
			slog.Warn("skipping malformed session line", "key", key, "err", err)
			continue
		}

		if data["_type"] == "metadata" {
			if m2, ok := data["metadata"].(map[string]any); ok {
				meta = m2
			}
			createdAt = parseTime(data["created_at"])
			updatedAt = parseTime(data["updated_at"])
			continue
		}
		msgs = append(msgs, wireToMessage(data))
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read session %s: %w", path, err)
	}

	return restore(key, schema.NewHistory(msgs...), createdAt, updatedAt, meta), nil
}

func (st *JSONLStore) Save(_ context.Context, s *Session) error {
	h, createdAt, updatedAt, meta := s.snapshot()

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	header := map[string]any{
		"_type":      "metadata",
		"key":        s.Key,
		"created_at": createdAt.UTC().Format(time.RFC3339),
		"updated_at": updatedAt.UTC().Format(time.RFC3339),
		"metadata":   meta,
	}
	if err := enc.Encode(header); err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}
	for _, msg := range h.Messages() {
		if err := enc.Encode(messageToWire(msg)); err != nil {
			return fmt.Errorf("encode message: %w", err)
		}
	}

	// Write to a temp file first so a crash never leaves a truncated session.
	path := st.sessionPath(s.Key)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write session %s: %w", path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace session %s: %w", path, err)
	}
	return nil
}

func (st *JSONLStore) Delete(_ context.Context, key string) error {
	if err := os.Remove(st.sessionPath(key)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete session %s: %w", key, err)
	}
	return nil
}

// List returns metadata for all sessions, sorted newest-first.
func (st *JSONLStore) List(_ context.Context) ([]Info, error) {
	entries, err := filepath.Glob(filepath.Join(st.dir, "*.jsonl"))
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}

	var out []Info
	for _, path := range entries {
		info, ok := readInfo(path)
		if ok {
			out = append(out, info)
		}
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

func (st *JSONLStore) Close() error { return nil }

// readInfo reads the metadata header and counts message lines.
func readInfo(path string) (Info, bool) {
	f, err := os.Open(path)
	if err != nil {
		return Info{}, false
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 1<<20), 1<<20)
	if !scanner.Scan() {
		return Info{}, false
	}
	var data map[string]any
	if json.Unmarshal(scanner.Bytes(), &data) != nil || data["_type"] != "metadata" {
		return Info{}, false
	}

	key, _ := data["key"].(string)
	if key == "" {
		// Fall back: derive from filename
		key = strings.TrimSuffix(filepath.Base(path), ".jsonl")
		key = strings.Replace(key, "_", ":", 1)
	}
	info := Info{
		Key:       key,
		CreatedAt: parseTime(data["created_at"]),
		UpdatedAt: parseTime(data["updated_at"]),
		Location:  path,
	}
	for scanner.Scan() {
		if len(bytes.TrimSpace(scanner.Bytes())) > 0 {
			info.Messages++
		}
	}
	return info, true
}

// sessionPath converts a session key to its JSONL file path.
func (st *JSONLStore) sessionPath(key string) string {
	name := safeFilename(strings.ReplaceAll(key, ":", "_"))
	return filepath.Join(st.dir, name+".jsonl")
}

// safeFilename replaces filesystem-unsafe characters with underscores.
func safeFilename(name string) string {
	const unsafe = `<>:"/\|?*`
	var b strings.Builder
	for _, r := range name {
		if strings.ContainsRune(unsafe, r) {
			b.WriteByte('_')
		} else {
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}

func parseTime(v any) time.Time {
	s, _ := v.(string)
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

package session

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/riskpilot/riskpilot/internal/schema"
)

func sampleHistory() schema.History {
	return schema.NewHistory(
		schema.NewUserMessage("I am 45, female, BMI 27.5"),
		schema.NewAssistantMessage("", []schema.ToolCall{{
			ID:        "call_1",
			Name:      "Get_Diabetes_Score",
			Arguments: map[string]any{"age": float64(45), "gender": "Female"},
		}}),
		schema.NewToolResultMessage("call_1", "Get_Diabetes_Score", `{"risk_score": 0.72}`),
		schema.NewAssistantMessage("Your estimated risk is 72%.", nil),
	)
}

// exerciseStore runs the behaviour every Store must share.
func exerciseStore(t *testing.T, st Store) {
	t.Helper()
	ctx := context.Background()

	if _, err := st.Load(ctx, "cli:missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	s := New("cli:direct")
	s.Metadata["source"] = "test"
	s.Commit(sampleHistory())
	if err := st.Save(ctx, s); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := st.Load(ctx, "cli:direct")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Len() != 4 {
		t.Fatalf("expected 4 messages, got %d", loaded.Len())
	}
	call := loaded.History().At(1)
	if len(call.ToolCalls) != 1 || call.ToolCalls[0].Name != "Get_Diabetes_Score" {
		t.Fatalf("tool call not restored: %+v", call)
	}
	if call.ToolCalls[0].Arguments["gender"] != "Female" {
		t.Errorf("tool call arguments not restored: %v", call.ToolCalls[0].Arguments)
	}
	result := loaded.History().At(2)
	if result.ToolCallID != "call_1" || result.ToolName != "Get_Diabetes_Score" {
		t.Errorf("tool result not restored: %+v", result)
	}
	if loaded.Metadata["source"] != "test" {
		t.Errorf("metadata not restored: %v", loaded.Metadata)
	}

	// Overwrite with a longer history.
	time.Sleep(1100 * time.Millisecond)
	other := New("cli:other")
	other.Commit(schema.NewHistory(schema.NewUserMessage("hello")))
	if err := st.Save(ctx, other); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	infos, err := st.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(infos) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(infos))
	}
	if infos[0].Key != "cli:other" {
		t.Errorf("expected newest session first, got %q", infos[0].Key)
	}
	if infos[1].Messages != 4 {
		t.Errorf("expected 4 messages for cli:direct, got %d", infos[1].Messages)
	}

	if err := st.Delete(ctx, "cli:direct"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := st.Load(ctx, "cli:direct"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
	if err := st.Delete(ctx, "cli:direct"); err != nil {
		t.Errorf("deleting a missing session should not fail: %v", err)
	}
}

func TestJSONLStore(t *testing.T) {
	st, err := NewJSONLStore(filepath.Join(t.TempDir(), "sessions"))
	if err != nil {
		t.Fatalf("NewJSONLStore: %v", err)
	}
	exerciseStore(t, st)
}

func TestSQLiteStore(t *testing.T) {
	st, err := NewSQLiteStore(filepath.Join(t.TempDir(), "sessions.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	defer st.Close()
	exerciseStore(t, st)
}

func TestPostgresStore(t *testing.T) {
	dsn := os.Getenv("RISKPILOT_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("RISKPILOT_TEST_POSTGRES_DSN not set")
	}
	ctx := context.Background()
	st, err := NewPostgresStore(ctx, dsn)
	if err != nil {
		t.Fatalf("NewPostgresStore: %v", err)
	}
	defer st.Close()
	if _, err := st.DB.Exec(ctx, `DELETE FROM riskpilot_sessions WHERE key LIKE 'cli:%'`); err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	exerciseStore(t, st)
}

func TestJSONLStore_SkipsMalformedLines(t *testing.T) {
	dir := t.TempDir()
	st, err := NewJSONLStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	content := `{"_type":"metadata","key":"cli:x","created_at":"2025-01-02T03:04:05Z","updated_at":"2025-01-02T03:04:05Z","metadata":{}}
{"role":"user","content":"hi"}
{not json
{"role":"assistant","content":"hello"}
`
	if err := os.WriteFile(filepath.Join(dir, "cli_x.jsonl"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	s, err := st.Load(context.Background(), "cli:x")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if s.Len() != 2 {
		t.Errorf("expected 2 messages, got %d", s.Len())
	}
	if want := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC); !s.CreatedAt.Equal(want) {
		t.Errorf("expected created_at %v, got %v", want, s.CreatedAt)
	}
}

func TestSafeFilename(t *testing.T) {
	cases := map[string]string{
		"cli:direct":     "cli_direct",
		`a/b\c?d*e`:      "a_b_c_d_e",
		"  padded  ":     "padded",
		"ws:01HZX3J8Q2K": "ws_01HZX3J8Q2K",
	}
	st := &JSONLStore{dir: "/tmp"}
	for key, want := range cases {
		got := filepath.Base(st.sessionPath(key))
		if got != want+".jsonl" {
			t.Errorf("sessionPath(%q) = %q, want %q", key, got, want+".jsonl")
		}
	}
}

func TestOpenStore_UnknownBackend(t *testing.T) {
	if _, err := OpenStore(context.Background(), "redis", ""); err == nil {
		t.Error("expected error for unknown backend")
	}
}

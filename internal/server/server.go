// Package server exposes the agent over HTTP and WebSocket.
package server

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/riskpilot/riskpilot/internal/schema"
)

// maxBody bounds request bodies and WebSocket frames.
const maxBody = 1 << 20

// Turner runs conversation turns.
type Turner interface {
	ProcessDirect(ctx context.Context, content, key string) (schema.TurnResult, error)
	Process(ctx context.Context, history schema.History, content string) (schema.TurnResult, error)
}

// Server provides the chat API.
type Server struct {
	turns    Turner
	mux      *http.ServeMux
	addr     string
	upgrader websocket.Upgrader
}

func New(turns Turner, addr string) *Server {
	s := &Server{
		turns: turns,
		mux:   http.NewServeMux(),
		addr:  addr,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("POST /agent/chat", s.handleChat)
	s.mux.HandleFunc("POST /agent/chat-json", s.handleChatJSON)
	s.mux.HandleFunc("GET /agent/ws", s.handleWebSocket)
}

// Handler returns the routes wrapped in CORS and request logging.
func (s *Server) Handler() http.Handler {
	return logRequests(cors(s.mux))
}

// Serve listens until ctx is cancelled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		errc <- srv.Shutdown(shutdownCtx)
	}()

	slog.Info("HTTP server listening", "addr", s.addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return <-errc
}

// ChatMessage is one text turn in a request or response.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is the body of /agent/chat-json and of WebSocket frames.
type ChatRequest struct {
	Message string        `json:"message"`
	History []ChatMessage `json:"history,omitempty"`
	Session string        `json:"session,omitempty"`
}

// ChatResponse is returned for every processed turn.
type ChatResponse struct {
	Reply          string              `json:"reply"`
	Messages       []ChatMessage       `json:"messages"`
	Intent         string              `json:"intent,omitempty"`
	RequiredParams []string            `json:"required_params,omitempty"`
	ExtractedData  map[string]any      `json:"extracted_data,omitempty"`
	ModelResult    *schema.ModelResult `json:"model_result,omitempty"`
	Session        string              `json:"session,omitempty"`
}

func newChatResponse(res schema.TurnResult, session string) ChatResponse {
	out := ChatResponse{Reply: res.Reply, Session: session}
	for _, m := range res.History.Conversational().Messages() {
		out.Messages = append(out.Messages, ChatMessage{Role: m.Role, Content: m.Content})
	}
	if out.Messages == nil {
		out.Messages = []ChatMessage{}
	}
	if wf := res.Workflow; wf != nil {
		out.Intent = wf.Intent
		out.RequiredParams = wf.RequiredParams
		out.ExtractedData = wf.ExtractedData
		out.ModelResult = wf.ModelResult
	}
	return out
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleChat runs one stateless turn from a text/plain body.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		writeError(w, http.StatusBadRequest, errEmptyMessage)
		return
	}

	res, err := s.turns.Process(r.Context(), schema.History{}, text)
	if err != nil {
		writeError(w, http.StatusBadGateway, err)
		return
	}
	writeJSON(w, http.StatusOK, newChatResponse(res, ""))
}

// handleChatJSON runs a turn against a stored session or a supplied history.
func (s *Server) handleChatJSON(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBody)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}
	resp, status, err := s.turn(r.Context(), req)
	if err != nil {
		writeError(w, status, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

var errEmptyMessage = errors.New("message must not be empty")

// turn runs req and returns the response or the HTTP status for its error.
func (s *Server) turn(ctx context.Context, req ChatRequest) (ChatResponse, int, error) {
	text := strings.TrimSpace(req.Message)
	if text == "" {
		return ChatResponse{}, http.StatusBadRequest, errEmptyMessage
	}

	if req.Session != "" {
		res, err := s.turns.ProcessDirect(ctx, text, req.Session)
		if err != nil {
			return ChatResponse{}, http.StatusBadGateway, err
		}
		return newChatResponse(res, req.Session), http.StatusOK, nil
	}

	res, err := s.turns.Process(ctx, historyFrom(req.History), text)
	if err != nil {
		return ChatResponse{}, http.StatusBadGateway, err
	}
	return newChatResponse(res, ""), http.StatusOK, nil
}

// historyFrom rebuilds a text-only history; unknown roles are dropped.
func historyFrom(msgs []ChatMessage) schema.History {
	var out []schema.Message
	for _, m := range msgs {
		switch strings.ToLower(m.Role) {
		case schema.RoleUser:
			out = append(out, schema.NewUserMessage(m.Content))
		case schema.RoleAssistant:
			out = append(out, schema.NewAssistantMessage(m.Content, nil))
		}
	}
	return schema.NewHistory(out...)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("Failed to write response", "err", err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	if status >= http.StatusInternalServerError {
		slog.Error("Turn failed", "status", status, "err", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// statusRecorder captures the response status for logging.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Hijack lets WebSocket upgrades through the recorder.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

func (r *statusRecorder) Unwrap() http.ResponseWriter { return r.ResponseWriter }

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		slog.Info("HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start).Round(time.Millisecond))
	})
}

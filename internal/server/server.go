// Package server exposes the HTTP API: chat (plain and streaming), feedback,
// account management, law article CRUD, index administration, and chat
// history.
package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/lantasdev/lantas-rag/internal/chat"
	"github.com/lantasdev/lantas-rag/internal/config"
	"github.com/lantasdev/lantas-rag/internal/gemini"
	"github.com/lantasdev/lantas-rag/internal/index"
	"github.com/lantasdev/lantas-rag/internal/mail"
	"github.com/lantasdev/lantas-rag/internal/storage/sqlite"
)

// Server wires the HTTP handlers to the application services.
type Server struct {
	config    config.Server
	chat      *chat.Service
	store     *sqlite.Store
	mail      mail.Sender
	manager   *index.Manager
	snapshots *index.Holder
	gemini    *gemini.Client
	limiter   *ipLimiter

	// sleep paces stream chunks; tests replace it.
	sleep func(d time.Duration)
}

// New builds the server.
func New(cfg config.Server, chatSvc *chat.Service, store *sqlite.Store, sender mail.Sender,
	manager *index.Manager, snapshots *index.Holder, provider *gemini.Client) *Server {
	return &Server{
		config:    cfg,
		chat:      chatSvc,
		store:     store,
		mail:      sender,
		manager:   manager,
		snapshots: snapshots,
		gemini:    provider,
		limiter:   newIPLimiter(cfg.RequestsPerMinute),
		sleep:     time.Sleep,
	}
}

// Handler returns the routed handler with CORS applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", s.handleHealth)
	mux.HandleFunc("POST /chat", s.rateLimited(s.handleChat))
	mux.HandleFunc("POST /chat-stream", s.rateLimited(s.handleChatStream))
	mux.HandleFunc("POST /feedback", s.handleFeedback)

	mux.HandleFunc("POST /auth/register", s.handleRegister)
	mux.HandleFunc("POST /auth/login", s.handleLogin)
	mux.HandleFunc("POST /auth/forgot-password", s.handleForgotPassword)
	mux.HandleFunc("POST /auth/reset-password", s.handleResetPassword)

	mux.HandleFunc("POST /articles", s.handleCreateArticle)
	mux.HandleFunc("GET /articles", s.handleListArticles)
	mux.HandleFunc("GET /articles/{id}", s.handleGetArticle)
	mux.HandleFunc("PUT /articles/{id}", s.handleUpdateArticle)
	mux.HandleFunc("DELETE /articles/{id}", s.handleDeleteArticle)

	mux.HandleFunc("POST /admin/rebuild-index", s.handleRebuildIndex)
	mux.HandleFunc("GET /admin/index-status", s.handleIndexStatus)

	mux.HandleFunc("GET /chat-history/{username}", s.handleChatHistory)
	mux.HandleFunc("GET /chat-sessions/{id}", s.handleSessionDetail)

	return s.cors(mux)
}

// ListenAndServe runs the HTTP server until it fails.
func (s *Server) ListenAndServe() error {
	srv := &http.Server{
		Addr:              s.config.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	slog.Info("http server listening", "addr", s.config.Addr)
	return srv.ListenAndServe()
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"message": "Layanan konsultasi hukum lalu lintas siap.",
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("writing response failed", "error", err)
	}
}

// writeError mirrors the {"detail": "..."} error body the frontend expects.
func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "Body request tidak valid.")
		return false
	}
	return true
}

package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/lantasdev/lantas-rag/internal/chat"
	"github.com/lantasdev/lantas-rag/internal/storage/sqlite"
	"github.com/lantasdev/lantas-rag/pkg/models"
)

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chat.Request
	if !decodeJSON(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, s.chat.Ask(r.Context(), req))
}

// handleChatStream answers over SSE: a typing event, the answer in fixed-size
// chunks, then a done event with the reply metadata.
func (s *Server) handleChatStream(w http.ResponseWriter, r *http.Request) {
	var req chat.Request
	if !decodeJSON(w, r, &req) {
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "Streaming tidak didukung.")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	fmt.Fprint(w, "event: typing\ndata: 1\n\n")
	flusher.Flush()

	res := s.chat.Ask(r.Context(), req)

	chunkSize := s.config.StreamChunkSize
	if chunkSize <= 0 {
		chunkSize = 80
	}
	runes := []rune(res.Answer)
	for i := 0; i < len(runes); i += chunkSize {
		end := i + chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		safe := strings.ReplaceAll(string(runes[i:end]), "\n", "\\n")
		fmt.Fprintf(w, "event: chunk\ndata: %s\n\n", safe)
		flusher.Flush()
		s.sleep(20 * time.Millisecond)
	}

	done := map[string]any{
		"session_id":          res.SessionID,
		"intent":              res.Intent,
		"tone":                res.Tone,
		"mode":                res.Mode,
		"category":            res.Category,
		"suggested_questions": res.SuggestedQuestions,
		"sources":             res.Sources,
		"model_used":          res.ModelUsed,
	}
	payload, err := json.Marshal(done)
	if err != nil {
		slog.Warn("marshaling stream payload failed", "error", err)
		return
	}
	fmt.Fprintf(w, "event: done\ndata: %s\n\n", strings.ReplaceAll(string(payload), "\n", " "))
	flusher.Flush()
}

// handleFeedback appends the raw payload plus a timestamp to a JSONL file.
// Write failures are logged, never surfaced.
func (s *Server) handleFeedback(w http.ResponseWriter, r *http.Request) {
	var payload map[string]any
	if !decodeJSON(w, r, &payload) {
		return
	}
	payload["created_at"] = time.Now().UTC().Format(time.RFC3339)

	if err := appendJSONL(s.config.FeedbackPath, payload); err != nil {
		slog.Warn("storing feedback failed", "error", err)
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Makasih, feedbacknya sudah diterima."})
}

func appendJSONL(path string, v any) error {
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	line, err := json.Marshal(v)
	if err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.Write(append(line, '\n'))
	return err
}

type sessionSummary struct {
	ID                 int64     `json:"id"`
	Username           string    `json:"username"`
	Title              string    `json:"title,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
	LastMessagePreview string    `json:"last_message_preview,omitempty"`
	TotalMessages      int       `json:"total_messages"`
}

func (s *Server) handleChatHistory(w http.ResponseWriter, r *http.Request) {
	username := r.PathValue("username")
	overviews, err := s.store.SessionOverviews(r.Context(), username)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Gagal membaca riwayat konsultasi.")
		return
	}
	out := make([]sessionSummary, 0, len(overviews))
	for _, ov := range overviews {
		out = append(out, sessionSummary{
			ID: ov.Session.ID, Username: ov.Session.Username, Title: ov.Session.Title,
			CreatedAt: ov.Session.CreatedAt, UpdatedAt: ov.Session.UpdatedAt,
			LastMessagePreview: messagePreview(ov.LastMessage),
			TotalMessages:      ov.TotalMessages,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// messagePreview truncates a message to 180 runes for history listings.
func messagePreview(content string) string {
	content = strings.TrimSpace(content)
	runes := []rune(content)
	if len(runes) > 180 {
		return string(runes[:180]) + "..."
	}
	return content
}

type sessionDetail struct {
	sessionSummary
	Messages []models.ChatMessage `json:"messages"`
}

func (s *Server) handleSessionDetail(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "ID sesi tidak valid.")
		return
	}
	sess, err := s.store.GetSession(r.Context(), id)
	if errors.Is(err, sqlite.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Sesi konsultasi tidak ditemukan")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Gagal membaca sesi konsultasi.")
		return
	}
	msgs, err := s.store.ListMessages(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Gagal membaca pesan sesi.")
		return
	}
	if msgs == nil {
		msgs = []models.ChatMessage{}
	}
	writeJSON(w, http.StatusOK, sessionDetail{
		sessionSummary: sessionSummary{
			ID: sess.ID, Username: sess.Username, Title: sess.Title,
			CreatedAt: sess.CreatedAt, UpdatedAt: sess.UpdatedAt,
			TotalMessages: len(msgs),
		},
		Messages: msgs,
	})
}

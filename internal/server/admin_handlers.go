package server

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/lantasdev/lantas-rag/internal/storage/sqlite"
)

func (s *Server) handleRebuildIndex(w http.ResponseWriter, r *http.Request) {
	total, err := s.manager.Rebuild(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Gagal membangun ulang index: %v", err))
		return
	}

	now := time.Now().UTC().Format(time.RFC3339)
	if err := s.store.SetMeta(r.Context(), sqlite.MetaIndexLastBuilt, now); err != nil {
		slog.Warn("recording index build time failed", "error", err)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"detail":        "Index berhasil dibangun ulang",
		"total_indexed": total,
		"index_path":    s.manager.Path,
		"last_built_at": now,
	})
}

func (s *Server) handleIndexStatus(w http.ResponseWriter, r *http.Request) {
	var lastBuilt any
	if v, err := s.store.GetMeta(r.Context(), sqlite.MetaIndexLastBuilt); err == nil {
		lastBuilt = v
	} else if !errors.Is(err, sqlite.ErrNotFound) {
		slog.Warn("reading index build time failed", "error", err)
	}

	status := map[string]any{
		"last_built_at":     lastBuilt,
		"indexed_documents": s.snapshots.Load().Len(),
	}
	if s.gemini != nil {
		status["provider_enabled"] = s.gemini.Enabled()
		status["embed_model"] = s.gemini.EmbedModel()
		status["gen_model"] = s.gemini.GenModel()
		status["fallback_models"] = s.gemini.GenModels()
	}
	writeJSON(w, http.StatusOK, status)
}

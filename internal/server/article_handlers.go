package server

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/lantasdev/lantas-rag/internal/storage/sqlite"
	"github.com/lantasdev/lantas-rag/pkg/models"
)

type articleRequest struct {
	UU          string   `json:"uu"`
	Pasal       string   `json:"pasal"`
	Title       string   `json:"title"`
	LegalText   string   `json:"legal_text"`
	Explanation string   `json:"explanation"`
	Status      string   `json:"status"`
	Keywords    []string `json:"keywords"`
}

func (a articleRequest) toModel(id int64) (models.Article, bool) {
	uu := strings.TrimSpace(a.UU)
	pasal := strings.TrimSpace(a.Pasal)
	if uu == "" || pasal == "" {
		return models.Article{}, false
	}
	return models.Article{
		ID:          id,
		UU:          uu,
		Pasal:       pasal,
		Title:       strings.TrimSpace(a.Title),
		LegalText:   a.LegalText,
		Explanation: a.Explanation,
		Status:      strings.TrimSpace(a.Status),
		Keywords:    a.Keywords,
	}, true
}

func (s *Server) handleCreateArticle(w http.ResponseWriter, r *http.Request) {
	var req articleRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	art, ok := req.toModel(0)
	if !ok {
		writeError(w, http.StatusBadRequest, "Field uu dan pasal wajib diisi.")
		return
	}
	created, err := s.store.CreateArticle(r.Context(), art)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Gagal menyimpan pasal.")
		return
	}
	writeJSON(w, http.StatusOK, created)
}

func (s *Server) handleListArticles(w http.ResponseWriter, r *http.Request) {
	articles, err := s.store.ListArticles(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Gagal membaca daftar pasal.")
		return
	}
	if articles == nil {
		articles = []models.Article{}
	}
	writeJSON(w, http.StatusOK, articles)
}

func (s *Server) handleGetArticle(w http.ResponseWriter, r *http.Request) {
	id, ok := articleID(w, r)
	if !ok {
		return
	}
	art, err := s.store.GetArticle(r.Context(), id)
	if errors.Is(err, sqlite.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Pasal tidak ditemukan.")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Gagal membaca pasal.")
		return
	}
	writeJSON(w, http.StatusOK, art)
}

func (s *Server) handleUpdateArticle(w http.ResponseWriter, r *http.Request) {
	id, ok := articleID(w, r)
	if !ok {
		return
	}
	var req articleRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	art, valid := req.toModel(id)
	if !valid {
		writeError(w, http.StatusBadRequest, "Field uu dan pasal wajib diisi.")
		return
	}
	updated, err := s.store.UpdateArticle(r.Context(), art)
	if errors.Is(err, sqlite.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Pasal tidak ditemukan.")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Gagal memperbarui pasal.")
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteArticle(w http.ResponseWriter, r *http.Request) {
	id, ok := articleID(w, r)
	if !ok {
		return
	}
	err := s.store.DeleteArticle(r.Context(), id)
	if errors.Is(err, sqlite.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Pasal tidak ditemukan.")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Gagal menghapus pasal.")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Pasal berhasil dihapus."})
}

func articleID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "ID pasal tidak valid.")
		return 0, false
	}
	return id, true
}

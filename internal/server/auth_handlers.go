package server

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/lantasdev/lantas-rag/internal/auth"
	"github.com/lantasdev/lantas-rag/internal/mail"
	"github.com/lantasdev/lantas-rag/internal/storage/sqlite"
	"github.com/lantasdev/lantas-rag/pkg/models"
)

// resetTokenTTL bounds how long a password reset token stays valid.
const resetTokenTTL = 30 * time.Minute

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Password string `json:"password"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)
	if req.Username == "" || req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "Username, email, dan password wajib diisi.")
		return
	}

	if _, err := s.store.GetUserByUsername(r.Context(), req.Username); err == nil {
		writeError(w, http.StatusBadRequest, "Username sudah dipakai. Silakan pilih username lain.")
		return
	}
	if _, err := s.store.GetUserByEmail(r.Context(), req.Email); err == nil {
		writeError(w, http.StatusBadRequest, "Email sudah terdaftar.")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Gagal memproses pendaftaran.")
		return
	}
	user, err := s.store.CreateUser(r.Context(), models.User{
		Username:       req.Username,
		Email:          req.Email,
		FullName:       strings.TrimSpace(req.FullName),
		HashedPassword: hash,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Gagal menyimpan akun.")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

type loginRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	ident := strings.TrimSpace(req.Identifier)

	var user models.User
	var err error
	if strings.Contains(ident, "@") {
		user, err = s.store.GetUserByEmail(r.Context(), ident)
	} else {
		user, err = s.store.GetUserByUsername(r.Context(), ident)
	}
	if err != nil || !auth.VerifyPassword(req.Password, user.HashedPassword) {
		writeError(w, http.StatusUnauthorized, "Username/email atau password salah.")
		return
	}
	if !user.IsActive {
		writeError(w, http.StatusForbidden, "Akun tidak aktif.")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": user})
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

// handleForgotPassword never reveals whether the email exists.
func (s *Server) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req forgotPasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if user, err := s.store.GetUserByEmail(r.Context(), strings.TrimSpace(req.Email)); err == nil {
		if err := s.store.DeleteUnusedResetTokens(r.Context(), user.ID); err != nil {
			slog.Warn("clearing old reset tokens failed", "user_id", user.ID, "error", err)
		}
		token, err := auth.NewToken(32)
		if err == nil {
			_, err = s.store.CreateResetToken(r.Context(), user.ID, token, time.Now().Add(resetTokenTTL))
		}
		if err != nil {
			slog.Warn("issuing reset token failed", "user_id", user.ID, "error", err)
		} else if s.mail != nil {
			if err := s.mail.SendPasswordReset(user.Email, token); err != nil {
				if errors.Is(err, mail.ErrDisabled) {
					slog.Info("smtp disabled, reset token issued without mail", "user_id", user.ID)
				} else {
					slog.Warn("sending reset mail failed", "user_id", user.ID, "error", err)
				}
			}
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Jika email terdaftar, tautan reset password telah dikirim.",
	})
}

type resetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

func (s *Server) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	tok, err := s.store.GetResetToken(r.Context(), strings.TrimSpace(req.Token))
	if errors.Is(err, sqlite.ErrNotFound) || (err == nil && (tok.Used || tok.ExpiresAt.Before(time.Now()))) {
		writeError(w, http.StatusBadRequest, "Token tidak valid atau sudah kadaluarsa.")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Gagal memproses reset password.")
		return
	}

	hash, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Gagal memproses reset password.")
		return
	}
	if err := s.store.UpdatePassword(r.Context(), tok.UserID, hash); err != nil {
		writeError(w, http.StatusBadRequest, "User tidak ditemukan.")
		return
	}
	if err := s.store.MarkResetTokenUsed(r.Context(), tok.ID); err != nil {
		slog.Warn("marking reset token used failed", "token_id", tok.ID, "error", err)
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Password berhasil direset."})
}

// Package mail sends the password-reset email over SMTP.
package mail

import (
	"errors"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/lantasdev/lantas-rag/internal/config"
)

// ErrDisabled is returned when no SMTP credentials are configured.
var ErrDisabled = errors.New("mail: smtp is not configured")

// Sender delivers password-reset mail.
type Sender interface {
	SendPasswordReset(toEmail, token string) error
}

// SMTPSender sends via a plain-auth SMTP relay.
type SMTPSender struct {
	config config.Mail
	send   func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// New builds a sender from the mail configuration.
func New(cfg config.Mail) *SMTPSender {
	return &SMTPSender{config: cfg, send: smtp.SendMail}
}

// SendPasswordReset emails the reset token with usage instructions. It fails
// with ErrDisabled when credentials are missing, so callers can degrade to a
// log-only flow.
func (s *SMTPSender) SendPasswordReset(toEmail, token string) error {
	if s.config.Username == "" || s.config.Password == "" {
		return ErrDisabled
	}

	from := s.config.From
	if from == "" {
		from = s.config.Username
	}

	body := buildResetBody(token, s.config.ResetURL)
	msg := strings.Join([]string{
		"From: " + from,
		"To: " + toEmail,
		"Subject: Reset Password - Lantas RAG",
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=utf-8",
		"",
		body,
	}, "\r\n")

	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	auth := smtp.PlainAuth("", s.config.Username, s.config.Password, s.config.Host)
	if err := s.send(addr, auth, from, []string{toEmail}, []byte(msg)); err != nil {
		return fmt.Errorf("sending reset mail to %s: %w", toEmail, err)
	}
	return nil
}

func buildResetBody(token, resetURL string) string {
	var b strings.Builder
	b.WriteString("Halo,\n\n")
	b.WriteString("Kami menerima permintaan reset password untuk akun Anda.\n\n")
	if resetURL != "" {
		b.WriteString("Buka tautan berikut untuk mengganti password:\n")
		b.WriteString(resetURL + "?token=" + token + "\n\n")
	}
	b.WriteString("Berikut TOKEN reset password Anda:\n")
	b.WriteString(token + "\n\n")
	b.WriteString("Cara pakai di aplikasi:\n")
	b.WriteString("1. Buka menu \"Lupa Password\" lalu pilih \"Sudah punya token? Reset password\".\n")
	b.WriteString("2. Masukkan token di atas.\n")
	b.WriteString("3. Masukkan password baru.\n\n")
	b.WriteString("Jika Anda tidak merasa meminta reset password, abaikan saja email ini.\n")
	return b.String()
}

package mail

import (
	"errors"
	"net/smtp"
	"strings"
	"testing"

	"github.com/lantasdev/lantas-rag/internal/config"
)

func TestSendPasswordReset_DisabledWithoutCredentials(t *testing.T) {
	s := New(config.Mail{Host: "smtp.example.com", Port: 587})
	if err := s.SendPasswordReset("a@example.com", "tok"); !errors.Is(err, ErrDisabled) {
		t.Fatalf("expected ErrDisabled, got %v", err)
	}
}

func TestSendPasswordReset_BuildsMessage(t *testing.T) {
	var gotAddr, gotFrom string
	var gotTo []string
	var gotMsg []byte

	s := New(config.Mail{
		Host:     "smtp.example.com",
		Port:     587,
		Username: "relay@example.com",
		Password: "secret",
		ResetURL: "https://app.example.com/reset-password",
	})
	s.send = func(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotFrom, gotTo, gotMsg = addr, from, to, msg
		return nil
	}

	if err := s.SendPasswordReset("budi@example.com", "tok123"); err != nil {
		t.Fatalf("SendPasswordReset: %v", err)
	}
	if gotAddr != "smtp.example.com:587" {
		t.Fatalf("addr = %q", gotAddr)
	}
	if gotFrom != "relay@example.com" {
		t.Fatalf("from should fall back to the username, got %q", gotFrom)
	}
	if len(gotTo) != 1 || gotTo[0] != "budi@example.com" {
		t.Fatalf("to = %v", gotTo)
	}
	msg := string(gotMsg)
	if !strings.Contains(msg, "Subject: Reset Password") {
		t.Fatal("subject missing")
	}
	if !strings.Contains(msg, "tok123") {
		t.Fatal("token missing from body")
	}
	if !strings.Contains(msg, "https://app.example.com/reset-password?token=tok123") {
		t.Fatal("reset link missing from body")
	}
}

func TestSendPasswordReset_WrapsTransportError(t *testing.T) {
	s := New(config.Mail{Host: "h", Port: 25, Username: "u", Password: "p"})
	s.send = func(string, smtp.Auth, string, []string, []byte) error {
		return errors.New("connection refused")
	}
	err := s.SendPasswordReset("x@example.com", "t")
	if err == nil || !strings.Contains(err.Error(), "connection refused") {
		t.Fatalf("expected wrapped transport error, got %v", err)
	}
}

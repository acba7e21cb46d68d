package models

import "time"

// Article is a law article row from the relational store. Keywords are
// persisted as a JSON array in a single text column.
type Article struct {
	ID          int64     `json:"id"`
	UU          string    `json:"uu"`
	Pasal       string    `json:"pasal"`
	Title       string    `json:"title,omitempty"`
	LegalText   string    `json:"legal_text,omitempty"`
	Explanation string    `json:"explanation,omitempty"`
	Status      string    `json:"status"`
	Keywords    []string  `json:"keywords,omitempty"`
	CreatedAt   time.Time `json:"created_at,omitempty"`
}

// ArticleStatusActive marks articles that take part in index builds.
const ArticleStatusActive = "berlaku"

// ChatSession groups the messages of one consultation.
type ChatSession struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Title     string    `json:"title,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ChatMessage is one turn within a session. Messages replay in creation
// order.
type ChatMessage struct {
	ID        int64     `json:"id"`
	SessionID int64     `json:"session_id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// User is a registered account.
type User struct {
	ID             int64     `json:"id"`
	Username       string    `json:"username"`
	Email          string    `json:"email"`
	FullName       string    `json:"full_name,omitempty"`
	HashedPassword string    `json:"-"`
	IsActive       bool      `json:"is_active"`
	CreatedAt      time.Time `json:"created_at"`
}

// PasswordResetToken is a single-use, time-limited reset credential.
type PasswordResetToken struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	Used      bool      `json:"used"`
	CreatedAt time.Time `json:"created_at"`
}

// SessionPrefs are per-session answer preferences, persisted as JSON under a
// system_meta key and cached in memory.
type SessionPrefs struct {
	Verbosity string `json:"verbosity,omitempty"` // short | normal | long
	TonePref  string `json:"tone_pref,omitempty"` // santai | formal
}

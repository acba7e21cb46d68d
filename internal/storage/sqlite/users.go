package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lantasdev/lantas-rag/pkg/models"
)

// CreateUser registers a new account. Username and email are unique.
func (s *Store) CreateUser(ctx context.Context, u models.User) (models.User, error) {
	u.IsActive = true
	u.CreatedAt = s.now().UTC()
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO users (username, email, full_name, hashed_password, is_active, created_at)
		VALUES (?, ?, ?, ?, 1, ?)`,
		u.Username, u.Email, u.FullName, u.HashedPassword, fmtTime(u.CreatedAt))
	if err != nil {
		return models.User{}, fmt.Errorf("inserting user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return models.User{}, fmt.Errorf("reading user id: %w", err)
	}
	u.ID = id
	return u, nil
}

// GetUserByUsername fetches an account by username.
func (s *Store) GetUserByUsername(ctx context.Context, username string) (models.User, error) {
	return s.getUser(ctx, "username = ?", username)
}

// GetUserByEmail fetches an account by email.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	return s.getUser(ctx, "email = ?", email)
}

func (s *Store) getUser(ctx context.Context, where string, arg any) (models.User, error) {
	var u models.User
	var created string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, username, email, COALESCE(full_name, ''), hashed_password, is_active, created_at
		FROM users WHERE `+where, arg).
		Scan(&u.ID, &u.Username, &u.Email, &u.FullName, &u.HashedPassword, &u.IsActive, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, ErrNotFound
	}
	if err != nil {
		return models.User{}, fmt.Errorf("reading user: %w", err)
	}
	u.CreatedAt = parseTime(created)
	return u, nil
}

// UpdatePassword replaces a user's password hash.
func (s *Store) UpdatePassword(ctx context.Context, userID int64, hashed string) error {
	res, err := s.db.ExecContext(ctx, "UPDATE users SET hashed_password = ? WHERE id = ?", hashed, userID)
	if err != nil {
		return fmt.Errorf("updating password for user %d: %w", userID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// CreateResetToken stores a password reset token for userID.
func (s *Store) CreateResetToken(ctx context.Context, userID int64, token string, expiresAt time.Time) (models.PasswordResetToken, error) {
	now := s.now().UTC()
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO password_reset_tokens (user_id, token, expires_at, used, created_at)
		VALUES (?, ?, ?, 0, ?)`,
		userID, token, fmtTime(expiresAt), fmtTime(now))
	if err != nil {
		return models.PasswordResetToken{}, fmt.Errorf("inserting reset token: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return models.PasswordResetToken{}, fmt.Errorf("reading reset token id: %w", err)
	}
	return models.PasswordResetToken{
		ID: id, UserID: userID, Token: token,
		ExpiresAt: expiresAt.UTC(), CreatedAt: now,
	}, nil
}

// DeleteUnusedResetTokens discards a user's outstanding tokens, so only the
// most recently issued one stays valid.
func (s *Store) DeleteUnusedResetTokens(ctx context.Context, userID int64) error {
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM password_reset_tokens WHERE user_id = ? AND used = 0", userID)
	if err != nil {
		return fmt.Errorf("deleting unused reset tokens for user %d: %w", userID, err)
	}
	return nil
}

// GetResetToken fetches a reset token by its value.
func (s *Store) GetResetToken(ctx context.Context, token string) (models.PasswordResetToken, error) {
	var t models.PasswordResetToken
	var expires, created string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, token, expires_at, used, created_at
		FROM password_reset_tokens WHERE token = ?`, token).
		Scan(&t.ID, &t.UserID, &t.Token, &expires, &t.Used, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return models.PasswordResetToken{}, ErrNotFound
	}
	if err != nil {
		return models.PasswordResetToken{}, fmt.Errorf("reading reset token: %w", err)
	}
	t.ExpiresAt = parseTime(expires)
	t.CreatedAt = parseTime(created)
	return t, nil
}

// MarkResetTokenUsed consumes a reset token.
func (s *Store) MarkResetTokenUsed(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, "UPDATE password_reset_tokens SET used = 1 WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("marking reset token %d used: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

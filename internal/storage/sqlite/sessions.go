package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lantasdev/lantas-rag/pkg/models"
)

// CreateSession opens a new chat session for username.
func (s *Store) CreateSession(ctx context.Context, username, title string) (models.ChatSession, error) {
	now := s.now().UTC()
	res, err := s.db.ExecContext(ctx,
		"INSERT INTO chat_sessions (username, title, created_at, updated_at) VALUES (?, ?, ?, ?)",
		username, title, fmtTime(now), fmtTime(now))
	if err != nil {
		return models.ChatSession{}, fmt.Errorf("inserting session: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return models.ChatSession{}, fmt.Errorf("reading session id: %w", err)
	}
	return models.ChatSession{ID: id, Username: username, Title: title, CreatedAt: now, UpdatedAt: now}, nil
}

// GetSession fetches a session by ID.
func (s *Store) GetSession(ctx context.Context, id int64) (models.ChatSession, error) {
	var sess models.ChatSession
	var created, updated string
	err := s.db.QueryRowContext(ctx,
		"SELECT id, username, COALESCE(title, ''), created_at, updated_at FROM chat_sessions WHERE id = ?", id).
		Scan(&sess.ID, &sess.Username, &sess.Title, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return models.ChatSession{}, ErrNotFound
	}
	if err != nil {
		return models.ChatSession{}, fmt.Errorf("reading session %d: %w", id, err)
	}
	sess.CreatedAt = parseTime(created)
	sess.UpdatedAt = parseTime(updated)
	return sess, nil
}

// TouchSession bumps a session's updated_at to now.
func (s *Store) TouchSession(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE chat_sessions SET updated_at = ? WHERE id = ?", fmtTime(s.now()), id)
	if err != nil {
		return fmt.Errorf("touching session %d: %w", id, err)
	}
	return nil
}

// SetSessionTitle sets the title once; it never overwrites a non-empty one.
func (s *Store) SetSessionTitle(ctx context.Context, id int64, title string) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE chat_sessions SET title = ? WHERE id = ? AND (title IS NULL OR title = '')", title, id)
	if err != nil {
		return fmt.Errorf("titling session %d: %w", id, err)
	}
	return nil
}

// ListSessions returns a user's sessions, most recently updated first.
func (s *Store) ListSessions(ctx context.Context, username string) ([]models.ChatSession, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, username, COALESCE(title, ''), created_at, updated_at
		FROM chat_sessions WHERE username = ? ORDER BY updated_at DESC, id DESC`, username)
	if err != nil {
		return nil, fmt.Errorf("listing sessions for %q: %w", username, err)
	}
	defer rows.Close()

	var out []models.ChatSession
	for rows.Next() {
		var sess models.ChatSession
		var created, updated string
		if err := rows.Scan(&sess.ID, &sess.Username, &sess.Title, &created, &updated); err != nil {
			return nil, fmt.Errorf("scanning session: %w", err)
		}
		sess.CreatedAt = parseTime(created)
		sess.UpdatedAt = parseTime(updated)
		out = append(out, sess)
	}
	return out, rows.Err()
}

// SessionOverview pairs a session with message stats for history listings.
type SessionOverview struct {
	Session       models.ChatSession
	TotalMessages int
	LastMessage   string
}

// SessionOverviews returns a user's sessions with message counts and the
// newest message text, most recently updated first.
func (s *Store) SessionOverviews(ctx context.Context, username string) ([]SessionOverview, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT s.id, s.username, COALESCE(s.title, ''), s.created_at, s.updated_at,
		       COUNT(m.id),
		       COALESCE((SELECT content FROM chat_messages WHERE session_id = s.id ORDER BY id DESC LIMIT 1), '')
		FROM chat_sessions s
		LEFT JOIN chat_messages m ON m.session_id = s.id
		WHERE s.username = ?
		GROUP BY s.id
		ORDER BY s.updated_at DESC, s.id DESC`, username)
	if err != nil {
		return nil, fmt.Errorf("listing session overviews for %q: %w", username, err)
	}
	defer rows.Close()

	var out []SessionOverview
	for rows.Next() {
		var ov SessionOverview
		var created, updated string
		if err := rows.Scan(&ov.Session.ID, &ov.Session.Username, &ov.Session.Title,
			&created, &updated, &ov.TotalMessages, &ov.LastMessage); err != nil {
			return nil, fmt.Errorf("scanning session overview: %w", err)
		}
		ov.Session.CreatedAt = parseTime(created)
		ov.Session.UpdatedAt = parseTime(updated)
		out = append(out, ov)
	}
	return out, rows.Err()
}

// AppendMessage stores one turn and bumps the session's updated_at.
func (s *Store) AppendMessage(ctx context.Context, sessionID int64, role, content string) (models.ChatMessage, error) {
	now := s.now().UTC()
	res, err := s.db.ExecContext(ctx,
		"INSERT INTO chat_messages (session_id, role, content, created_at) VALUES (?, ?, ?, ?)",
		sessionID, role, content, fmtTime(now))
	if err != nil {
		return models.ChatMessage{}, fmt.Errorf("inserting message: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return models.ChatMessage{}, fmt.Errorf("reading message id: %w", err)
	}
	if err := s.TouchSession(ctx, sessionID); err != nil {
		return models.ChatMessage{}, err
	}
	return models.ChatMessage{ID: id, SessionID: sessionID, Role: role, Content: content, CreatedAt: now}, nil
}

// ListMessages returns a session's messages in creation order.
func (s *Store) ListMessages(ctx context.Context, sessionID int64) ([]models.ChatMessage, error) {
	return s.queryMessages(ctx, `
		SELECT id, session_id, role, content, created_at
		FROM chat_messages WHERE session_id = ? ORDER BY id`, sessionID)
}

// RecentMessages returns up to limit of a session's newest messages, most
// recent first.
func (s *Store) RecentMessages(ctx context.Context, sessionID int64, limit int) ([]models.ChatMessage, error) {
	return s.queryMessages(ctx, `
		SELECT id, session_id, role, content, created_at
		FROM chat_messages WHERE session_id = ? ORDER BY id DESC LIMIT ?`, sessionID, limit)
}

func (s *Store) queryMessages(ctx context.Context, query string, args ...any) ([]models.ChatMessage, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing messages: %w", err)
	}
	defer rows.Close()

	var out []models.ChatMessage
	for rows.Next() {
		var m models.ChatMessage
		var created string
		if err := rows.Scan(&m.ID, &m.SessionID, &m.Role, &m.Content, &created); err != nil {
			return nil, fmt.Errorf("scanning message: %w", err)
		}
		m.CreatedAt = parseTime(created)
		out = append(out, m)
	}
	return out, rows.Err()
}

package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lantasdev/lantas-rag/pkg/models"
)

// CreateArticle inserts a new law article and returns it with its assigned ID.
func (s *Store) CreateArticle(ctx context.Context, art models.Article) (models.Article, error) {
	if art.Status == "" {
		art.Status = models.ArticleStatusActive
	}
	art.CreatedAt = s.now().UTC()

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO law_articles (uu, pasal, title, legal_text, explanation, status, keywords_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		art.UU, art.Pasal, art.Title, art.LegalText, art.Explanation, art.Status,
		keywordsJSON(art.Keywords), fmtTime(art.CreatedAt))
	if err != nil {
		return models.Article{}, fmt.Errorf("inserting article: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return models.Article{}, fmt.Errorf("reading article id: %w", err)
	}
	art.ID = id
	return art, nil
}

// UpdateArticle replaces the mutable fields of an existing article.
func (s *Store) UpdateArticle(ctx context.Context, art models.Article) (models.Article, error) {
	if art.Status == "" {
		art.Status = models.ArticleStatusActive
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE law_articles
		SET uu = ?, pasal = ?, title = ?, legal_text = ?, explanation = ?, status = ?, keywords_json = ?
		WHERE id = ?`,
		art.UU, art.Pasal, art.Title, art.LegalText, art.Explanation, art.Status,
		keywordsJSON(art.Keywords), art.ID)
	if err != nil {
		return models.Article{}, fmt.Errorf("updating article %d: %w", art.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.Article{}, ErrNotFound
	}
	return s.GetArticle(ctx, art.ID)
}

// DeleteArticle removes an article by ID.
func (s *Store) DeleteArticle(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM law_articles WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting article %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// GetArticle fetches one article by ID.
func (s *Store) GetArticle(ctx context.Context, id int64) (models.Article, error) {
	row := s.db.QueryRowContext(ctx, articleSelect+" WHERE id = ?", id)
	art, err := scanArticle(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Article{}, ErrNotFound
	}
	if err != nil {
		return models.Article{}, fmt.Errorf("reading article %d: %w", id, err)
	}
	return art, nil
}

// ListArticles returns all articles ordered by ID.
func (s *Store) ListArticles(ctx context.Context) ([]models.Article, error) {
	return s.listArticles(ctx, articleSelect+" ORDER BY id")
}

// ListActiveArticles returns articles whose status admits them to index
// builds.
func (s *Store) ListActiveArticles(ctx context.Context) ([]models.Article, error) {
	return s.listArticles(ctx, articleSelect+" WHERE status = ? ORDER BY id", models.ArticleStatusActive)
}

const articleSelect = `
	SELECT id, uu, pasal, COALESCE(title, ''), COALESCE(legal_text, ''),
	       COALESCE(explanation, ''), status, COALESCE(keywords_json, ''), created_at
	FROM law_articles`

func (s *Store) listArticles(ctx context.Context, query string, args ...any) ([]models.Article, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing articles: %w", err)
	}
	defer rows.Close()

	var out []models.Article
	for rows.Next() {
		art, err := scanArticle(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning article: %w", err)
		}
		out = append(out, art)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanArticle(row rowScanner) (models.Article, error) {
	var art models.Article
	var keywords, createdAt string
	if err := row.Scan(&art.ID, &art.UU, &art.Pasal, &art.Title, &art.LegalText,
		&art.Explanation, &art.Status, &keywords, &createdAt); err != nil {
		return models.Article{}, err
	}
	art.Keywords = parseKeywords(keywords)
	art.CreatedAt = parseTime(createdAt)
	return art, nil
}

func keywordsJSON(keywords []string) string {
	if len(keywords) == 0 {
		return ""
	}
	b, err := json.Marshal(keywords)
	if err != nil {
		return ""
	}
	return string(b)
}

func parseKeywords(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil
	}
	return out
}

package index

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/lantasdev/lantas-rag/pkg/models"
)

// Source yields law articles for an index build pass.
type Source interface {
	// Name identifies the source in logs and document records.
	Name() models.Source
	// Articles returns the source's articles in a stable order.
	Articles(ctx context.Context) ([]models.Article, error)
}

// ArticleLister is the slice of the relational store a build pass needs.
type ArticleLister interface {
	ListActiveArticles(ctx context.Context) ([]models.Article, error)
}

// DatabaseSource reads active articles from the relational store.
type DatabaseSource struct {
	Store ArticleLister
}

func (s *DatabaseSource) Name() models.Source { return models.SourceDatabase }

func (s *DatabaseSource) Articles(ctx context.Context) ([]models.Article, error) {
	return s.Store.ListActiveArticles(ctx)
}

// FileSource reads articles from a static knowledge JSON file: an array of
// {uu, pasal, title, legal_text, explanation, keywords} objects. A missing
// file yields no articles.
type FileSource struct {
	Path string
}

func (s *FileSource) Name() models.Source { return models.SourceFile }

func (s *FileSource) Articles(ctx context.Context) ([]models.Article, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading knowledge file: %w", err)
	}

	var articles []models.Article
	if err := json.Unmarshal(data, &articles); err != nil {
		return nil, fmt.Errorf("parsing knowledge file %s: %w", s.Path, err)
	}
	return articles, nil
}

// StaticSource serves an in-memory article list. Used by tests and by the
// resumable index CLI when replaying a fixed corpus.
type StaticSource struct {
	SourceName models.Source
	Items      []models.Article
}

func (s *StaticSource) Name() models.Source { return s.SourceName }

func (s *StaticSource) Articles(ctx context.Context) ([]models.Article, error) {
	return s.Items, nil
}

package index

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/lantasdev/lantas-rag/pkg/models"
)

// persistedDoc is the on-disk document record. Vector-mode indexes carry
// {id, title, body, embedding}; lexical indexes additionally persist the
// structured article fields and the token set.
type persistedDoc struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Body        string    `json:"body"`
	UU          string    `json:"uu,omitempty"`
	Pasal       string    `json:"pasal,omitempty"`
	Heading     string    `json:"heading,omitempty"`
	LegalText   string    `json:"legal_text,omitempty"`
	Explanation string    `json:"explanation,omitempty"`
	Keywords    []string  `json:"keywords,omitempty"`
	Tokens      []string  `json:"tokens,omitempty"`
	Source      string    `json:"source,omitempty"`
	Embedding   []float64 `json:"embedding,omitempty"`
}

// Save writes the index as a JSON document array with stable key order so
// consecutive builds diff cleanly.
func Save(path string, docs []models.Document) error {
	out := make([]persistedDoc, 0, len(docs))
	for i := range docs {
		d := &docs[i]
		rec := persistedDoc{
			ID:          d.ID,
			Title:       d.Title,
			Body:        d.Body,
			UU:          d.UU,
			Pasal:       d.Pasal,
			Heading:     d.Heading,
			LegalText:   d.LegalText,
			Explanation: d.Explanation,
			Keywords:    d.Keywords,
			Source:      string(d.Source),
			Embedding:   d.Embedding,
		}
		if len(d.Embedding) == 0 {
			rec.Tokens = sortedTokens(d.TokenSet())
		}
		out = append(out, rec)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating index directory: %w", err)
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling index: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing index: %w", err)
	}
	return nil
}

// Load reads a persisted index. A missing file is an empty index; malformed
// JSON is logged and also treated as empty so the next explicit rebuild can
// recover.
func Load(path string) []models.Document {
	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			slog.Warn("failed to read index file", "path", path, "error", err)
		}
		return nil
	}

	var recs []persistedDoc
	if err := json.Unmarshal(data, &recs); err != nil {
		slog.Warn("malformed index file, treating as empty", "path", path, "error", err)
		return nil
	}

	docs := make([]models.Document, 0, len(recs))
	for _, rec := range recs {
		doc := models.Document{
			ID:          rec.ID,
			Title:       rec.Title,
			Body:        rec.Body,
			UU:          rec.UU,
			Pasal:       rec.Pasal,
			Heading:     rec.Heading,
			LegalText:   rec.LegalText,
			Explanation: rec.Explanation,
			Keywords:    rec.Keywords,
			Embedding:   rec.Embedding,
			Source:      models.Source(rec.Source),
		}
		if len(rec.Tokens) > 0 {
			doc.SetTokens(rec.Tokens)
		}
		docs = append(docs, doc)
	}
	return docs
}

func sortedTokens(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for tok := range set {
		out = append(out, tok)
	}
	sort.Strings(out)
	return out
}

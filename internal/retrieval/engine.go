// Package retrieval turns a free-text query into a ranked, score-thresholded
// top-K list of documents from the active index snapshot. Two engines
// implement the same contract: vector cosine similarity and lexical token
// overlap. A Fallback engine degrades from one to the other at runtime.
package retrieval

import (
	"context"
	"log/slog"
	"sort"

	"github.com/lantasdev/lantas-rag/pkg/models"
)

// Engine ranks documents for a query. Results are at most k long, sorted by
// descending score with ties kept in index order, and every score is at
// least minScore.
type Engine interface {
	Search(ctx context.Context, query string, k int, minScore float64) ([]models.ScoredDocument, error)
}

// rank sorts candidates by score descending (stable, so ties keep index
// order), truncates to k, then drops trailing entries below minScore. K
// bounds first: a candidate above minScore ranked beyond k is still dropped.
func rank(scored []models.ScoredDocument, k int, minScore float64) []models.ScoredDocument {
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	if k < 1 {
		k = 1
	}
	if len(scored) > k {
		scored = scored[:k]
	}
	out := scored[:0]
	for _, sd := range scored {
		if sd.Score >= minScore {
			out = append(out, sd)
		}
	}
	return out
}

// Fallback tries Primary and degrades to Secondary on any error, so a
// disabled or failing embedding provider turns vector search into lexical
// search instead of failing the request.
type Fallback struct {
	Primary   Engine
	Secondary Engine
}

func (f *Fallback) Search(ctx context.Context, query string, k int, minScore float64) ([]models.ScoredDocument, error) {
	docs, err := f.Primary.Search(ctx, query, k, minScore)
	if err == nil {
		return docs, nil
	}
	slog.Warn("primary search failed, falling back", "error", err)
	return f.Secondary.Search(ctx, query, k, minScore)
}

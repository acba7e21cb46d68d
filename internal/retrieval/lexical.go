package retrieval

import (
	"context"

	"github.com/lantasdev/lantas-rag/internal/index"
	"github.com/lantasdev/lantas-rag/pkg/models"
)

// DefaultKeywordWeight is the empirically chosen boost for keyword-token
// overlap in the combined lexical score.
const DefaultKeywordWeight = 0.3

// Lexical ranks documents by token overlap with the query. The score is
// overlap/|query_tokens| plus a weighted sum of per-keyword token
// intersections; it has no fixed upper bound.
type Lexical struct {
	Snapshots *index.Holder
	// KeywordWeight defaults to DefaultKeywordWeight when zero.
	KeywordWeight float64
}

func (l *Lexical) Search(ctx context.Context, query string, k int, minScore float64) ([]models.ScoredDocument, error) {
	snap := l.Snapshots.Load()
	if snap.Len() == 0 {
		return nil, nil
	}

	queryTokens := models.Tokenize(query)
	if len(queryTokens) == 0 {
		return nil, nil
	}

	weight := l.KeywordWeight
	if weight == 0 {
		weight = DefaultKeywordWeight
	}

	docs := snap.Documents()
	scored := make([]models.ScoredDocument, 0, len(docs))
	for i := range docs {
		doc := &docs[i]
		overlap := intersect(queryTokens, doc.TokenSet())
		if overlap == 0 {
			continue
		}
		base := float64(overlap) / float64(max(1, len(queryTokens)))

		kwOverlap := 0
		for _, kw := range doc.Keywords {
			kwOverlap += intersect(queryTokens, models.Tokenize(kw))
		}

		score := base + weight*float64(kwOverlap)
		if score == 0 {
			continue
		}
		scored = append(scored, models.ScoredDocument{Document: docs[i], Score: score})
	}
	return rank(scored, k, minScore), nil
}

func intersect(a, b map[string]struct{}) int {
	if len(b) < len(a) {
		a, b = b, a
	}
	n := 0
	for tok := range a {
		if _, ok := b[tok]; ok {
			n++
		}
	}
	return n
}

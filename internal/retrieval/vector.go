package retrieval

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"

	"github.com/lantasdev/lantas-rag/internal/cache"
	"github.com/lantasdev/lantas-rag/internal/index"
	"github.com/lantasdev/lantas-rag/pkg/models"
)

// Embedder produces the query vector for vector search.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

// Vector ranks documents by cosine similarity between the query embedding
// and each document's stored embedding.
type Vector struct {
	Snapshots *index.Holder
	Embedder  Embedder
	// Results, when set, caches ranked results keyed by a hash of the query
	// embedding prefix.
	Results *cache.TTL
}

func (v *Vector) Search(ctx context.Context, query string, k int, minScore float64) ([]models.ScoredDocument, error) {
	snap := v.Snapshots.Load()
	if snap.Len() == 0 {
		return nil, nil
	}

	emb, err := v.Embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}
	if len(emb) == 0 {
		return nil, nil
	}

	key := resultKey(emb, k, minScore)
	if v.Results != nil {
		if cached, ok := v.Results.Get(key); ok {
			return cached.([]models.ScoredDocument), nil
		}
	}

	docs := snap.Documents()
	scored := make([]models.ScoredDocument, 0, len(docs))
	for i := range docs {
		scored = append(scored, models.ScoredDocument{
			Document: docs[i],
			Score:    Cosine(emb, docs[i].Embedding),
		})
	}
	out := rank(scored, k, minScore)

	if v.Results != nil {
		v.Results.Set(key, out)
	}
	return out, nil
}

// resultKey hashes the first 32 dimensions of the query embedding, enough to
// identify the query without hashing thousands of floats. The ranked list
// depends on k and minScore, so both are part of the key.
func resultKey(emb []float64, k int, minScore float64) string {
	prefix := emb
	if len(prefix) > 32 {
		prefix = prefix[:32]
	}
	data, _ := json.Marshal(prefix)
	sum := sha256.Sum256(data)
	return fmt.Sprintf("docs:%s:k=%d:min=%g", hex.EncodeToString(sum[:]), k, minScore)
}

// Cosine computes dot(a,b) / (|a|*|b|). It is 0 when either vector is
// empty, zero-norm, or the lengths differ.
func Cosine(a, b []float64) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

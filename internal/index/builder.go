package index

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/lantasdev/lantas-rag/pkg/models"
)

// Embedder produces a fixed-length vector for a text, or fails.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

// Builder runs index build passes.
type Builder struct {
	// Embedder is consulted only in vector mode. A failed embedding skips
	// the document; it never aborts the build.
	Embedder   Embedder
	VectorMode bool
	// EmbedDelay spaces out provider calls during a build to respect
	// provider quotas.
	EmbedDelay time.Duration

	sleep func(ctx context.Context, d time.Duration) error
}

// Build normalizes every source's articles into documents, de-duplicating by
// the (uu, pasal, heading, legal_text) tuple with first occurrence winning.
// Documents whose id appears in existing are reused as-is, so a resumed
// vector build does not re-embed them.
func (b *Builder) Build(ctx context.Context, existing []models.Document, sources ...Source) (*Snapshot, error) {
	existingByID := make(map[string]models.Document, len(existing))
	for _, d := range existing {
		existingByID[d.ID] = d
	}

	seen := make(map[string]struct{})
	var docs []models.Document
	var embedded, reused, skipped int

	for _, src := range sources {
		articles, err := src.Articles(ctx)
		if err != nil {
			return nil, err
		}
		for _, art := range articles {
			doc := Normalize(art, src.Name())
			if doc.Body == "" {
				continue
			}
			key := doc.DedupKey()
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}

			if prev, ok := existingByID[doc.ID]; ok {
				docs = append(docs, prev)
				reused++
				continue
			}

			if b.VectorMode {
				vec, err := b.embed(ctx, doc.Body)
				if err != nil {
					if ctx.Err() != nil {
						return nil, ctx.Err()
					}
					slog.Warn("embedding failed, skipping document", "id", doc.ID, "error", err)
					skipped++
					continue
				}
				doc.Embedding = vec
				embedded++
			}
			docs = append(docs, doc)
		}
	}

	slog.Info("index build complete",
		"documents", len(docs), "embedded", embedded, "reused", reused, "skipped", skipped)
	return NewSnapshot(docs), nil
}

func (b *Builder) embed(ctx context.Context, text string) ([]float64, error) {
	vec, err := b.Embedder.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	if b.EmbedDelay > 0 {
		sleep := b.sleep
		if sleep == nil {
			sleep = sleepCtx
		}
		if err := sleep(ctx, b.EmbedDelay); err != nil {
			return nil, err
		}
	}
	return vec, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

// Normalize converts a law article into an indexable document. The body
// concatenates legal text, explanation, and the keyword list; articles
// without any of those produce an empty body and are dropped by Build.
func Normalize(art models.Article, source models.Source) models.Document {
	doc := models.Document{
		Title:       BuildTitle(art.UU, art.Pasal, art.Title),
		UU:          art.UU,
		Pasal:       art.Pasal,
		Heading:     art.Title,
		LegalText:   art.LegalText,
		Explanation: art.Explanation,
		Keywords:    art.Keywords,
		Source:      source,
	}

	var parts []string
	if t := strings.TrimSpace(art.LegalText); t != "" {
		parts = append(parts, t)
	}
	if t := strings.TrimSpace(art.Explanation); t != "" {
		parts = append(parts, t)
	}
	if len(art.Keywords) > 0 {
		parts = append(parts, "Keyword: "+strings.Join(art.Keywords, ", "))
	}
	doc.Body = strings.Join(parts, "\n")

	if art.ID > 0 {
		doc.ID = strconv.FormatInt(art.ID, 10)
	} else {
		doc.ID = DocumentID(doc.DedupKey())
	}
	return doc
}

// BuildTitle composes "{uu} - {pasal}: {heading}" and drops the separators
// next to empty fields.
func BuildTitle(uu, pasal, heading string) string {
	uu = strings.TrimSpace(uu)
	pasal = strings.TrimSpace(pasal)
	heading = strings.TrimSpace(heading)

	title := uu
	switch {
	case title == "":
		title = pasal
	case pasal != "":
		title += " - " + pasal
	}
	if heading != "" {
		if title == "" {
			return heading
		}
		title += ": " + heading
	}
	return title
}

// DocumentID derives a deterministic ID from a seed string: the first 16 hex
// characters of its SHA-256 hash.
func DocumentID(seed string) string {
	sum := sha256.Sum256([]byte(seed))
	return hex.EncodeToString(sum[:])[:16]
}

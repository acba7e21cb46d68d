package models

import (
	"strings"
	"unicode"
)

// Source identifies where an indexed document came from.
type Source string

const (
	SourceFile     Source = "file"
	SourceDatabase Source = "database"
)

// Intent labels produced by the intent classifier.
const (
	IntentNeedsArticle = "butuh_pasal"
	IntentGeneralTips  = "tips_umum"
	IntentSmalltalk    = "smalltalk"
	IntentMeta         = "meta"
)

// Answer tones.
const (
	ToneFormal = "formal"
	ToneCasual = "santai"
)

// Document is a unit of retrievable legal content. One document maps to one
// law article (pasal) from either the live article table or the static
// knowledge file.
type Document struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Body        string    `json:"body"`
	UU          string    `json:"uu,omitempty"`
	Pasal       string    `json:"pasal,omitempty"`
	Heading     string    `json:"heading,omitempty"`
	LegalText   string    `json:"legal_text,omitempty"`
	Explanation string    `json:"explanation,omitempty"`
	Keywords    []string  `json:"keywords,omitempty"`
	Embedding   []float64 `json:"embedding,omitempty"`
	Source      Source    `json:"source,omitempty"`

	tokens map[string]struct{}
}

// ScoredDocument is a Document plus a per-query relevance score. In vector
// mode the score is a cosine similarity in [-1,1]; in lexical mode it is a
// combined overlap score with no fixed upper bound.
type ScoredDocument struct {
	Document
	Score float64 `json:"score"`
}

// DedupKey identifies documents that describe the same article text across
// sources. First-seen wins during an index build.
func (d *Document) DedupKey() string {
	return d.UU + "\x00" + d.Pasal + "\x00" + d.Heading + "\x00" + d.LegalText
}

// TokenSet returns the normalized lexical tokens of the document, computing
// and caching them on first use. Tokens are derived from the body plus the
// keyword list.
func (d *Document) TokenSet() map[string]struct{} {
	if d.tokens == nil {
		d.tokens = Tokenize(d.Body + " " + strings.Join(d.Keywords, " "))
	}
	return d.tokens
}

// SetTokens installs a precomputed token set, e.g. one read back from a
// persisted lexical index.
func (d *Document) SetTokens(tokens []string) {
	d.tokens = make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		d.tokens[t] = struct{}{}
	}
}

// Tokenize lowercases the text and extracts alphanumeric runs, dropping runs
// of length <= 2 as stopword-like noise.
func Tokenize(text string) map[string]struct{} {
	tokens := make(map[string]struct{})
	var run []rune
	flush := func() {
		if len(run) > 2 {
			tokens[string(run)] = struct{}{}
		}
		run = run[:0]
	}
	for _, r := range strings.ToLower(text) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			run = append(run, r)
			continue
		}
		flush()
	}
	flush()
	return tokens
}

// TrainingExample is a labeled question used for nearest-example intent
// matching. Loaded once at startup and immutable afterwards.
type TrainingExample struct {
	Text  string `json:"text"`
	Label string `json:"label"`

	tokens map[string]struct{}
}

// TokenSet returns the cached token set of the example question.
func (e *TrainingExample) TokenSet() map[string]struct{} {
	if e.tokens == nil {
		e.tokens = Tokenize(e.Text)
	}
	return e.tokens
}

// Package compose builds grounded answers. Given a question, its intent and
// tone, retrieved documents, and conversation history, it either prompts the
// generative provider or synthesizes deterministic template prose from the
// top-ranked document when generation is unavailable or fails.
package compose

import (
	"context"
	"log/slog"
	"strings"

	"github.com/lantasdev/lantas-rag/pkg/models"
)

// Generator produces text for a prompt, reporting which model answered.
// gemini.Client satisfies it.
type Generator interface {
	Enabled() bool
	Generate(ctx context.Context, prompt string) (text, modelUsed string, err error)
}

// Budgets caps the prompt context sizes.
type Budgets struct {
	MaxDocContextChars  int
	MaxDocBlockChars    int
	MaxHistoryChars     int
	MaxHistoryTurnChars int
}

// DefaultBudgets mirrors the deployed configuration defaults.
func DefaultBudgets() Budgets {
	return Budgets{
		MaxDocContextChars:  2400,
		MaxDocBlockChars:    1400,
		MaxHistoryChars:     1600,
		MaxHistoryTurnChars: 260,
	}
}

// Request carries everything the composer needs for one answer.
type Request struct {
	Question  string
	Intent    string
	Tone      string // models.ToneFormal | models.ToneCasual
	Language  string // "id" | "en"
	Verbosity string // short | normal | long
	Mode      string // "action_helper" enables numbered-step formatting
	Docs      []models.ScoredDocument
	// History holds recent turns, most recent first, as fetched from the
	// store. It is reversed to chronological order inside the prompt.
	History []models.ChatMessage
}

// Source is a cited document in the response.
type Source struct {
	ID      string  `json:"id"`
	Title   string  `json:"title"`
	Excerpt string  `json:"excerpt"`
	Score   float64 `json:"score"`
}

// Result is a composed answer.
type Result struct {
	Answer    string
	ModelUsed string
	Sources   []Source
}

// Composer builds answers.
type Composer struct {
	// Generator may be nil; composition then always takes the
	// deterministic path.
	Generator Generator
	Budgets   Budgets
}

// Compose returns a non-empty answer. Sources reflect exactly the documents
// used, and only when the intent needs an article citation and at least one
// document was retrieved; a needs-article answer with no documents gets the
// insufficient-basis message instead of a fabricated citation.
func (c *Composer) Compose(ctx context.Context, req Request) Result {
	budgets := c.Budgets
	if budgets.MaxDocContextChars == 0 {
		budgets = DefaultBudgets()
	}

	var res Result
	if c.generatorUsable(req) {
		res = c.generate(ctx, req, budgets)
	}
	if res.Answer == "" {
		res.Answer = fallbackAnswer(req)
		res.ModelUsed = ""
	}

	res.Answer = TrimToVerbosity(res.Answer, req.Verbosity)
	res.Sources = buildSources(req.Intent, req.Docs)
	return res
}

// generatorUsable reports whether the grounded-generation path applies.
func (c *Composer) generatorUsable(req Request) bool {
	return c.Generator != nil && c.Generator.Enabled()
}

func (c *Composer) generate(ctx context.Context, req Request, budgets Budgets) Result {
	if !c.generatorUsable(req) {
		return Result{}
	}
	contextText := BuildContext(req, budgets)
	prompt := buildPrompt(req.Question, contextText, req.Tone)

	text, model, err := c.Generator.Generate(ctx, prompt)
	if err != nil {
		slog.Warn("generation failed, using deterministic composition", "error", err)
		return Result{}
	}
	return Result{Answer: strings.TrimSpace(text), ModelUsed: model}
}

func buildSources(intent string, docs []models.ScoredDocument) []Source {
	if intent != models.IntentNeedsArticle || len(docs) == 0 {
		return nil
	}
	out := make([]Source, 0, len(docs))
	for _, d := range docs {
		out = append(out, Source{
			ID:      d.ID,
			Title:   d.Title,
			Excerpt: Shorten(d.Body, 280),
			Score:   d.Score,
		})
	}
	return out
}

// TrimToVerbosity keeps only the first two sentences for "short" answers,
// reattaching a trailing one-line summary (the line opening with the summary
// marker) when one exists and is not already included. Other verbosity
// levels pass through unchanged.
func TrimToVerbosity(text, verbosity string) string {
	t := strings.TrimSpace(text)
	if t == "" || verbosity != "short" {
		return t
	}

	sentences := splitSentences(t)
	head := t
	if len(sentences) > 0 {
		head = strings.TrimSpace(strings.Join(sentences[:min(2, len(sentences))], " "))
	}

	var summary string
	lines := strings.Split(t, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		lower := strings.ToLower(line)
		if strings.HasPrefix(lower, "intinya") || strings.HasPrefix(lower, "bottom line") {
			summary = line
			break
		}
	}
	if summary != "" && !strings.Contains(head, summary) {
		return head + "\n\n" + summary
	}
	return head
}

func splitSentences(t string) []string {
	var out []string
	var cur strings.Builder
	runes := []rune(t)
	for i, r := range runes {
		cur.WriteRune(r)
		if r == '.' || r == '?' || r == '!' {
			if i+1 == len(runes) || runes[i+1] == ' ' || runes[i+1] == '\n' {
				if s := strings.TrimSpace(cur.String()); s != "" {
					out = append(out, s)
				}
				cur.Reset()
			}
		}
	}
	if s := strings.TrimSpace(cur.String()); s != "" {
		out = append(out, s)
	}
	return out
}

// Shorten truncates s to at most n characters, cutting back to the last word
// boundary when one exists reasonably deep into the text.
func Shorten(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	cut := s[:n]
	if sp := strings.LastIndex(cut, " "); sp > 80 {
		cut = cut[:sp]
	}
	return strings.TrimRight(cut, " ") + "..."
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

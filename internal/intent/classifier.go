// Package intent decides whether a question needs a cited legal article or
// general guidance. Classification is layered: keyword rules first, then an
// optional trained predictor, then nearest-example lexical matching, and
// finally a default. The layers exist because the trained model is optional
// deployment infrastructure; classification must never fail a request.
package intent

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/lantasdev/lantas-rag/pkg/models"
)

// DefaultSimilarityThreshold is the minimum nearest-example score required
// to accept its label.
const DefaultSimilarityThreshold = 0.25

// legalTriggers are substrings that always mean the asker wants a legal
// reference, regardless of what any model predicts.
var legalTriggers = []string{
	"pasal", "undang-undang", "uu ", "uu no", "uu nomor",
	"denda", "sanksi", "pidana", "ayat", "tilang", "etle",
}

// Predictor is an optional trained text classifier. A runtime failure is
// treated as "no prediction".
type Predictor interface {
	Predict(question string) (string, error)
}

// Classifier labels questions with models.IntentNeedsArticle or
// models.IntentGeneralTips.
type Classifier struct {
	// Predictor may be nil when no trained model is deployed.
	Predictor Predictor
	// Examples back the nearest-example layer. Immutable after construction.
	Examples []models.TrainingExample
	// Threshold defaults to DefaultSimilarityThreshold when zero.
	Threshold float64
}

// Classify returns the intent label for question. It never fails.
func (c *Classifier) Classify(question string) string {
	q := normalize(question)

	for _, trigger := range legalTriggers {
		if strings.Contains(q, trigger) {
			return models.IntentNeedsArticle
		}
	}

	if c.Predictor != nil {
		label, err := c.Predictor.Predict(question)
		if err == nil && label != "" {
			return label
		}
		if err != nil {
			slog.Warn("intent predictor failed, continuing with lexical match", "error", err)
		}
	}

	if label, ok := c.nearestExample(q); ok {
		return label
	}

	return models.IntentGeneralTips
}

// nearestExample picks the training example with the highest token-overlap
// ratio against the question and accepts its label only above the
// similarity threshold.
func (c *Classifier) nearestExample(question string) (string, bool) {
	qTokens := models.Tokenize(question)
	if len(qTokens) == 0 {
		return "", false
	}

	threshold := c.Threshold
	if threshold == 0 {
		threshold = DefaultSimilarityThreshold
	}

	bestScore := 0.0
	bestLabel := ""
	for i := range c.Examples {
		overlap := 0
		for tok := range qTokens {
			if _, ok := c.Examples[i].TokenSet()[tok]; ok {
				overlap++
			}
		}
		score := float64(overlap) / float64(len(qTokens))
		if score > bestScore {
			bestScore = score
			bestLabel = c.Examples[i].Label
		}
	}
	if bestScore >= threshold && bestLabel != "" {
		return bestLabel, true
	}
	return "", false
}

// LoadExamples reads the labeled training questions from a JSON file: an
// array of {text, label} objects. Loaded once at startup.
func LoadExamples(path string) ([]models.TrainingExample, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading training data: %w", err)
	}
	var examples []models.TrainingExample
	if err := json.Unmarshal(data, &examples); err != nil {
		return nil, fmt.Errorf("parsing training data %s: %w", path, err)
	}
	return examples, nil
}

func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(strings.TrimSpace(s))), " ")
}

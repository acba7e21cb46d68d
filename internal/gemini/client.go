// Package gemini wraps the Gemini REST API behind two capabilities: "given
// text, produce a fixed-length vector" and "given a prompt, produce text".
// Embedding results are cached by content hash; rate-limited calls retry
// with linearly increasing backoff.
package gemini

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/lantasdev/lantas-rag/internal/cache"
)

// Config holds provider configuration.
type Config struct {
	Enabled        bool
	APIKey         string
	BaseURL        string
	EmbedModel     string
	GenModel       string
	FallbackModels []string
	Timeout        time.Duration
	MaxRetries     int
	RetryBaseWait  time.Duration

	EmbedCacheTTL      time.Duration
	EmbedCacheCapacity int
}

// Client talks to the Gemini REST API.
type Client struct {
	httpClient *http.Client
	config     Config
	embedCache *cache.TTL
	sleep      func(ctx context.Context, d time.Duration) error
}

// New creates a provider client. A disabled configuration is valid: every
// call then fails with ErrDisabled so callers can degrade.
func New(config Config) *Client {
	if config.BaseURL == "" {
		config.BaseURL = "https://generativelanguage.googleapis.com/v1beta"
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if config.MaxRetries == 0 {
		config.MaxRetries = 5
	}
	if config.EmbedCacheTTL == 0 {
		config.EmbedCacheTTL = time.Hour
	}
	if config.EmbedCacheCapacity == 0 {
		config.EmbedCacheCapacity = 3000
	}
	if config.APIKey == "" {
		config.Enabled = false
	}
	return &Client{
		httpClient: &http.Client{Timeout: config.Timeout},
		config:     config,
		embedCache: cache.New(config.EmbedCacheTTL, config.EmbedCacheCapacity),
		sleep:      sleepCtx,
	}
}

// Enabled reports whether provider calls are configured.
func (c *Client) Enabled() bool { return c.config.Enabled }

// EmbedModel returns the configured embedding model name.
func (c *Client) EmbedModel() string { return c.config.EmbedModel }

// GenModel returns the configured primary generation model name.
func (c *Client) GenModel() string { return c.config.GenModel }

// GenModels returns the primary model followed by the fallback list, with
// the primary deduplicated out of the fallbacks.
func (c *Client) GenModels() []string {
	out := []string{c.config.GenModel}
	for _, m := range c.config.FallbackModels {
		if m != "" && m != c.config.GenModel {
			out = append(out, m)
		}
	}
	return out
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

func hashText(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

type embedRequest struct {
	Content struct {
		Parts []part `json:"parts"`
	} `json:"content"`
}

type part struct {
	Text string `json:"text"`
}

type embedResponse struct {
	Embedding struct {
		Values []float64 `json:"values"`
	} `json:"embedding"`
	Error *apiError `json:"error,omitempty"`
}

type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

// Embed returns the embedding vector for text. Empty input returns an empty
// vector without a provider call. Rate-limit failures are retried up to
// MaxRetries times with a wait of RetryBaseWait * attempt; any other failure
// propagates immediately.
func (c *Client) Embed(ctx context.Context, text string) ([]float64, error) {
	if !c.config.Enabled {
		return nil, ErrDisabled
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return []float64{}, nil
	}

	key := "emb:" + hashText(text)
	if cached, ok := c.embedCache.Get(key); ok {
		return cached.([]float64), nil
	}

	var lastErr error
	for attempt := 1; attempt <= c.config.MaxRetries; attempt++ {
		vec, err := c.embedOnce(ctx, text)
		if err == nil {
			c.embedCache.Set(key, vec)
			return vec, nil
		}
		if !IsRateLimited(err) {
			return nil, err
		}
		lastErr = err
		wait := c.config.RetryBaseWait * time.Duration(attempt)
		slog.Warn("gemini rate limited, backing off", "attempt", attempt, "wait", wait)
		if attempt < c.config.MaxRetries {
			if serr := c.sleep(ctx, wait); serr != nil {
				return nil, serr
			}
		}
	}
	return nil, fmt.Errorf("embedding failed after %d attempts: %w", c.config.MaxRetries, lastErr)
}

func (c *Client) embedOnce(ctx context.Context, text string) ([]float64, error) {
	var req embedRequest
	req.Content.Parts = []part{{Text: text}}

	var resp embedResponse
	if err := c.post(ctx, c.config.EmbedModel, "embedContent", req, &resp); err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return nil, classify(resp.Error.Code, resp.Error.Message)
	}
	return resp.Embedding.Values, nil
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Parts []part `json:"parts"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []part `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	Error *apiError `json:"error,omitempty"`
}

// Generate runs the prompt through the primary model and then the fallback
// list. For each model a "-latest" variant is also tried. The first
// non-empty text wins. Model-not-found and quota failures move to the next
// candidate; any other failure aborts the chain.
func (c *Client) Generate(ctx context.Context, prompt string) (text, modelUsed string, err error) {
	if !c.config.Enabled {
		return "", "", ErrDisabled
	}

	var lastErr error
	for _, base := range c.GenModels() {
		for _, model := range modelCandidates(base) {
			text, err := c.generateOnce(ctx, model, prompt)
			if err == nil {
				if text != "" {
					return text, model, nil
				}
				continue
			}
			lastErr = err
			if IsModelNotFound(err) || IsRateLimited(err) {
				continue
			}
			return "", "", err
		}
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("gemini returned no answer")
	}
	return "", "", lastErr
}

// modelCandidates expands a model name into the name itself plus its
// "-latest" variant.
func modelCandidates(model string) []string {
	m := strings.TrimSpace(model)
	if m == "" {
		return nil
	}
	out := []string{m}
	if !strings.HasSuffix(m, "-latest") {
		out = append(out, m+"-latest")
	}
	return out
}

func (c *Client) generateOnce(ctx context.Context, model, prompt string) (string, error) {
	req := generateRequest{Contents: []content{{Parts: []part{{Text: prompt}}}}}

	var resp generateResponse
	if err := c.post(ctx, model, "generateContent", req, &resp); err != nil {
		return "", err
	}
	if resp.Error != nil {
		return "", classify(resp.Error.Code, resp.Error.Message)
	}
	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", nil
	}
	return strings.TrimSpace(resp.Candidates[0].Content.Parts[0].Text), nil
}

// post issues one JSON request against {base}/models/{model}:{method} with
// the call bounded by the configured timeout.
func (c *Client) post(ctx context.Context, model, method string, reqBody, respBody any) error {
	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	body, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:%s", strings.TrimRight(c.config.BaseURL, "/"), model, method)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", c.config.APIKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return &Error{Kind: KindUnavailable, Message: err.Error()}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		message := string(data)
		var wrapped struct {
			Error *apiError `json:"error"`
		}
		if json.Unmarshal(data, &wrapped) == nil && wrapped.Error != nil {
			message = wrapped.Error.Message
		}
		return classify(resp.StatusCode, message)
	}

	if err := json.Unmarshal(data, respBody); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return nil
}

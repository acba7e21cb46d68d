package gemini

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func testClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	c := New(Config{
		Enabled:        true,
		APIKey:         "test-key",
		BaseURL:        server.URL,
		EmbedModel:     "embed-test",
		GenModel:       "gen-test",
		FallbackModels: []string{"gen-fallback"},
		MaxRetries:     3,
		RetryBaseWait:  time.Millisecond,
	})
	c.sleep = func(ctx context.Context, d time.Duration) error { return nil }
	return c, server
}

func writeEmbedding(w http.ResponseWriter, values []float64) {
	var resp embedResponse
	resp.Embedding.Values = values
	json.NewEncoder(w).Encode(resp)
}

func writeText(w http.ResponseWriter, text string) {
	json.NewEncoder(w).Encode(map[string]any{
		"candidates": []map[string]any{
			{"content": map[string]any{"parts": []map[string]string{{"text": text}}}},
		},
	})
}

func TestEmbed_Disabled(t *testing.T) {
	c := New(Config{Enabled: false})
	if _, err := c.Embed(context.Background(), "helm"); err != ErrDisabled {
		t.Errorf("expected ErrDisabled, got %v", err)
	}
}

func TestEmbed_EmptyInputSkipsProvider(t *testing.T) {
	called := false
	c, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
		writeEmbedding(w, []float64{1})
	})

	vec, err := c.Embed(context.Background(), "   ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(vec) != 0 {
		t.Errorf("expected empty vector, got %v", vec)
	}
	if called {
		t.Error("provider must not be called for empty input")
	}
}

func TestEmbed_CachesByContentHash(t *testing.T) {
	calls := 0
	c, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		writeEmbedding(w, []float64{0.1, 0.2})
	})

	for i := 0; i < 3; i++ {
		vec, err := c.Embed(context.Background(), "wajib helm")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(vec) != 2 {
			t.Fatalf("unexpected vector %v", vec)
		}
	}
	if calls != 1 {
		t.Errorf("provider called %d times, want 1 (cache hit)", calls)
	}
}

func TestEmbed_RetriesRateLimitWithLinearBackoff(t *testing.T) {
	calls := 0
	c, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			http.Error(w, `{"error":{"code":429,"message":"RESOURCE_EXHAUSTED"}}`, http.StatusTooManyRequests)
			return
		}
		writeEmbedding(w, []float64{0.5})
	})

	var waits []time.Duration
	c.sleep = func(ctx context.Context, d time.Duration) error {
		waits = append(waits, d)
		return nil
	}
	c.config.RetryBaseWait = 10 * time.Millisecond

	vec, err := c.Embed(context.Background(), "tilang")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(vec) != 1 {
		t.Fatalf("unexpected vector %v", vec)
	}
	if calls != 3 {
		t.Errorf("provider called %d times, want 3", calls)
	}
	want := []time.Duration{10 * time.Millisecond, 20 * time.Millisecond}
	if len(waits) != 2 || waits[0] != want[0] || waits[1] != want[1] {
		t.Errorf("backoff waits = %v, want %v", waits, want)
	}
}

func TestEmbed_NonRateLimitErrorNotRetried(t *testing.T) {
	calls := 0
	c, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.Error(w, `{"error":{"code":400,"message":"INVALID_ARGUMENT"}}`, http.StatusBadRequest)
	})

	_, err := c.Embed(context.Background(), "motor")
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("provider called %d times, want 1", calls)
	}
	if IsRateLimited(err) {
		t.Error("bad request misclassified as rate limit")
	}
}

func TestGenerate_FallsBackAcrossModels(t *testing.T) {
	var models []string
	c, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		// URL path looks like /models/<model>:generateContent
		name := strings.TrimPrefix(r.URL.Path, "/models/")
		name = strings.TrimSuffix(name, ":generateContent")
		models = append(models, name)
		switch {
		case strings.HasPrefix(name, "gen-test"):
			http.Error(w, `{"error":{"code":404,"message":"model is not found"}}`, http.StatusNotFound)
		default:
			writeText(w, "Jawaban dari model cadangan.")
		}
	})

	text, model, err := c.Generate(context.Background(), "prompt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "Jawaban dari model cadangan." {
		t.Errorf("unexpected text %q", text)
	}
	if model != "gen-fallback" {
		t.Errorf("model used = %q, want gen-fallback", model)
	}
	// Primary and its -latest variant must both have been tried first.
	if len(models) < 3 || models[0] != "gen-test" || models[1] != "gen-test-latest" {
		t.Errorf("model attempt order = %v", models)
	}
}

func TestGenerate_OtherErrorAbortsChain(t *testing.T) {
	calls := 0
	c, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.Error(w, `{"error":{"code":400,"message":"INVALID_ARGUMENT"}}`, http.StatusBadRequest)
	})

	_, _, err := c.Generate(context.Background(), "prompt")
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("chain continued after non-retryable error: %d calls", calls)
	}
}

func TestModelCandidates(t *testing.T) {
	tests := []struct {
		model string
		want  []string
	}{
		{"gemini-2.5-flash", []string{"gemini-2.5-flash", "gemini-2.5-flash-latest"}},
		{"gemini-1.5-flash-latest", []string{"gemini-1.5-flash-latest"}},
		{"", nil},
	}
	for _, tt := range tests {
		got := modelCandidates(tt.model)
		if len(got) != len(tt.want) {
			t.Errorf("modelCandidates(%q) = %v, want %v", tt.model, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("modelCandidates(%q) = %v, want %v", tt.model, got, tt.want)
			}
		}
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		status  int
		message string
		want    Kind
	}{
		{429, "too many requests", KindRateLimited},
		{400, "quota exceeded for project", KindRateLimited},
		{404, "model missing", KindModelNotFound},
		{400, "NOT_FOUND: call ListModels", KindModelNotFound},
		{503, "overloaded", KindUnavailable},
		{400, "bad input", KindOther},
	}
	for _, tt := range tests {
		if got := classify(tt.status, tt.message); got.Kind != tt.want {
			t.Errorf("classify(%d, %q).Kind = %v, want %v", tt.status, tt.message, got.Kind, tt.want)
		}
	}
}

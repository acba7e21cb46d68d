package gemini

import (
	"errors"
	"fmt"
	"strings"
)

// ErrDisabled is returned for every provider call when the provider is
// disabled or has no API key. Callers treat it as "vector search / generation
// unavailable" and fall back to the lexical or deterministic path.
var ErrDisabled = errors.New("gemini provider is disabled")

// Kind classifies a provider failure for retry and fallback decisions.
type Kind int

const (
	KindOther Kind = iota
	KindRateLimited
	KindModelNotFound
	KindUnavailable
)

// Error is a classified provider failure.
type Error struct {
	Kind       Kind
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	return fmt.Sprintf("gemini: %s (status %d)", e.Message, e.StatusCode)
}

// classify maps an HTTP status and API message to an error kind.
func classify(status int, message string) *Error {
	kind := KindOther
	lower := strings.ToLower(message)
	switch {
	case status == 429 || strings.Contains(lower, "resource_exhausted") || strings.Contains(lower, "quota"):
		kind = KindRateLimited
	case status == 404 || strings.Contains(lower, "not_found") || strings.Contains(lower, "is not found"):
		kind = KindModelNotFound
	case status == 503 || status == 502:
		kind = KindUnavailable
	}
	return &Error{Kind: kind, StatusCode: status, Message: message}
}

// IsRateLimited reports whether err is a quota/rate-limit failure.
func IsRateLimited(err error) bool {
	var pe *Error
	return errors.As(err, &pe) && pe.Kind == KindRateLimited
}

// IsModelNotFound reports whether err means the requested model does not
// exist.
func IsModelNotFound(err error) bool {
	var pe *Error
	return errors.As(err, &pe) && pe.Kind == KindModelNotFound
}

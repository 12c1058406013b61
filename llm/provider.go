// Package llm defines the text-generation contract shared by providers.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// TextGenerator turns a prompt into text.
type TextGenerator interface {
	Name() string
	GenerateText(ctx context.Context, prompt string) (string, error)
}

// RateLimitError marks quota or rate exhaustion reported by a provider.
type RateLimitError struct {
	Provider string
	Err      error
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("%s rate limited: %v", e.Provider, e.Err)
}

func (e *RateLimitError) Unwrap() error { return e.Err }

var rateLimitMarkers = []string{
	"429",
	"quota",
	"rate limit",
	"rate_limit",
	"ratelimit",
	"resource_exhausted",
	"resource exhausted",
	"too many requests",
}

// IsRateLimited reports whether err is a RateLimitError or carries one of
// the quota markers providers put in their error text.
func IsRateLimited(err error) bool {
	if err == nil {
		return false
	}
	var rl *RateLimitError
	if errors.As(err, &rl) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, m := range rateLimitMarkers {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}

// CleanText strips markdown fences and surrounding quotes from model output.
func CleanText(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
		if i := strings.IndexByte(s, '\n'); i >= 0 && !strings.ContainsAny(s[:i], " .") {
			s = s[i+1:]
		}
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	s = strings.TrimSpace(s)
	s = strings.Trim(s, "\"“”")
	return strings.TrimSpace(s)
}

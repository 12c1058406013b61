package llm

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsRateLimited(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"typed", &RateLimitError{Provider: "groq", Err: errors.New("slow down")}, true},
		{"wrapped typed", fmt.Errorf("generate: %w", &RateLimitError{Provider: "gemini", Err: errors.New("x")}), true},
		{"status code", errors.New("Error 429, Message: Resource has been exhausted"), true},
		{"quota", errors.New("You exceeded your current quota"), true},
		{"grpc code", errors.New("RESOURCE_EXHAUSTED"), true},
		{"plain", errors.New("invalid api key"), false},
		{"timeout", errors.New("context deadline exceeded"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRateLimited(tt.err))
		})
	}
}

func TestCleanText(t *testing.T) {
	assert.Equal(t, "In Delhi we rest.", CleanText("  \"In Delhi we rest.\"  "))
	assert.Equal(t, "In Delhi we rest.", CleanText("```text\nIn Delhi we rest.\n```"))
	assert.Equal(t, "In Delhi we rest.", CleanText("```\nIn Delhi we rest.```"))
	assert.Equal(t, "Quoted", CleanText("“Quoted”"))
}

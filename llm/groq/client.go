package groq

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"eco-reel-pipeline/llm"
)

const (
	defaultBaseURL = "https://api.groq.com/openai/v1"
	defaultModel   = "llama-3.3-70b-versatile"
)

const systemPrompt = `You are a warm, empathetic narrator for short community awareness reels.
You reply with the spoken script only: no title, no quotes, no markdown, no stage directions.`

// Client generates text with the Groq chat completions API
type Client struct {
	apiKey      string
	model       string
	baseURL     string
	temperature float64
	httpClient  *http.Client
}

var _ llm.TextGenerator = (*Client)(nil)

// New creates a Groq client
func New(apiKey, model string, temperature float64) *Client {
	if model == "" {
		model = defaultModel
	}
	return &Client{
		apiKey:      apiKey,
		model:       model,
		baseURL:     defaultBaseURL,
		temperature: temperature,
		httpClient:  &http.Client{Timeout: 60 * time.Second},
	}
}

// WithBaseURL points the client at another OpenAI-compatible endpoint
func (c *Client) WithBaseURL(u string) *Client {
	c.baseURL = u
	return c
}

func (c *Client) Name() string { return "groq" }

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error"`
}

// GenerateText sends the prompt as the user message
func (c *Client) GenerateText(ctx context.Context, prompt string) (string, error) {
	if c.apiKey == "" {
		return "", fmt.Errorf("GROQ_API_KEY not set")
	}

	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
		Temperature: c.temperature,
		MaxTokens:   512,
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("groq request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return "", &llm.RateLimitError{Provider: c.Name(), Err: fmt.Errorf("HTTP 429: %s", truncate(string(raw), 200))}
	}

	var parsed chatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("parse groq response (HTTP %d): %w", resp.StatusCode, err)
	}
	if parsed.Error != nil {
		apiErr := fmt.Errorf("groq error: %s", parsed.Error.Message)
		if llm.IsRateLimited(apiErr) || parsed.Error.Code == "rate_limit_exceeded" {
			return "", &llm.RateLimitError{Provider: c.Name(), Err: apiErr}
		}
		return "", apiErr
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("groq: HTTP %d", resp.StatusCode)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("groq returned no choices")
	}

	slog.Debug("Groq: response received", "model", c.model, "status", resp.StatusCode)
	return parsed.Choices[0].Message.Content, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

package gemini

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"google.golang.org/genai"

	"eco-reel-pipeline/llm"
)

const defaultModel = "gemini-2.0-flash"

// contentGenerator is the subset of *genai.Models the client uses.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Client implements llm.TextGenerator for Google Gemini.
type Client struct {
	models      contentGenerator
	modelName   string
	temperature float32
	logPath     string

	mu sync.Mutex // guards the prompt log
}

var _ llm.TextGenerator = (*Client)(nil)

// NewClient creates a Gemini client. logPath may be empty.
func NewClient(ctx context.Context, apiKey, model string, temperature float64, logPath string) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini: api key not set (GEMINI_API_KEY)")
	}
	gc, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	return newClient(gc.Models, model, temperature, logPath), nil
}

func newClient(models contentGenerator, model string, temperature float64, logPath string) *Client {
	if model == "" {
		model = defaultModel
	}
	return &Client{
		models:      models,
		modelName:   model,
		temperature: float32(temperature),
		logPath:     logPath,
	}
}

func (c *Client) Name() string { return "gemini" }

// GenerateText sends a prompt and returns the text response.
func (c *Client) GenerateText(ctx context.Context, prompt string) (string, error) {
	cfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(c.temperature),
	}

	start := time.Now()
	resp, err := c.models.GenerateContent(ctx, c.modelName, genai.Text(prompt), cfg)
	if err != nil {
		c.logPrompt(prompt, fmt.Sprintf("ERROR: %v", err))
		if llm.IsRateLimited(err) {
			return "", &llm.RateLimitError{Provider: c.Name(), Err: err}
		}
		return "", fmt.Errorf("generate text error: %w", err)
	}

	text, err := getResponseText(resp)
	if err != nil {
		c.logPrompt(prompt, fmt.Sprintf("TEXT_PARSE_ERROR: %v", err))
		return "", err
	}

	slog.Debug("Gemini: response received", "model", c.modelName, "chars", len(text), "elapsed", time.Since(start))
	c.logPrompt(prompt, text)
	return text, nil
}

func getResponseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("no candidates returned")
	}
	cand := resp.Candidates[0]
	if cand.Content == nil {
		return "", fmt.Errorf("candidate has no content (finish reason %s)", cand.FinishReason)
	}

	var sb strings.Builder
	for _, part := range cand.Content.Parts {
		if part != nil && part.Text != "" {
			sb.WriteString(part.Text)
		}
	}
	if strings.TrimSpace(sb.String()) == "" {
		return "", fmt.Errorf("empty response text")
	}
	return sb.String(), nil
}

func (c *Client) logPrompt(prompt, response string) {
	if c.logPath == "" {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(c.logPath), 0o755); err != nil {
		return
	}
	f, err := os.OpenFile(c.logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return
	}
	defer f.Close()

	entry := fmt.Sprintf("[%s] MODEL: %s\nPROMPT:\n%s\n\nRESPONSE:\n%s\n%s\n",
		time.Now().Format("2006-01-02 15:04:05"), c.modelName, prompt, response, strings.Repeat("-", 80))
	_, _ = f.WriteString(entry)
}

package script

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"eco-reel-pipeline/config"
	"eco-reel-pipeline/content"
	"eco-reel-pipeline/llm"
	"eco-reel-pipeline/retry"
	"eco-reel-pipeline/types"
)

var (
	// ErrRetriesExhausted means every allowed provider call was rate limited.
	ErrRetriesExhausted = errors.New("script provider retries exhausted")
	// ErrTooShort means the provider returned fewer words than the accepted band.
	ErrTooShort = errors.New("generated script too short")
	// ErrNoProvider means no text generator is configured.
	ErrNoProvider = errors.New("no text generator configured")
)

// Generator writes the narration script for a reel.
type Generator struct {
	provider  llm.TextGenerator
	cache     Cache
	catalog   *content.Catalog
	retrier   *retry.Retrier
	minWords  int
	maxWords  int
	trimWords int
	now       func() time.Time
}

// Option customises a Generator.
type Option func(*Generator)

// WithSleep replaces the backoff sleep.
func WithSleep(s retry.SleepFunc) Option {
	return func(g *Generator) { g.retrier.Sleep = s }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) { g.now = now }
}

// New creates a Generator. provider and cache may be nil.
func New(provider llm.TextGenerator, cache Cache, catalog *content.Catalog, cfg config.ScriptConfig, opts ...Option) *Generator {
	g := &Generator{
		provider: provider,
		cache:    cache,
		catalog:  catalog,
		retrier: &retry.Retrier{
			Policy: retry.Policy{
				MaxRetries: cfg.MaxRetries,
				BaseDelay:  cfg.BaseDelay.Std(),
				Multiplier: 2,
			},
			Retryable: llm.IsRateLimited,
		},
		minWords:  cfg.MinWords,
		maxWords:  cfg.MaxWords,
		trimWords: cfg.TrimWords,
		now:       time.Now,
	}
	if g.maxWords <= 0 {
		g.maxWords = 60
	}
	if g.trimWords <= 0 || g.trimWords > g.maxWords {
		g.trimWords = g.maxWords
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate returns a cached, generated or fallback script. It never fails.
func (g *Generator) Generate(ctx context.Context, location string, r types.LocationReading, d types.ThemeDecision) types.ScriptResult {
	key := Fingerprint(location, d.Theme, r)

	if g.cache != nil {
		if cached, ok := g.cache.Get(key); ok {
			cached.Cached = true
			slog.Info("Script cache hit", "location", location, "theme", d.Theme, "key", key)
			return cached
		}
	}

	res, err := g.generate(ctx, location, r, d)
	if err != nil {
		slog.Warn("Script generation failed, using fallback", "location", location, "theme", d.Theme, "error", err)
		return g.Fallback(location, d.Theme)
	}

	if g.cache != nil {
		if err := g.cache.Put(key, res); err != nil {
			slog.Warn("Script cache write failed", "key", key, "error", err)
		}
	}
	slog.Info("Script ready", "words", res.WordCount, "theme", res.Theme)
	return res
}

func (g *Generator) generate(ctx context.Context, location string, r types.LocationReading, d types.ThemeDecision) (types.ScriptResult, error) {
	if g.provider == nil {
		return types.ScriptResult{}, ErrNoProvider
	}

	prompt, err := BuildPrompt(g.catalog, location, r, d, g.now())
	if err != nil {
		return types.ScriptResult{}, fmt.Errorf("build prompt: %w", err)
	}

	var text string
	res := g.retrier.Do(ctx, func(ctx context.Context, attempt int) error {
		out, err := g.provider.GenerateText(ctx, prompt)
		if err != nil {
			slog.Warn("Script provider call failed", "provider", g.provider.Name(), "attempt", attempt, "error", err)
			return err
		}
		text = out
		return nil
	})

	switch res.Outcome {
	case retry.Succeeded:
	case retry.Exhausted:
		return types.ScriptResult{}, fmt.Errorf("%w after %d attempts: %v", ErrRetriesExhausted, res.Attempts, res.Err)
	default:
		return types.ScriptResult{}, res.Err
	}

	script, words, err := g.validate(text)
	if err != nil {
		return types.ScriptResult{}, err
	}
	return types.ScriptResult{
		Script:    script,
		WordCount: words,
		Theme:     d.Theme,
		Timestamp: g.now(),
	}, nil
}

// validate normalises text and enforces the word band: long scripts are
// trimmed, short ones rejected.
func (g *Generator) validate(text string) (string, int, error) {
	words := strings.Fields(llm.CleanText(text))

	if len(words) > g.maxWords {
		slog.Info("Script over length, trimming", "words", len(words), "max", g.maxWords)
		words = words[:g.trimWords]
		last := strings.TrimRight(words[len(words)-1], ".,;:!?-—…\"'")
		if last == "" {
			last = words[len(words)-1]
		}
		words[len(words)-1] = last + "."
	}
	if len(words) < g.minWords {
		return "", 0, fmt.Errorf("%w: %d words, need %d", ErrTooShort, len(words), g.minWords)
	}
	return strings.Join(words, " "), len(words), nil
}

// Fallback returns the deterministic script for theme and location.
func (g *Generator) Fallback(location string, theme types.Theme) types.ScriptResult {
	text, err := g.catalog.FallbackScript(theme, location)
	if err != nil || strings.TrimSpace(text) == "" {
		text = fmt.Sprintf("In %s, our environment tells a story of change. Every small action towards a better tomorrow creates ripples of hope for all of us.", location)
	}
	text = strings.Join(strings.Fields(text), " ")
	return types.ScriptResult{
		Script:    text,
		WordCount: len(strings.Fields(text)),
		Theme:     theme,
		Timestamp: g.now(),
		Fallback:  true,
	}
}

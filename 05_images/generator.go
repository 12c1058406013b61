package images

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"eco-reel-pipeline/config"
	"eco-reel-pipeline/content"
	"eco-reel-pipeline/retry"
	"eco-reel-pipeline/types"
)

// Generator produces the ordered slide set for a theme.
type Generator struct {
	provider   Provider
	catalog    *content.Catalog
	dir        string
	aspect     string
	safety     string
	pauseEvery int
	pause      time.Duration
	sleep      retry.SleepFunc
	now        func() time.Time
	newID      func() string
}

// Option customises a Generator.
type Option func(*Generator)

// WithSleep replaces the rate-limit pause.
func WithSleep(s retry.SleepFunc) Option {
	return func(g *Generator) { g.sleep = s }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) { g.now = now }
}

// WithRunID replaces the per-run file name component.
func WithRunID(f func() string) Option {
	return func(g *Generator) { g.newID = f }
}

// New creates a Generator writing into dir.
func New(provider Provider, catalog *content.Catalog, dir string, cfg config.ImagesConfig, opts ...Option) *Generator {
	g := &Generator{
		provider:   provider,
		catalog:    catalog,
		dir:        dir,
		aspect:     cfg.AspectRatio,
		safety:     cfg.SafetyLevel,
		pauseEvery: cfg.PauseEvery,
		pause:      cfg.Pause.Std(),
		sleep:      retry.Sleep,
		now:        time.Now,
		newID:      func() string { return uuid.NewString()[:8] },
	}
	if g.aspect == "" {
		g.aspect = "9:16"
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// NewProvider builds the configured image provider.
func NewProvider(ctx context.Context, cfg config.ImagesConfig) (Provider, error) {
	switch cfg.Provider {
	case "pollinations":
		return NewPollinations(cfg.BaseURL), nil
	case "", "imagen":
		p, err := NewImagen(ctx, cfg.GeminiAPIKey, cfg.Model)
		if err != nil {
			return nil, err
		}
		return p, nil
	default:
		return nil, fmt.Errorf("unknown image provider %q", cfg.Provider)
	}
}

// Prompts returns the decorated prompts for count slides of theme. The
// result is truncated to the size of the theme's bank.
func (g *Generator) Prompts(theme types.Theme, count int) []string {
	tc := g.catalog.Theme(theme)
	n := min(count, len(tc.Prompts))
	if n <= 0 {
		return nil
	}
	out := make([]string, n)
	for i := range out {
		out[i] = g.decorate(tc, tc.Prompts[i])
	}
	return out
}

func (g *Generator) decorate(tc content.ThemeContent, base string) string {
	parts := []string{strings.TrimSpace(base)}
	if tc.VisualStyle != "" {
		parts = append(parts, tc.VisualStyle)
	}
	if g.catalog.PromptSuffix != "" {
		parts = append(parts, g.catalog.PromptSuffix)
	}
	return strings.Join(parts, ", ")
}

// Generate renders count images sequentially. Each failed slide is retried
// once with the theme's simplified prompt. A short set is returned together
// with an error wrapping ErrIncompleteSet.
func (g *Generator) Generate(ctx context.Context, script string, theme types.Theme, count int) (types.ImageSet, error) {
	set := types.ImageSet{Requested: count, Theme: theme}
	if count <= 0 {
		return set, fmt.Errorf("image count must be positive, got %d", count)
	}
	if g.provider == nil {
		set.Failed = indices(0, count)
		return set, fmt.Errorf("%w: no image provider configured", ErrIncompleteSet)
	}
	if err := os.MkdirAll(g.dir, 0o755); err != nil {
		return set, fmt.Errorf("create image dir: %w", err)
	}

	tc := g.catalog.Theme(theme)
	prompts := g.Prompts(theme, count)
	fallback := g.decorate(tc, tc.FallbackPrompt)
	// run id keeps concurrent runs in the same second apart
	stamp := g.now().Format("20060102_150405") + "_" + g.newID()
	if len(prompts) < count {
		slog.Warn("Prompt bank smaller than requested count", "theme", theme, "bank", len(prompts), "count", count)
	}

	slog.Info("Generating images", "count", count, "theme", theme, "provider", g.provider.Name(), "script_words", len(strings.Fields(script)))

	for i, prompt := range prompts {
		if err := ctx.Err(); err != nil {
			set.Failed = append(set.Failed, indices(i, count)...)
			return set, fmt.Errorf("%w: %v", ErrIncompleteSet, err)
		}

		asset, err := g.one(ctx, i, prompt, fallback, stamp)
		if err != nil {
			slog.Warn("Image failed", "index", i, "error", err)
			set.Failed = append(set.Failed, i)
		} else {
			asset.Theme = theme
			set.Images = append(set.Images, asset)
			slog.Info("Image ready", "index", i+1, "of", count, "path", asset.Path, "fallback_prompt", asset.UsedFallbackPrompt)
		}

		done := i + 1
		if g.pauseEvery > 0 && g.pause > 0 && done%g.pauseEvery == 0 && done < len(prompts) {
			slog.Info("Pausing for image rate limits", "pause", g.pause)
			if err := g.sleep(ctx, g.pause); err != nil {
				set.Failed = append(set.Failed, indices(done, count)...)
				return set, fmt.Errorf("%w: %v", ErrIncompleteSet, err)
			}
		}
	}

	set.Failed = append(set.Failed, indices(len(prompts), count)...)
	if len(set.Images) < count {
		return set, fmt.Errorf("%w: %d of %d images, failed indices %v", ErrIncompleteSet, len(set.Images), count, set.Failed)
	}
	return set, nil
}

func (g *Generator) one(ctx context.Context, i int, prompt, fallback, stamp string) (types.ImageAsset, error) {
	asset := types.ImageAsset{Index: i, Prompt: prompt}

	data, err := g.provider.Generate(ctx, prompt, g.aspect, g.safety)
	if err == nil && len(data) == 0 {
		err = ErrEmptyImage
	}
	if err != nil {
		slog.Warn("Image prompt failed, retrying with simplified prompt", "index", i, "error", err)
		data, err = g.provider.Generate(ctx, fallback, g.aspect, g.safety)
		if err == nil && len(data) == 0 {
			err = ErrEmptyImage
		}
		if err != nil {
			return asset, err
		}
		asset.Prompt = fallback
		asset.UsedFallbackPrompt = true
	}

	path := filepath.Join(g.dir, fmt.Sprintf("imagen_%s_%d.png", stamp, i))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return asset, fmt.Errorf("save image: %w", err)
	}
	asset.Path = path
	return asset, nil
}

func indices(from, to int) []int {
	out := make([]int, 0, to-from)
	for i := from; i < to; i++ {
		out = append(out, i)
	}
	return out
}

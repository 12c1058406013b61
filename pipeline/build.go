package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"eco-reel-pipeline/01_location"
	"eco-reel-pipeline/02_theme"
	"eco-reel-pipeline/03_script"
	"eco-reel-pipeline/04_voice"
	"eco-reel-pipeline/05_images"
	"eco-reel-pipeline/06_video"
	"eco-reel-pipeline/07_subtitles"
	"eco-reel-pipeline/config"
	"eco-reel-pipeline/content"
	"eco-reel-pipeline/llm"
	"eco-reel-pipeline/llm/gemini"
	"eco-reel-pipeline/llm/groq"
	"eco-reel-pipeline/media"
)

// Build wires the real stage implementations from cfg. Missing credentials
// for the script, voice or image providers degrade the run instead of
// failing here; only a broken location source or content catalog is fatal.
func Build(ctx context.Context, cfg *config.Config) (*Orchestrator, error) {
	catalog, err := content.Load(cfg.Content.Dir)
	if err != nil {
		return nil, fmt.Errorf("load content: %w", err)
	}

	loc, err := location.NewFromConfig(cfg.Location)
	if err != nil {
		return nil, fmt.Errorf("location source: %w", err)
	}
	slog.Info("Location source ready", "source", loc.SourceName())

	tools := media.NewTools(cfg.Video.FFmpeg, cfg.Video.FFprobe)

	writer := script.New(
		textGenerator(ctx, cfg.Script),
		script.NewTTLCache(script.NewFileStore(cfg.CachePath()), cfg.Script.CacheTTL.Std()),
		catalog,
		cfg.Script,
	)

	imgProvider, err := images.NewProvider(ctx, cfg.Images)
	if err != nil {
		slog.Warn("Image provider unavailable", "provider", cfg.Images.Provider, "error", err)
	}

	stages := Stages{
		Location: loc,
		Theme:    theme.New(catalog),
		Script:   writer,
		Voice:    voice.NewFromConfig(ctx, cfg.Voice, cfg.Paths.Audio, tools),
		Images:   images.New(imgProvider, catalog, cfg.Paths.Images, cfg.Images),
		Video:    video.New(tools, cfg.Video, cfg.Paths.Video, cfg.Images.Count),
	}
	if cfg.Subtitles.Enabled {
		stages.Subtitles = subtitles.NewWriter(cfg.Subtitles, cfg.Paths.Subtitles, tools)
	}
	return New(stages, cfg.Images.Count), nil
}

// textGenerator returns nil when the configured provider has no key, which
// leaves the script stage on its fallback scripts.
func textGenerator(ctx context.Context, cfg config.ScriptConfig) llm.TextGenerator {
	switch cfg.Provider {
	case "groq":
		if cfg.GroqAPIKey == "" {
			slog.Warn("GROQ_API_KEY not set, using fallback scripts")
			return nil
		}
		return groq.New(cfg.GroqAPIKey, cfg.GroqModel, cfg.Temperature)
	default:
		if cfg.GeminiAPIKey == "" {
			slog.Warn("GEMINI_API_KEY not set, using fallback scripts")
			return nil
		}
		c, err := gemini.NewClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, cfg.Temperature, cfg.PromptLog)
		if err != nil {
			slog.Warn("Gemini client unavailable, using fallback scripts", "error", err)
			return nil
		}
		return c
	}
}

package voice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"eco-reel-pipeline/config"
	"eco-reel-pipeline/media"
	"eco-reel-pipeline/types"
)

// Synthesizer runs the primary provider and falls back to a second one.
type Synthesizer struct {
	primary        Provider
	fallback       Provider
	dir            string
	tools          *media.Tools
	wordsPerSecond float64
	now            func() time.Time
}

// New creates a Synthesizer. Either provider may be nil; tools may be nil
// to skip ffprobe measurement.
func New(primary, fallback Provider, dir string, tools *media.Tools, wordsPerSecond float64) *Synthesizer {
	if wordsPerSecond <= 0 {
		wordsPerSecond = 2.5
	}
	return &Synthesizer{
		primary:        primary,
		fallback:       fallback,
		dir:            dir,
		tools:          tools,
		wordsPerSecond: wordsPerSecond,
		now:            time.Now,
	}
}

// NewFromConfig wires the configured providers. A primary that cannot be
// constructed is logged and skipped so the fallback still runs.
func NewFromConfig(ctx context.Context, cfg config.VoiceConfig, dir string, tools *media.Tools) *Synthesizer {
	primary, err := providerByName(ctx, cfg.Primary, cfg, tools)
	if err != nil {
		slog.Warn("Primary voice provider unavailable", "provider", cfg.Primary, "error", err)
	}
	fallback, err := providerByName(ctx, cfg.Fallback, cfg, tools)
	if err != nil {
		slog.Warn("Fallback voice provider unavailable", "provider", cfg.Fallback, "error", err)
	}
	return New(primary, fallback, dir, tools, cfg.WordsPerSecond)
}

func providerByName(ctx context.Context, name string, cfg config.VoiceConfig, tools *media.Tools) (Provider, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "none":
		return nil, nil
	case "google":
		g, err := NewGoogleTTS(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return g, nil
	case "edge":
		return NewEdgeTTSFromEnv(cfg.EdgeVoice), nil
	case "command":
		var runner media.Runner
		if tools != nil {
			runner = tools.Runner
		}
		return NewCommand(cfg.FallbackCommand, cfg.EdgeVoice, runner), nil
	default:
		return nil, fmt.Errorf("unknown voice provider %q", name)
	}
}

// Synthesize produces the voiceover for script. It never fails: when no
// provider succeeds the asset has an empty AudioPath and Error set.
func (s *Synthesizer) Synthesize(ctx context.Context, script string) types.VoiceAsset {
	text := strings.Join(strings.Fields(script), " ")
	if text == "" {
		return types.VoiceAsset{Error: fmt.Sprintf("%v: empty script", ErrSynthesis)}
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return types.VoiceAsset{Error: fmt.Sprintf("create audio dir: %v", err)}
	}

	filename := fmt.Sprintf("story_%s_%s.mp3", s.now().Format("20060102_150405"), uuid.New().String()[:8])
	outPath := filepath.Join(s.dir, filename)

	var errs []error
	for _, c := range []struct {
		p      Provider
		method types.VoiceMethod
	}{
		{s.primary, types.VoicePrimary},
		{s.fallback, types.VoiceFallback},
	} {
		if c.p == nil {
			continue
		}
		slog.Info("Synthesizing voice", "provider", c.p.Name(), "method", c.method)
		err := c.p.Synthesize(ctx, text, outPath)
		if err == nil {
			err = checkOutput(outPath)
		}
		if err != nil {
			slog.Warn("Voice provider failed", "provider", c.p.Name(), "error", err)
			os.Remove(outPath)
			errs = append(errs, fmt.Errorf("%s: %w", c.p.Name(), err))
			continue
		}

		asset := types.VoiceAsset{
			AudioPath:        outPath,
			Filename:         filename,
			DurationEstimate: s.estimate(ctx, text, outPath),
			Method:           c.method,
			Provider:         c.p.Name(),
		}
		slog.Info("Voice ready", "path", outPath, "duration", asset.DurationEstimate, "provider", asset.Provider)
		return asset
	}

	if len(errs) == 0 {
		errs = append(errs, errors.New("no voice provider configured"))
	}
	return types.VoiceAsset{Error: fmt.Errorf("%w: %w", ErrSynthesis, errors.Join(errs...)).Error()}
}

func (s *Synthesizer) estimate(ctx context.Context, text, path string) float64 {
	est := float64(len(strings.Fields(text))) / s.wordsPerSecond
	if s.tools != nil {
		dur, err := s.tools.Duration(ctx, path)
		if err == nil && dur > 0 {
			return dur
		}
		slog.Debug("ffprobe could not measure audio", "path", path, "error", err)
	}
	if dur, err := media.MP3Duration(path); err == nil && dur > 0 {
		return dur
	}
	return est
}

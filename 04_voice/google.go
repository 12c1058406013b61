package voice

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/texttospeech/v1"

	"eco-reel-pipeline/config"
)

// GoogleTTS synthesizes speech with Google Cloud Text-to-Speech.
type GoogleTTS struct {
	svc *texttospeech.Service
	cfg config.VoiceConfig
}

// NewGoogleTTS creates the client. With no opts it authenticates with the
// configured API key, or Application Default Credentials when none is set.
func NewGoogleTTS(ctx context.Context, cfg config.VoiceConfig, opts ...option.ClientOption) (*GoogleTTS, error) {
	if len(opts) == 0 {
		if cfg.GoogleAPIKey != "" {
			opts = append(opts, option.WithAPIKey(cfg.GoogleAPIKey))
		} else {
			ts, err := google.DefaultTokenSource(ctx, texttospeech.CloudPlatformScope)
			if err != nil {
				return nil, fmt.Errorf("google tts credentials: %w", err)
			}
			opts = append(opts, option.WithTokenSource(ts))
		}
	}
	svc, err := texttospeech.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create texttospeech service: %w", err)
	}
	return &GoogleTTS{svc: svc, cfg: cfg}, nil
}

func (g *GoogleTTS) Name() string { return "google-tts" }

func (g *GoogleTTS) request(text string) *texttospeech.SynthesizeSpeechRequest {
	audio := &texttospeech.AudioConfig{
		AudioEncoding: "MP3",
		SpeakingRate:  g.cfg.SpeakingRate,
		Pitch:         g.cfg.Pitch,
	}
	if g.cfg.EffectsProfile != "" {
		audio.EffectsProfileId = []string{g.cfg.EffectsProfile}
	}
	return &texttospeech.SynthesizeSpeechRequest{
		Input: &texttospeech.SynthesisInput{Text: text},
		Voice: &texttospeech.VoiceSelectionParams{
			LanguageCode: g.cfg.LanguageCode,
			Name:         g.cfg.VoiceName,
			SsmlGender:   g.cfg.Gender,
		},
		AudioConfig: audio,
	}
}

// Synthesize writes the MP3 returned by the API to outputPath.
func (g *GoogleTTS) Synthesize(ctx context.Context, text, outputPath string) error {
	resp, err := g.svc.Text.Synthesize(g.request(text)).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("synthesize: %w", err)
	}
	audio, err := base64.StdEncoding.DecodeString(resp.AudioContent)
	if err != nil {
		return fmt.Errorf("decode audio content: %w", err)
	}
	if len(audio) == 0 {
		return fmt.Errorf("%w: empty audio content", ErrSynthesis)
	}
	return os.WriteFile(outputPath, audio, 0o644)
}

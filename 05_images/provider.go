// Package images generates the slide images for a reel.
package images

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

var (
	// ErrEmptyImage means the provider answered without image bytes.
	ErrEmptyImage = errors.New("provider returned no image")
	// ErrIncompleteSet means fewer images than requested were produced.
	ErrIncompleteSet = errors.New("incomplete image set")
)

// Provider renders one image for a prompt.
type Provider interface {
	Name() string
	Generate(ctx context.Context, prompt, aspectRatio, safety string) ([]byte, error)
}

// imageGenerator is the subset of *genai.Models Imagen uses.
type imageGenerator interface {
	GenerateImages(ctx context.Context, model, prompt string, config *genai.GenerateImagesConfig) (*genai.GenerateImagesResponse, error)
}

// Imagen generates images with Google Imagen through the Gemini API.
type Imagen struct {
	models imageGenerator
	model  string
}

// NewImagen creates an Imagen provider.
func NewImagen(ctx context.Context, apiKey, model string) (*Imagen, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("imagen: api key not set (GEMINI_API_KEY)")
	}
	gc, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	return newImagen(gc.Models, model), nil
}

func newImagen(models imageGenerator, model string) *Imagen {
	if model == "" {
		model = "imagen-3.0-generate-002"
	}
	return &Imagen{models: models, model: model}
}

func (p *Imagen) Name() string { return "imagen:" + p.model }

func (p *Imagen) Generate(ctx context.Context, prompt, aspectRatio, safety string) ([]byte, error) {
	resp, err := p.models.GenerateImages(ctx, p.model, prompt, &genai.GenerateImagesConfig{
		NumberOfImages:    1,
		AspectRatio:       aspectRatio,
		SafetyFilterLevel: safetyLevel(safety),
		PersonGeneration:  genai.PersonGenerationAllowAdult,
	})
	if err != nil {
		return nil, fmt.Errorf("imagen generate: %w", err)
	}
	if resp == nil || len(resp.GeneratedImages) == 0 {
		return nil, ErrEmptyImage
	}
	img := resp.GeneratedImages[0]
	if img == nil || img.Image == nil || len(img.Image.ImageBytes) == 0 {
		if img != nil && img.RAIFilteredReason != "" {
			return nil, fmt.Errorf("%w: filtered: %s", ErrEmptyImage, img.RAIFilteredReason)
		}
		return nil, ErrEmptyImage
	}
	return img.Image.ImageBytes, nil
}

// safetyLevel maps the legacy Vertex names onto the API enum.
func safetyLevel(s string) genai.SafetyFilterLevel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "block_most", "block_low_and_above":
		return genai.SafetyFilterLevelBlockLowAndAbove
	case "block_few", "block_only_high":
		return genai.SafetyFilterLevelBlockOnlyHigh
	case "block_none":
		return genai.SafetyFilterLevelBlockNone
	default:
		return genai.SafetyFilterLevelBlockMediumAndAbove
	}
}

// Package voice turns a narration script into an MP3 voiceover.
package voice

import (
	"context"
	"errors"
	"fmt"
	"os"
)

// MinAudioSize is the smallest file accepted as a real synthesis result.
const MinAudioSize = 1024

// ErrSynthesis is returned when a provider produced no usable audio.
var ErrSynthesis = errors.New("speech synthesis failed")

// Provider writes spoken audio for text to outputPath.
type Provider interface {
	Name() string
	Synthesize(ctx context.Context, text, outputPath string) error
}

// checkOutput rejects missing or truncated audio files.
func checkOutput(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSynthesis, err)
	}
	if info.Size() < MinAudioSize {
		return fmt.Errorf("%w: %s is %d bytes", ErrSynthesis, path, info.Size())
	}
	return nil
}

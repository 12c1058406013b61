// Package media wraps the ffmpeg and ffprobe binaries.
package media

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// Runner executes an external command and returns its stdout.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecRunner runs commands with os/exec. Processes die with ctx.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return stdout.Bytes(), fmt.Errorf("%s: %w: %s", name, err, tail(stderr.String(), 400))
	}
	return stdout.Bytes(), nil
}

// Tools binds a Runner to the configured binary names.
type Tools struct {
	Runner  Runner
	FFmpeg  string
	FFprobe string
}

// NewTools returns Tools using ExecRunner and the given binaries.
func NewTools(ffmpeg, ffprobe string) *Tools {
	if ffmpeg == "" {
		ffmpeg = "ffmpeg"
	}
	if ffprobe == "" {
		ffprobe = "ffprobe"
	}
	return &Tools{Runner: ExecRunner{}, FFmpeg: ffmpeg, FFprobe: ffprobe}
}

// FFmpegRun runs ffmpeg with -y -hide_banner prepended.
func (t *Tools) FFmpegRun(ctx context.Context, args ...string) error {
	full := append([]string{"-y", "-hide_banner", "-loglevel", "error"}, args...)
	_, err := t.Runner.Run(ctx, t.FFmpeg, full...)
	return err
}

// Duration uses ffprobe to measure a media file in seconds.
func (t *Tools) Duration(ctx context.Context, file string) (float64, error) {
	out, err := t.Runner.Run(ctx, t.FFprobe,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		file,
	)
	if err != nil {
		return 0, err
	}
	dur, err := strconv.ParseFloat(strings.TrimSpace(string(out)), 64)
	if err != nil {
		return 0, fmt.Errorf("parse ffprobe duration %q: %w", strings.TrimSpace(string(out)), err)
	}
	return dur, nil
}

func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return "..." + s[len(s)-n:]
}

// Package subtitles derives WebVTT captions from the narration script.
package subtitles

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"eco-reel-pipeline/config"
	"eco-reel-pipeline/media"
)

const (
	DefaultWordsPerCue    = 10
	DefaultWordsPerSecond = 3.0
)

// Cue is one caption.
type Cue struct {
	Index int
	Start time.Duration
	End   time.Duration
	Text  string
}

// Build chunks script with the default pacing.
func Build(script string) []Cue {
	return Chunk(script, DefaultWordsPerCue, DefaultWordsPerSecond)
}

// Chunk splits script into cues of wordsPerCue words timed at
// wordsPerSecond. Cues are back to back and numbered from 1.
func Chunk(script string, wordsPerCue int, wordsPerSecond float64) []Cue {
	if wordsPerCue <= 0 {
		wordsPerCue = DefaultWordsPerCue
	}
	if wordsPerSecond <= 0 {
		wordsPerSecond = DefaultWordsPerSecond
	}
	words := strings.Fields(script)
	perWord := time.Duration(float64(time.Second) / wordsPerSecond)

	var cues []Cue
	for i := 0; i < len(words); i += wordsPerCue {
		end := min(i+wordsPerCue, len(words))
		cues = append(cues, Cue{
			Index: len(cues) + 1,
			Start: time.Duration(i) * perWord,
			End:   time.Duration(end) * perWord,
			Text:  strings.Join(words[i:end], " "),
		})
	}
	return cues
}

// timestamp formats d as HH:MM:SS.mmm.
func timestamp(d time.Duration) string {
	ms := d.Milliseconds()
	h := ms / 3_600_000
	ms -= h * 3_600_000
	m := ms / 60_000
	ms -= m * 60_000
	s := ms / 1000
	ms -= s * 1000
	return fmt.Sprintf("%02d:%02d:%02d.%03d", h, m, s, ms)
}

// Render writes cues as a WebVTT document.
func Render(cues []Cue) string {
	var b strings.Builder
	b.WriteString("WEBVTT\n\n")
	for _, c := range cues {
		fmt.Fprintf(&b, "%d\n%s --> %s\n%s\n\n", c.Index, timestamp(c.Start), timestamp(c.End), c.Text)
	}
	return b.String()
}

// WriteForVideo writes <video basename>.vtt into dir with default pacing.
func WriteForVideo(script, videoPath, dir string) (string, error) {
	return write(Build(script), videoPath, dir)
}

func write(cues []Cue, videoPath, dir string) (string, error) {
	if len(cues) == 0 {
		return "", fmt.Errorf("no words to caption")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	base := strings.TrimSuffix(filepath.Base(videoPath), filepath.Ext(videoPath))
	path := filepath.Join(dir, base+".vtt")
	if err := os.WriteFile(path, []byte(Render(cues)), 0o644); err != nil {
		return "", err
	}
	return path, nil
}

// Style is the burned-in caption look.
type Style struct {
	Font         string
	FontSize     int
	MarginBottom int
}

func (s Style) forceStyle() string {
	font := s.Font
	if font == "" {
		font = "Arial"
	}
	size := s.FontSize
	if size <= 0 {
		size = 14
	}
	return fmt.Sprintf("FontName=%s,FontSize=%d,PrimaryColour=&H00FFFFFF,OutlineColour=&H00000000,Outline=2,Alignment=2,MarginV=%d",
		font, size, s.MarginBottom)
}

// BurnInto renders vtt onto video in place. Audio is copied so the
// duration does not change.
func BurnInto(ctx context.Context, tools *media.Tools, video, vtt string, style Style) error {
	tmp := strings.TrimSuffix(video, filepath.Ext(video)) + ".subtitled" + filepath.Ext(video)
	filter := fmt.Sprintf("subtitles=%s:force_style='%s'", escapeFilterPath(vtt), style.forceStyle())

	err := tools.FFmpegRun(ctx,
		"-i", video,
		"-vf", filter,
		"-c:v", "libx264",
		"-preset", "ultrafast",
		"-c:a", "copy",
		tmp,
	)
	if err != nil {
		os.Remove(tmp)
		return fmt.Errorf("ffmpeg subtitle burn: %w", err)
	}
	return os.Rename(tmp, video)
}

func escapeFilterPath(path string) string {
	path = strings.ReplaceAll(path, "\\", "/")
	path = strings.ReplaceAll(path, ":", "\\:")
	path = strings.ReplaceAll(path, "'", "\\'")
	return path
}

// Writer applies the configured pacing and burn-in.
type Writer struct {
	cfg   config.SubtitlesConfig
	dir   string
	tools *media.Tools
}

// NewWriter creates a Writer. tools is only used when burn-in is enabled.
func NewWriter(cfg config.SubtitlesConfig, dir string, tools *media.Tools) *Writer {
	return &Writer{cfg: cfg, dir: dir, tools: tools}
}

// Write produces the caption file for video and burns it in if configured.
func (w *Writer) Write(ctx context.Context, script, video string) (string, error) {
	path, err := write(Chunk(script, w.cfg.WordsPerCue, w.cfg.WordsPerSecond), video, w.dir)
	if err != nil {
		return "", err
	}
	slog.Info("Subtitles written", "path", path)

	if w.cfg.BurnIntoVideo && w.tools != nil {
		style := Style{Font: w.cfg.Font, FontSize: w.cfg.FontSize, MarginBottom: w.cfg.MarginBottom}
		if err := BurnInto(ctx, w.tools, video, path, style); err != nil {
			return path, err
		}
		slog.Info("Subtitles burned into video", "video", video)
	}
	return path, nil
}

// Package video renders the final vertical reel from slides and narration.
package video

import (
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "golang.org/x/image/webp"

	"eco-reel-pipeline/config"
	"eco-reel-pipeline/media"
	"eco-reel-pipeline/types"
)

// ErrAssembly wraps every reason a reel could not be rendered.
var ErrAssembly = errors.New("video assembly failed")

// Assembler turns a slide set and a voiceover into an MP4.
type Assembler struct {
	tools    *media.Tools
	cfg      config.VideoConfig
	dir      string
	expected int
	now      func() time.Time
}

// New creates an Assembler writing into dir. expected is the slide count a
// set must have; zero accepts any non-empty set.
func New(tools *media.Tools, cfg config.VideoConfig, dir string, expected int) *Assembler {
	if cfg.TargetDuration <= 0 {
		cfg.TargetDuration = 15
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		cfg.Width, cfg.Height = 1080, 1920
	}
	if cfg.FPS <= 0 {
		cfg.FPS = 24
	}
	if cfg.Preset == "" {
		cfg.Preset = "ultrafast"
	}
	if cfg.AudioBitrate == "" {
		cfg.AudioBitrate = "192k"
	}
	return &Assembler{tools: tools, cfg: cfg, dir: dir, expected: expected, now: time.Now}
}

func assemblyErr(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrAssembly, fmt.Sprintf(format, args...))
}

// Validate checks the inputs without rendering anything.
func (a *Assembler) Validate(audio types.VoiceAsset, images []types.ImageAsset) error {
	if len(images) == 0 {
		return assemblyErr("no images")
	}
	if a.expected > 0 && len(images) != a.expected {
		return assemblyErr("got %d images, need %d", len(images), a.expected)
	}
	if audio.AudioPath == "" {
		return assemblyErr("no audio")
	}
	if _, err := os.Stat(audio.AudioPath); err != nil {
		return assemblyErr("audio: %v", err)
	}
	for _, img := range images {
		if err := checkImage(img.Path); err != nil {
			return assemblyErr("image %d: %v", img.Index, err)
		}
	}
	return nil
}

func checkImage(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	if cfg.Width == 0 || cfg.Height == 0 {
		return fmt.Errorf("%s has no pixels", filepath.Base(path))
	}
	return nil
}

// Assemble renders the reel. The scratch directory is removed whatever the
// outcome.
func (a *Assembler) Assemble(ctx context.Context, audio types.VoiceAsset, images []types.ImageAsset, theme types.Theme) (types.VideoAsset, error) {
	if err := a.Validate(audio, images); err != nil {
		return types.VideoAsset{}, err
	}
	if err := os.MkdirAll(a.dir, 0o755); err != nil {
		return types.VideoAsset{}, assemblyErr("create video dir: %v", err)
	}

	work, err := os.MkdirTemp(a.dir, ".reel-work-*")
	if err != nil {
		return types.VideoAsset{}, assemblyErr("create work dir: %v", err)
	}
	defer os.RemoveAll(work)

	target := a.cfg.TargetDuration
	segs := PlanSegments(target, len(images))
	slog.Info("Assembling video", "images", len(images), "target", target, "segment", segs[0].Duration)

	var parts []string
	for i, seg := range segs {
		out := filepath.Join(work, fmt.Sprintf("seg_%02d.mp4", i))
		if err := a.renderSegment(ctx, images[i].Path, seg, out); err != nil {
			return types.VideoAsset{}, assemblyErr("segment %d: %v", i, err)
		}
		parts = append(parts, out)
	}

	visuals := filepath.Join(work, "visuals.mp4")
	if err := a.concat(ctx, parts, visuals, work); err != nil {
		return types.VideoAsset{}, assemblyErr("concat: %v", err)
	}

	stamp := a.now()
	filename := fmt.Sprintf("reel_%s_%s.mp4", stamp.Format("20060102_150405"), uuid.New().String()[:8])
	final := filepath.Join(a.dir, filename)
	if err := a.mux(ctx, visuals, audio.AudioPath, final); err != nil {
		os.Remove(final)
		return types.VideoAsset{}, assemblyErr("mux audio: %v", err)
	}

	if err := a.checkDuration(ctx, final, target); err != nil {
		os.Remove(final)
		return types.VideoAsset{}, err
	}
	slog.Info("Video ready", "path", final, "duration", target)

	return types.VideoAsset{
		VideoPath: final,
		Filename:  filename,
		Theme:     theme,
		Timestamp: stamp,
		Duration:  target,
	}, nil
}

// checkDuration rejects a render more than one frame off target. A file
// ffprobe cannot measure is accepted.
func (a *Assembler) checkDuration(ctx context.Context, file string, target float64) error {
	measured, err := a.tools.Duration(ctx, file)
	if err != nil {
		slog.Debug("Could not measure rendered video", "path", file, "error", err)
		return nil
	}
	tolerance := 1.0 / 24
	if a.cfg.FPS > 0 {
		tolerance = 1.0 / float64(a.cfg.FPS)
	}
	if math.Abs(measured-target) > tolerance {
		return assemblyErr("rendered duration %.3fs, want %.3fs", measured, target)
	}
	return nil
}

func secs(f float64) string {
	return strconv.FormatFloat(f, 'f', 3, 64)
}

func (a *Assembler) renderSegment(ctx context.Context, img string, seg Segment, out string) error {
	return a.tools.FFmpegRun(ctx,
		"-loop", "1",
		"-t", secs(seg.Duration),
		"-i", img,
		"-vf", seg.filter(a.cfg.Width, a.cfg.Height, a.cfg.FPS, a.cfg.FadeDuration),
		"-c:v", "libx264",
		"-preset", a.cfg.Preset,
		"-r", strconv.Itoa(a.cfg.FPS),
		"-an",
		out,
	)
}

func (a *Assembler) concat(ctx context.Context, parts []string, out, work string) error {
	lines := make([]string, len(parts))
	for i, p := range parts {
		lines[i] = fmt.Sprintf("file '%s'", strings.ReplaceAll(p, "'", `'\''`))
	}
	list := filepath.Join(work, "concat.txt")
	if err := os.WriteFile(list, []byte(strings.Join(lines, "\n")+"\n"), 0o644); err != nil {
		return err
	}
	return a.tools.FFmpegRun(ctx,
		"-f", "concat",
		"-safe", "0",
		"-i", list,
		"-c", "copy",
		"-t", secs(a.cfg.TargetDuration),
		out,
	)
}

// mux trims or pads the narration to the target so the reel is exactly
// TargetDuration long.
func (a *Assembler) mux(ctx context.Context, visuals, audio, out string) error {
	t := secs(a.cfg.TargetDuration)
	return a.tools.FFmpegRun(ctx,
		"-i", visuals,
		"-i", audio,
		"-map", "0:v:0",
		"-map", "1:a:0",
		"-af", "atrim=0:"+t+",apad",
		"-c:v", "copy",
		"-c:a", "aac",
		"-b:a", a.cfg.AudioBitrate,
		"-t", t,
		"-movflags", "+faststart",
		out,
	)
}

package media

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRunner struct {
	out   []byte
	err   error
	name  string
	args  []string
	calls int
}

func (s *stubRunner) Run(_ context.Context, name string, args ...string) ([]byte, error) {
	s.calls++
	s.name = name
	s.args = args
	return s.out, s.err
}

func TestDuration(t *testing.T) {
	r := &stubRunner{out: []byte("14.976000\n")}
	tools := &Tools{Runner: r, FFmpeg: "ffmpeg", FFprobe: "ffprobe"}

	d, err := tools.Duration(context.Background(), "a.mp4")
	require.NoError(t, err)
	assert.InDelta(t, 14.976, d, 1e-9)
	assert.Equal(t, "ffprobe", r.name)
	assert.Equal(t, "a.mp4", r.args[len(r.args)-1])
}

func TestDuration_Garbage(t *testing.T) {
	tools := &Tools{Runner: &stubRunner{out: []byte("N/A")}, FFprobe: "ffprobe"}
	_, err := tools.Duration(context.Background(), "a.mp4")
	assert.Error(t, err)
}

func TestFFmpegRun_PrependsFlags(t *testing.T) {
	r := &stubRunner{}
	tools := &Tools{Runner: r, FFmpeg: "/usr/bin/ffmpeg"}

	require.NoError(t, tools.FFmpegRun(context.Background(), "-i", "in.png", "out.mp4"))
	assert.Equal(t, "/usr/bin/ffmpeg", r.name)
	assert.Equal(t, []string{"-y", "-hide_banner", "-loglevel", "error", "-i", "in.png", "out.mp4"}, r.args)
}

func TestFFmpegRun_Error(t *testing.T) {
	tools := &Tools{Runner: &stubRunner{err: errors.New("exit status 1")}, FFmpeg: "ffmpeg"}
	assert.Error(t, tools.FFmpegRun(context.Background(), "-i", "x"))
}

func TestTail(t *testing.T) {
	assert.Equal(t, "abc", tail("  abc \n", 10))
	assert.Equal(t, "...def", tail("abcdef", 3))
}

func TestMP3Duration_Errors(t *testing.T) {
	_, err := MP3Duration(filepath.Join(t.TempDir(), "missing.mp3"))
	assert.Error(t, err)

	bad := filepath.Join(t.TempDir(), "zeros.mp3")
	require.NoError(t, os.WriteFile(bad, make([]byte, 2048), 0o644))
	_, err = MP3Duration(bad)
	assert.ErrorContains(t, err, "decode mp3")
}

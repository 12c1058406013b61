package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eco-reel-pipeline/types"
)

type fakeRunner struct {
	result   types.PipelineResult
	block    bool
	location string
	theme    string
}

func (f *fakeRunner) Run(ctx context.Context, location, userTheme string) types.PipelineResult {
	f.location, f.theme = location, userTheme
	if f.block {
		<-ctx.Done()
		return types.PipelineResult{Location: location, Error: ctx.Err().Error()}
	}
	return f.result
}

func successResult() types.PipelineResult {
	return types.PipelineResult{
		Location: "Delhi",
		Success:  true,
		Decision: &types.ThemeDecision{Theme: types.ThemeHeat},
		Script:   &types.ScriptResult{Script: "As the afternoon heat settles over Delhi."},
		Voice:    &types.VoiceAsset{AudioPath: "/data/audio/story.mp3"},
		Images: &types.ImageSet{Images: []types.ImageAsset{
			{Path: "/data/images/0.png"}, {Path: "/data/images/1.png"},
		}},
		Video: &types.VideoAsset{VideoPath: "/data/video/reel.mp4"},
	}
}

func newTestApp(t *testing.T, r Runner, timeout time.Duration) (*App, Dirs) {
	t.Helper()
	root := t.TempDir()
	dirs := Dirs{
		Video:     filepath.Join(root, "video"),
		Audio:     filepath.Join(root, "audio"),
		Subtitles: filepath.Join(root, "subs"),
	}
	for _, d := range []string{dirs.Video, dirs.Audio, dirs.Subtitles} {
		require.NoError(t, os.MkdirAll(d, 0o755))
	}
	app := newApp(r, dirs, timeout)
	app.now = func() time.Time { return time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC) }
	return app, dirs
}

func post(h http.Handler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/generate-story", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	app, _ := newTestApp(t, &fakeRunner{}, time.Minute)
	rec := httptest.NewRecorder()
	app.routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "2026-05-01T00:00:00Z", body["timestamp"])
}

func TestGenerateStory(t *testing.T) {
	runner := &fakeRunner{result: successResult()}
	app, _ := newTestApp(t, runner, time.Minute)

	rec := post(app.routes(), `{"location":" Delhi ","theme":"auto"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Delhi", runner.location)
	assert.Equal(t, "auto", runner.theme)

	var resp storyResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "/data/video/reel.mp4", resp.VideoPath)
	assert.Equal(t, "/data/audio/story.mp3", resp.AudioPath)
	assert.Equal(t, []string{"/data/images/0.png", "/data/images/1.png"}, resp.ImagePaths)
	assert.Equal(t, "heat", resp.Theme)
	assert.Equal(t, "Delhi", resp.Location)
	assert.Empty(t, resp.Error)
}

func TestGenerateStory_BadRequest(t *testing.T) {
	app, _ := newTestApp(t, &fakeRunner{}, time.Minute)
	h := app.routes()

	assert.Equal(t, http.StatusBadRequest, post(h, `{`).Code)
	assert.Equal(t, http.StatusBadRequest, post(h, `{"location":"   "}`).Code)
}

func TestGenerateStory_FailureReturnsJSONError(t *testing.T) {
	runner := &fakeRunner{result: types.PipelineResult{Error: "video assembly failed: expected 5 images, got 4"}}
	app, _ := newTestApp(t, runner, time.Minute)

	rec := post(app.routes(), `{"location":"Delhi"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp storyResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.Equal(t, "video assembly failed: expected 5 images, got 4", resp.Error)
	assert.Equal(t, "Delhi", resp.Location)
	assert.Empty(t, resp.VideoPath)
}

func TestGenerateStory_Timeout(t *testing.T) {
	app, _ := newTestApp(t, &fakeRunner{block: true}, 20*time.Millisecond)

	rec := post(app.routes(), `{"location":"Delhi"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	var resp storyResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.Equal(t, "story generation timed out", resp.Error)
}

func TestServeFiles(t *testing.T) {
	app, dirs := newTestApp(t, &fakeRunner{}, time.Minute)
	require.NoError(t, os.WriteFile(filepath.Join(dirs.Video, "reel.mp4"), []byte("mp4"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dirs.Subtitles, "reel.vtt"), []byte("WEBVTT\n\n"), 0o644))
	h := app.routes()

	tests := []struct {
		path        string
		code        int
		contentType string
	}{
		{"/api/video/reel.mp4", http.StatusOK, "video/mp4"},
		{"/api/subtitles/reel.vtt", http.StatusOK, "text/vtt; charset=utf-8"},
		{"/api/audio/missing.mp3", http.StatusNotFound, ""},
		{"/api/video/..%2Fsubs%2Freel.vtt", http.StatusNotFound, ""},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))
			assert.Equal(t, tt.code, rec.Code)
			if tt.contentType != "" {
				assert.Equal(t, tt.contentType, rec.Header().Get("Content-Type"))
			}
		})
	}
}

func TestCORS(t *testing.T) {
	app, _ := newTestApp(t, &fakeRunner{}, time.Minute)
	req := httptest.NewRequest(http.MethodOptions, "/api/generate-story", nil)
	req.Header.Set("Origin", "https://example.org")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rec := httptest.NewRecorder()
	app.routes().ServeHTTP(rec, req)

	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

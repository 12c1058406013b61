package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"eco-reel-pipeline/types"
)

// Runner runs one pipeline pass.
type Runner interface {
	Run(ctx context.Context, location, userTheme string) types.PipelineResult
}

// Dirs are the directories files are served from.
type Dirs struct {
	Video     string
	Audio     string
	Subtitles string
}

type App struct {
	runner  Runner
	dirs    Dirs
	timeout time.Duration
	now     func() time.Time
}

func newApp(runner Runner, dirs Dirs, timeout time.Duration) *App {
	return &App{runner: runner, dirs: dirs, timeout: timeout, now: time.Now}
}

type storyRequest struct {
	Location string `json:"location"`
	Theme    string `json:"theme,omitempty"`
}

type storyResponse struct {
	Success    bool     `json:"success"`
	VideoPath  string   `json:"video_path,omitempty"`
	ScriptText string   `json:"script_text,omitempty"`
	AudioPath  string   `json:"audio_path,omitempty"`
	ImagePaths []string `json:"image_paths,omitempty"`
	Theme      string   `json:"theme,omitempty"`
	Location   string   `json:"location"`
	Error      string   `json:"error,omitempty"`
}

// routes wires middlewares and endpoints. Any origin may call the API.
func (a *App) routes() http.Handler {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", a.handleHealth)

	r.Route("/api", func(api chi.Router) {
		api.Post("/generate-story", a.handleGenerateStory)
		api.Get("/video/{filename}", a.serveFrom(a.dirs.Video, "video/mp4"))
		api.Get("/audio/{filename}", a.serveFrom(a.dirs.Audio, "audio/mpeg"))
		api.Get("/subtitles/{filename}", a.serveFrom(a.dirs.Subtitles, "text/vtt; charset=utf-8"))
	})

	return r
}

func (a *App) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "healthy",
		"service":   "eco-reel-pipeline",
		"timestamp": a.now().Format(time.RFC3339),
	})
}

// handleGenerateStory runs the pipeline synchronously under the request timeout.
func (a *App) handleGenerateStory(w http.ResponseWriter, r *http.Request) {
	var req storyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	req.Location = strings.TrimSpace(req.Location)
	if req.Location == "" {
		http.Error(w, "location is required", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	slog.Info("Generating story", "location", req.Location, "theme", req.Theme)
	res := a.runner.Run(ctx, req.Location, req.Theme)
	if !res.Success {
		msg := res.Error
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			msg = "story generation timed out"
		}
		if msg == "" {
			msg = "story generation failed"
		}
		slog.Error("Story generation failed", "location", req.Location, "error", msg)
		writeJSON(w, http.StatusInternalServerError, storyResponse{
			Success:  false,
			Location: req.Location,
			Error:    msg,
		})
		return
	}

	writeJSON(w, http.StatusOK, storyResponse{
		Success:    true,
		VideoPath:  res.VideoPath(),
		ScriptText: res.ScriptText(),
		AudioPath:  res.AudioPath(),
		ImagePaths: res.ImagePaths(),
		Theme:      string(res.ResolvedTheme()),
		Location:   req.Location,
	})
}

// serveFrom serves {filename} from dir. Only the base name is honoured.
func (a *App) serveFrom(dir, contentType string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := filepath.Base(chi.URLParam(r, "filename"))
		if name == "." || name == "/" || name == ".." {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		path := filepath.Join(dir, name)
		fi, err := os.Stat(path)
		if err != nil || fi.IsDir() {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", contentType)
		w.Header().Set("Content-Disposition", `inline; filename="`+name+`"`)
		http.ServeFile(w, r, path)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"

	"eco-reel-pipeline/08_publish"
	"eco-reel-pipeline/config"
	"eco-reel-pipeline/logging"
	"eco-reel-pipeline/pipeline"
	"eco-reel-pipeline/types"
)

func main() {
	// .env is for local dev only
	_ = godotenv.Load()

	configPath := flag.String("config", "config.yaml", "path to config file")
	location := flag.String("location", "", "city to build the reel for")
	userTheme := flag.String("theme", "auto", "theme override or auto")
	doPublish := flag.Bool("publish", false, "upload the finished reel to YouTube")
	flag.Parse()

	if *location == "" {
		fmt.Fprintln(os.Stderr, "usage: eco-reel-pipeline -location <city> [-theme auto|heat|water|air|...] [-publish]")
		os.Exit(2)
	}

	os.Exit(run(*configPath, *location, *userTheme, *doPublish))
}

func run(configPath, location, userTheme string, doPublish bool) int {
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}

	closeLog, err := logging.Setup(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to set up logging: %v\n", err)
		return 1
	}
	defer closeLog()

	if err := cfg.EnsureDirs(); err != nil {
		slog.Error("Failed to create output dirs", "error", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	orch, err := pipeline.Build(ctx, cfg)
	if err != nil {
		slog.Error("Failed to build pipeline", "error", err)
		return 1
	}

	slog.Info("━━━ Eco reel pipeline starting ━━━", "location", location, "theme", userTheme)
	result := orch.Run(ctx, location, userTheme)

	statePath, err := saveState(&result, cfg.Paths.State)
	if err != nil {
		slog.Warn("Failed to save pipeline state", "error", err)
	} else {
		slog.Info("Pipeline state saved", "path", statePath)
	}

	if !result.Success {
		slog.Error("Pipeline failed", "run_id", result.RunID, "state", result.State, "error", result.Error)
		return 1
	}
	slog.Info("━━━ Reel ready ━━━",
		"video", result.VideoPath(),
		"theme", result.ResolvedTheme(),
		"words", result.Script.WordCount,
		"subtitles", result.Video.SubtitlePath,
	)

	if !doPublish {
		return 0
	}

	slog.Info("━━━ Publishing ━━━")
	meta := publish.BuildMetadata(&result, cfg.Upload)
	up, err := publish.New(cfg.Upload).Upload(ctx, result.VideoPath(), meta)
	if err != nil {
		slog.Error("Upload failed", "error", err)
		return 1
	}
	if path, err := publish.LogUpload(up, filepath.Join(cfg.Paths.State, result.RunID)); err != nil {
		slog.Warn("Failed to log upload", "error", err)
	} else {
		slog.Info("Upload logged", "path", path)
	}
	slog.Info("✅ Published", "url", up.URL)
	return 0
}

// saveState writes the run result to <dir>/<run id>/pipeline_state.json.
func saveState(result *types.PipelineResult, dir string) (string, error) {
	runDir := filepath.Join(dir, result.RunID)
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return "", err
	}
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return "", err
	}
	path := filepath.Join(runDir, "pipeline_state.json")
	return path, os.WriteFile(path, data, 0o644)
}

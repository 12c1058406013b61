package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"eco-reel-pipeline/config"
	"eco-reel-pipeline/logging"
	"eco-reel-pipeline/pipeline"
)

func main() {
	_ = godotenv.Load()

	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	closeLog, err := logging.Setup(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to set up logging: %v\n", err)
		os.Exit(1)
	}
	defer closeLog()

	if err := cfg.EnsureDirs(); err != nil {
		slog.Error("Failed to create output dirs", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	orch, err := pipeline.Build(ctx, cfg)
	if err != nil {
		slog.Error("Failed to build pipeline", "error", err)
		os.Exit(1)
	}

	app := newApp(orch, Dirs{
		Video:     cfg.Paths.Video,
		Audio:     cfg.Paths.Audio,
		Subtitles: cfg.Paths.Subtitles,
	}, cfg.Server.RequestTimeout.Std())

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           app.routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	slog.Info("Reel server listening", "addr", cfg.Server.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server stopped", "error", err)
		os.Exit(1)
	}
}

// Package publish uploads a finished reel to YouTube.
package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"

	"eco-reel-pipeline/config"
	"eco-reel-pipeline/types"
)

// Result identifies an uploaded video.
type Result struct {
	VideoID    string    `json:"video_id"`
	URL        string    `json:"video_url"`
	Title      string    `json:"title"`
	VideoFile  string    `json:"video_file"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// Uploader sends videos through the YouTube Data API v3.
type Uploader struct {
	cfg  config.UploadConfig
	opts []option.ClientOption
}

// New creates an Uploader. With no opts it authenticates from
// YOUTUBE_CLIENT_ID, YOUTUBE_CLIENT_SECRET and YOUTUBE_REFRESH_TOKEN.
func New(cfg config.UploadConfig, opts ...option.ClientOption) *Uploader {
	return &Uploader{cfg: cfg, opts: opts}
}

func (u *Uploader) service(ctx context.Context) (*youtube.Service, error) {
	opts := u.opts
	if len(opts) == 0 {
		ts, err := refreshTokenSource(ctx)
		if err != nil {
			return nil, err
		}
		opts = []option.ClientOption{option.WithHTTPClient(oauth2.NewClient(ctx, ts))}
	}
	return youtube.NewService(ctx, opts...)
}

func refreshTokenSource(ctx context.Context) (oauth2.TokenSource, error) {
	clientID := os.Getenv("YOUTUBE_CLIENT_ID")
	clientSecret := os.Getenv("YOUTUBE_CLIENT_SECRET")
	refreshToken := os.Getenv("YOUTUBE_REFRESH_TOKEN")
	if clientID == "" || clientSecret == "" || refreshToken == "" {
		return nil, fmt.Errorf("YOUTUBE_CLIENT_ID, YOUTUBE_CLIENT_SECRET, or YOUTUBE_REFRESH_TOKEN not set")
	}

	conf := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       []string{youtube.YoutubeUploadScope},
	}
	// expired token forces a refresh on first use
	token := &oauth2.Token{RefreshToken: refreshToken, Expiry: time.Now().Add(-time.Hour)}
	return conf.TokenSource(ctx, token), nil
}

// Upload sends videoFile with meta and returns the created video.
func (u *Uploader) Upload(ctx context.Context, videoFile string, meta types.VideoMetadata) (Result, error) {
	svc, err := u.service(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("youtube auth: %w", err)
	}

	f, err := os.Open(videoFile)
	if err != nil {
		return Result{}, fmt.Errorf("open video file: %w", err)
	}
	defer f.Close()
	if fi, err := f.Stat(); err == nil {
		slog.Info("Uploading video", "title", meta.Title, "size_mb", float64(fi.Size())/1024/1024)
	}

	video := &youtube.Video{
		Snippet: &youtube.VideoSnippet{
			Title:                meta.Title,
			Description:          meta.Description,
			Tags:                 meta.Tags,
			CategoryId:           meta.CategoryID,
			DefaultLanguage:      u.cfg.DefaultLanguage,
			DefaultAudioLanguage: u.cfg.DefaultLanguage,
		},
		Status: &youtube.VideoStatus{
			PrivacyStatus:           meta.Visibility,
			SelfDeclaredMadeForKids: u.cfg.MadeForKids,
			ForceSendFields:         []string{"SelfDeclaredMadeForKids"},
		},
	}

	uploaded, err := svc.Videos.Insert([]string{"snippet", "status"}, video).
		NotifySubscribers(u.cfg.NotifySubscribers).
		Media(f).
		Context(ctx).
		Do()
	if err != nil {
		return Result{}, fmt.Errorf("youtube upload: %w", err)
	}

	res := Result{
		VideoID:    uploaded.Id,
		URL:        "https://www.youtube.com/shorts/" + uploaded.Id,
		Title:      meta.Title,
		VideoFile:  videoFile,
		UploadedAt: time.Now().UTC(),
	}
	slog.Info("Upload complete", "video_id", res.VideoID, "url", res.URL)
	return res, nil
}

// LogUpload writes res as upload_<timestamp>.json into dir.
func LogUpload(res Result, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	data, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, fmt.Sprintf("upload_%s.json", res.UploadedAt.Format("20060102_150405")))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}
	return path, nil
}

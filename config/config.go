package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Log       LogConfig       `yaml:"log"`
	Paths     PathsConfig     `yaml:"paths"`
	Content   ContentConfig   `yaml:"content"`
	Location  LocationConfig  `yaml:"location"`
	Script    ScriptConfig    `yaml:"script"`
	Voice     VoiceConfig     `yaml:"voice"`
	Images    ImagesConfig    `yaml:"images"`
	Video     VideoConfig     `yaml:"video"`
	Subtitles SubtitlesConfig `yaml:"subtitles"`
	Upload    UploadConfig    `yaml:"upload"`
	Server    ServerConfig    `yaml:"server"`
}

type LogConfig struct {
	Path  string `yaml:"path"`
	Level string `yaml:"level"`
}

type PathsConfig struct {
	Output    string `yaml:"output"`
	Audio     string `yaml:"audio"`
	Images    string `yaml:"images"`
	Video     string `yaml:"video"`
	Subtitles string `yaml:"subtitles"`
	Cache     string `yaml:"cache"`
	State     string `yaml:"state"`
}

// ContentConfig points at an optional override directory for themes.yaml and prompts/.
type ContentConfig struct {
	Dir string `yaml:"dir"`
}

type LocationConfig struct {
	Provider      string   `yaml:"provider"` // mock | openweathermap
	APIKey        string   `yaml:"api_key"`
	BaseURL       string   `yaml:"base_url"`
	Timeout       Duration `yaml:"timeout"`
	RatePerSecond float64  `yaml:"rate_per_second"`
	Burst         int      `yaml:"burst"`
}

type ScriptConfig struct {
	Provider     string   `yaml:"provider"` // gemini | groq
	GeminiModel  string   `yaml:"gemini_model"`
	GeminiAPIKey string   `yaml:"gemini_api_key"`
	GroqModel    string   `yaml:"groq_model"`
	GroqAPIKey   string   `yaml:"groq_api_key"`
	Temperature  float64  `yaml:"temperature"`
	MaxRetries   int      `yaml:"max_retries"`
	BaseDelay    Duration `yaml:"base_delay"`
	CacheTTL     Duration `yaml:"cache_ttl"`
	CacheFile    string   `yaml:"cache_file"`
	MinWords     int      `yaml:"min_words"`
	MaxWords     int      `yaml:"max_words"`
	TrimWords    int      `yaml:"trim_words"`
	PromptLog    string   `yaml:"prompt_log"`
}

type VoiceConfig struct {
	Primary         string  `yaml:"primary"`  // google
	Fallback        string  `yaml:"fallback"` // command | edge | none
	GoogleAPIKey    string  `yaml:"google_api_key"`
	LanguageCode    string  `yaml:"language_code"`
	VoiceName       string  `yaml:"voice_name"`
	Gender          string  `yaml:"gender"`
	SpeakingRate    float64 `yaml:"speaking_rate"`
	Pitch           float64 `yaml:"pitch"`
	EffectsProfile  string  `yaml:"effects_profile"`
	FallbackCommand string  `yaml:"fallback_command"`
	EdgeVoice       string  `yaml:"edge_voice"`
	WordsPerSecond  float64 `yaml:"words_per_second"`
}

type ImagesConfig struct {
	Provider     string   `yaml:"provider"` // imagen | pollinations
	Model        string   `yaml:"model"`
	BaseURL      string   `yaml:"base_url"`
	GeminiAPIKey string   `yaml:"gemini_api_key"`
	Count        int      `yaml:"count"`
	AspectRatio  string   `yaml:"aspect_ratio"`
	SafetyLevel  string   `yaml:"safety_level"`
	PauseEvery   int      `yaml:"pause_every"`
	Pause        Duration `yaml:"pause"`
}

type VideoConfig struct {
	TargetDuration float64 `yaml:"target_duration"`
	Width          int     `yaml:"width"`
	Height         int     `yaml:"height"`
	FPS            int     `yaml:"fps"`
	FadeDuration   float64 `yaml:"fade_duration"`
	Preset         string  `yaml:"preset"`
	AudioBitrate   string  `yaml:"audio_bitrate"`
	FFmpeg         string  `yaml:"ffmpeg"`
	FFprobe        string  `yaml:"ffprobe"`
}

type SubtitlesConfig struct {
	Enabled        bool    `yaml:"enabled"`
	WordsPerCue    int     `yaml:"words_per_cue"`
	WordsPerSecond float64 `yaml:"words_per_second"`
	BurnIntoVideo  bool    `yaml:"burn_into_video"`
	Font           string  `yaml:"font"`
	FontSize       int     `yaml:"font_size"`
	MarginBottom   int     `yaml:"margin_bottom"`
}

type UploadConfig struct {
	Visibility        string `yaml:"visibility"`
	CategoryID        string `yaml:"category_id"`
	NotifySubscribers bool   `yaml:"notify_subscribers"`
	MadeForKids       bool   `yaml:"made_for_kids"`
	DefaultLanguage   string `yaml:"default_language"`
}

type ServerConfig struct {
	Addr           string   `yaml:"addr"`
	RequestTimeout Duration `yaml:"request_timeout"`
}

// Default returns a config that runs end to end with the mock weather source.
func Default() *Config {
	return &Config{
		Log: LogConfig{
			Path:  "./output/logs/pipeline.log",
			Level: "INFO",
		},
		Paths: PathsConfig{
			Output:    "./output",
			Audio:     "./output/audio",
			Images:    "./output/images",
			Video:     "./output/videos",
			Subtitles: "./output/subtitles",
			Cache:     "./output/cache",
			State:     "./output/runs",
		},
		Location: LocationConfig{
			Provider:      "mock",
			BaseURL:       "https://api.openweathermap.org/data/2.5",
			Timeout:       Duration(10 * time.Second),
			RatePerSecond: 1,
			Burst:         5,
		},
		Script: ScriptConfig{
			Provider:    "gemini",
			GeminiModel: "gemini-2.0-flash",
			GroqModel:   "llama-3.3-70b-versatile",
			Temperature: 0.8,
			MaxRetries:  3,
			BaseDelay:   Duration(2 * time.Second),
			CacheTTL:    Duration(Day),
			CacheFile:   "script_cache.json",
			MinWords:    20,
			MaxWords:    60,
			TrimWords:   55,
		},
		Voice: VoiceConfig{
			Primary:         "google",
			Fallback:        "command",
			LanguageCode:    "en-US",
			VoiceName:       "en-US-Neural2-F",
			Gender:          "FEMALE",
			SpeakingRate:    0.9,
			Pitch:           0,
			EffectsProfile:  "small-bluetooth-speaker-class-device",
			FallbackCommand: "gtts-cli",
			EdgeVoice:       "en-US-AriaNeural",
			WordsPerSecond:  2.5,
		},
		Images: ImagesConfig{
			Provider:    "imagen",
			Model:       "imagen-3.0-generate-002",
			Count:       5,
			AspectRatio: "9:16",
			SafetyLevel: "block_some",
			PauseEvery:  2,
			Pause:       Duration(60 * time.Second),
		},
		Video: VideoConfig{
			TargetDuration: 15.0,
			Width:          1080,
			Height:         1920,
			FPS:            24,
			FadeDuration:   0.3,
			Preset:         "ultrafast",
			AudioBitrate:   "192k",
			FFmpeg:         "ffmpeg",
			FFprobe:        "ffprobe",
		},
		Subtitles: SubtitlesConfig{
			Enabled:        true,
			WordsPerCue:    10,
			WordsPerSecond: 3,
			Font:           "Arial",
			FontSize:       14,
			MarginBottom:   60,
		},
		Upload: UploadConfig{
			Visibility:      "private",
			CategoryID:      "29", // Nonprofits & Activism
			DefaultLanguage: "en",
		},
		Server: ServerConfig{
			Addr:           ":8000",
			RequestTimeout: Duration(6 * time.Minute),
		},
	}
}

// Load reads config.yaml over the defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read config file: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config file: %w", err)
			}
		}
	}

	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	gemini := firstEnv("GEMINI_API_KEY", "GOOGLE_API_KEY")
	if c.Script.GeminiAPIKey == "" {
		c.Script.GeminiAPIKey = gemini
	}
	if c.Images.GeminiAPIKey == "" {
		c.Images.GeminiAPIKey = gemini
	}
	if c.Script.GroqAPIKey == "" {
		c.Script.GroqAPIKey = os.Getenv("GROQ_API_KEY")
	}
	if c.Location.APIKey == "" {
		c.Location.APIKey = os.Getenv("OPENWEATHER_API_KEY")
	}
	if c.Voice.GoogleAPIKey == "" {
		c.Voice.GoogleAPIKey = os.Getenv("GOOGLE_TTS_API_KEY")
	}
	if v := os.Getenv("TTS_COMMAND"); v != "" {
		c.Voice.FallbackCommand = v
	}
	if v := strings.ToLower(os.Getenv("USE_MOCK_WEATHER")); v == "true" || v == "1" {
		c.Location.Provider = "mock"
	}
	if dir := os.Getenv("REEL_DATA_DIR"); dir != "" {
		c.Paths.rebase(dir)
	}
}

// rebase moves every output directory under root.
func (p *PathsConfig) rebase(root string) {
	p.Output = root
	p.Audio = filepath.Join(root, "audio")
	p.Images = filepath.Join(root, "images")
	p.Video = filepath.Join(root, "videos")
	p.Subtitles = filepath.Join(root, "subtitles")
	p.Cache = filepath.Join(root, "cache")
	p.State = filepath.Join(root, "runs")
}

// Validate rejects values the pipeline cannot run with.
func (c *Config) Validate() error {
	var errs []error

	switch c.Location.Provider {
	case "mock", "openweathermap":
	default:
		errs = append(errs, fmt.Errorf("location.provider: unknown %q", c.Location.Provider))
	}
	switch c.Script.Provider {
	case "gemini", "groq":
	default:
		errs = append(errs, fmt.Errorf("script.provider: unknown %q", c.Script.Provider))
	}
	switch c.Voice.Fallback {
	case "command", "edge", "none":
	default:
		errs = append(errs, fmt.Errorf("voice.fallback: unknown %q", c.Voice.Fallback))
	}
	if c.Video.TargetDuration <= 0 {
		errs = append(errs, fmt.Errorf("video.target_duration must be positive"))
	}
	switch c.Images.Provider {
	case "imagen", "pollinations":
	default:
		errs = append(errs, fmt.Errorf("images.provider: unknown %q", c.Images.Provider))
	}
	if c.Images.Count <= 0 {
		errs = append(errs, fmt.Errorf("images.count must be positive"))
	}
	if c.Script.MaxRetries < 0 {
		errs = append(errs, fmt.Errorf("script.max_retries must not be negative"))
	}
	if c.Script.TrimWords > c.Script.MaxWords {
		errs = append(errs, fmt.Errorf("script.trim_words must not exceed script.max_words"))
	}
	return errors.Join(errs...)
}

// CachePath is the persisted script cache file.
func (c *Config) CachePath() string {
	if filepath.IsAbs(c.Script.CacheFile) {
		return c.Script.CacheFile
	}
	return filepath.Join(c.Paths.Cache, c.Script.CacheFile)
}

// EnsureDirs creates every output directory.
func (c *Config) EnsureDirs() error {
	for _, dir := range []string{c.Paths.Output, c.Paths.Audio, c.Paths.Images, c.Paths.Video, c.Paths.Subtitles, c.Paths.Cache, c.Paths.State} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create dir %s: %w", dir, err)
		}
	}
	return nil
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}

package types

import (
	"strings"
	"time"
)

// Theme is the narrative angle of a reel
type Theme string

const (
	ThemeHeat           Theme = "heat"
	ThemeWater          Theme = "water"
	ThemeAir            Theme = "air"
	ThemeSustainability Theme = "sustainability"
	ThemeEducation      Theme = "education"
	ThemeHealth         Theme = "health"
	ThemeCommunity      Theme = "community"
)

// AllThemes lists every theme in display order
func AllThemes() []Theme {
	return []Theme{
		ThemeHeat,
		ThemeWater,
		ThemeAir,
		ThemeSustainability,
		ThemeEducation,
		ThemeHealth,
		ThemeCommunity,
	}
}

// Valid reports whether t is one of the known themes
func (t Theme) Valid() bool {
	switch t {
	case ThemeHeat, ThemeWater, ThemeAir, ThemeSustainability,
		ThemeEducation, ThemeHealth, ThemeCommunity:
		return true
	}
	return false
}

// Environmental reports whether the theme is driven by weather data
func (t Theme) Environmental() bool {
	switch t {
	case ThemeHeat, ThemeWater, ThemeAir, ThemeSustainability:
		return true
	case ThemeEducation, ThemeHealth, ThemeCommunity:
		return false
	}
	return false
}

// ParseTheme maps a raw theme id to a Theme
func ParseTheme(s string) (Theme, bool) {
	t := Theme(strings.ToLower(strings.TrimSpace(s)))
	return t, t.Valid()
}

// Coordinates is a lat/lon pair
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Weather is the weather category plus its free-text description
type Weather struct {
	Main        string `json:"main"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

// Temperature readings in °C
type Temperature struct {
	Current   float64 `json:"current"`
	FeelsLike float64 `json:"feels_like"`
	Min       float64 `json:"min"`
	Max       float64 `json:"max"`
}

// LocationReading is one environmental snapshot for a place
type LocationReading struct {
	Location        string      `json:"location"`
	Coordinates     Coordinates `json:"coordinates"`
	Weather         Weather     `json:"weather"`
	Temperature     Temperature `json:"temperature"`
	Humidity        float64     `json:"humidity"`
	Pressure        float64     `json:"pressure"`
	WindSpeed       float64     `json:"wind_speed"`
	AirQualityIndex *int        `json:"air_quality_index"` // 1 (good) to 5 (very poor); nil when unknown
	Timestamp       time.Time   `json:"timestamp"`
	Source          string      `json:"source,omitempty"`
	Success         bool        `json:"success"`
	Error           string      `json:"error,omitempty"`
}

// ThemeDecision is the classifier output
type ThemeDecision struct {
	Theme   Theme  `json:"theme"`
	Reason  string `json:"reason"`
	Context string `json:"context"`
}

// ScriptResult holds the narration text for one reel
type ScriptResult struct {
	Script    string    `json:"script"`
	WordCount int       `json:"word_count"`
	Theme     Theme     `json:"theme"`
	Timestamp time.Time `json:"timestamp"`
	Fallback  bool      `json:"fallback,omitempty"`
	Cached    bool      `json:"cached,omitempty"`
}

// VoiceMethod tags which synthesis path produced the audio
type VoiceMethod string

const (
	VoicePrimary  VoiceMethod = "primary"
	VoiceFallback VoiceMethod = "fallback"
)

// VoiceAsset is the synthesized narration
type VoiceAsset struct {
	AudioPath        string      `json:"audio_path"`
	Filename         string      `json:"filename"`
	DurationEstimate float64     `json:"duration_estimate"`
	Method           VoiceMethod `json:"method,omitempty"`
	Provider         string      `json:"provider,omitempty"`
	Error            string      `json:"error,omitempty"`
}

// ImageAsset is one generated slide
type ImageAsset struct {
	Path               string `json:"path"`
	Index              int    `json:"index"`
	Theme              Theme  `json:"theme"`
	Prompt             string `json:"prompt"`
	UsedFallbackPrompt bool   `json:"used_fallback_prompt,omitempty"`
}

// ImageSet is the ordered output of the image stage
type ImageSet struct {
	Images    []ImageAsset `json:"images"`
	Failed    []int        `json:"failed,omitempty"`
	Requested int          `json:"requested"`
	Theme     Theme        `json:"theme"`
}

// Paths returns the image paths in slide order
func (s *ImageSet) Paths() []string {
	out := make([]string, 0, len(s.Images))
	for _, img := range s.Images {
		out = append(out, img.Path)
	}
	return out
}

// VideoAsset is the rendered reel
type VideoAsset struct {
	VideoPath    string    `json:"video_path"`
	Filename     string    `json:"filename"`
	Theme        Theme     `json:"theme"`
	Timestamp    time.Time `json:"timestamp"`
	Duration     float64   `json:"duration"`
	SubtitlePath string    `json:"subtitle_path,omitempty"`
}

// VideoMetadata holds YouTube upload metadata
type VideoMetadata struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
	CategoryID  string   `json:"category_id"`
	Visibility  string   `json:"visibility"`
}

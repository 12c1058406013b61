package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDuration(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{"", 0, false},
		{"2s", 2 * time.Second, false},
		{"24h", 24 * time.Hour, false},
		{"1d", 24 * time.Hour, false},
		{"2d12h", 60 * time.Hour, false},
		{"xd", 0, true},
		{"1d garbage", 0, true},
		{"nonsense", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDuration(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	t.Setenv("USE_MOCK_WEATHER", "")
	t.Setenv("REEL_DATA_DIR", "")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 15.0, cfg.Video.TargetDuration)
	assert.Equal(t, 5, cfg.Images.Count)
	assert.Equal(t, 3, cfg.Script.MaxRetries)
	assert.Equal(t, 2*time.Second, cfg.Script.BaseDelay.Std())
	assert.Equal(t, 24*time.Hour, cfg.Script.CacheTTL.Std())
	assert.Equal(t, 60*time.Second, cfg.Images.Pause.Std())
}

func TestLoad_FileOverridesAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yml := `
location:
  provider: openweathermap
script:
  provider: groq
  cache_ttl: 2d
images:
  count: 3
`
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o644))
	t.Setenv("GROQ_API_KEY", "groq-key")
	t.Setenv("GEMINI_API_KEY", "gem-key")
	t.Setenv("USE_MOCK_WEATHER", "true")
	t.Setenv("REEL_DATA_DIR", filepath.Join(dir, "data"))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "mock", cfg.Location.Provider, "env forces mock weather")
	assert.Equal(t, "groq", cfg.Script.Provider)
	assert.Equal(t, 48*time.Hour, cfg.Script.CacheTTL.Std())
	assert.Equal(t, 3, cfg.Images.Count)
	assert.Equal(t, "groq-key", cfg.Script.GroqAPIKey)
	assert.Equal(t, "gem-key", cfg.Images.GeminiAPIKey)
	assert.Equal(t, filepath.Join(dir, "data", "cache", "script_cache.json"), cfg.CachePath())
}

func TestValidate(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	cfg.Script.Provider = "openai"
	cfg.Images.Count = 0
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "script.provider")
	assert.Contains(t, err.Error(), "images.count")
}

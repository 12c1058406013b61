package script

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eco-reel-pipeline/config"
	"eco-reel-pipeline/content"
	"eco-reel-pipeline/llm"
	"eco-reel-pipeline/types"
)

type fakeLLM struct {
	mu      sync.Mutex
	replies []string
	errs    []error
	calls   int
	prompts []string
}

func (f *fakeLLM) Name() string { return "fake" }

func (f *fakeLLM) GenerateText(_ context.Context, prompt string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.calls
	f.calls++
	f.prompts = append(f.prompts, prompt)
	if i < len(f.errs) && f.errs[i] != nil {
		return "", f.errs[i]
	}
	if len(f.replies) == 0 {
		return "", errors.New("no reply scripted")
	}
	if i >= len(f.replies) {
		return f.replies[len(f.replies)-1], nil
	}
	return f.replies[i], nil
}

type sleepRecorder struct {
	slept []time.Duration
}

func (s *sleepRecorder) sleep(_ context.Context, d time.Duration) error {
	s.slept = append(s.slept, d)
	return nil
}

func words(n int) string {
	w := make([]string, n)
	for i := range w {
		w[i] = "word"
	}
	return strings.Join(w, " ")
}

func scriptConfig() config.ScriptConfig {
	return config.Default().Script
}

func catalog(t *testing.T) *content.Catalog {
	t.Helper()
	c, err := content.Embedded()
	require.NoError(t, err)
	return c
}

func delhiReading() types.LocationReading {
	q := 4
	return types.LocationReading{
		Location:        "Delhi",
		Temperature:     types.Temperature{Current: 38.2, FeelsLike: 41},
		Humidity:        22,
		Weather:         types.Weather{Main: "Haze", Description: "haze"},
		AirQualityIndex: &q,
		Success:         true,
	}
}

var heatDecision = types.ThemeDecision{Theme: types.ThemeHeat, Reason: "hot", Context: "It is hot."}

func TestGenerate_AcceptsInBand(t *testing.T) {
	fl := &fakeLLM{replies: []string{"\"" + words(40) + "\""}}
	g := New(fl, nil, catalog(t), scriptConfig())

	res := g.Generate(context.Background(), "Delhi", delhiReading(), heatDecision)
	assert.False(t, res.Fallback)
	assert.Equal(t, 40, res.WordCount)
	assert.Equal(t, words(40), res.Script)
	assert.Equal(t, types.ThemeHeat, res.Theme)
	assert.Equal(t, 1, fl.calls)
}

func TestGenerate_PromptEmbedsReading(t *testing.T) {
	fl := &fakeLLM{replies: []string{words(40)}}
	now := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	g := New(fl, nil, catalog(t), scriptConfig(), WithClock(func() time.Time { return now }))

	g.Generate(context.Background(), "Delhi", delhiReading(), heatDecision)
	require.Len(t, fl.prompts, 1)
	p := fl.prompts[0]
	assert.Contains(t, p, "Location: Delhi")
	assert.Contains(t, p, "38.2°C")
	assert.Contains(t, p, "Humidity: 22%")
	assert.Contains(t, p, "Air quality index: 4")
	assert.Contains(t, p, "35-45 words")
	assert.Contains(t, p, "May 2026")
	assert.Contains(t, p, "seeking shade together")
	assert.Contains(t, p, "It is hot.")
}

func TestGenerate_TrimsLongScripts(t *testing.T) {
	long := words(70) + "!"
	fl := &fakeLLM{replies: []string{long}}
	g := New(fl, nil, catalog(t), scriptConfig())

	res := g.Generate(context.Background(), "Delhi", delhiReading(), heatDecision)
	assert.False(t, res.Fallback)
	assert.Equal(t, 55, res.WordCount)
	assert.True(t, strings.HasSuffix(res.Script, "word."))
	assert.LessOrEqual(t, res.WordCount, 60)
	assert.Equal(t, 1, fl.calls, "no regeneration on over-length")
}

func TestGenerate_TooShortFallsBack(t *testing.T) {
	fl := &fakeLLM{replies: []string{words(5)}}
	cache := NewTTLCache(nil, 24*time.Hour)
	g := New(fl, cache, catalog(t), scriptConfig())

	res := g.Generate(context.Background(), "Delhi", delhiReading(), heatDecision)
	assert.True(t, res.Fallback)
	assert.Contains(t, res.Script, "Delhi")

	_, ok := cache.Get(Fingerprint("Delhi", types.ThemeHeat, delhiReading()))
	assert.False(t, ok, "fallback results are not cached")
}

func TestGenerate_RateLimitedExhaustsThenFallsBack(t *testing.T) {
	rl := &llm.RateLimitError{Provider: "fake", Err: errors.New("429 quota exceeded")}
	fl := &fakeLLM{errs: []error{rl, rl, rl, rl, rl}}
	sr := &sleepRecorder{}
	g := New(fl, nil, catalog(t), scriptConfig(), WithSleep(sr.sleep))

	res := g.Generate(context.Background(), "Chennai", delhiReading(), heatDecision)

	assert.True(t, res.Fallback)
	assert.Contains(t, res.Script, "Chennai")
	assert.Greater(t, res.WordCount, 0)
	assert.Equal(t, 4, fl.calls, "initial call plus 3 retries")
	assert.Equal(t, []time.Duration{2 * time.Second, 4 * time.Second, 8 * time.Second}, sr.slept)
}

func TestGenerate_InternalErrorIsExhausted(t *testing.T) {
	rl := errors.New("RESOURCE_EXHAUSTED")
	fl := &fakeLLM{errs: []error{rl, rl, rl, rl}}
	g := New(fl, nil, catalog(t), scriptConfig(), WithSleep((&sleepRecorder{}).sleep))

	_, err := g.generate(context.Background(), "Delhi", delhiReading(), heatDecision)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRetriesExhausted)
}

func TestGenerate_RecoversAfterRateLimit(t *testing.T) {
	rl := errors.New("429 Too Many Requests")
	fl := &fakeLLM{errs: []error{rl, nil}, replies: []string{"", words(42)}}
	sr := &sleepRecorder{}
	g := New(fl, nil, catalog(t), scriptConfig(), WithSleep(sr.sleep))

	res := g.Generate(context.Background(), "Delhi", delhiReading(), heatDecision)
	assert.False(t, res.Fallback)
	assert.Equal(t, 42, res.WordCount)
	assert.Equal(t, []time.Duration{2 * time.Second}, sr.slept)
}

func TestGenerate_NonRetryableGoesStraightToFallback(t *testing.T) {
	fl := &fakeLLM{errs: []error{errors.New("API key not valid")}}
	sr := &sleepRecorder{}
	g := New(fl, nil, catalog(t), scriptConfig(), WithSleep(sr.sleep))

	res := g.Generate(context.Background(), "Delhi", delhiReading(), heatDecision)
	assert.True(t, res.Fallback)
	assert.Equal(t, 1, fl.calls)
	assert.Empty(t, sr.slept)
}

func TestGenerate_NoProvider(t *testing.T) {
	g := New(nil, nil, catalog(t), scriptConfig())
	res := g.Generate(context.Background(), "Jaipur", delhiReading(), types.ThemeDecision{Theme: types.ThemeCommunity})
	assert.True(t, res.Fallback)
	assert.Equal(t, types.ThemeCommunity, res.Theme)
	assert.Contains(t, res.Script, "Jaipur")
}

func TestGenerate_CacheIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	fl := &fakeLLM{replies: []string{words(40), words(30) + " different"}}
	g := New(fl, NewTTLCache(NewFileStore(path), 24*time.Hour), catalog(t), scriptConfig())

	first := g.Generate(context.Background(), "Delhi", delhiReading(), heatDecision)

	// same buckets: 38.2 and 39.0 both round to 40; AQI 4 and 5 both bucket to 0
	other := delhiReading()
	other.Temperature.Current = 39.0
	five := 5
	other.AirQualityIndex = &five
	second := g.Generate(context.Background(), " delhi ", other, heatDecision)

	assert.Equal(t, first.Script, second.Script)
	assert.True(t, second.Cached)
	assert.Equal(t, 1, fl.calls)

	// a fresh generator over the same file hits the persisted store
	fl2 := &fakeLLM{replies: []string{words(25)}}
	g2 := New(fl2, NewTTLCache(NewFileStore(path), 24*time.Hour), catalog(t), scriptConfig())
	third := g2.Generate(context.Background(), "Delhi", delhiReading(), heatDecision)
	assert.Equal(t, first.Script, third.Script)
	assert.Equal(t, 0, fl2.calls)
}

func TestFallback_EveryTheme(t *testing.T) {
	g := New(nil, nil, catalog(t), scriptConfig())
	for _, theme := range types.AllThemes() {
		res := g.Fallback("Kolkata", theme)
		assert.True(t, res.Fallback)
		assert.Greater(t, res.WordCount, 0)
		assert.Contains(t, res.Script, "Kolkata")
		assert.Equal(t, theme, res.Theme)
	}
}

func TestValidate(t *testing.T) {
	g := New(nil, nil, catalog(t), scriptConfig())

	s, n, err := g.validate("```\n" + words(20) + "\n```")
	require.NoError(t, err)
	assert.Equal(t, 20, n)
	assert.Equal(t, words(20), s)

	s, n, err = g.validate(words(60))
	require.NoError(t, err)
	assert.Equal(t, 60, n, "60 is still in band")
	assert.False(t, strings.HasSuffix(s, "."))

	_, n, err = g.validate(words(61))
	require.NoError(t, err)
	assert.Equal(t, 55, n)

	_, _, err = g.validate(words(19))
	assert.ErrorIs(t, err, ErrTooShort)
}

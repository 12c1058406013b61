package location

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eco-reel-pipeline/config"
	"eco-reel-pipeline/types"
)

type stubSource struct {
	reading types.LocationReading
	err     error
	calls   int
}

func (s *stubSource) Name() string { return "stub" }

func (s *stubSource) GetReading(context.Context, string) (types.LocationReading, error) {
	s.calls++
	return s.reading, s.err
}

func TestFetch_Success(t *testing.T) {
	src := &stubSource{reading: types.LocationReading{Temperature: types.Temperature{Current: 31}}}
	p := NewProvider(src)

	r := p.Fetch(context.Background(), "  Pune ")
	assert.True(t, r.Success)
	assert.Empty(t, r.Error)
	assert.Equal(t, "Pune", r.Location)
	assert.Equal(t, "stub", r.Source)
	assert.False(t, r.Timestamp.IsZero())
}

func TestFetch_SourceErrorNeverPropagates(t *testing.T) {
	src := &stubSource{err: fmt.Errorf("%w: city not found", ErrDataUnavailable)}
	p := NewProvider(src)

	r := p.Fetch(context.Background(), "Atlantis")
	assert.False(t, r.Success)
	assert.Contains(t, r.Error, "city not found")
	assert.Equal(t, "Atlantis", r.Location)
}

func TestFetch_EmptyLocation(t *testing.T) {
	src := &stubSource{}
	r := NewProvider(src).Fetch(context.Background(), "   ")
	assert.False(t, r.Success)
	assert.Equal(t, 0, src.calls)
}

func TestMock_KnownCityWithinScenario(t *testing.T) {
	m := NewMock(rand.New(rand.NewSource(42)))

	for i := 0; i < 20; i++ {
		r, err := m.GetReading(context.Background(), "Delhi")
		require.NoError(t, err)
		assert.GreaterOrEqual(t, r.Temperature.Current, 15.0)
		assert.LessOrEqual(t, r.Temperature.Current, 40.0)
		require.NotNil(t, r.AirQualityIndex)
		assert.GreaterOrEqual(t, *r.AirQualityIndex, 3)
		assert.LessOrEqual(t, *r.AirQualityIndex, 5)
		assert.Equal(t, types.Coordinates{Lat: 28.7041, Lon: 77.1025}, r.Coordinates)
		assert.Contains(t, []string{"haze", "smoke", "clear sky"}, r.Weather.Description)
	}
}

func TestMock_UnknownCityUsesGeneric(t *testing.T) {
	m := NewMock(rand.New(rand.NewSource(1)))
	r, err := m.GetReading(context.Background(), "Springfield")
	require.NoError(t, err)
	assert.Equal(t, defaultCoords, r.Coordinates)
	assert.Equal(t, "clear sky", r.Weather.Description)
}

func TestMock_SeededIsDeterministic(t *testing.T) {
	a, _ := NewMock(rand.New(rand.NewSource(7))).GetReading(context.Background(), "mumbai")
	b, _ := NewMock(rand.New(rand.NewSource(7))).GetReading(context.Background(), "mumbai")
	assert.Equal(t, a.Temperature, b.Temperature)
	assert.Equal(t, a.Weather, b.Weather)
}

func TestMock_WithScenarioFixesValues(t *testing.T) {
	m := NewMock(nil).WithScenario("Delhi", Scenario{
		Weather:  []types.Weather{{Main: "Clear", Description: "clear sky"}},
		Temp:     Range{38, 38},
		Humidity: Range{30, 30},
		AQI:      Range{3, 3},
	})
	r, err := m.GetReading(context.Background(), "delhi")
	require.NoError(t, err)
	assert.Equal(t, 38.0, r.Temperature.Current)
	assert.Equal(t, 30.0, r.Humidity)
	assert.Equal(t, 3, *r.AirQualityIndex)
}

func TestOpenWeatherMap(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/weather", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Delhi", r.URL.Query().Get("q"))
		assert.Equal(t, "metric", r.URL.Query().Get("units"))
		_, _ = w.Write([]byte(`{
			"coord":{"lat":28.66,"lon":77.23},
			"weather":[{"main":"Haze","description":"haze","icon":"50d"}],
			"main":{"temp":38.2,"feels_like":40.1,"temp_min":36,"temp_max":39,"humidity":22,"pressure":1004},
			"wind":{"speed":3.6},
			"dt":1738963200,
			"name":"Delhi"}`))
	})
	mux.HandleFunc("/air_pollution", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "28.66", r.URL.Query().Get("lat"))
		_, _ = w.Write([]byte(`{"list":[{"main":{"aqi":4}}]}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	src := NewOpenWeatherMap("key", srv.URL, time.Second)
	r, err := src.GetReading(context.Background(), "Delhi")
	require.NoError(t, err)

	assert.Equal(t, 38.2, r.Temperature.Current)
	assert.Equal(t, 40.1, r.Temperature.FeelsLike)
	assert.Equal(t, 22.0, r.Humidity)
	assert.Equal(t, "haze", r.Weather.Description)
	assert.Equal(t, "Haze", r.Weather.Main)
	require.NotNil(t, r.AirQualityIndex)
	assert.Equal(t, 4, *r.AirQualityIndex)
	assert.Equal(t, time.Unix(1738963200, 0), r.Timestamp)
}

func TestOpenWeatherMap_CityNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"cod":"404","message":"city not found"}`))
	}))
	defer srv.Close()

	_, err := NewOpenWeatherMap("key", srv.URL, time.Second).GetReading(context.Background(), "Atlantis")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDataUnavailable))
	assert.Contains(t, err.Error(), "city not found")
}

func TestOpenWeatherMap_AQIFailureIsNonFatal(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/weather", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"coord":{"lat":1,"lon":2},"weather":[{"main":"Rain","description":"light rain"}],"main":{"temp":24}}`))
	})
	mux.HandleFunc("/air_pollution", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	r, err := NewOpenWeatherMap("key", srv.URL, time.Second).GetReading(context.Background(), "X")
	require.NoError(t, err)
	assert.Nil(t, r.AirQualityIndex)
}

func TestRateLimited_ForwardsAndHonoursContext(t *testing.T) {
	src := &stubSource{reading: types.LocationReading{Humidity: 50}}
	rl := NewRateLimited(src, 0.001, 1)
	assert.Equal(t, "stub [Rate Limited]", rl.Name())

	r, err := rl.GetReading(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, 50.0, r.Humidity)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = rl.GetReading(ctx, "x")
	assert.Error(t, err)
	assert.Equal(t, 1, src.calls)
}

func TestNewFromConfig(t *testing.T) {
	p, err := NewFromConfig(config.LocationConfig{Provider: "mock"})
	require.NoError(t, err)
	assert.Equal(t, "mock", p.SourceName())

	_, err = NewFromConfig(config.LocationConfig{Provider: "openweathermap"})
	assert.Error(t, err, "missing api key")

	p, err = NewFromConfig(config.LocationConfig{Provider: "openweathermap", APIKey: "k", RatePerSecond: 1, Burst: 5})
	require.NoError(t, err)
	assert.Equal(t, "OpenWeatherMap [Rate Limited]", p.SourceName())
}

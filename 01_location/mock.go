package location

import (
	"context"
	"math"
	"math/rand"
	"strings"
	"sync"
	"time"

	"eco-reel-pipeline/types"
)

// Range is an inclusive numeric interval.
type Range struct{ Min, Max float64 }

// Scenario describes the plausible weather for one city.
type Scenario struct {
	Weather  []types.Weather
	Temp     Range
	Humidity Range
	AQI      Range
}

var defaultCoords = types.Coordinates{Lat: 28.0, Lon: 77.0}

var cityCoords = map[string]types.Coordinates{
	"mumbai":    {Lat: 19.076, Lon: 72.8777},
	"delhi":     {Lat: 28.7041, Lon: 77.1025},
	"bangalore": {Lat: 12.9716, Lon: 77.5946},
	"chennai":   {Lat: 13.0827, Lon: 80.2707},
	"kolkata":   {Lat: 22.5726, Lon: 88.3639},
	"hyderabad": {Lat: 17.3850, Lon: 78.4867},
	"pune":      {Lat: 18.5204, Lon: 73.8567},
	"ahmedabad": {Lat: 23.0225, Lon: 72.5714},
	"jaipur":    {Lat: 26.9124, Lon: 75.7873},
	"lucknow":   {Lat: 26.8467, Lon: 80.9462},
}

var genericScenario = Scenario{
	Weather:  []types.Weather{{Main: "Clear", Description: "clear sky"}},
	Temp:     Range{20, 32},
	Humidity: Range{50, 80},
	AQI:      Range{2, 3},
}

func defaultScenarios() map[string]Scenario {
	return map[string]Scenario{
		"mumbai": {
			Weather: []types.Weather{
				{Main: "Rain", Description: "moderate rain"},
				{Main: "Clouds", Description: "scattered clouds"},
				{Main: "Haze", Description: "haze"},
			},
			Temp: Range{25, 35}, Humidity: Range{70, 90}, AQI: Range{2, 4},
		},
		"delhi": {
			Weather: []types.Weather{
				{Main: "Haze", Description: "haze"},
				{Main: "Smoke", Description: "smoke"},
				{Main: "Clear", Description: "clear sky"},
			},
			Temp: Range{15, 40}, Humidity: Range{40, 70}, AQI: Range{3, 5},
		},
		"bangalore": {
			Weather: []types.Weather{
				{Main: "Clear", Description: "clear sky"},
				{Main: "Clouds", Description: "few clouds"},
				{Main: "Rain", Description: "light rain"},
			},
			Temp: Range{18, 30}, Humidity: Range{50, 75}, AQI: Range{1, 3},
		},
		"chennai": {
			Weather: []types.Weather{
				{Main: "Clear", Description: "clear sky"},
				{Main: "Clouds", Description: "scattered clouds"},
				{Main: "Rain", Description: "light rain"},
			},
			Temp: Range{26, 38}, Humidity: Range{60, 85}, AQI: Range{2, 3},
		},
	}
}

// Mock produces randomized but plausible readings without any network call.
type Mock struct {
	mu        sync.Mutex
	rng       *rand.Rand
	scenarios map[string]Scenario
	now       func() time.Time
}

var _ Source = (*Mock)(nil)

// NewMock creates a mock source. A nil rng is seeded from the clock.
func NewMock(rng *rand.Rand) *Mock {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Mock{rng: rng, scenarios: defaultScenarios(), now: time.Now}
}

// WithScenario replaces the scenario used for city.
func (m *Mock) WithScenario(city string, s Scenario) *Mock {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scenarios[strings.ToLower(strings.TrimSpace(city))] = s
	return m
}

func (m *Mock) Name() string { return "mock" }

func (m *Mock) GetReading(_ context.Context, location string) (types.LocationReading, error) {
	key := strings.ToLower(strings.TrimSpace(location))

	m.mu.Lock()
	defer m.mu.Unlock()

	sc, ok := m.scenarios[key]
	if !ok {
		sc = genericScenario
	}
	coords, ok := cityCoords[key]
	if !ok {
		coords = defaultCoords
	}

	weather := genericScenario.Weather[0]
	if len(sc.Weather) > 0 {
		weather = sc.Weather[m.rng.Intn(len(sc.Weather))]
	}
	if weather.Icon == "" {
		weather.Icon = "01d"
	}

	temp := round1(m.uniform(sc.Temp))
	aqi := int(math.Round(m.uniform(sc.AQI)))

	return types.LocationReading{
		Location:    location,
		Coordinates: coords,
		Weather:     weather,
		Temperature: types.Temperature{
			Current:   temp,
			FeelsLike: round1(temp + m.uniform(Range{-2, 3})),
			Min:       round1(temp - m.uniform(Range{2, 5})),
			Max:       round1(temp + m.uniform(Range{2, 5})),
		},
		Humidity:        math.Round(m.uniform(sc.Humidity)),
		Pressure:        math.Round(m.uniform(Range{1008, 1015})),
		WindSpeed:       round1(m.uniform(Range{2, 8})),
		AirQualityIndex: &aqi,
		Timestamp:       m.now(),
		Source:          m.Name(),
	}, nil
}

func (m *Mock) uniform(r Range) float64 {
	if r.Max <= r.Min {
		return r.Min
	}
	return r.Min + m.rng.Float64()*(r.Max-r.Min)
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

package location

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"eco-reel-pipeline/config"
	"eco-reel-pipeline/types"
)

// ErrDataUnavailable means the source could not produce a reading for the location.
var ErrDataUnavailable = errors.New("environmental data unavailable")

// Source produces one reading for a location name.
type Source interface {
	Name() string
	GetReading(ctx context.Context, location string) (types.LocationReading, error)
}

// Provider fetches readings from a Source and never returns an error:
// failures come back as a reading with Success=false.
type Provider struct {
	source Source
	now    func() time.Time
}

// NewProvider wraps a Source.
func NewProvider(src Source) *Provider {
	return &Provider{source: src, now: time.Now}
}

// NewFromConfig picks the mock or live source and applies the rate limit.
func NewFromConfig(cfg config.LocationConfig) (*Provider, error) {
	var src Source
	switch cfg.Provider {
	case "mock":
		src = NewMock(nil)
	case "openweathermap":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("OPENWEATHER_API_KEY not set")
		}
		owm := NewOpenWeatherMap(cfg.APIKey, cfg.BaseURL, cfg.Timeout.Std())
		src = NewRateLimited(owm, cfg.RatePerSecond, cfg.Burst)
	default:
		return nil, fmt.Errorf("unknown location provider %q", cfg.Provider)
	}
	return NewProvider(src), nil
}

// SourceName reports the backing source.
func (p *Provider) SourceName() string {
	return p.source.Name()
}

// Fetch returns the current reading for location.
func (p *Provider) Fetch(ctx context.Context, location string) types.LocationReading {
	location = strings.TrimSpace(location)
	if location == "" {
		return p.failed(location, fmt.Errorf("%w: empty location", ErrDataUnavailable))
	}

	reading, err := p.source.GetReading(ctx, location)
	if err != nil {
		slog.Warn("Location data fetch failed", "location", location, "source", p.source.Name(), "error", err)
		return p.failed(location, err)
	}

	reading.Location = location
	reading.Success = true
	reading.Error = ""
	if reading.Source == "" {
		reading.Source = p.source.Name()
	}
	if reading.Timestamp.IsZero() {
		reading.Timestamp = p.now()
	}

	aqi := "none"
	if reading.AirQualityIndex != nil {
		aqi = fmt.Sprint(*reading.AirQualityIndex)
	}
	slog.Info("Location data fetched",
		"location", location,
		"source", reading.Source,
		"weather", reading.Weather.Description,
		"temp", reading.Temperature.Current,
		"aqi", aqi)
	return reading
}

func (p *Provider) failed(location string, err error) types.LocationReading {
	return types.LocationReading{
		Location:  location,
		Timestamp: p.now(),
		Source:    p.source.Name(),
		Success:   false,
		Error:     err.Error(),
	}
}

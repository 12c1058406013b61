package location

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"eco-reel-pipeline/types"
)

// OpenWeatherMap reads current weather and air pollution from the OpenWeatherMap API
type OpenWeatherMap struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

var _ Source = (*OpenWeatherMap)(nil)

// NewOpenWeatherMap creates the live source
func NewOpenWeatherMap(apiKey, baseURL string, timeout time.Duration) *OpenWeatherMap {
	if baseURL == "" {
		baseURL = "https://api.openweathermap.org/data/2.5"
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &OpenWeatherMap{
		apiKey:     apiKey,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (p *OpenWeatherMap) Name() string {
	return "OpenWeatherMap"
}

type owmWeather struct {
	Coord struct {
		Lat float64 `json:"lat"`
		Lon float64 `json:"lon"`
	} `json:"coord"`
	Weather []struct {
		Main        string `json:"main"`
		Description string `json:"description"`
		Icon        string `json:"icon"`
	} `json:"weather"`
	Main struct {
		Temp      float64 `json:"temp"`
		FeelsLike float64 `json:"feels_like"`
		TempMin   float64 `json:"temp_min"`
		TempMax   float64 `json:"temp_max"`
		Humidity  float64 `json:"humidity"`
		Pressure  float64 `json:"pressure"`
	} `json:"main"`
	Wind struct {
		Speed float64 `json:"speed"`
	} `json:"wind"`
	Dt      int64  `json:"dt"`
	Name    string `json:"name"`
	Message string `json:"message"`
}

type owmPollution struct {
	List []struct {
		Main struct {
			AQI int `json:"aqi"`
		} `json:"main"`
	} `json:"list"`
}

// GetReading fetches /weather, then /air_pollution for the returned coordinates.
// A failed pollution lookup leaves the AQI absent.
func (p *OpenWeatherMap) GetReading(ctx context.Context, location string) (types.LocationReading, error) {
	params := url.Values{}
	params.Add("q", location)
	params.Add("appid", p.apiKey)
	params.Add("units", "metric")

	var w owmWeather
	status, err := p.getJSON(ctx, p.baseURL+"/weather?"+params.Encode(), &w)
	if err != nil {
		return types.LocationReading{}, fmt.Errorf("%w: %v", ErrDataUnavailable, err)
	}
	if status != http.StatusOK {
		msg := w.Message
		if msg == "" {
			msg = http.StatusText(status)
		}
		return types.LocationReading{}, fmt.Errorf("%w: OpenWeatherMap %d: %s", ErrDataUnavailable, status, msg)
	}

	reading := types.LocationReading{
		Location:    location,
		Coordinates: types.Coordinates{Lat: w.Coord.Lat, Lon: w.Coord.Lon},
		Temperature: types.Temperature{
			Current:   w.Main.Temp,
			FeelsLike: w.Main.FeelsLike,
			Min:       w.Main.TempMin,
			Max:       w.Main.TempMax,
		},
		Humidity:  w.Main.Humidity,
		Pressure:  w.Main.Pressure,
		WindSpeed: w.Wind.Speed,
		Timestamp: time.Now(),
		Source:    p.Name(),
	}
	if w.Dt > 0 {
		reading.Timestamp = time.Unix(w.Dt, 0)
	}
	if len(w.Weather) > 0 {
		reading.Weather = types.Weather{
			Main:        w.Weather[0].Main,
			Description: w.Weather[0].Description,
			Icon:        w.Weather[0].Icon,
		}
	}

	if aqi, err := p.airQuality(ctx, w.Coord.Lat, w.Coord.Lon); err != nil {
		slog.Warn("Air quality lookup failed", "location", location, "error", err)
	} else {
		reading.AirQualityIndex = &aqi
	}
	return reading, nil
}

func (p *OpenWeatherMap) airQuality(ctx context.Context, lat, lon float64) (int, error) {
	params := url.Values{}
	params.Add("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	params.Add("lon", strconv.FormatFloat(lon, 'f', -1, 64))
	params.Add("appid", p.apiKey)

	var pol owmPollution
	status, err := p.getJSON(ctx, p.baseURL+"/air_pollution?"+params.Encode(), &pol)
	if err != nil {
		return 0, err
	}
	if status != http.StatusOK {
		return 0, fmt.Errorf("air_pollution status %d", status)
	}
	if len(pol.List) == 0 {
		return 0, fmt.Errorf("air_pollution returned no data")
	}
	aqi := pol.List[0].Main.AQI
	if aqi < 1 || aqi > 5 {
		return 0, fmt.Errorf("air_pollution aqi %d out of range", aqi)
	}
	return aqi, nil
}

func (p *OpenWeatherMap) getJSON(ctx context.Context, endpoint string, v any) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, fmt.Errorf("failed to read response body: %w", err)
	}
	if err := json.Unmarshal(body, v); err != nil && resp.StatusCode == http.StatusOK {
		return resp.StatusCode, fmt.Errorf("failed to parse response: %w", err)
	}
	return resp.StatusCode, nil
}

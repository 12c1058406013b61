package script

import (
	"strconv"
	"time"

	"eco-reel-pipeline/content"
	"eco-reel-pipeline/types"
)

const (
	targetMinWords = 35
	targetMaxWords = 45
)

type promptData struct {
	MinTarget   int
	MaxTarget   int
	Location    string
	Description string
	Temp        string
	FeelsLike   string
	Humidity    string
	HasAQI      bool
	AQI         int
	Theme       types.Theme
	Label       string
	Context     string
	Date        string
	Guidance    content.Guidance
	Example     string
}

// BuildPrompt renders the narration prompt for one reel.
func BuildPrompt(cat *content.Catalog, location string, r types.LocationReading, d types.ThemeDecision, now time.Time) (string, error) {
	tc := cat.Theme(d.Theme)
	example, err := cat.Example(d.Theme, location)
	if err != nil {
		return "", err
	}

	desc := r.Weather.Description
	if desc == "" {
		desc = "typical conditions"
	}
	data := promptData{
		MinTarget:   targetMinWords,
		MaxTarget:   targetMaxWords,
		Location:    location,
		Description: desc,
		Temp:        strconv.FormatFloat(r.Temperature.Current, 'f', 1, 64),
		FeelsLike:   strconv.FormatFloat(r.Temperature.FeelsLike, 'f', 1, 64),
		Humidity:    strconv.FormatFloat(r.Humidity, 'f', 0, 64),
		Theme:       d.Theme,
		Label:       tc.Label,
		Context:     d.Context,
		Date:        now.Format("January 2006"),
		Guidance:    tc.Guidance,
		Example:     example,
	}
	if r.AirQualityIndex != nil {
		data.HasAQI = true
		data.AQI = *r.AirQualityIndex
	}
	return cat.Render(content.ScriptPrompt, data)
}

package theme

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"eco-reel-pipeline/content"
	"eco-reel-pipeline/types"
)

// Labels accepted from the UI and their themes. Raw theme ids are accepted too.
var labels = map[string]types.Theme{
	"heat & summer":           types.ThemeHeat,
	"water & rain":            types.ThemeWater,
	"air & health":            types.ThemeAir,
	"sustainability & future": types.ThemeSustainability,
	"education & learning":    types.ThemeEducation,
	"health & wellness":       types.ThemeHealth,
	"community & connection":  types.ThemeCommunity,
}

// IsAuto reports whether the user left theme selection to the classifier.
func IsAuto(userTheme string) bool {
	switch strings.ToLower(strings.TrimSpace(userTheme)) {
	case "", "auto", "auto-detect":
		return true
	}
	return false
}

// LookupLabel maps a user label or theme id. Unknown labels map to sustainability.
func LookupLabel(label string) (types.Theme, bool) {
	key := strings.ToLower(strings.TrimSpace(label))
	if t, ok := labels[key]; ok {
		return t, true
	}
	if t, ok := types.ParseTheme(key); ok {
		return t, true
	}
	return types.ThemeSustainability, false
}

// Classifier picks a theme for a reading.
type Classifier struct {
	catalog *content.Catalog
}

// New creates a Classifier using catalog for context sentences.
func New(catalog *content.Catalog) *Classifier {
	return &Classifier{catalog: catalog}
}

// Classify honours an explicit user theme, otherwise applies the weather rules.
func (c *Classifier) Classify(reading types.LocationReading, userTheme string) types.ThemeDecision {
	var d types.ThemeDecision
	if !IsAuto(userTheme) {
		t, known := LookupLabel(userTheme)
		d.Theme = t
		if known {
			d.Reason = fmt.Sprintf("user selected %q", userTheme)
		} else {
			d.Reason = fmt.Sprintf("user selected unknown theme %q, defaulting to %s", userTheme, t)
		}
	} else {
		d.Theme, d.Reason = classifyReading(reading)
	}

	d.Context = c.context(d.Theme, reading)
	slog.Info("Theme classified", "theme", d.Theme, "reason", d.Reason)
	return d
}

// classifyReading applies the ordered rules; the first match wins.
func classifyReading(r types.LocationReading) (types.Theme, string) {
	temp := r.Temperature.Current
	desc := strings.ToLower(r.Weather.Description + " " + r.Weather.Main)

	switch {
	case temp > 35:
		return types.ThemeHeat, fmt.Sprintf("high temperature %.1f°C above 35°C", temp)
	case temp < 5:
		return types.ThemeHeat, fmt.Sprintf("cold stress: temperature %.1f°C below 5°C", temp)
	case r.AirQualityIndex != nil && *r.AirQualityIndex >= 4:
		return types.ThemeAir, fmt.Sprintf("poor air quality index %d", *r.AirQualityIndex)
	case strings.Contains(desc, "rain") || r.Humidity > 85:
		return types.ThemeWater, fmt.Sprintf("rain or high humidity (%s, %.0f%%)", r.Weather.Description, r.Humidity)
	case strings.Contains(desc, "clear") && temp > 28:
		return types.ThemeSustainability, fmt.Sprintf("clear and warm at %.1f°C", temp)
	default:
		return types.ThemeSustainability, "no strong environmental signal"
	}
}

func (c *Classifier) context(t types.Theme, r types.LocationReading) string {
	desc := r.Weather.Description
	if desc == "" {
		desc = "current"
	}
	data := content.ContextData{
		Temp:             strconv.FormatFloat(r.Temperature.Current, 'f', 1, 64),
		Humidity:         strconv.FormatFloat(r.Humidity, 'f', 0, 64),
		Description:      desc,
		DescriptionTitle: capitalize(desc),
	}
	text, err := c.catalog.Context(t, data)
	if err != nil {
		slog.Warn("Theme context template failed", "theme", t, "error", err)
		return "Environmental awareness is crucial for our shared future."
	}
	return text
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

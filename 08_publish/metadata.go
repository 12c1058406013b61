package publish

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"eco-reel-pipeline/config"
	"eco-reel-pipeline/types"
)

const (
	maxTitleRunes = 100
	maxTagChars   = 500
)

type themeCopy struct {
	headline string
	tags     []string
}

var copyByTheme = map[types.Theme]themeCopy{
	types.ThemeHeat:           {"Feeling the Heat", []string{"heatwave", "summer", "staycool", "climate"}},
	types.ThemeWater:          {"Every Drop Counts", []string{"water", "rain", "saveWater", "monsoon"}},
	types.ThemeAir:            {"The Air We Share", []string{"airquality", "cleanair", "pollution", "breathe"}},
	types.ThemeSustainability: {"Growing Greener", []string{"sustainability", "ecofriendly", "greenliving", "nature"}},
	types.ThemeEducation:      {"Learning Together", []string{"education", "learning", "community", "awareness"}},
	types.ThemeHealth:         {"Caring for Each Other", []string{"health", "wellness", "wellbeing", "selfcare"}},
	types.ThemeCommunity:      {"Stronger Together", []string{"community", "neighbours", "together", "kindness"}},
}

var baseTags = []string{"Shorts", "environment", "climate awareness", "eco reel"}

// BuildMetadata derives the upload metadata from a finished run. The same
// result always yields the same metadata.
func BuildMetadata(r *types.PipelineResult, cfg config.UploadConfig) types.VideoMetadata {
	theme := r.ResolvedTheme()
	tc, ok := copyByTheme[theme]
	if !ok {
		tc = copyByTheme[types.ThemeSustainability]
	}
	location := strings.TrimSpace(r.Location)

	title := tc.headline + " #Shorts"
	if location != "" {
		title = fmt.Sprintf("%s in %s #Shorts", tc.headline, location)
	}
	title = truncateRunes(title, maxTitleRunes)

	var hashtags []string
	for _, t := range tc.tags {
		hashtags = append(hashtags, "#"+t)
	}
	if loc := hashtagify(location); loc != "" {
		hashtags = append(hashtags, "#"+loc)
	}
	hashtags = append(hashtags, "#Shorts")

	var desc strings.Builder
	if s := r.ScriptText(); s != "" {
		desc.WriteString(s)
		desc.WriteString("\n\n")
	}
	if r.Reading != nil && r.Reading.Success {
		fmt.Fprintf(&desc, "Today in %s: %s, %.0f°C.\n\n", location, r.Reading.Weather.Description, r.Reading.Temperature.Current)
	}
	desc.WriteString(strings.Join(hashtags, " "))

	tags := append(append([]string{}, baseTags...), tc.tags...)
	if location != "" {
		tags = append(tags, location, location+" weather")
	}

	return types.VideoMetadata{
		Title:       title,
		Description: desc.String(),
		Tags:        capTags(tags, maxTagChars),
		CategoryID:  cfg.CategoryID,
		Visibility:  cfg.Visibility,
	}
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

func hashtagify(s string) string {
	var b strings.Builder
	for _, w := range strings.Fields(s) {
		for _, r := range w {
			if r == '#' || r == ',' || r == '.' {
				continue
			}
			b.WriteRune(r)
		}
	}
	return b.String()
}

// capTags keeps tags in order until the combined length limit.
func capTags(tags []string, limit int) []string {
	var out []string
	total := 0
	for _, t := range tags {
		n := utf8.RuneCountInString(t)
		if total+n > limit {
			break
		}
		total += n
		out = append(out, t)
	}
	return out
}

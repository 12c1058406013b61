package script

import (
	"crypto/sha256"
	"encoding/hex"
	"math"
	"strconv"
	"strings"

	"eco-reel-pipeline/types"
)

// TempBucket rounds a temperature to the nearest 5°C.
func TempBucket(temp float64) int {
	return int(math.Round(temp/5) * 5)
}

// AQIBucket rounds an AQI to the nearest 50, or "none" when absent.
func AQIBucket(aqi *int) string {
	if aqi == nil {
		return "none"
	}
	return strconv.Itoa(int(math.Round(float64(*aqi)/50) * 50))
}

// Fingerprint derives the cache key for a location, theme and reading.
func Fingerprint(location string, theme types.Theme, r types.LocationReading) string {
	raw := strings.Join([]string{
		strings.ToLower(strings.TrimSpace(location)),
		string(theme),
		strconv.Itoa(TempBucket(r.Temperature.Current)),
		strings.ToLower(strings.TrimSpace(r.Weather.Description)),
		AQIBucket(r.AirQualityIndex),
	}, "|")
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:16])
}

package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so YAML can say "2s", "24h" or "1d".
type Duration time.Duration

// Day is the "d" unit.
const Day = 24 * time.Hour

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	dur, err := ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(dur)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// ParseDuration parses a Go duration string, plus whole days ("1d", "2d12h").
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}

	idx := strings.IndexByte(s, 'd')
	if idx < 0 {
		return time.ParseDuration(s)
	}

	days, err := strconv.Atoi(s[:idx])
	if err != nil {
		return 0, fmt.Errorf("invalid day count in %q: %w", s, err)
	}
	total := time.Duration(days) * Day

	if rest := s[idx+1:]; rest != "" {
		extra, err := time.ParseDuration(rest)
		if err != nil {
			return 0, fmt.Errorf("invalid duration %q: %w", s, err)
		}
		total += extra
	}
	return total, nil
}

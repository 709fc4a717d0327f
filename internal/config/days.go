package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Days is a duration written as "30d" in config, or any Go duration
type Days time.Duration

// Duration converts to time.Duration
func (d Days) Duration() time.Duration {
	return time.Duration(d)
}

// String renders whole days as "Nd"
func (d Days) String() string {
	dur := time.Duration(d)
	if dur > 0 && dur%(24*time.Hour) == 0 {
		return fmt.Sprintf("%dd", dur/(24*time.Hour))
	}
	return dur.String()
}

// SetValue implements cleanenv.Setter
func (d *Days) SetValue(s string) error {
	v, err := parseDaysDuration(s)
	if err != nil {
		return err
	}
	*d = Days(v)
	return nil
}

// UnmarshalText reads the value from YAML and JSON files
func (d *Days) UnmarshalText(b []byte) error {
	return d.SetValue(string(b))
}

// MarshalText writes the value back in day form
func (d Days) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// parseDaysDuration parses a string like "90d", "30d" into a time.Duration.
// Falls back to time.ParseDuration for standard Go durations.
func parseDaysDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if strings.HasSuffix(s, "d") {
		numStr := strings.TrimSuffix(s, "d")
		if n, err := strconv.Atoi(numStr); err == nil && n > 0 {
			return time.Duration(n) * 24 * time.Hour, nil
		}
	}
	if d, err := time.ParseDuration(s); err == nil && d > 0 {
		return d, nil
	}
	return 0, fmt.Errorf("invalid duration %q (use e.g. 30d or 720h)", s)
}

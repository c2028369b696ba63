package repository

import "time"

// Kline intervals accepted by the upstream API, in its native notation.
var intervalMinutes = map[string]time.Duration{
	"1":   time.Minute,
	"3":   3 * time.Minute,
	"5":   5 * time.Minute,
	"15":  15 * time.Minute,
	"30":  30 * time.Minute,
	"60":  time.Hour,
	"120": 2 * time.Hour,
	"240": 4 * time.Hour,
	"360": 6 * time.Hour,
	"720": 12 * time.Hour,
	"D":   24 * time.Hour,
	"W":   7 * 24 * time.Hour,
	"M":   30 * 24 * time.Hour,
}

// IsValidInterval returns true if the interval is supported upstream.
func IsValidInterval(interval string) bool {
	_, ok := intervalMinutes[interval]
	return ok
}

// DefaultInterval returns the default kline interval (one hour).
func DefaultInterval() string { return "60" }

// NormalizeInterval converts raw input, including the "1h"/"4h"/"1d" shorthand
// dashboards send, to a valid upstream interval (or the default).
func NormalizeInterval(s string) string {
	switch s {
	case "":
		return DefaultInterval()
	case "1m":
		return "1"
	case "5m":
		return "5"
	case "15m":
		return "15"
	case "30m":
		return "30"
	case "1h":
		return "60"
	case "2h":
		return "120"
	case "4h":
		return "240"
	case "1d", "1D":
		return "D"
	}
	if IsValidInterval(s) {
		return s
	}
	return DefaultInterval()
}

// IntervalDuration returns the bar duration for a valid interval.
func IntervalDuration(interval string) time.Duration {
	if d, ok := intervalMinutes[interval]; ok {
		return d
	}
	return time.Hour
}

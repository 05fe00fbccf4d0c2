package util

import (
	"strconv"
	"time"
)

// unix timestamps at or above this are treated as milliseconds
const msEpochCutoff = int64(1e12)

var timeLayouts = []string{time.RFC3339Nano, time.RFC3339}

// ParseTime accepts RFC3339 (with or without fractional seconds) and unix
// epochs in seconds or milliseconds. Returns (t, true) on success.
func ParseTime(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	if ts, err := strconv.ParseInt(s, 10, 64); err == nil && ts > 0 {
		if ts >= msEpochCutoff {
			return time.UnixMilli(ts), true
		}
		return time.Unix(ts, 0), true
	}
	return time.Time{}, false
}

// ParseTimeDefault parses time or returns def if empty/invalid.
func ParseTimeDefault(s string, def time.Time) time.Time {
	if t, ok := ParseTime(s); ok {
		return t
	}
	return def
}

// TimeframeDuration maps a bar timeframe label to its bucket width.
// Unknown labels fall back to one minute.
func TimeframeDuration(tf string) time.Duration {
	switch tf {
	case "1s":
		return time.Second
	case "5m":
		return 5 * time.Minute
	default:
		return time.Minute
	}
}

// AlignFromTo truncates both ends of a query range onto bar-bucket
// boundaries so the range covers whole bars only.
func AlignFromTo(from, to time.Time, tf string) (time.Time, time.Time) {
	d := TimeframeDuration(tf)
	return from.Truncate(d), to.Truncate(d)
}

package util

import (
	"strconv"
	"time"
)

// MinuteBucket truncates t to the start of its UTC minute.
func MinuteBucket(t time.Time) time.Time {
	return t.UTC().Truncate(time.Minute)
}

// FromUnixAuto converts an epoch timestamp in seconds, milliseconds, microseconds
// or nanoseconds, picked by magnitude.
func FromUnixAuto(ts int64) time.Time {
	switch {
	case ts > 1e17:
		return time.Unix(0, ts).UTC()
	case ts > 1e14:
		return time.UnixMicro(ts).UTC()
	case ts > 1e11:
		return time.UnixMilli(ts).UTC()
	default:
		return time.Unix(ts, 0).UTC()
	}
}

// ParseTime tries RFC3339, RFC3339Nano, and an integer epoch in any unit FromUnixAuto
// accepts. Returns (t, true) if any worked.
func ParseTime(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, true
	}
	if ts, err := strconv.ParseInt(s, 10, 64); err == nil && ts > 0 {
		return FromUnixAuto(ts), true
	}
	return time.Time{}, false
}

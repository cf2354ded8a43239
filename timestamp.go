package seismix

import (
	"fmt"
	"math"
	"time"
)

// TimestampFormat is the canonical arrival-time layout: ISO 8601 with
// millisecond precision and no zone designator. All timestamps produced by
// this package use it.
const TimestampFormat = "2006-01-02T15:04:05.000"

// timestampLayouts are accepted on input, most specific first. Fractional
// seconds and a trailing zone offset are both optional; zoneless inputs
// are interpreted as UTC.
var timestampLayouts = []string{
	"2006-01-02T15:04:05.999999999Z07:00",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02T15:04:05",
}

func parseTimestamp(s string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("seismix: cannot parse timestamp %q", s)
}

// CalcTimestamp adds sec seconds to the timestamp ts and renders the result
// in [TimestampFormat], carrying across minute, hour, and day boundaries.
// The offset is rounded to the nearest millisecond.
func CalcTimestamp(ts string, sec float64) (string, error) {
	t, err := parseTimestamp(ts)
	if err != nil {
		return "", err
	}
	t = t.Add(time.Duration(math.Round(sec * 1e9)))
	return t.UTC().Round(time.Millisecond).Format(TimestampFormat), nil
}

// FromSeconds renders a Unix epoch offset in seconds as a timestamp in
// [TimestampFormat], rounded to the nearest millisecond.
// FromSeconds(0) is "1970-01-01T00:00:00.000".
func FromSeconds(sec float64) string {
	ms := int64(math.Round(sec * 1e3))
	return time.UnixMilli(ms).UTC().Format(TimestampFormat)
}

// epochSeconds is the inverse of FromSeconds for concrete times.
func epochSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}

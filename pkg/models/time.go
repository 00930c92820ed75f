package models

import "time"

// DateLayout is the timestamp format used in exported tables.
const DateLayout = "2006-01-02 15:04:05"

// FormatMillis renders an epoch millisecond timestamp with DateLayout in UTC.
func FormatMillis(ms int64) string {
	return time.UnixMilli(ms).UTC().Format(DateLayout)
}

// ParseDate parses a DateLayout string in UTC into epoch milliseconds.
func ParseDate(s string) (int64, error) {
	t, err := time.ParseInLocation(DateLayout, s, time.UTC)
	if err != nil {
		return 0, err
	}
	return t.UnixMilli(), nil
}

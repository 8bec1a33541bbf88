package model

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"
)

// Time is a timestamp that tolerates the formats the backend emits:
// RFC 3339 with or without fractional seconds, and zone-less local date-times
// (treated as UTC). Unparseable or empty values decode as the zero time.
type Time struct {
	time.Time
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseTime parses s with the accepted layouts.
func ParseTime(s string) (Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Time{}, false
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return Time{Time: t}, true
		}
	}
	return Time{}, false
}

func (t *Time) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		*t = Time{}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		// epoch millis
		var ms int64
		if err := json.Unmarshal(b, &ms); err != nil {
			*t = Time{}
			return nil
		}
		*t = Time{Time: time.UnixMilli(ms).UTC()}
		return nil
	}
	parsed, _ := ParseTime(s)
	*t = parsed
	return nil
}

func (t Time) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.UTC().Format(time.RFC3339Nano))
}

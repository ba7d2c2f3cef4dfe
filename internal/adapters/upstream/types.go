package upstream

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"
)

// Flag is a boolean that also accepts the string and numeric spellings
// found in upstream payloads ("true", "1", "yes", 1, ...). Unrecognised
// strings decode as false.
type Flag bool

func (f *Flag) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case bytes.Equal(b, []byte("null")):
		*f = false
		return nil
	case bytes.Equal(b, []byte("true")):
		*f = true
		return nil
	case bytes.Equal(b, []byte("false")):
		*f = false
		return nil
	}

	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return fmt.Errorf("flag: %w", err)
		}
		*f = Flag(parseFlag(s))
		return nil
	}

	n, err := strconv.ParseFloat(string(b), 64)
	if err != nil {
		return fmt.Errorf("flag: unexpected value %s", b)
	}
	*f = n != 0
	return nil
}

func parseFlag(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "t", "1", "yes", "y", "on":
		return true
	}
	return false
}

// Number is a float that also accepts numeric strings. Set reports whether
// the field was present; a present but unparseable value decodes as NaN so
// the non-finite filters drop the record later.
type Number struct {
	Value float64
	Set   bool
}

func (n *Number) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*n = Number{}
		return nil
	}
	n.Set = true

	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return fmt.Errorf("number: %w", err)
		}
		n.Value = parseNumber(s)
		return nil
	}

	v, err := strconv.ParseFloat(string(b), 64)
	if err != nil {
		n.Value = math.NaN()
		return nil
	}
	n.Value = v
	return nil
}

func parseNumber(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return math.NaN()
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		// Some registries use a decimal comma.
		v, err = strconv.ParseFloat(strings.Replace(s, ",", ".", 1), 64)
		if err != nil {
			return math.NaN()
		}
	}
	return v
}

// Int returns the value truncated to an int, or 0 when unset or not finite.
func (n Number) Int() int {
	if !n.Set || math.IsNaN(n.Value) || math.IsInf(n.Value, 0) {
		return 0
	}
	return int(n.Value)
}

// Text is a string that also accepts numbers, as identifiers are sometimes
// sent either way.
type Text string

func (t *Text) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*t = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return fmt.Errorf("text: %w", err)
		}
		*t = Text(strings.TrimSpace(s))
		return nil
	}
	*t = Text(b)
	return nil
}

func (t Text) String() string { return string(t) }

// Timestamp accepts RFC 3339, "2006-01-02 15:04:05" in Israel local time,
// or Unix seconds/milliseconds.
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"02/01/2006 15:04:05",
}

func (ts *Timestamp) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		ts.Time = time.Time{}
		return nil
	}

	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return fmt.Errorf("timestamp: %w", err)
		}
		s = strings.TrimSpace(s)
		if s == "" {
			ts.Time = time.Time{}
			return nil
		}
		for _, layout := range timestampLayouts {
			if t, err := time.ParseInLocation(layout, s, israel); err == nil {
				ts.Time = t
				return nil
			}
		}
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			ts.Time = fromUnix(n)
			return nil
		}
		return fmt.Errorf("timestamp: unrecognised value %q", s)
	}

	n, err := strconv.ParseInt(string(b), 10, 64)
	if err != nil {
		return fmt.Errorf("timestamp: unexpected value %s", b)
	}
	ts.Time = fromUnix(n)
	return nil
}

func fromUnix(n int64) time.Time {
	if n > 1e12 {
		return time.UnixMilli(n)
	}
	return time.Unix(n, 0)
}

var israel = loadIsrael()

func loadIsrael() *time.Location {
	if loc, err := time.LoadLocation("Asia/Jerusalem"); err == nil {
		return loc
	}
	return time.FixedZone("IST", 2*60*60)
}

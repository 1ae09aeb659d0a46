package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ID is an opaque backend identifier. The backend emits integers, but the
// client treats IDs as strings.
type ID string

func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("decode id: %w", err)
	}
	*id = ID(n.String())
	return nil
}

// MarshalJSON emits numeric IDs as JSON numbers so the backend's integer
// fields accept them.
func (id ID) MarshalJSON() ([]byte, error) {
	if n, err := strconv.ParseInt(string(id), 10, 64); err == nil && strconv.FormatInt(n, 10) == string(id) {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

func (id ID) String() string { return string(id) }

// WireDateLayout is the MM/DD/YYYY form the backend accepts on write paths.
const WireDateLayout = "01/02/2006"

var dateLayouts = []struct {
	layout   string
	floating bool
}{
	{time.RFC3339Nano, false},
	{"2006-01-02T15:04:05.999999999", true},
	{"2006-01-02 15:04:05.999999999", true},
	{"2006-01-02", true},
	{WireDateLayout, true},
}

// Date is a calendar instant exchanged with the backend. Values decoded
// without a zone are floating: their wall clock is read in whatever location
// the evaluation pass uses.
type Date struct {
	t        time.Time
	floating bool
}

// NewDate wraps t as a zoned instant.
func NewDate(t time.Time) Date { return Date{t: t} }

// CivilDate builds a floating calendar date.
func CivilDate(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC), floating: true}
}

// ParseDate accepts RFC 3339, naive ISO datetimes, YYYY-MM-DD and MM/DD/YYYY.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	for _, l := range dateLayouts {
		if t, err := time.Parse(l.layout, s); err == nil {
			return Date{t: t, floating: l.floating}, nil
		}
	}
	return Date{}, fmt.Errorf("unrecognized date %q", s)
}

// IsZero reports whether the date is unset.
func (d Date) IsZero() bool { return d.t.IsZero() }

// In returns the instant in loc. Floating values keep their wall clock.
func (d Date) In(loc *time.Location) time.Time {
	if d.floating {
		return time.Date(d.t.Year(), d.t.Month(), d.t.Day(), d.t.Hour(), d.t.Minute(), d.t.Second(), d.t.Nanosecond(), loc)
	}
	return d.t.In(loc)
}

// Wire formats the date as MM/DD/YYYY.
func (d Date) Wire() string { return d.t.Format(WireDateLayout) }

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.t.Format("2006-01-02")
}

func (d *Date) UnmarshalJSON(b []byte) error {
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		*d = Date{}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("decode date: %w", err)
	}
	if s == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.Wire())
}

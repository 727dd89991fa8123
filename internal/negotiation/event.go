package negotiation

import (
	"fmt"
	"strings"
	"time"
)

// Event is one row of the negotiation change log.
type Event struct {
	Article     string    `json:"article"`
	Topic       string    `json:"topic,omitempty"`
	Date        time.Time `json:"date"`
	Party       Party     `json:"party"`
	Description string    `json:"description"`
	Seq         int       `json:"seq"` // source record order
}

// DateLayout is the canonical calendar-date format used for output and keys.
const DateLayout = "2006-01-02"

var dateLayouts = []string{
	DateLayout,
	"1/2/2006",
	"01/02/2006",
	"1/2/06",
	"2006/01/02",
	"Jan 2, 2006",
	"January 2, 2006",
	"2 Jan 2006",
}

// ParseDate parses a calendar date in any of the accepted layouts and
// returns it as midnight UTC.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return Day(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

// Day truncates t to its calendar date at midnight UTC.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// FormatDate renders a date in DateLayout.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

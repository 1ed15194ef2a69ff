package textutil

import (
	"regexp"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

var (
	isoLayouts = []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006-01-02T15:04",
		"2006-01-02 15:04:05",
		"2006-01-02",
	}
	// Listing cards often omit the year.
	yearlessLayouts = []string{
		"Jan 2",
		"January 2",
		"2 Jan",
		"2 January",
		"Jan 2 3:04 PM",
		"Jan 2, 3:04 PM",
	}

	ordinalSuffix = regexp.MustCompile(`(?i)\b(\d{1,2})(st|nd|rd|th)\b`)
	leadingDay    = regexp.MustCompile(`(?i)^(mon|tue|wed|thu|fri|sat|sun)[a-z]*\.?,?\s+`)
	trailingZone  = regexp.MustCompile(`\s+(IST|GMT[+-]\d{1,2}(:?\d{2})?)$`)
)

// yearRollover is how far in the past a year-less date may fall before it is read as next year.
const yearRollover = 30 * 24 * time.Hour

// ParseDate interprets the free-text date formats seen across listing sites and returns the
// instant in UTC. ok is false when s cannot be read as a date; no placeholder is invented.
func ParseDate(s string, now time.Time) (time.Time, bool) {
	s = CollapseSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range isoLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}

	cleaned := leadingDay.ReplaceAllString(s, "")
	cleaned = ordinalSuffix.ReplaceAllString(cleaned, "$1")
	cleaned = trailingZone.ReplaceAllString(cleaned, "")
	cleaned = strings.TrimSuffix(strings.TrimSpace(cleaned), ",")

	for _, layout := range yearlessLayouts {
		if t, err := time.Parse(layout, cleaned); err == nil {
			return withYear(t, now), true
		}
	}
	// Listings write numeric dates day first; month first is only a fallback for 03/15/2025.
	for _, monthFirst := range []bool{false, true} {
		t, err := dateparse.ParseIn(cleaned, time.UTC, dateparse.PreferMonthFirst(monthFirst))
		if err == nil && t.Year() > 1 {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

func withYear(t time.Time, now time.Time) time.Time {
	now = now.UTC()
	out := time.Date(now.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), 0, 0, time.UTC)
	if now.Sub(out) > yearRollover {
		out = out.AddDate(1, 0, 0)
	}
	return out
}

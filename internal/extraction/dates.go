package extraction

import (
	"regexp"
	"strings"
	"time"

	"golang.org/x/text/width"
)

// ISODate is the wire format for every date field.
const ISODate = "2006-01-02"

const followUpOffsetDays = 3

var (
	dateLayouts = []string{
		"2006-1-2",
		"2006/1/2",
		"2006.1.2",
		"2006年1月2日",
		"2006-1-2 15:04",
		"2006/1/2 15:04",
	}
	trailingWeekdayRE = regexp.MustCompile(`\s*[(（][^)）]*[)）]\s*$`)
)

// DefaultFollowUpDate returns the default next_action_date: three days after
// base, moved to Monday when that lands on a weekend. A blank or unparseable
// base anchors on now instead.
func DefaultFollowUpDate(base string, now time.Time) string {
	loc := now.Location()
	anchor, err := time.ParseInLocation(ISODate, strings.TrimSpace(base), loc)
	if err != nil {
		anchor = now
	}

	d := time.Date(anchor.Year(), anchor.Month(), anchor.Day()+followUpOffsetDays, 0, 0, 0, 0, loc)
	switch d.Weekday() {
	case time.Saturday:
		d = d.AddDate(0, 0, 2)
	case time.Sunday:
		d = d.AddDate(0, 0, 1)
	}
	return d.Format(ISODate)
}

// NormalizeDate rewrites common date spellings (slashes, dots, kanji units,
// full-width digits, a trailing weekday in parentheses, RFC3339) to
// YYYY-MM-DD. Empty input is returned as-is with ok=true; anything it cannot
// read returns ok=false.
func NormalizeDate(s string) (string, bool) {
	s = strings.TrimSpace(width.Fold.String(s))
	if s == "" {
		return "", true
	}
	s = trailingWeekdayRE.ReplaceAllString(s, "")

	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.Format(ISODate), true
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(ISODate), true
		}
	}
	return "", false
}

// Location resolves a time zone name, falling back to UTC.
func Location(name string) *time.Location {
	if name == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}

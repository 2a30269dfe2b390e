// Package window decides whether an event date falls inside the actionable
// window. Parsing is fail-open: an unreadable date counts as inside.
package window

import (
	"fmt"
	"log"
	"regexp"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/araddon/dateparse"

	"github.com/djlord-it/easy-announce/internal/domain"
)

// DefaultDays is the number of whole days ahead an event may be and still
// qualify.
const DefaultDays = 18

// zoneByAbbrev maps the abbreviations the events page prints to IANA zones.
var zoneByAbbrev = map[string]string{
	"PST":  "America/Los_Angeles",
	"PDT":  "America/Los_Angeles",
	"MST":  "America/Denver",
	"MDT":  "America/Denver",
	"CST":  "America/Chicago",
	"CDT":  "America/Chicago",
	"EST":  "America/New_York",
	"EDT":  "America/New_York",
	"AKST": "America/Anchorage",
	"AKDT": "America/Anchorage",
	"HST":  "Pacific/Honolulu",
	"GMT":  "Europe/London",
	"BST":  "Europe/London",
	"CET":  "Europe/Berlin",
	"CEST": "Europe/Berlin",
	"UTC":  "UTC",
}

var abbrevPattern = regexp.MustCompile(`\b(AKST|AKDT|PST|PDT|MST|MDT|CST|CDT|EST|EDT|HST|GMT|BST|CEST|CET|UTC)\b`)

// naiveLayouts are tried, in order, on text with the zone abbreviation
// removed. Input is upper-cased first; month and weekday names match
// case-insensitively.
var naiveLayouts = []string{
	"Mon, Jan 2, 2006, 3:04 PM",
	"Mon, Jan 2, 2006 3:04 PM",
	"Monday, January 2, 2006, 3:04 PM",
	"Monday, January 2, 2006 3:04 PM",
	"Jan 2, 2006, 3:04 PM",
	"Jan 2, 2006 3:04 PM",
	"Mon, Jan 2, 2006",
	"Jan 2, 2006",
}

// yearlessLayouts match the short card format ("Mon, Apr 14 · 3:00 PM").
// The year is inferred relative to now.
var yearlessLayouts = []string{
	"Mon, Jan 2 · 3:04 PM",
	"Mon, Jan 2, 3:04 PM",
	"Mon, Jan 2 3:04 PM",
	"Jan 2 · 3:04 PM",
}

// Parse resolves raw date text into an instant. When the text carries a known
// zone abbreviation the remainder is parsed as a wall-clock time in that
// zone; otherwise a general-purpose parser is used and whatever zone it
// yields is kept (UTC when none). now is only used to place dates printed
// without a year.
func Parse(raw string, now time.Time) (domain.ResolvedDate, error) {
	res := domain.ResolvedDate{SourceText: raw}
	text := strings.Join(strings.Fields(raw), " ")
	if text == "" {
		return res, fmt.Errorf("empty date text")
	}

	if abbr := abbrevPattern.FindString(strings.ToUpper(text)); abbr != "" {
		loc, err := time.LoadLocation(zoneByAbbrev[abbr])
		if err != nil {
			return res, fmt.Errorf("load zone %s: %w", abbr, err)
		}
		stripped := stripAbbrev(text, abbr)
		t, err := parseNaive(stripped, loc, now)
		if err != nil {
			return res, err
		}
		res.Instant = t
		res.ParseSucceeded = true
		return res, nil
	}

	t, err := dateparse.ParseAny(text)
	if err != nil {
		t, err = parseNaive(text, time.UTC, now)
		if err != nil {
			return res, err
		}
	}
	res.Instant = t
	res.ParseSucceeded = true
	return res, nil
}

func stripAbbrev(text, abbr string) string {
	re := regexp.MustCompile(`(?i)\b` + abbr + `\b`)
	out := re.ReplaceAllString(text, "")
	out = strings.Join(strings.Fields(out), " ")
	return strings.TrimRight(out, " ,")
}

func parseNaive(text string, loc *time.Location, now time.Time) (time.Time, error) {
	upper := strings.ToUpper(text)
	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, upper, loc); err == nil {
			return t, nil
		}
	}
	for _, layout := range yearlessLayouts {
		if t, err := time.ParseInLocation(layout, upper, loc); err == nil {
			return withInferredYear(t, now.In(loc)), nil
		}
	}
	t, err := dateparse.ParseIn(text, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", text, err)
	}
	return t, nil
}

// withInferredYear places a year-less date in the current year, or the next
// one when that would put it more than six months in the past. Dates are
// never moved into the previous year: the listing shows upcoming events, so a
// recently past date across New Year (Dec 20 seen on Jan 5) lands eleven
// months ahead and falls outside the window.
func withInferredYear(t, now time.Time) time.Time {
	y := now.Year()
	d := time.Date(y, t.Month(), t.Day(), t.Hour(), t.Minute(), 0, 0, t.Location())
	if d.Before(now.AddDate(0, -6, 0)) {
		d = d.AddDate(1, 0, 0)
	}
	return d
}

// Filter classifies events against a day window relative to now.
type Filter struct {
	days  int
	clock func() time.Time
}

func New(days int, clock func() time.Time) *Filter {
	if clock == nil {
		clock = time.Now
	}
	return &Filter{days: days, clock: clock}
}

// Resolve parses raw and reports whether it falls inside the window.
// A parse failure is logged and counts as inside.
func (f *Filter) Resolve(raw string) (domain.ResolvedDate, bool) {
	res, err := Parse(raw, f.clock())
	if err != nil {
		log.Printf("window: WARNING could not parse date %q, treating as inside window: %v", raw, err)
		return res, true
	}
	return res, f.Contains(res.Instant)
}

// IsWithinWindow is Resolve without the parsed value.
func (f *Filter) IsWithinWindow(raw string) bool {
	_, ok := f.Resolve(raw)
	return ok
}

// Contains applies the window rule: whole days ahead (floored, as a
// calendar-agnostic 24h count) must not exceed the limit. There is no lower
// bound; past events qualify.
func (f *Filter) Contains(instant time.Time) bool {
	now := f.clock().In(instant.Location())
	return DaysUntil(now, instant) <= f.days
}

// DaysUntil returns the floored number of 24h periods from now to t.
func DaysUntil(now, t time.Time) int {
	const day = 24 * time.Hour
	d := t.Sub(now)
	days := d / day
	if d%day != 0 && d < 0 {
		days--
	}
	return int(days)
}

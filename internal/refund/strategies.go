// internal/refund/strategies.go
package refund

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// DateStrategy turns one representation of a booking date into a base time.
type DateStrategy interface {
	Name() string
	Parse(in TimeInput, loc *time.Location) (time.Time, bool)
}

// DefaultStrategies returns the resolution chain in priority order.
func DefaultStrategies() []DateStrategy {
	return []DateStrategy{
		ISOStrategy{},
		DisplayStrategy{},
		NormalizedDisplayStrategy{},
		ManualPartsStrategy{},
	}
}

// ISOStrategy reads the canonical backend date-time. Values without an
// offset are interpreted in the resolver's location.
type ISOStrategy struct{}

var zonedISOLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05-0700",
}

var naiveISOLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func (ISOStrategy) Name() string { return "iso" }

func (ISOStrategy) Parse(in TimeInput, loc *time.Location) (time.Time, bool) {
	raw := strings.TrimSpace(in.ISODate)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range zonedISOLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return parseInLayouts(raw, naiveISOLayouts, loc)
}

// DisplayStrategy parses the human-readable date as-is.
type DisplayStrategy struct{}

var displayLayouts = []string{
	"2 Jan 2006",
	"2 January 2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"Jan 2 2006",
	"January 2 2006",
	"Mon, 2 Jan 2006",
	"Monday, 2 January 2006",
	"Mon, Jan 2, 2006",
	"Monday, January 2, 2006",
	"2-Jan-2006",
	"2006-01-02",
	"2006/01/02",
}

func (DisplayStrategy) Name() string { return "display" }

func (DisplayStrategy) Parse(in TimeInput, loc *time.Location) (time.Time, bool) {
	raw := collapseSpaces(in.DisplayDate)
	if raw == "" {
		return time.Time{}, false
	}
	return parseInLayouts(raw, displayLayouts, loc)
}

// NormalizedDisplayStrategy repairs irregular month spellings and rewrites
// "day month year" as "month day, year" before parsing again.
type NormalizedDisplayStrategy struct{}

var (
	irregularMonths = []struct {
		pattern     *regexp.Regexp
		replacement string
	}{
		{regexp.MustCompile(`(?i)\bsept\b\.?`), "Sep"},
		{regexp.MustCompile(`(?i)\bjuly\b`), "Jul"},
		{regexp.MustCompile(`(?i)\bjune\b`), "Jun"},
	}
	dayMonthYearPattern = regexp.MustCompile(`^(\d{1,2})\s+([A-Za-z]+)\.?,?\s+(\d{4})$`)
)

func (NormalizedDisplayStrategy) Name() string { return "normalized_display" }

func (NormalizedDisplayStrategy) Parse(in TimeInput, loc *time.Location) (time.Time, bool) {
	raw := collapseSpaces(in.DisplayDate)
	if raw == "" {
		return time.Time{}, false
	}
	normalized := normalizeMonthNames(raw)
	if m := dayMonthYearPattern.FindStringSubmatch(normalized); m != nil {
		normalized = m[2] + " " + m[1] + ", " + m[3]
	}
	return parseInLayouts(normalized, displayLayouts, loc)
}

func normalizeMonthNames(s string) string {
	for _, m := range irregularMonths {
		s = m.pattern.ReplaceAllString(s, m.replacement)
	}
	return s
}

// ManualPartsStrategy extracts day, month name and year from anywhere in the
// display string and builds the date from numeric parts.
type ManualPartsStrategy struct{}

var (
	dayMonthYearParts = regexp.MustCompile(`(?i)(\d{1,2})(?:st|nd|rd|th)?\s+([a-z]+)\.?,?\s+(\d{4})`)

	monthIndex = map[string]time.Month{
		"january": time.January, "jan": time.January,
		"february": time.February, "feb": time.February,
		"march": time.March, "mar": time.March,
		"april": time.April, "apr": time.April,
		"may":  time.May,
		"june": time.June, "jun": time.June,
		"july": time.July, "jul": time.July,
		"august": time.August, "aug": time.August,
		"september": time.September, "sep": time.September, "sept": time.September,
		"october": time.October, "oct": time.October,
		"november": time.November, "nov": time.November,
		"december": time.December, "dec": time.December,
	}
)

func (ManualPartsStrategy) Name() string { return "manual_parts" }

func (ManualPartsStrategy) Parse(in TimeInput, loc *time.Location) (time.Time, bool) {
	m := dayMonthYearParts.FindStringSubmatch(in.DisplayDate)
	if m == nil {
		return time.Time{}, false
	}
	day, err := strconv.Atoi(m[1])
	if err != nil {
		return time.Time{}, false
	}
	month, ok := monthIndex[strings.ToLower(m[2])]
	if !ok {
		return time.Time{}, false
	}
	year, err := strconv.Atoi(m[3])
	if err != nil {
		return time.Time{}, false
	}
	t := time.Date(year, month, day, 0, 0, 0, 0, loc)
	// time.Date normalizes overflow; "31 Sept" must not become 1 Oct.
	if t.Day() != day || t.Month() != month {
		return time.Time{}, false
	}
	return t, true
}

func parseInLayouts(raw string, layouts []string, loc *time.Location) (time.Time, bool) {
	for _, layout := range layouts {
		if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

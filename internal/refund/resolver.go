// internal/refund/resolver.go

// Package refund resolves booking start times and decides whether a
// cancellation still qualifies for a full refund.
package refund

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ErrUnresolved reports that no strategy could produce a booking date.
// Callers must surface an indeterminate state instead of guessing.
var ErrUnresolved = errors.New("booking time could not be resolved")

// TimeInput is the date/time fragment of a booking record as the backend
// and booking views supply it.
type TimeInput struct {
	ISODate        string `json:"isoDate,omitempty"`
	DisplayDate    string `json:"date"`
	StartTime      string `json:"startTime,omitempty"`
	TimeRangeLabel string `json:"time,omitempty"`
}

// Resolver turns a TimeInput into a concrete instant.
type Resolver struct {
	// Location is used for values that carry no offset. Nil means time.Local.
	Location   *time.Location
	Strategies []DateStrategy
}

// NewResolver returns a resolver with the default strategy chain.
func NewResolver(loc *time.Location) *Resolver {
	return &Resolver{Location: loc, Strategies: DefaultStrategies()}
}

// Resolve applies each date strategy in order and merges the booking's
// start time into the first date found.
func (r *Resolver) Resolve(in TimeInput) (time.Time, error) {
	loc := r.location()
	strategies := r.Strategies
	if len(strategies) == 0 {
		strategies = DefaultStrategies()
	}

	for _, strategy := range strategies {
		base, ok := strategy.Parse(in, loc)
		if !ok {
			continue
		}
		if hour, minute, ok := effectiveStartTime(in); ok {
			b := base.In(loc)
			return time.Date(b.Year(), b.Month(), b.Day(), hour, minute, 0, 0, loc), nil
		}
		return base, nil
	}
	return time.Time{}, ErrUnresolved
}

// Check resolves the booking time and evaluates it against the window.
// An unresolved time is returned as ErrUnresolved without evaluating.
func (r *Resolver) Check(in TimeInput, now time.Time, thresholdHours float64) (Decision, error) {
	resolved, err := r.Resolve(in)
	if err != nil {
		return Decision{}, err
	}
	return Evaluate(resolved, now, thresholdHours), nil
}

func (r *Resolver) location() *time.Location {
	if r == nil || r.Location == nil {
		return time.Local
	}
	return r.Location
}

var (
	clockPattern      = regexp.MustCompile(`(?i)^(\d{1,2}):(\d{2})\s*([AP])\.?M\.?$`)
	clockTokenPattern = regexp.MustCompile(`(?i)\d{1,2}:\d{2}\s*[AP]\.?M\.?`)
)

// effectiveStartTime prefers StartTime and falls back to the first clock
// token of TimeRangeLabel. A start time that does not parse counts as absent.
func effectiveStartTime(in TimeInput) (hour, minute int, ok bool) {
	if hour, minute, ok = ParseClock(in.StartTime); ok {
		return hour, minute, true
	}
	token := clockTokenPattern.FindString(in.TimeRangeLabel)
	if token == "" {
		return 0, 0, false
	}
	return ParseClock(token)
}

// ParseClock parses a 12-hour clock string such as "8:00AM" or "12:30 pm"
// into a 24-hour hour and minute.
func ParseClock(s string) (hour, minute int, ok bool) {
	m := clockPattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return 0, 0, false
	}
	hour, _ = strconv.Atoi(m[1])
	minute, _ = strconv.Atoi(m[2])
	if hour < 1 || hour > 12 || minute > 59 {
		return 0, 0, false
	}
	pm := strings.EqualFold(m[3], "P")
	switch {
	case hour == 12 && !pm:
		hour = 0
	case hour != 12 && pm:
		hour += 12
	}
	return hour, minute, true
}

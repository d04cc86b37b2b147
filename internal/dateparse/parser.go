// Package dateparse turns loose Russian or English date expressions into
// calendar dates.
//
// Rules are evaluated in declaration order and the first rule whose pattern
// matches and whose interpreter accepts the captured values wins. Earlier
// rules shadow later ones on ambiguous input, so the order of the rule table
// is part of the contract.
package dateparse

import (
	"errors"
	"time"

	"habitbot/internal/textmatch"
)

// PlausibilityWindow bounds how far a parsed date may lie from now.
const PlausibilityWindow = 365 * 24 * time.Hour

var (
	ErrTooFarPast   = errors.New("дата слишком далеко в прошлом")
	ErrTooFarFuture = errors.New("дата слишком далеко в будущем")

	errInvalidDate = errors.New("invalid calendar date")
)

type interpretFunc func(m textmatch.Match, today time.Time) (time.Time, error)

type rule struct {
	name      string
	pattern   *textmatch.Pattern
	interpret interpretFunc
}

// Parser parses dates relative to its clock. The zero value is not usable;
// construct with New.
type Parser struct {
	now   func() time.Time
	rules []rule
}

// Option configures a Parser.
type Option func(*Parser)

// WithClock overrides the time source (tests).
func WithClock(now func() time.Time) Option {
	return func(p *Parser) {
		if now != nil {
			p.now = now
		}
	}
}

// New returns a parser with the default rule table.
func New(opts ...Option) *Parser {
	p := &Parser{now: time.Now, rules: defaultRules()}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Now returns the parser's current time.
func (p *Parser) Now() time.Time { return p.now() }

// Today returns local midnight of the parser's current day.
func (p *Parser) Today() time.Time { return Midnight(p.now()) }

// Parse returns the first date any rule extracts from text.
func (p *Parser) Parse(text string) (time.Time, bool) {
	today := p.Today()
	for _, r := range p.rules {
		m, ok := r.pattern.Find(text)
		if !ok {
			continue
		}
		t, err := r.interpret(m, today)
		if err != nil {
			// An impossible date (31.02) falls through to the next rule.
			continue
		}
		return t, true
	}
	return time.Time{}, false
}

// Validate rejects dates outside the plausibility window around now. The
// returned error text is the user-facing reason.
func (p *Parser) Validate(t time.Time) error {
	now := p.now()
	switch {
	case t.Before(now.Add(-PlausibilityWindow)):
		return ErrTooFarPast
	case t.After(now.Add(PlausibilityWindow)):
		return ErrTooFarFuture
	}
	return nil
}

// RuleNames lists the rule table in evaluation order.
func (p *Parser) RuleNames() []string {
	out := make([]string, 0, len(p.rules))
	for _, r := range p.rules {
		out = append(out, r.name)
	}
	return out
}

// Midnight truncates t to 00:00 in its own location.
func Midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// Date builds local midnight for y-m-d and rejects values that time.Date
// would silently normalise (31 February, month 13).
func Date(y, m, d int, loc *time.Location) (time.Time, error) {
	if m < 1 || m > 12 || d < 1 || d > 31 {
		return time.Time{}, errInvalidDate
	}
	t := time.Date(y, time.Month(m), d, 0, 0, 0, 0, loc)
	if t.Year() != y || int(t.Month()) != m || t.Day() != d {
		return time.Time{}, errInvalidDate
	}
	return t, nil
}

// AddMonths adds n calendar months to t, clamping the day to the last day of
// the target month (31 January + 1 month = 28 or 29 February).
func AddMonths(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	total := int(m) - 1 + n
	ty := y + floorDiv(total, 12)
	tm := time.Month(total - floorDiv(total, 12)*12 + 1)
	if last := DaysIn(ty, tm); d > last {
		d = last
	}
	hh, mm, ss := t.Clock()
	return time.Date(ty, tm, d, hh, mm, ss, t.Nanosecond(), t.Location())
}

// DaysIn reports the number of days in the given month.
func DaysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// DayNumber maps a date to a day count that is stable across DST changes,
// so two dates can be compared by calendar day.
func DayNumber(t time.Time) int {
	y, m, d := t.Date()
	return int(time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Unix() / 86400)
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

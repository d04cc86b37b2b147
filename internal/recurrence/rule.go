// Package recurrence evaluates fixed-interval daily, weekly and monthly
// habit rules against a completion history. Every function is pure: the
// completion slice is read-only input and the reference time is a parameter.
package recurrence

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidInterval = errors.New("recurrence: interval must be >= 1")
	ErrUnknownKind     = errors.New("recurrence: unknown kind")
)

// Kind is the cadence unit of a rule.
type Kind int

const (
	Daily Kind = iota + 1
	Weekly
	Monthly
)

func (k Kind) String() string {
	switch k {
	case Daily:
		return "daily"
	case Weekly:
		return "weekly"
	case Monthly:
		return "monthly"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ParseKind is the inverse of Kind.String.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "daily":
		return Daily, nil
	case "weekly":
		return Weekly, nil
	case "monthly":
		return Monthly, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// Rule repeats a habit every Interval units of Kind.
type Rule struct {
	Kind     Kind
	Interval int
}

// NewRule validates and returns a rule.
func NewRule(kind Kind, interval int) (Rule, error) {
	r := Rule{Kind: kind, Interval: interval}
	if err := r.Validate(); err != nil {
		return Rule{}, err
	}
	return r, nil
}

func (r Rule) Validate() error {
	switch r.Kind {
	case Daily, Weekly, Monthly:
	default:
		return fmt.Errorf("%w: %d", ErrUnknownKind, int(r.Kind))
	}
	if r.Interval < 1 {
		return ErrInvalidInterval
	}
	return nil
}

// Describe renders the rule for chat output.
func (r Rule) Describe() string {
	if r.Interval <= 1 {
		switch r.Kind {
		case Daily:
			return "каждый день"
		case Weekly:
			return "каждую неделю"
		case Monthly:
			return "каждый месяц"
		}
	}
	switch r.Kind {
	case Daily:
		return fmt.Sprintf("каждые %d дн.", r.Interval)
	case Weekly:
		return fmt.Sprintf("каждые %d нед.", r.Interval)
	case Monthly:
		return fmt.Sprintf("каждые %d мес.", r.Interval)
	}
	return r.Kind.String()
}

func (r Rule) String() string { return fmt.Sprintf("%s/%d", r.Kind, r.Interval) }

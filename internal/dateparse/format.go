package dateparse

import (
	"fmt"
	"time"
)

const (
	dateLayout     = "02.01.2006"
	dateTimeLayout = "02.01.2006 15:04"
)

// Format renders t as DD.MM.YYYY.
func Format(t time.Time) string { return t.Format(dateLayout) }

// FormatDateTime renders t as DD.MM.YYYY HH:MM.
func FormatDateTime(t time.Time) string { return t.Format(dateTimeLayout) }

// Relative labels t against the parser's current day.
func (p *Parser) Relative(t time.Time) string {
	return RelativeTo(t, p.now())
}

// RelativeTo labels t against the calendar day of now.
func RelativeTo(t, now time.Time) string {
	diff := DayNumber(t) - DayNumber(now)
	switch {
	case diff == 0:
		return "сегодня"
	case diff == 1:
		return "завтра"
	case diff == -1:
		return "вчера"
	case diff > 0:
		return fmt.Sprintf("через %d дн.", diff)
	default:
		return fmt.Sprintf("%d дн. назад", -diff)
	}
}

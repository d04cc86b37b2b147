package recurrence

import (
	"time"

	"habitbot/internal/dateparse"
)

const maxOccurrences = 10000

// Occurrences lists the rule's instants in [from, to), counted in whole rule
// steps from anchor. Monthly steps are measured from the anchor each time, so
// a 31st anchor yields the last day of short months without drifting.
func Occurrences(r Rule, anchor, from, to time.Time) []time.Time {
	if !from.Before(to) {
		return nil
	}
	n := r.Interval
	if n < 1 {
		n = 1
	}

	k := 0
	if anchor.Before(from) {
		k = skipSteps(r.Kind, n, anchor, from)
	}

	var out []time.Time
	for i := 0; i < maxOccurrences; i, k = i+1, k+1 {
		t := stepFrom(anchor, r.Kind, k*n)
		if !t.Before(to) {
			break
		}
		if !t.Before(from) {
			out = append(out, t)
		}
	}
	return out
}

// WeekSchedule lists occurrences in the seven days starting at today's midnight.
func WeekSchedule(r Rule, anchor, today time.Time) []time.Time {
	start := dateparse.Midnight(today)
	return Occurrences(r, anchor, start, start.AddDate(0, 0, 7))
}

// MonthSchedule lists occurrences in the calendar month containing today.
func MonthSchedule(r Rule, anchor, today time.Time) []time.Time {
	y, m, _ := today.Date()
	start := time.Date(y, m, 1, 0, 0, 0, 0, today.Location())
	return Occurrences(r, anchor, start, start.AddDate(0, 1, 0))
}

func stepFrom(anchor time.Time, kind Kind, units int) time.Time {
	switch kind {
	case Weekly:
		return anchor.AddDate(0, 0, 7*units)
	case Monthly:
		return dateparse.AddMonths(anchor, units)
	default:
		return anchor.AddDate(0, 0, units)
	}
}

// skipSteps returns a step count that lands at or just before from, so long
// histories do not iterate from the anchor.
func skipSteps(kind Kind, n int, anchor, from time.Time) int {
	var units int
	switch kind {
	case Monthly:
		ay, am, _ := anchor.Date()
		fy, fm, _ := from.Date()
		units = (fy-ay)*12 + int(fm-am)
	case Weekly:
		units = (dateparse.DayNumber(from) - dateparse.DayNumber(anchor)) / 7
	default:
		units = dateparse.DayNumber(from) - dateparse.DayNumber(anchor)
	}
	k := units/n - 1
	if k < 0 {
		k = 0
	}
	return k
}

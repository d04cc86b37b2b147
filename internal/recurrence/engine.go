package recurrence

import (
	"math"
	"sort"
	"time"

	"habitbot/internal/dateparse"
)

// NextOccurrence returns the instant one rule step after last. The clock time
// of last is kept; monthly steps clamp the day to the target month's length.
func NextOccurrence(last time.Time, r Rule) time.Time {
	n := r.Interval
	if n < 1 {
		n = 1
	}
	switch r.Kind {
	case Weekly:
		return last.AddDate(0, 0, 7*n)
	case Monthly:
		return dateparse.AddMonths(last, n)
	default:
		return last.AddDate(0, 0, n)
	}
}

// IsDue reports whether a habit is due at now: always when it was never
// completed, otherwise once now reaches the step after the latest completion.
func IsDue(r Rule, completions []time.Time, now time.Time) bool {
	latest, ok := Latest(completions)
	if !ok {
		return true
	}
	return !now.Before(NextOccurrence(latest, r))
}

// NextDue returns when the habit is next due; now when it was never completed.
func NextDue(r Rule, completions []time.Time, now time.Time) time.Time {
	latest, ok := Latest(completions)
	if !ok {
		return now
	}
	return NextOccurrence(latest, r)
}

// Latest returns the most recent completion. Input order is not assumed.
func Latest(completions []time.Time) (time.Time, bool) {
	if len(completions) == 0 {
		return time.Time{}, false
	}
	latest := completions[0]
	for _, c := range completions[1:] {
		if c.After(latest) {
			latest = c
		}
	}
	return latest, true
}

// CurrentStreak counts consecutive calendar days with a completion, walking
// back from today. Completions after today are ignored. Same-day duplicates
// are counted as given; deduplication is the caller's job.
func CurrentStreak(completions []time.Time, today time.Time) int {
	todayN := dateparse.DayNumber(today)
	days := dayNumbers(completions)
	sort.Sort(sort.Reverse(sort.IntSlice(days)))

	streak := 0
	cur := todayN
	for _, d := range days {
		if d > todayN {
			continue
		}
		if d == cur || d == cur-1 {
			streak++
			cur = d
			continue
		}
		break
	}
	return streak
}

// LongestStreak returns the longest run of day-over-day completions; at least
// 1 when any completion exists.
func LongestStreak(completions []time.Time) int {
	if len(completions) == 0 {
		return 0
	}
	days := dayNumbers(completions)
	sort.Ints(days)

	longest, run := 1, 1
	for i := 1; i < len(days); i++ {
		if days[i]-days[i-1] == 1 {
			run++
			if run > longest {
				longest = run
			}
			continue
		}
		run = 1
	}
	return longest
}

// Streaks returns the current and longest streak.
func Streaks(completions []time.Time, today time.Time) (current, longest int) {
	return CurrentStreak(completions, today), LongestStreak(completions)
}

// Stats summarises adherence over a trailing window.
type Stats struct {
	PeriodDays    int
	Completed     int
	Expected      int
	Rate          float64 // percent, one decimal
	CurrentStreak int
	LongestStreak int
}

// PeriodStats counts completions in the trailing periodDays window ending at
// now and compares them with the count the rule expects for that window.
func PeriodStats(r Rule, completions []time.Time, periodDays int, now time.Time) Stats {
	since := now.AddDate(0, 0, -periodDays)
	completed := 0
	for _, c := range completions {
		if !c.Before(since) {
			completed++
		}
	}

	expected := ExpectedCount(r, periodDays)
	rate := 0.0
	if expected > 0 {
		rate = math.Round(1000*float64(completed)/float64(expected)) / 10
	}
	cur, longest := Streaks(completions, now)
	return Stats{
		PeriodDays:    periodDays,
		Completed:     completed,
		Expected:      expected,
		Rate:          rate,
		CurrentStreak: cur,
		LongestStreak: longest,
	}
}

// ExpectedCount is the number of completions the rule implies for a window
// of periodDays, using integer division.
func ExpectedCount(r Rule, periodDays int) int {
	n := r.Interval
	if n < 1 {
		n = 1
	}
	switch r.Kind {
	case Weekly:
		return (periodDays / 7) * n
	case Monthly:
		return (periodDays / 30) * n
	default:
		return periodDays / n
	}
}

func dayNumbers(ts []time.Time) []int {
	out := make([]int, len(ts))
	for i, t := range ts {
		out[i] = dateparse.DayNumber(t)
	}
	return out
}

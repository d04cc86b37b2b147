package recurrence

import (
	"testing"
	"time"
)

func TestOccurrences(t *testing.T) {
	t.Parallel()

	anchor := at(2024, time.January, 31, 9)
	got := Occurrences(Rule{Kind: Monthly, Interval: 1}, anchor, at(2024, 1, 1, 0), at(2024, 6, 1, 0))
	want := []time.Time{
		at(2024, 1, 31, 9), at(2024, 2, 29, 9), at(2024, 3, 31, 9), at(2024, 4, 30, 9), at(2024, 5, 31, 9),
	}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d (%v)", len(got), len(want), got)
	}
	for i := range want {
		if !got[i].Equal(want[i]) {
			t.Fatalf("occurrence %d = %v, want %v", i, got[i], want[i])
		}
	}

	if got := Occurrences(Rule{Kind: Daily, Interval: 1}, anchor, at(2024, 3, 1, 0), at(2024, 3, 1, 0)); got != nil {
		t.Fatalf("empty window = %v, want nil", got)
	}
}

func TestOccurrencesSkipsLongHistory(t *testing.T) {
	t.Parallel()

	anchor := at(1990, time.January, 1, 6)
	got := Occurrences(Rule{Kind: Daily, Interval: 3}, anchor, at(2024, 1, 1, 0), at(2024, 1, 10, 0))
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3 (%v)", len(got), got)
	}
	for i := 1; i < len(got); i++ {
		if got[i].Sub(got[i-1]) != 72*time.Hour {
			t.Fatalf("gap %d = %v, want 72h", i, got[i].Sub(got[i-1]))
		}
	}
}

func TestWeekAndMonthSchedule(t *testing.T) {
	t.Parallel()

	today := at(2024, 4, 10, 15)
	anchor := at(2024, 4, 3, 8)

	week := WeekSchedule(Rule{Kind: Weekly, Interval: 1}, anchor, today)
	if len(week) != 1 || !week[0].Equal(at(2024, 4, 10, 8)) {
		t.Fatalf("WeekSchedule = %v", week)
	}

	month := MonthSchedule(Rule{Kind: Daily, Interval: 2}, anchor, today)
	// 3, 5, ... 29 April.
	if len(month) != 14 {
		t.Fatalf("MonthSchedule len = %d, want 14", len(month))
	}
	if !month[0].Equal(anchor) || !month[len(month)-1].Equal(at(2024, 4, 29, 8)) {
		t.Fatalf("MonthSchedule bounds = %v .. %v", month[0], month[len(month)-1])
	}
}

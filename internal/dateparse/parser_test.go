package dateparse

import (
	"errors"
	"testing"
	"time"
)

var testLoc = time.FixedZone("MSK", 3*60*60)

func fixedParser(y int, m time.Month, d int) *Parser {
	now := time.Date(y, m, d, 10, 30, 0, 0, testLoc)
	return New(WithClock(func() time.Time { return now }))
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, testLoc)
}

func TestParse(t *testing.T) {
	t.Parallel()

	// 2024-01-01 is a Monday.
	p := fixedParser(2024, time.January, 1)
	tests := []struct {
		in   string
		want time.Time
		ok   bool
	}{
		{"через 3 дня", day(2024, 1, 4), true},
		{"через 1 день", day(2024, 1, 2), true},
		{"in 10 days", day(2024, 1, 11), true},
		{"через 2 недели", day(2024, 1, 15), true},
		{"in 1 week", day(2024, 1, 8), true},
		{"через 3 месяца", day(2024, 4, 1), true},
		{"сегодня", day(2024, 1, 1), true},
		{"Завтра утром", day(2024, 1, 2), true},
		{"yesterday", day(2023, 12, 31), true},
		{"25.12.2024", day(2024, 12, 25), true},
		{"5/3/2024", day(2024, 3, 5), true},
		{"2024-03-15", day(2024, 3, 15), true},
		{"15-03", day(2024, 3, 15), true},
		{"к 20.01 закончить", day(2024, 1, 20), true},
		{"понедельник", day(2024, 1, 8), true},
		{"в пятницу", day(2024, 1, 5), true},
		{"Sunday", day(2024, 1, 7), true},
		{"вт", day(2024, 1, 2), true},
		{"31.02.2024", time.Time{}, false},
		{"послезавтра", time.Time{}, false},
		{"просто текст", time.Time{}, false},
		{"", time.Time{}, false},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			got, ok := p.Parse(tt.in)
			if ok != tt.ok {
				t.Fatalf("Parse(%q) ok = %v, want %v (got %v)", tt.in, ok, tt.ok, got)
			}
			if ok && !got.Equal(tt.want) {
				t.Fatalf("Parse(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseMonthOffsetClampsToTargetMonth(t *testing.T) {
	t.Parallel()

	p := fixedParser(2024, time.January, 31)
	got, ok := p.Parse("через 1 месяц")
	if !ok {
		t.Fatalf("expected month offset to parse")
	}
	if want := day(2024, 2, 29); !got.Equal(want) {
		t.Fatalf("Parse = %v, want %v", got, want)
	}

	p = fixedParser(2023, time.January, 31)
	got, _ = p.Parse("in 1 month")
	if want := day(2023, 2, 28); !got.Equal(want) {
		t.Fatalf("Parse = %v, want %v", got, want)
	}
}

func TestParseEarlierRulesShadowLater(t *testing.T) {
	t.Parallel()

	p := fixedParser(2024, time.January, 1)
	// Both a numeric date and "завтра" are present; the numeric rule is declared first.
	got, ok := p.Parse("завтра или 10.02.2024")
	if !ok || !got.Equal(day(2024, 2, 10)) {
		t.Fatalf("Parse = %v, %v; want numeric date to win", got, ok)
	}
	if names := p.RuleNames(); names[0] != "d.m.y" || names[len(names)-1] != "weekday" {
		t.Fatalf("rule order = %v", names)
	}
}

func TestFormatParseRoundTrip(t *testing.T) {
	t.Parallel()

	p := fixedParser(2024, time.June, 15)
	today := p.Today()
	for k := -360; k <= 360; k += 7 {
		d := today.AddDate(0, 0, k)
		got, ok := p.Parse(Format(d))
		if !ok || !got.Equal(d) {
			t.Fatalf("Parse(Format(%v)) = %v, %v", d, got, ok)
		}
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	p := fixedParser(2024, time.January, 1)
	today := p.Today()
	tests := []struct {
		name string
		in   time.Time
		want error
	}{
		{"near future", today.AddDate(0, 0, 10), nil},
		{"near past", today.AddDate(0, 0, -10), nil},
		{"too far future", today.AddDate(0, 0, 400), ErrTooFarFuture},
		{"too far past", today.AddDate(-2, 0, 0), ErrTooFarPast},
	}
	for _, tt := range tests {
		if err := p.Validate(tt.in); !errors.Is(err, tt.want) {
			t.Fatalf("%s: Validate = %v, want %v", tt.name, err, tt.want)
		}
	}
}

func TestRelativeAndFormat(t *testing.T) {
	t.Parallel()

	p := fixedParser(2024, time.January, 10)
	today := p.Today()
	tests := []struct {
		in   time.Time
		want string
	}{
		{today, "сегодня"},
		{today.AddDate(0, 0, 1), "завтра"},
		{today.AddDate(0, 0, -1), "вчера"},
		{today.AddDate(0, 0, 5), "через 5 дн."},
		{today.AddDate(0, 0, -3), "3 дн. назад"},
	}
	for _, tt := range tests {
		if got := p.Relative(tt.in); got != tt.want {
			t.Fatalf("Relative(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
	if got := Format(day(2024, 3, 5)); got != "05.03.2024" {
		t.Fatalf("Format = %q", got)
	}
	if got := FormatDateTime(time.Date(2024, 3, 5, 9, 7, 0, 0, testLoc)); got != "05.03.2024 09:07" {
		t.Fatalf("FormatDateTime = %q", got)
	}
}

func TestAddMonths(t *testing.T) {
	t.Parallel()

	tests := []struct {
		from time.Time
		n    int
		want time.Time
	}{
		{day(2024, 1, 31), 1, day(2024, 2, 29)},
		{day(2024, 12, 15), 1, day(2025, 1, 15)},
		{day(2024, 11, 30), 3, day(2025, 2, 28)},
		{day(2024, 3, 31), -1, day(2024, 2, 29)},
		{day(2024, 5, 31), 13, day(2025, 6, 30)},
	}
	for _, tt := range tests {
		if got := AddMonths(tt.from, tt.n); !got.Equal(tt.want) {
			t.Fatalf("AddMonths(%v, %d) = %v, want %v", tt.from, tt.n, got, tt.want)
		}
	}
}

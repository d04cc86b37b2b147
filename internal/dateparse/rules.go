package dateparse

import (
	"sort"
	"strings"
	"time"

	"habitbot/internal/textmatch"
)

var weekdayNames = map[string]time.Weekday{
	"понедельник": time.Monday, "пн": time.Monday, "monday": time.Monday, "mon": time.Monday,
	"вторник": time.Tuesday, "вт": time.Tuesday, "tuesday": time.Tuesday, "tue": time.Tuesday,
	"среда": time.Wednesday, "среду": time.Wednesday, "ср": time.Wednesday, "wednesday": time.Wednesday, "wed": time.Wednesday,
	"четверг": time.Thursday, "чт": time.Thursday, "thursday": time.Thursday, "thu": time.Thursday,
	"пятница": time.Friday, "пятницу": time.Friday, "пт": time.Friday, "friday": time.Friday, "fri": time.Friday,
	"суббота": time.Saturday, "субботу": time.Saturday, "сб": time.Saturday, "saturday": time.Saturday, "sat": time.Saturday,
	"воскресенье": time.Sunday, "вс": time.Sunday, "sunday": time.Sunday, "sun": time.Sunday,
}

func defaultRules() []rule {
	return []rule{
		{name: "d.m.y", pattern: textmatch.Compile(`(\d{1,2})[./-](\d{1,2})[./-](\d{4})`), interpret: interpretDMY},
		{name: "y.m.d", pattern: textmatch.Compile(`(\d{4})[./-](\d{1,2})[./-](\d{1,2})`), interpret: interpretYMD},
		{name: "d.m", pattern: textmatch.Compile(`(\d{1,2})[./-](\d{1,2})`), interpret: interpretDM},
		{name: "today", pattern: textmatch.Compile(`сегодня|today`), interpret: offsetDays(0)},
		{name: "tomorrow", pattern: textmatch.Compile(`завтра|tomorrow`), interpret: offsetDays(1)},
		{name: "yesterday", pattern: textmatch.Compile(`вчера|yesterday`), interpret: offsetDays(-1)},
		{name: "in n days", pattern: textmatch.Compile(`через\s+(\d+)\s+(?:дней|дня|день)|in\s+(\d+)\s+days?`), interpret: interpretIn(addDays)},
		{name: "in n weeks", pattern: textmatch.Compile(`через\s+(\d+)\s+(?:недель|недели|неделю)|in\s+(\d+)\s+weeks?`), interpret: interpretIn(addWeeks)},
		{name: "in n months", pattern: textmatch.Compile(`через\s+(\d+)\s+(?:месяцев|месяца|месяц)|in\s+(\d+)\s+months?`), interpret: interpretIn(AddMonths)},
		{name: "weekday", pattern: textmatch.Compile(weekdayAlternation()), interpret: interpretWeekday},
	}
}

func interpretDMY(m textmatch.Match, today time.Time) (time.Time, error) {
	d, mo, y, err := ints3(m)
	if err != nil {
		return time.Time{}, err
	}
	return Date(y, mo, d, today.Location())
}

func interpretYMD(m textmatch.Match, today time.Time) (time.Time, error) {
	y, mo, d, err := ints3(m)
	if err != nil {
		return time.Time{}, err
	}
	return Date(y, mo, d, today.Location())
}

func interpretDM(m textmatch.Match, today time.Time) (time.Time, error) {
	d, err := m.Int(1)
	if err != nil {
		return time.Time{}, err
	}
	mo, err := m.Int(2)
	if err != nil {
		return time.Time{}, err
	}
	return Date(today.Year(), mo, d, today.Location())
}

func offsetDays(n int) interpretFunc {
	return func(_ textmatch.Match, today time.Time) (time.Time, error) {
		return today.AddDate(0, 0, n), nil
	}
}

func interpretIn(add func(time.Time, int) time.Time) interpretFunc {
	return func(m textmatch.Match, today time.Time) (time.Time, error) {
		// Russian and English alternatives capture into different groups.
		for i := 1; i < len(m.Groups); i++ {
			if m.Groups[i] == "" {
				continue
			}
			n, err := m.Int(i)
			if err != nil {
				return time.Time{}, err
			}
			return add(today, n), nil
		}
		return time.Time{}, errInvalidDate
	}
}

func interpretWeekday(m textmatch.Match, today time.Time) (time.Time, error) {
	wd, ok := weekdayNames[strings.ToLower(m.Groups[0])]
	if !ok {
		return time.Time{}, errInvalidDate
	}
	return NextWeekday(today, wd), nil
}

// NextWeekday returns the next occurrence of wd strictly after today.
func NextWeekday(today time.Time, wd time.Weekday) time.Time {
	ahead := (int(wd) - int(today.Weekday()) + 7) % 7
	if ahead == 0 {
		ahead = 7
	}
	return today.AddDate(0, 0, ahead)
}

func addDays(t time.Time, n int) time.Time  { return t.AddDate(0, 0, n) }
func addWeeks(t time.Time, n int) time.Time { return t.AddDate(0, 0, 7*n) }

func ints3(m textmatch.Match) (a, b, c int, err error) {
	if a, err = m.Int(1); err != nil {
		return
	}
	if b, err = m.Int(2); err != nil {
		return
	}
	c, err = m.Int(3)
	return
}

// weekdayAlternation lists names longest first: the boundary check runs after
// the regexp picks an alternative, so "вт" must not win over "вторник".
func weekdayAlternation() string {
	names := make([]string, 0, len(weekdayNames))
	for n := range weekdayNames {
		names = append(names, n)
	}
	sort.Slice(names, func(i, j int) bool {
		if len(names[i]) != len(names[j]) {
			return len(names[i]) > len(names[j])
		}
		return names[i] < names[j]
	})
	return strings.Join(names, "|")
}

// Package extract reads a free-form habit description and pulls out its
// cadence, time of day, session length, embedded dates and a reminder flag.
// Extraction never fails: anything unrecognised is simply absent, and values
// that were recognised but rejected are reported in Intent.Errors.
package extract

import (
	"fmt"
	"strings"
	"time"

	"habitbot/internal/dateparse"
	"habitbot/internal/recurrence"
	"habitbot/internal/textmatch"
)

// Extractor is safe for concurrent use.
type Extractor struct {
	dates *dateparse.Parser
}

func New(dates *dateparse.Parser) *Extractor {
	if dates == nil {
		dates = dateparse.New()
	}
	return &Extractor{dates: dates}
}

// Extract scans raw with each pattern family independently.
func (x *Extractor) Extract(raw string) Intent {
	in := Intent{}

	rule, freqSpan := x.frequency(raw, &in)
	in.Rule = rule
	tod, timeSpan := x.timeOfDay(raw, freqSpan, &in)
	in.Time = tod
	in.Duration = x.duration(raw, timeSpan)
	in.Reminder = matchesAny(raw, reminderPatterns)
	in.Dates = x.embeddedDates(raw, &in)
	in.Name = cleanName(raw)
	return in
}

func (x *Extractor) frequency(raw string, in *Intent) (*recurrence.Rule, span) {
	for _, fp := range frequencyPatterns {
		m, ok := fp.re.Find(raw)
		if !ok {
			continue
		}
		sp := span{m.Start, m.End}
		interval := 1
		if fp.interval {
			n, err := firstInt(m)
			if err != nil || n < 1 {
				in.Errors = append(in.Errors, fmt.Sprintf("интервал должен быть не меньше 1: %q", m.Groups[0]))
				return nil, sp
			}
			interval = n
		}
		r := recurrence.Rule{Kind: fp.kind, Interval: interval}
		return &r, sp
	}
	return nil, span{}
}

type span struct{ start, end int }

func (s span) overlaps(start, end int) bool {
	return s.end > s.start && start < s.end && end > s.start
}

// timeOfDay ignores hits inside the frequency match so "раз в 3 дня" is a
// cadence, not three in the afternoon.
func (x *Extractor) timeOfDay(raw string, freqSpan span, in *Intent) (*TimeOfDay, span) {
	for _, tp := range timePatterns {
		m, ok := firstOutside(tp.re.FindAll(raw), freqSpan)
		if !ok {
			continue
		}
		sp := span{m.Start, m.End}
		if tp.fixedHour > 0 {
			return &TimeOfDay{Hour: tp.fixedHour, Qualifier: tp.qualifier}, sp
		}

		hour, err := firstInt(m)
		if err != nil {
			in.Errors = append(in.Errors, fmt.Sprintf("некорректное время: %q", m.Groups[0]))
			return nil, sp
		}
		minute := 0
		if tp.withMinute {
			minute, _ = m.Int(2)
		}
		if tp.shift > 0 && hour < 12 {
			hour += tp.shift
		}
		if hour > 23 || minute > 59 {
			in.Errors = append(in.Errors, fmt.Sprintf("некорректное время: %q", m.Groups[0]))
			return nil, sp
		}
		return &TimeOfDay{Hour: hour, Minute: minute, Qualifier: tp.qualifier}, sp
	}
	return nil, span{}
}

// duration ignores hits inside the time-of-day match so "в 9 часов" is not
// also read as a nine-hour session.
func (x *Extractor) duration(raw string, timeSpan span) *Duration {
	for _, dp := range durationPatterns {
		for _, m := range dp.re.FindAll(raw) {
			if timeSpan.overlaps(m.Start, m.End) {
				continue
			}
			v, err := m.Int(1)
			if err != nil || v <= 0 {
				continue
			}
			return &Duration{Value: v, Unit: dp.unit}
		}
	}
	return nil
}

// embeddedDates tries every window of 1..4 consecutive words. Overlapping
// windows around one expression each report it, so repeats are expected.
func (x *Extractor) embeddedDates(raw string, in *Intent) []time.Time {
	words := strings.Fields(raw)
	var out []time.Time
	seenReason := map[string]bool{}
	for i := range words {
		for size := 1; size <= maxDateWindow && i+size <= len(words); size++ {
			phrase := strings.Join(words[i:i+size], " ")
			t, ok := x.dates.Parse(phrase)
			if !ok {
				continue
			}
			if err := x.dates.Validate(t); err != nil {
				if reason := err.Error(); !seenReason[reason] {
					seenReason[reason] = true
					in.Errors = append(in.Errors, reason)
				}
				continue
			}
			out = append(out, t)
		}
	}
	return out
}

// cleanName strips every cadence, time, duration and reminder phrase. The raw
// text is returned when nothing would remain.
func cleanName(raw string) string {
	s := raw
	for _, fp := range frequencyPatterns {
		s = fp.re.Strip(s)
	}
	for _, tp := range timePatterns {
		s = tp.re.Strip(s)
	}
	for _, dp := range durationPatterns {
		s = dp.re.Strip(s)
	}
	for _, rp := range reminderPatterns {
		s = rp.Strip(s)
	}
	s = textmatch.CollapseSpace(s)
	if s == "" {
		if t := strings.TrimSpace(raw); t != "" {
			return t
		}
		return raw
	}
	return s
}

func firstOutside(ms []textmatch.Match, sp span) (textmatch.Match, bool) {
	for _, m := range ms {
		if !sp.overlaps(m.Start, m.End) {
			return m, true
		}
	}
	return textmatch.Match{}, false
}

func matchesAny(s string, ps []*textmatch.Pattern) bool {
	for _, p := range ps {
		if _, ok := p.Find(s); ok {
			return true
		}
	}
	return false
}

// firstInt returns the first non-empty capture group as an int; patterns with
// Russian and English alternatives capture into different groups.
func firstInt(m textmatch.Match) (int, error) {
	for i := 1; i < len(m.Groups); i++ {
		if m.Groups[i] != "" {
			return m.Int(i)
		}
	}
	return 0, fmt.Errorf("no numeric group in %q", m.Groups[0])
}

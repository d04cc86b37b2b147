package extract

import (
	"fmt"
	"time"

	"habitbot/internal/recurrence"
)

// Qualifier tells how a time of day was expressed.
type Qualifier int

const (
	Exact Qualifier = iota
	Morning
	Afternoon
	Evening
	Night
)

func (q Qualifier) String() string {
	switch q {
	case Morning:
		return "morning"
	case Afternoon:
		return "afternoon"
	case Evening:
		return "evening"
	case Night:
		return "night"
	default:
		return "exact"
	}
}

// TimeOfDay is an advisory reminder time. It never affects due dates.
type TimeOfDay struct {
	Hour      int
	Minute    int
	Qualifier Qualifier
}

func (t TimeOfDay) String() string { return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute) }

// Unit is a duration unit.
type Unit int

const (
	Minutes Unit = iota + 1
	Hours
)

func (u Unit) String() string {
	if u == Hours {
		return "hours"
	}
	return "minutes"
}

// Duration is how long one session of the habit lasts.
type Duration struct {
	Value int
	Unit  Unit
}

func (d Duration) String() string {
	if d.Unit == Hours {
		return fmt.Sprintf("%d ч.", d.Value)
	}
	return fmt.Sprintf("%d мин.", d.Value)
}

// Intent is everything recognised in one habit description. Absent parts are
// nil; Errors lists values that were recognised but rejected.
type Intent struct {
	Name     string
	Rule     *recurrence.Rule
	Time     *TimeOfDay
	Duration *Duration
	Dates    []time.Time
	Reminder bool
	Errors   []string
}

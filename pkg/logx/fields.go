package logx

import "github.com/rs/zerolog"

// Keys shared by every component so one user or habit can be followed
// through router, planner, scheduler and notifier logs.
const (
	KeyUserID  = "user_id"
	KeyHabitID = "habit_id"
)

func UserID(id int64) Field  { return func(e *zerolog.Event) { e.Int64(KeyUserID, id) } }
func HabitID(id int64) Field { return func(e *zerolog.Event) { e.Int64(KeyHabitID, id) } }

package storage

import (
	"context"
	"errors"
	"time"

	"habitbot/internal/recurrence"
)

var (
	ErrDisabled = errors.New("storage disabled")
	ErrNotFound = errors.New("storage: not found")
)

// Config configures storage.
//
// Driver values:
//   - "sqlite": SQLite database file at Path
//   - "memory": in-process maps, lost on exit
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

type User struct {
	ID        int64
	Username  string
	FirstName string
	CreatedAt time.Time
	LastSeen  time.Time
}

type Habit struct {
	ID          int64
	UserID      int64
	Name        string
	Description string
	Rule        recurrence.Rule

	// Reminder time of day; meaningful when HasRemindTime is set.
	RemindHour      int
	RemindMinute    int
	HasRemindTime   bool
	ReminderEnabled bool

	// Session length; zero DurationValue means none was given.
	DurationValue int
	DurationUnit  string

	CreatedAt time.Time
}

type Status string

const (
	StatusDone Status = "done"
	StatusSkip Status = "skip"
)

type Completion struct {
	ID      int64
	HabitID int64
	At      time.Time
	Status  Status
}

// Store is the persistence API used by the bot and the planner. Habit
// lookups are scoped to their owner: another user's habit is ErrNotFound.
type Store interface {
	// UpsertUser creates the user or refreshes its names; LastSeen is set to
	// u.LastSeen (now when zero).
	UpsertUser(ctx context.Context, u User) error
	TouchUser(ctx context.Context, userID int64, at time.Time) error
	// InactiveUsers lists users last seen before the given instant.
	InactiveUsers(ctx context.Context, before time.Time) ([]int64, error)

	CreateHabit(ctx context.Context, h Habit) (Habit, error)
	GetHabit(ctx context.Context, userID, habitID int64) (Habit, error)
	ListHabits(ctx context.Context, userID int64) ([]Habit, error)
	// ListReminderHabits lists every habit with reminders enabled, across users.
	ListReminderHabits(ctx context.Context) ([]Habit, error)
	// DeleteHabit removes the habit and its completions.
	DeleteHabit(ctx context.Context, userID, habitID int64) error

	AddCompletion(ctx context.Context, c Completion) (Completion, error)
	// Completions returns the instants the habit was marked done, ascending.
	Completions(ctx context.Context, habitID int64) ([]time.Time, error)
	// LastMark returns the latest done or skip mark.
	LastMark(ctx context.Context, habitID int64) (Completion, bool, error)

	Close() error
}

package reminder

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNotFuture is returned when a reminder is requested for an instant that
	// is not strictly after now.
	ErrNotFuture = errors.New("reminder: due time is not in the future")
	// ErrAlreadyScheduled is returned when the (user, habit) pair already has
	// an active reminder. Use Reschedule to replace it.
	ErrAlreadyScheduled = errors.New("reminder: habit already has an active reminder")
	ErrStopped          = errors.New("reminder: scheduler stopped")
)

// Handle is one pending reminder. It is a value snapshot; the scheduler keeps
// the timer.
type Handle struct {
	ID        string
	UserID    int64
	HabitID   int64
	HabitName string
	At        time.Time
}

func handleID(userID, habitID int64, at time.Time) string {
	return fmt.Sprintf("%d_%d_%d", userID, habitID, at.UnixNano())
}

// Notifier delivers a fired reminder to the user. Implementations present the
// done/later/skip choices and should bound their own send time.
type Notifier interface {
	Deliver(ctx context.Context, h Handle) error
}

type NotifierFunc func(ctx context.Context, h Handle) error

func (f NotifierFunc) Deliver(ctx context.Context, h Handle) error { return f(ctx, h) }

// Stats is a point-in-time count of active reminders.
type Stats struct {
	Active int // for the requested user
	Total  int // across all users
}

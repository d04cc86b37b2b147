// Package planner decides when each habit's next reminder fires and keeps the
// reminder scheduler in step with the store: a cron entry replans every
// reminder-enabled habit daily and another drops reminders of inactive users.
package planner

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"habitbot/internal/dateparse"
	"habitbot/internal/recurrence"
	"habitbot/internal/reminder"
	"habitbot/internal/storage"
	logx "habitbot/pkg/logx"
)

const (
	DefaultPlanSpec      = "5 0 * * *"
	DefaultSweepSpec     = "@hourly"
	DefaultInactiveAfter = 30 * 24 * time.Hour
	DefaultSnooze        = time.Hour
	DefaultHour          = 9
)

type Config struct {
	Enabled       bool
	PlanSpec      string
	SweepSpec     string
	InactiveAfter time.Duration
	Snooze        time.Duration
	// Used for habits that asked for a reminder without naming a time.
	DefaultHour   int
	DefaultMinute int
	// JobTimeout bounds one PlanAll or SweepInactive run; 0 means none.
	JobTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if strings.TrimSpace(c.PlanSpec) == "" {
		c.PlanSpec = DefaultPlanSpec
	}
	if strings.TrimSpace(c.SweepSpec) == "" {
		c.SweepSpec = DefaultSweepSpec
	}
	if c.InactiveAfter <= 0 {
		c.InactiveAfter = DefaultInactiveAfter
	}
	if c.Snooze <= 0 {
		c.Snooze = DefaultSnooze
	}
	if c.DefaultHour < 0 || c.DefaultHour > 23 {
		c.DefaultHour = DefaultHour
	}
	if c.DefaultMinute < 0 || c.DefaultMinute > 59 {
		c.DefaultMinute = 0
	}
	return c
}

// Reminders is the part of the reminder scheduler the planner drives.
type Reminders interface {
	Reschedule(userID, habitID int64, name string, at time.Time) (reminder.Handle, error)
	Cancel(userID, habitID int64) bool
	CancelAll(userID int64) int
	Get(userID, habitID int64) (reminder.Handle, bool)
}

var specParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// ValidateSpec reports whether spec is a five-field cron expression or a
// descriptor such as "@hourly".
func ValidateSpec(spec string) error {
	if _, err := specParser.Parse(spec); err != nil {
		return fmt.Errorf("invalid cron spec %q: %w", spec, err)
	}
	return nil
}

type Planner struct {
	store storage.Store
	rem   Reminders
	log   logx.Logger
	now   func() time.Time

	mu      sync.Mutex
	cfg     Config
	c       *cron.Cron
	ctx     context.Context
	running bool
}

type Option func(*Planner)

func WithClock(now func() time.Time) Option {
	return func(p *Planner) {
		if now != nil {
			p.now = now
		}
	}
}

func WithLogger(log logx.Logger) Option {
	return func(p *Planner) { p.log = log }
}

func New(cfg Config, store storage.Store, rem Reminders, opts ...Option) *Planner {
	p := &Planner{
		store: store,
		rem:   rem,
		now:   time.Now,
		cfg:   cfg.withDefaults(),
	}
	for _, o := range opts {
		o(p)
	}
	p.log = p.log.With(logx.String("comp", "planner"))
	return p
}

func (p *Planner) config() Config {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cfg
}

// remindAt returns the reminder time of day for h, if it wants reminders.
func (p *Planner) remindAt(h storage.Habit) (hour, minute int, ok bool) {
	if h.HasRemindTime {
		return h.RemindHour, h.RemindMinute, true
	}
	if !h.ReminderEnabled {
		return 0, 0, false
	}
	cfg := p.config()
	return cfg.DefaultHour, cfg.DefaultMinute, true
}

// NextReminder computes the next reminder instant for h given its latest
// done or skip mark. The day is the later of today and the next occurrence
// after that mark; a time already past moves to the following day.
func (p *Planner) NextReminder(h storage.Habit, last time.Time, hasLast bool) (time.Time, bool) {
	hour, minute, ok := p.remindAt(h)
	if !ok {
		return time.Time{}, false
	}
	now := p.now()
	day := dateparse.Midnight(now)
	if hasLast {
		if next := dateparse.Midnight(recurrence.NextOccurrence(last, h.Rule)); next.After(day) {
			day = next
		}
	}
	at := time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, day.Location())
	if !at.After(now) {
		at = at.AddDate(0, 0, 1)
	}
	return at, true
}

// PlanHabit replaces the habit's active reminder with the next one. A habit
// without reminders has any stale reminder cancelled and reports false.
func (p *Planner) PlanHabit(ctx context.Context, h storage.Habit) (reminder.Handle, bool, error) {
	return p.plan(ctx, h, false)
}

// plan arms the next reminder for h. With keepEarlier a pending reminder that
// is still ahead and not later than the planned one survives, so a snooze is
// not overwritten by the periodic run.
func (p *Planner) plan(ctx context.Context, h storage.Habit, keepEarlier bool) (reminder.Handle, bool, error) {
	if !p.config().Enabled {
		return reminder.Handle{}, false, nil
	}
	mark, hasLast, err := p.store.LastMark(ctx, h.ID)
	if err != nil {
		return reminder.Handle{}, false, fmt.Errorf("last mark of habit %d: %w", h.ID, err)
	}
	at, ok := p.NextReminder(h, mark.At, hasLast)
	if !ok {
		p.rem.Cancel(h.UserID, h.ID)
		return reminder.Handle{}, false, nil
	}
	if keepEarlier {
		if cur, ok := p.rem.Get(h.UserID, h.ID); ok && cur.At.After(p.now()) && !cur.At.After(at) {
			return cur, true, nil
		}
	}
	rh, err := p.rem.Reschedule(h.UserID, h.ID, h.Name, at)
	if err != nil {
		return reminder.Handle{}, false, err
	}
	return rh, true, nil
}

// PlanAll plans every reminder-enabled habit and returns how many were armed.
// A pending reminder due sooner than the planned one is kept. One habit
// failing does not stop the rest.
func (p *Planner) PlanAll(ctx context.Context) (int, error) {
	habits, err := p.store.ListReminderHabits(ctx)
	if err != nil {
		return 0, fmt.Errorf("list reminder habits: %w", err)
	}
	var (
		armed int
		errs  []error
	)
	for _, h := range habits {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
		_, ok, err := p.plan(ctx, h, true)
		if err != nil {
			p.log.Warn("plan habit failed", logx.HabitID(h.ID), logx.UserID(h.UserID), logx.Err(err))
			errs = append(errs, err)
			continue
		}
		if ok {
			armed++
		}
	}
	p.log.Info("reminders planned", logx.Int("habits", len(habits)), logx.Int("armed", armed))
	return armed, errors.Join(errs...)
}

// SweepInactive cancels every reminder of users not seen within
// InactiveAfter and returns how many reminders were dropped.
func (p *Planner) SweepInactive(ctx context.Context) (int, error) {
	cutoff := p.now().Add(-p.config().InactiveAfter)
	users, err := p.store.InactiveUsers(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("inactive users: %w", err)
	}
	dropped := 0
	for _, id := range users {
		dropped += p.rem.CancelAll(id)
	}
	if dropped > 0 {
		p.log.Info("inactive users swept", logx.Int("users", len(users)), logx.Int("reminders", dropped))
	}
	return dropped, nil
}

// Snooze moves the habit's reminder to d from now; d <= 0 uses the
// configured snooze.
func (p *Planner) Snooze(_ context.Context, h storage.Habit, d time.Duration) (reminder.Handle, error) {
	if d <= 0 {
		d = p.config().Snooze
	}
	return p.rem.Reschedule(h.UserID, h.ID, h.Name, p.now().Add(d))
}

// Forget cancels the habit's reminder, e.g. after the habit was deleted.
func (p *Planner) Forget(h storage.Habit) bool {
	return p.rem.Cancel(h.UserID, h.ID)
}

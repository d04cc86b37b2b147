package planner

import (
	"context"
	"sync"
	"testing"
	"time"

	"habitbot/internal/recurrence"
	"habitbot/internal/reminder"
	"habitbot/internal/storage"
	logx "habitbot/pkg/logx"
)

var testLoc = time.FixedZone("MSK", 3*60*60)

func at(y int, m time.Month, d, h, min int) time.Time {
	return time.Date(y, m, d, h, min, 0, 0, testLoc)
}

// fakeReminders records the latest schedule per habit.
type fakeReminders struct {
	mu        sync.Mutex
	scheduled map[int64]time.Time
	cancelled []int64
	perUser   int
}

func newFakeReminders() *fakeReminders {
	return &fakeReminders{scheduled: map[int64]time.Time{}}
}

func (f *fakeReminders) Reschedule(userID, habitID int64, name string, when time.Time) (reminder.Handle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scheduled[habitID] = when
	return reminder.Handle{UserID: userID, HabitID: habitID, HabitName: name, At: when}, nil
}

func (f *fakeReminders) Cancel(_, habitID int64) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.scheduled[habitID]
	delete(f.scheduled, habitID)
	f.cancelled = append(f.cancelled, habitID)
	return ok
}

func (f *fakeReminders) CancelAll(int64) int { return f.perUser }

func (f *fakeReminders) Get(userID, habitID int64) (reminder.Handle, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	when, ok := f.scheduled[habitID]
	if !ok {
		return reminder.Handle{}, false
	}
	return reminder.Handle{UserID: userID, HabitID: habitID, At: when}, true
}

func newTestPlanner(t *testing.T, now time.Time) (*Planner, storage.Store, *fakeReminders) {
	t.Helper()
	st := storage.NewMemory()
	t.Cleanup(func() { _ = st.Close() })
	rem := newFakeReminders()
	p := New(Config{Enabled: true, DefaultHour: 18}, st, rem,
		WithClock(func() time.Time { return now }), WithLogger(logx.Nop()))
	return p, st, rem
}

func createHabit(t *testing.T, st storage.Store, h storage.Habit) storage.Habit {
	t.Helper()
	ctx := context.Background()
	if err := st.UpsertUser(ctx, storage.User{ID: h.UserID}); err != nil {
		t.Fatalf("UpsertUser: %v", err)
	}
	out, err := st.CreateHabit(ctx, h)
	if err != nil {
		t.Fatalf("CreateHabit: %v", err)
	}
	return out
}

func TestPlanHabit(t *testing.T) {
	t.Parallel()

	now := at(2024, time.January, 10, 10, 0)
	daily := recurrence.Rule{Kind: recurrence.Daily, Interval: 1}
	weekly := recurrence.Rule{Kind: recurrence.Weekly, Interval: 1}

	tests := []struct {
		name  string
		habit storage.Habit
		mark  *storage.Completion
		want  time.Time
		ok    bool
	}{
		{"time already passed today", storage.Habit{Rule: daily, RemindHour: 9, HasRemindTime: true}, nil, at(2024, 1, 11, 9, 0), true},
		{"later today", storage.Habit{Rule: daily, RemindHour: 20, RemindMinute: 30, HasRemindTime: true}, nil, at(2024, 1, 10, 20, 30), true},
		{"next weekly occurrence", storage.Habit{Rule: weekly, RemindHour: 9, HasRemindTime: true},
			&storage.Completion{At: at(2024, 1, 8, 7, 0), Status: storage.StatusDone}, at(2024, 1, 15, 9, 0), true},
		{"skip counts as a mark", storage.Habit{Rule: daily, RemindHour: 20, RemindMinute: 30, HasRemindTime: true},
			&storage.Completion{At: at(2024, 1, 10, 8, 0), Status: storage.StatusSkip}, at(2024, 1, 11, 20, 30), true},
		{"default reminder time", storage.Habit{Rule: daily, ReminderEnabled: true}, nil, at(2024, 1, 10, 18, 0), true},
		{"no reminder", storage.Habit{Rule: daily}, nil, time.Time{}, false},
	}
	for i, tt := range tests {
		i, tt := i, tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			p, st, rem := newTestPlanner(t, now)
			tt.habit.UserID = int64(i + 1)
			tt.habit.Name = tt.name
			h := createHabit(t, st, tt.habit)
			if tt.mark != nil {
				tt.mark.HabitID = h.ID
				if _, err := st.AddCompletion(context.Background(), *tt.mark); err != nil {
					t.Fatalf("AddCompletion: %v", err)
				}
			}

			rh, ok, err := p.PlanHabit(context.Background(), h)
			if err != nil {
				t.Fatalf("PlanHabit: %v", err)
			}
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if !ok {
				if len(rem.cancelled) != 1 {
					t.Fatalf("cancelled = %v, want stale reminder cancelled", rem.cancelled)
				}
				return
			}
			if !rh.At.Equal(tt.want) || !rem.scheduled[h.ID].Equal(tt.want) {
				t.Fatalf("At = %v, want %v", rh.At, tt.want)
			}
		})
	}
}

func TestPlanAllAndDisabled(t *testing.T) {
	t.Parallel()

	now := at(2024, time.March, 1, 12, 0)
	p, st, rem := newTestPlanner(t, now)
	daily := recurrence.Rule{Kind: recurrence.Daily, Interval: 1}
	createHabit(t, st, storage.Habit{UserID: 1, Name: "a", Rule: daily, RemindHour: 8, HasRemindTime: true, ReminderEnabled: true})
	createHabit(t, st, storage.Habit{UserID: 2, Name: "b", Rule: daily, ReminderEnabled: true})
	createHabit(t, st, storage.Habit{UserID: 2, Name: "c", Rule: daily})

	n, err := p.PlanAll(context.Background())
	if err != nil {
		t.Fatalf("PlanAll: %v", err)
	}
	if n != 2 || len(rem.scheduled) != 2 {
		t.Fatalf("armed = %d (%v), want 2", n, rem.scheduled)
	}

	if err := p.Apply(Config{Enabled: false}); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if _, ok, _ := p.PlanHabit(context.Background(), storage.Habit{ID: 99, Rule: daily, ReminderEnabled: true}); ok {
		t.Fatalf("PlanHabit planned with reminders disabled")
	}
}

func TestSweepInactive(t *testing.T) {
	t.Parallel()

	now := at(2024, time.June, 1, 12, 0)
	p, st, rem := newTestPlanner(t, now)
	rem.perUser = 2
	ctx := context.Background()
	_ = st.UpsertUser(ctx, storage.User{ID: 1, LastSeen: now.Add(-40 * 24 * time.Hour)})
	_ = st.UpsertUser(ctx, storage.User{ID: 2, LastSeen: now.Add(-time.Hour)})

	n, err := p.SweepInactive(ctx)
	if err != nil {
		t.Fatalf("SweepInactive: %v", err)
	}
	if n != 2 {
		t.Fatalf("dropped = %d, want 2 (one inactive user)", n)
	}
}

func TestSnoozeAndForget(t *testing.T) {
	t.Parallel()

	now := at(2024, time.June, 1, 12, 0)
	p, _, rem := newTestPlanner(t, now)
	h := storage.Habit{ID: 3, UserID: 1, Name: "x"}

	rh, err := p.Snooze(context.Background(), h, 0)
	if err != nil {
		t.Fatalf("Snooze: %v", err)
	}
	if want := now.Add(DefaultSnooze); !rh.At.Equal(want) {
		t.Fatalf("At = %v, want %v", rh.At, want)
	}
	if !p.Forget(h) || p.Forget(h) {
		t.Fatalf("Forget should report true then false")
	}
	if len(rem.scheduled) != 0 {
		t.Fatalf("scheduled = %v, want empty", rem.scheduled)
	}
}

func TestPlansIntoRealScheduler(t *testing.T) {
	t.Parallel()

	now := at(2024, time.January, 10, 10, 0)
	clock := func() time.Time { return now }
	sched := reminder.New(reminder.NotifierFunc(func(context.Context, reminder.Handle) error { return nil }), reminder.WithClock(clock))
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = sched.Stop(ctx)
	}()
	st := storage.NewMemory()
	p := New(Config{Enabled: true}, st, sched, WithClock(clock))
	h := createHabit(t, st, storage.Habit{UserID: 1, Name: "x", Rule: recurrence.Rule{Kind: recurrence.Daily, Interval: 1}, RemindHour: 21, HasRemindTime: true})

	for i := 0; i < 2; i++ {
		if _, ok, err := p.PlanHabit(context.Background(), h); err != nil || !ok {
			t.Fatalf("PlanHabit #%d = %v, %v", i, ok, err)
		}
	}
	if st := sched.Stats(1); st.Active != 1 {
		t.Fatalf("Active = %d, want 1 after replanning", st.Active)
	}
}

func TestApplyRejectsBadSpec(t *testing.T) {
	t.Parallel()

	p, _, _ := newTestPlanner(t, time.Now())
	if err := p.Apply(Config{Enabled: true, PlanSpec: "not a spec"}); err == nil {
		t.Fatalf("Apply accepted an invalid cron spec")
	}
	if err := ValidateSpec("@daily"); err != nil {
		t.Fatalf("ValidateSpec(@daily) = %v", err)
	}
}

func TestStartStop(t *testing.T) {
	t.Parallel()

	p, _, _ := newTestPlanner(t, time.Now())
	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := p.Apply(Config{Enabled: true, PlanSpec: "0 1 * * *"}); err != nil {
		t.Fatalf("Apply while running: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := p.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
}

func TestPlanAllKeepsSoonerSnooze(t *testing.T) {
	t.Parallel()

	now := at(2024, time.January, 10, 23, 30)
	p, st, rem := newTestPlanner(t, now)
	daily := recurrence.Rule{Kind: recurrence.Daily, Interval: 1}
	snoozed := createHabit(t, st, storage.Habit{UserID: 1, Name: "a", Rule: daily, RemindHour: 9, HasRemindTime: true, ReminderEnabled: true})
	stale := createHabit(t, st, storage.Habit{UserID: 2, Name: "b", Rule: daily, RemindHour: 9, HasRemindTime: true, ReminderEnabled: true})

	if _, err := p.Snooze(context.Background(), snoozed, 0); err != nil {
		t.Fatalf("Snooze: %v", err)
	}
	if _, err := rem.Reschedule(stale.UserID, stale.ID, stale.Name, at(2024, 1, 13, 9, 0)); err != nil {
		t.Fatalf("Reschedule: %v", err)
	}

	if _, err := p.PlanAll(context.Background()); err != nil {
		t.Fatalf("PlanAll: %v", err)
	}
	if got, want := rem.scheduled[snoozed.ID], at(2024, 1, 11, 0, 30); !got.Equal(want) {
		t.Fatalf("snoozed At = %v, want %v", got, want)
	}
	if got, want := rem.scheduled[stale.ID], at(2024, 1, 11, 9, 0); !got.Equal(want) {
		t.Fatalf("later reminder At = %v, want %v", got, want)
	}

	// A done or skip mark replans unconditionally.
	if _, _, err := p.PlanHabit(context.Background(), snoozed); err != nil {
		t.Fatalf("PlanHabit: %v", err)
	}
	if got, want := rem.scheduled[snoozed.ID], at(2024, 1, 11, 9, 0); !got.Equal(want) {
		t.Fatalf("replanned At = %v, want %v", got, want)
	}
}

func TestApplyTogglesEnabled(t *testing.T) {
	t.Parallel()

	st := storage.NewMemory()
	t.Cleanup(func() { _ = st.Close() })
	rem := newFakeReminders()
	now := at(2024, time.January, 10, 10, 0)
	p := New(Config{Enabled: false}, st, rem, WithClock(func() time.Time { return now }))
	h := createHabit(t, st, storage.Habit{UserID: 1, Name: "a", Rule: recurrence.Rule{Kind: recurrence.Daily, Interval: 1}, RemindHour: 20, HasRemindTime: true, ReminderEnabled: true})

	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if len(rem.scheduled) != 0 {
		t.Fatalf("scheduled = %v while disabled", rem.scheduled)
	}

	if err := p.Apply(Config{Enabled: true}); err != nil {
		t.Fatalf("Apply(enabled): %v", err)
	}
	p.mu.Lock()
	running, hasCron := p.running, p.c != nil
	p.mu.Unlock()
	if !running || !hasCron {
		t.Fatalf("running = %v, cron = %v after enabling", running, hasCron)
	}
	if got, want := rem.scheduled[h.ID], at(2024, 1, 10, 20, 0); !got.Equal(want) {
		t.Fatalf("At = %v, want %v", got, want)
	}

	if err := p.Apply(Config{Enabled: false}); err != nil {
		t.Fatalf("Apply(disabled): %v", err)
	}
	p.mu.Lock()
	running, hasCron = p.running, p.c != nil
	p.mu.Unlock()
	if running || hasCron {
		t.Fatalf("running = %v, cron = %v after disabling", running, hasCron)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := p.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if err := p.Apply(Config{Enabled: true}); err != nil {
		t.Fatalf("Apply after Stop: %v", err)
	}
	p.mu.Lock()
	running = p.running
	p.mu.Unlock()
	if running {
		t.Fatalf("Apply restarted a stopped planner")
	}
}

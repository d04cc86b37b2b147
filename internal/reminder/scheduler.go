// Package reminder keeps one cancellable timer per (user, habit) reminder and
// hands fired reminders to a Notifier.
//
// A handle leaves the active table exactly once: either its timer fires or it
// is cancelled. Both paths remove it under the same mutex, so when they race
// the loser sees nothing to do and a reminder is never both delivered and
// reported as cancelled.
package reminder

import (
	"context"
	"sort"
	"sync"
	"time"

	"habitbot/internal/eventbus"
	logx "habitbot/pkg/logx"
)

type pair struct{ user, habit int64 }

type entry struct {
	h     Handle
	timer *time.Timer
}

type Scheduler struct {
	notifier Notifier
	log      logx.Logger
	bus      eventbus.Bus
	now      func() time.Time

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	active   map[pair]*entry
	stopped  bool
	inflight sync.WaitGroup
}

type Option func(*Scheduler)

func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) {
		if now != nil {
			s.now = now
		}
	}
}

func WithLogger(log logx.Logger) Option {
	return func(s *Scheduler) { s.log = log }
}

func WithBus(bus eventbus.Bus) Option {
	return func(s *Scheduler) {
		if bus != nil {
			s.bus = bus
		}
	}
}

// WithBaseContext sets the parent of the context passed to deliveries.
func WithBaseContext(ctx context.Context) Option {
	return func(s *Scheduler) {
		if ctx != nil {
			s.ctx = ctx
		}
	}
}

func New(n Notifier, opts ...Option) *Scheduler {
	s := &Scheduler{
		notifier: n,
		bus:      eventbus.Nop{},
		now:      time.Now,
		ctx:      context.Background(),
		active:   map[pair]*entry{},
	}
	for _, o := range opts {
		o(s)
	}
	s.ctx, s.cancel = context.WithCancel(s.ctx)
	s.log = s.log.With(logx.String("comp", "reminder"))
	return s
}

// Schedule arms a reminder for at. It fails with ErrNotFuture when at is not
// after now and with ErrAlreadyScheduled when the pair already has one.
func (s *Scheduler) Schedule(userID, habitID int64, name string, at time.Time) (Handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return Handle{}, ErrStopped
	}
	key := pair{userID, habitID}
	if _, ok := s.active[key]; ok {
		return Handle{}, ErrAlreadyScheduled
	}
	return s.armLocked(key, name, at)
}

// Reschedule replaces any active reminder of the pair with one at at. The old
// reminder is kept when at is rejected.
func (s *Scheduler) Reschedule(userID, habitID int64, name string, at time.Time) (Handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return Handle{}, ErrStopped
	}
	key := pair{userID, habitID}
	if !at.After(s.now()) {
		return Handle{}, ErrNotFuture
	}
	if e, ok := s.active[key]; ok {
		s.removeLocked(key, e)
	}
	return s.armLocked(key, name, at)
}

func (s *Scheduler) armLocked(key pair, name string, at time.Time) (Handle, error) {
	now := s.now()
	if !at.After(now) {
		return Handle{}, ErrNotFuture
	}
	h := Handle{
		ID:        handleID(key.user, key.habit, at),
		UserID:    key.user,
		HabitID:   key.habit,
		HabitName: name,
		At:        at,
	}
	e := &entry{h: h}
	e.timer = time.AfterFunc(at.Sub(now), func() { s.fire(key, e) })
	s.active[key] = e

	s.log.Debug("reminder scheduled", logx.String("id", h.ID), logx.Time("at", at))
	s.bus.Publish(eventbus.Event{Type: eventbus.ReminderScheduled, Data: h})
	return h, nil
}

func (s *Scheduler) fire(key pair, e *entry) {
	s.mu.Lock()
	if s.stopped || s.active[key] != e {
		// Cancelled or replaced first.
		s.mu.Unlock()
		return
	}
	delete(s.active, key)
	s.inflight.Add(1)
	s.mu.Unlock()
	defer s.inflight.Done()

	h := e.h
	s.bus.Publish(eventbus.Event{Type: eventbus.ReminderFired, Data: h})
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Deliver(s.ctx, h); err != nil {
		s.log.Warn("reminder delivery failed",
			logx.String("id", h.ID),
			logx.UserID(h.UserID),
			logx.HabitID(h.HabitID),
			logx.Err(err),
		)
		s.bus.Publish(eventbus.Event{Type: eventbus.ReminderFailed, Data: h})
		return
	}
	s.bus.Publish(eventbus.Event{Type: eventbus.ReminderDelivered, Data: h})
}

func (s *Scheduler) removeLocked(key pair, e *entry) {
	e.timer.Stop()
	delete(s.active, key)
	s.bus.Publish(eventbus.Event{Type: eventbus.ReminderCancelled, Data: e.h})
}

// Cancel disarms the pair's reminder and reports whether one was active. A
// reminder whose delivery has already begun is not retracted.
func (s *Scheduler) Cancel(userID, habitID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := pair{userID, habitID}
	e, ok := s.active[key]
	if !ok {
		return false
	}
	s.removeLocked(key, e)
	return true
}

// CancelAll disarms every reminder of the user and returns how many there were.
func (s *Scheduler) CancelAll(userID int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for key, e := range s.active {
		if key.user != userID {
			continue
		}
		s.removeLocked(key, e)
		n++
	}
	return n
}

// Get returns the active reminder of the pair.
func (s *Scheduler) Get(userID, habitID int64) (Handle, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.active[pair{userID, habitID}]
	if !ok {
		return Handle{}, false
	}
	return e.h, true
}

// List returns the user's active reminders ordered by due time.
func (s *Scheduler) List(userID int64) []Handle {
	s.mu.Lock()
	out := make([]Handle, 0)
	for key, e := range s.active {
		if key.user == userID {
			out = append(out, e.h)
		}
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].At.Equal(out[j].At) {
			return out[i].At.Before(out[j].At)
		}
		return out[i].HabitID < out[j].HabitID
	})
	return out
}

func (s *Scheduler) Stats(userID int64) Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Stats{Total: len(s.active)}
	for key := range s.active {
		if key.user == userID {
			st.Active++
		}
	}
	return st
}

// Stop disarms every pending reminder and waits for in-flight deliveries.
// When ctx expires first the delivery context is cancelled and ctx.Err is
// returned.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.stopped {
		s.stopped = true
		for key, e := range s.active {
			e.timer.Stop()
			delete(s.active, key)
		}
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.inflight.Wait()
		close(done)
	}()

	defer s.cancel()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

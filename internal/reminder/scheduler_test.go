package reminder

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"habitbot/internal/eventbus"
)

type recorder struct {
	mu  sync.Mutex
	got []Handle
	err error
	ch  chan Handle
}

func newRecorder() *recorder { return &recorder{ch: make(chan Handle, 1024)} }

func (r *recorder) Deliver(_ context.Context, h Handle) error {
	r.mu.Lock()
	r.got = append(r.got, h)
	err := r.err
	r.mu.Unlock()
	r.ch <- h
	return err
}

func (r *recorder) delivered() []Handle {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Handle(nil), r.got...)
}

func stop(t *testing.T, s *Scheduler) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.Stop(ctx); err != nil {
		t.Fatalf("Stop = %v", err)
	}
}

func TestScheduleRejectsPast(t *testing.T) {
	t.Parallel()

	s := New(newRecorder())
	defer stop(t, s)

	for _, at := range []time.Time{time.Now().Add(-time.Minute), {}} {
		if _, err := s.Schedule(1, 5, "X", at); !errors.Is(err, ErrNotFuture) {
			t.Fatalf("Schedule(%v) = %v, want ErrNotFuture", at, err)
		}
	}
	if st := s.Stats(1); st.Active != 0 || st.Total != 0 {
		t.Fatalf("Stats = %+v, want zero", st)
	}
}

func TestScheduleUsesInjectedClock(t *testing.T) {
	t.Parallel()

	now := time.Date(2030, time.March, 1, 12, 0, 0, 0, time.UTC)
	s := New(newRecorder(), WithClock(func() time.Time { return now }))
	defer stop(t, s)

	if _, err := s.Schedule(1, 1, "X", now); !errors.Is(err, ErrNotFuture) {
		t.Fatalf("Schedule(now) = %v, want ErrNotFuture", err)
	}
	h, err := s.Schedule(1, 1, "X", now.Add(time.Hour))
	if err != nil {
		t.Fatalf("Schedule = %v", err)
	}
	if h.ID != handleID(1, 1, now.Add(time.Hour)) || h.HabitName != "X" {
		t.Fatalf("handle = %+v", h)
	}
}

func TestCancelIsIdempotent(t *testing.T) {
	t.Parallel()

	s := New(newRecorder())
	defer stop(t, s)

	if _, err := s.Schedule(1, 5, "X", time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("Schedule = %v", err)
	}
	if !s.Cancel(1, 5) {
		t.Fatalf("first Cancel = false, want true")
	}
	if s.Cancel(1, 5) {
		t.Fatalf("second Cancel = true, want false")
	}
}

func TestScheduleTwiceAndReschedule(t *testing.T) {
	t.Parallel()

	s := New(newRecorder())
	defer stop(t, s)

	first := time.Now().Add(time.Hour)
	if _, err := s.Schedule(1, 5, "X", first); err != nil {
		t.Fatalf("Schedule = %v", err)
	}
	if _, err := s.Schedule(1, 5, "X", first.Add(time.Hour)); !errors.Is(err, ErrAlreadyScheduled) {
		t.Fatalf("second Schedule = %v, want ErrAlreadyScheduled", err)
	}
	if _, err := s.Reschedule(1, 5, "X", time.Now().Add(-time.Hour)); !errors.Is(err, ErrNotFuture) {
		t.Fatalf("Reschedule(past) = %v, want ErrNotFuture", err)
	}
	if h, ok := s.Get(1, 5); !ok || !h.At.Equal(first) {
		t.Fatalf("rejected Reschedule replaced the reminder: %+v %v", h, ok)
	}

	second := first.Add(2 * time.Hour)
	if _, err := s.Reschedule(1, 5, "X", second); err != nil {
		t.Fatalf("Reschedule = %v", err)
	}
	list := s.List(1)
	if len(list) != 1 || !list[0].At.Equal(second) {
		t.Fatalf("List = %+v", list)
	}
}

func TestFireDeliversAndRemoves(t *testing.T) {
	t.Parallel()

	rec := newRecorder()
	bus := eventbus.New()
	events, unsub := bus.Subscribe(16, eventbus.ReminderDelivered)
	defer unsub()

	s := New(rec, WithBus(bus))
	defer stop(t, s)

	if _, err := s.Schedule(7, 3, "Бег", time.Now().Add(20*time.Millisecond)); err != nil {
		t.Fatalf("Schedule = %v", err)
	}
	select {
	case h := <-rec.ch:
		if h.UserID != 7 || h.HabitID != 3 || h.HabitName != "Бег" {
			t.Fatalf("delivered = %+v", h)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("reminder did not fire")
	}
	if st := s.Stats(7); st.Active != 0 {
		t.Fatalf("Stats after fire = %+v, want no active", st)
	}
	select {
	case <-events:
	case <-time.After(5 * time.Second):
		t.Fatalf("no delivered event")
	}
	if s.Cancel(7, 3) {
		t.Fatalf("Cancel after fire = true, want false")
	}
}

func TestDeliveryFailureDropsHandle(t *testing.T) {
	t.Parallel()

	rec := newRecorder()
	rec.err = errors.New("chat not found")
	bus := eventbus.New()
	events, unsub := bus.Subscribe(16, eventbus.ReminderFailed)
	defer unsub()

	s := New(rec, WithBus(bus))
	defer stop(t, s)

	if _, err := s.Schedule(1, 1, "X", time.Now().Add(10*time.Millisecond)); err != nil {
		t.Fatalf("Schedule = %v", err)
	}
	select {
	case <-events:
	case <-time.After(5 * time.Second):
		t.Fatalf("no failed event")
	}
	if st := s.Stats(1); st.Total != 0 {
		t.Fatalf("Stats = %+v, want empty", st)
	}
	if got := len(rec.delivered()); got != 1 {
		t.Fatalf("deliveries = %d, want 1 (no retry)", got)
	}
}

func TestCancelAllAndStats(t *testing.T) {
	t.Parallel()

	s := New(newRecorder())
	defer stop(t, s)

	at := time.Now().Add(time.Hour)
	for habit := int64(1); habit <= 3; habit++ {
		if _, err := s.Schedule(1, habit, "X", at.Add(time.Duration(habit)*time.Minute)); err != nil {
			t.Fatalf("Schedule = %v", err)
		}
	}
	if _, err := s.Schedule(2, 1, "Y", at); err != nil {
		t.Fatalf("Schedule = %v", err)
	}

	if st := s.Stats(1); st.Active != 3 || st.Total != 4 {
		t.Fatalf("Stats(1) = %+v, want {3 4}", st)
	}
	list := s.List(1)
	for i := 1; i < len(list); i++ {
		if list[i].At.Before(list[i-1].At) {
			t.Fatalf("List not ordered: %+v", list)
		}
	}
	if n := s.CancelAll(1); n != 3 {
		t.Fatalf("CancelAll = %d, want 3", n)
	}
	if st := s.Stats(2); st.Active != 1 || st.Total != 1 {
		t.Fatalf("Stats(2) = %+v, want {1 1}", st)
	}
}

// Firing and cancelling race on every handle; each must end in exactly one of
// the two outcomes.
func TestFireCancelRace(t *testing.T) {
	t.Parallel()

	rec := newRecorder()
	s := New(rec)

	const n = 200
	cancelled := make([]bool, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		if _, err := s.Schedule(1, int64(i), "X", time.Now().Add(time.Millisecond)); err != nil {
			t.Fatalf("Schedule = %v", err)
		}
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			time.Sleep(time.Duration(i%3) * 500 * time.Microsecond)
			cancelled[i] = s.Cancel(1, int64(i))
		}(i)
	}
	wg.Wait()

	// Every handle has left the table, so Stop only waits for deliveries.
	stop(t, s)

	delivered := map[int64]int{}
	for _, h := range rec.delivered() {
		delivered[h.HabitID]++
	}
	for i := 0; i < n; i++ {
		d := delivered[int64(i)]
		switch {
		case cancelled[i] && d != 0:
			t.Fatalf("habit %d: cancelled and delivered", i)
		case !cancelled[i] && d != 1:
			t.Fatalf("habit %d: not cancelled, delivered %d times", i, d)
		}
	}
}

func TestStopRejectsNewWork(t *testing.T) {
	t.Parallel()

	rec := newRecorder()
	s := New(rec)
	if _, err := s.Schedule(1, 1, "X", time.Now().Add(30*time.Millisecond)); err != nil {
		t.Fatalf("Schedule = %v", err)
	}
	stop(t, s)

	if _, err := s.Schedule(1, 2, "X", time.Now().Add(time.Hour)); !errors.Is(err, ErrStopped) {
		t.Fatalf("Schedule after Stop = %v, want ErrStopped", err)
	}
	time.Sleep(60 * time.Millisecond)
	if got := len(rec.delivered()); got != 0 {
		t.Fatalf("deliveries after Stop = %d, want 0", got)
	}
}

package storage

import (
	"context"
	"sort"
	"sync"
	"time"
)

type memoryStore struct {
	mu          sync.Mutex
	users       map[int64]User
	habits      map[int64]Habit
	completions map[int64][]Completion // by habit id, insertion order
	nextHabit   int64
	nextMark    int64
}

// NewMemory returns an empty in-process store.
func NewMemory() Store {
	return &memoryStore{
		users:       map[int64]User{},
		habits:      map[int64]Habit{},
		completions: map[int64][]Completion{},
	}
}

func (m *memoryStore) Close() error { return nil }

func (m *memoryStore) UpsertUser(_ context.Context, u User) error {
	if u.LastSeen.IsZero() {
		u.LastSeen = time.Now()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if prev, ok := m.users[u.ID]; ok {
		u.CreatedAt = prev.CreatedAt
	} else if u.CreatedAt.IsZero() {
		u.CreatedAt = u.LastSeen
	}
	m.users[u.ID] = u
	return nil
}

func (m *memoryStore) TouchUser(_ context.Context, userID int64, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return ErrNotFound
	}
	u.LastSeen = at
	m.users[userID] = u
	return nil
}

func (m *memoryStore) InactiveUsers(_ context.Context, before time.Time) ([]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []int64
	for id, u := range m.users {
		if u.LastSeen.Before(before) {
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

func (m *memoryStore) CreateHabit(_ context.Context, h Habit) (Habit, error) {
	if err := h.Rule.Validate(); err != nil {
		return Habit{}, err
	}
	if h.CreatedAt.IsZero() {
		h.CreatedAt = time.Now()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[h.UserID]; !ok {
		return Habit{}, ErrNotFound
	}
	m.nextHabit++
	h.ID = m.nextHabit
	m.habits[h.ID] = h
	return h, nil
}

func (m *memoryStore) GetHabit(_ context.Context, userID, habitID int64) (Habit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.habits[habitID]
	if !ok || h.UserID != userID {
		return Habit{}, ErrNotFound
	}
	return h, nil
}

func (m *memoryStore) ListHabits(_ context.Context, userID int64) ([]Habit, error) {
	return m.filterHabits(func(h Habit) bool { return h.UserID == userID }), nil
}

func (m *memoryStore) ListReminderHabits(_ context.Context) ([]Habit, error) {
	return m.filterHabits(func(h Habit) bool { return h.ReminderEnabled }), nil
}

func (m *memoryStore) filterHabits(keep func(Habit) bool) []Habit {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Habit
	for _, h := range m.habits {
		if keep(h) {
			out = append(out, h)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *memoryStore) DeleteHabit(_ context.Context, userID, habitID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.habits[habitID]
	if !ok || h.UserID != userID {
		return ErrNotFound
	}
	delete(m.habits, habitID)
	delete(m.completions, habitID)
	return nil
}

func (m *memoryStore) AddCompletion(_ context.Context, c Completion) (Completion, error) {
	if c.At.IsZero() {
		c.At = time.Now()
	}
	if c.Status == "" {
		c.Status = StatusDone
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.habits[c.HabitID]; !ok {
		return Completion{}, ErrNotFound
	}
	m.nextMark++
	c.ID = m.nextMark
	m.completions[c.HabitID] = append(m.completions[c.HabitID], c)
	return c, nil
}

func (m *memoryStore) Completions(_ context.Context, habitID int64) ([]time.Time, error) {
	m.mu.Lock()
	marks := append([]Completion(nil), m.completions[habitID]...)
	m.mu.Unlock()

	sortMarks(marks)
	var out []time.Time
	for _, c := range marks {
		if c.Status == StatusDone {
			out = append(out, c.At)
		}
	}
	return out, nil
}

func (m *memoryStore) LastMark(_ context.Context, habitID int64) (Completion, bool, error) {
	m.mu.Lock()
	marks := append([]Completion(nil), m.completions[habitID]...)
	m.mu.Unlock()

	if len(marks) == 0 {
		return Completion{}, false, nil
	}
	sortMarks(marks)
	return marks[len(marks)-1], true, nil
}

func sortMarks(marks []Completion) {
	sort.SliceStable(marks, func(i, j int) bool {
		if !marks[i].At.Equal(marks[j].At) {
			return marks[i].At.Before(marks[j].At)
		}
		return marks[i].ID < marks[j].ID
	})
}

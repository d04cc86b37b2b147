// Package bot implements the habit chat surface: commands, free-text habit
// creation and inline-button callbacks. It owns no state; habits live in the
// store and reminders in the scheduler, reached through the planner.
package bot

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"habitbot/internal/dateparse"
	"habitbot/internal/eventbus"
	"habitbot/internal/extract"
	"habitbot/internal/reminder"
	"habitbot/internal/storage"
	"habitbot/internal/transport/telegram/router"
	logx "habitbot/pkg/logx"
)

type Config struct {
	MinNameLen      int
	MaxNameLen      int
	StatsPeriodDays int
}

func (c Config) withDefaults() Config {
	if c.MinNameLen <= 0 {
		c.MinNameLen = 3
	}
	if c.MaxNameLen <= 0 {
		c.MaxNameLen = 200
	}
	if c.StatsPeriodDays <= 0 {
		c.StatsPeriodDays = 30
	}
	return c
}

// Planner is what the bot needs from the reminder planner.
type Planner interface {
	PlanHabit(ctx context.Context, h storage.Habit) (reminder.Handle, bool, error)
	Snooze(ctx context.Context, h storage.Habit, d time.Duration) (reminder.Handle, error)
	Forget(h storage.Habit) bool
}

// Reminders is the read side of the reminder scheduler.
type Reminders interface {
	List(userID int64) []reminder.Handle
	Stats(userID int64) reminder.Stats
}

type Deps struct {
	Store     storage.Store
	Planner   Planner
	Reminders Reminders
	Extractor *extract.Extractor
	Dates     *dateparse.Parser
	Bus       eventbus.Bus
	Log       logx.Logger
}

type Bot struct {
	store     storage.Store
	planner   Planner
	reminders Reminders
	extractor *extract.Extractor
	dates     *dateparse.Parser
	bus       eventbus.Bus
	log       logx.Logger

	mu  sync.RWMutex
	cfg Config

	// marks keeps the same-day check and the insert of one habit atomic.
	marks keyedMutex
}

func New(cfg Config, d Deps) *Bot {
	if d.Dates == nil {
		d.Dates = dateparse.New()
	}
	if d.Extractor == nil {
		d.Extractor = extract.New(d.Dates)
	}
	if d.Bus == nil {
		d.Bus = eventbus.Nop{}
	}
	return &Bot{
		store:     d.Store,
		planner:   d.Planner,
		reminders: d.Reminders,
		extractor: d.Extractor,
		dates:     d.Dates,
		bus:       d.Bus,
		log:       d.Log.With(logx.String("comp", "bot")),
		cfg:       cfg.withDefaults(),
	}
}

// Apply swaps the habit limits.
func (b *Bot) Apply(cfg Config) {
	b.mu.Lock()
	b.cfg = cfg.withDefaults()
	b.mu.Unlock()
}

func (b *Bot) config() Config {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.cfg
}

func (b *Bot) now() time.Time { return b.dates.Now() }

// Register installs the bot's routes and user tracking on r.
func (b *Bot) Register(r *router.Router) {
	r.Use(b.TrackUser())
	r.SetRegistry(b.Commands(), b.Callbacks(), b.handleText)
}

// TrackUser records the sender and its last activity before every handler,
// so habits always have an owner row.
func (b *Bot) TrackUser() router.Middleware {
	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(ctx context.Context, req *router.Request) error {
			if req.From.ID != 0 {
				u := storage.User{ID: req.From.ID, Username: req.From.Username, FirstName: req.From.FirstName, LastSeen: b.now()}
				if err := b.store.UpsertUser(ctx, u); err != nil {
					req.Logger.Warn("track user failed", logx.Err(err))
				}
			}
			return next(ctx, req)
		}
	}
}

func (b *Bot) publish(typ string, data any) {
	b.bus.Publish(eventbus.Event{Type: typ, Time: b.now(), Data: data})
}

var errBadID = errors.New("bad habit id")

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, errBadID
	}
	return id, nil
}

// habitFor loads a habit owned by the requester.
func (b *Bot) habitFor(ctx context.Context, req *router.Request, raw string) (storage.Habit, error) {
	id, err := parseID(raw)
	if err != nil {
		return storage.Habit{}, err
	}
	return b.store.GetHabit(ctx, req.From.ID, id)
}

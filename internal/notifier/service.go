package notifier

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"habitbot/internal/reminder"
	kit "habitbot/internal/transport"
	logx "habitbot/pkg/logx"
	"habitbot/pkg/tgui"
)

var ErrStopped = errors.New("notifier stopped")

type Config struct {
	RatePerSec  int
	SendTimeout time.Duration
}

// Service implements reminder.Notifier. It is safe for concurrent use.
type Service struct {
	adapter kit.Adapter
	log     logx.Logger

	mu       sync.Mutex
	cfg      Config
	limiter  *rate.Limiter
	stopped  bool
	inflight sync.WaitGroup
}

func New(cfg Config, adapter kit.Adapter, log logx.Logger) *Service {
	s := &Service{adapter: adapter, log: log.With(logx.String("comp", "notifier"))}
	s.applyLocked(cfg)
	return s
}

// Apply swaps the rate limit and timeout at runtime.
func (s *Service) Apply(cfg Config) {
	s.mu.Lock()
	s.applyLocked(cfg)
	s.mu.Unlock()
}

func (s *Service) applyLocked(cfg Config) {
	if cfg.RatePerSec <= 0 {
		cfg.RatePerSec = 20
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 10 * time.Second
	}
	s.cfg = cfg
	// Burst = rate per second so short spikes are not delayed.
	s.limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSec), cfg.RatePerSec)
}

func (s *Service) begin() (Config, *rate.Limiter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return Config{}, nil, ErrStopped
	}
	s.inflight.Add(1)
	return s.cfg, s.limiter, nil
}

// Deliver sends the reminder message for h to the user's private chat.
func (s *Service) Deliver(ctx context.Context, h reminder.Handle) error {
	_, err := s.Send(ctx, kit.ChatTarget{ChatID: h.UserID}, ReminderMessage(h))
	if err != nil {
		return fmt.Errorf("deliver reminder %s: %w", h.ID, err)
	}
	s.log.Info("reminder delivered", logx.UserID(h.UserID), logx.HabitID(h.HabitID))
	return nil
}

// Send is the rate-limited, time-bounded send used for every proactive
// message.
func (s *Service) Send(ctx context.Context, to kit.ChatTarget, msg tgui.Message) (kit.MessageRef, error) {
	cfg, lim, err := s.begin()
	if err != nil {
		return kit.MessageRef{}, err
	}
	defer s.inflight.Done()

	ctx, cancel := context.WithTimeout(ctx, cfg.SendTimeout)
	defer cancel()

	if err := lim.Wait(ctx); err != nil {
		return kit.MessageRef{}, fmt.Errorf("rate limit: %w", err)
	}
	start := time.Now()
	ref, err := msg.Send(ctx, s.adapter, to)
	if err != nil {
		return ref, err
	}
	s.log.Debug("sent", logx.Int64("chat_id", to.ChatID), logx.Duration("took", time.Since(start)))
	return ref, nil
}

// Stop rejects new sends and waits for in-flight ones.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

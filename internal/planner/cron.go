package planner

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	logx "habitbot/pkg/logx"
)

// cronLogger adapts logx to cron.Logger.
type cronLogger struct{ log logx.Logger }

func (l cronLogger) Info(msg string, kv ...any) {
	l.log.Debug("cron: "+msg, logx.Any("kv", kv))
}

func (l cronLogger) Error(err error, msg string, kv ...any) {
	l.log.Error("cron: "+msg, logx.Err(err), logx.Any("kv", kv))
}

// Start registers the cron entries and plans every habit once. Calling Start
// on a running planner is a no-op.
func (p *Planner) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return nil
	}
	// Kept even when disabled so Apply can start the cron later.
	p.ctx = ctx
	if !p.cfg.Enabled {
		p.mu.Unlock()
		p.log.Info("reminders disabled")
		return nil
	}
	if err := p.startCronLocked(); err != nil {
		p.mu.Unlock()
		return err
	}
	p.running = true
	p.mu.Unlock()

	if _, err := p.runJob("plan", p.PlanAll); err != nil {
		p.log.Warn("initial planning incomplete", logx.Err(err))
	}
	return nil
}

func (p *Planner) startCronLocked() error {
	cl := cronLogger{p.log}
	c := cron.New(
		cron.WithParser(specParser),
		cron.WithLocation(time.Local),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	if _, err := c.AddFunc(p.cfg.PlanSpec, func() { _, _ = p.runJob("plan", p.PlanAll) }); err != nil {
		return fmt.Errorf("plan_spec %q: %w", p.cfg.PlanSpec, err)
	}
	if _, err := c.AddFunc(p.cfg.SweepSpec, func() { _, _ = p.runJob("sweep", p.SweepInactive) }); err != nil {
		return fmt.Errorf("sweep_spec %q: %w", p.cfg.SweepSpec, err)
	}
	c.Start()
	p.c = c
	p.log.Info("planner started", logx.String("plan_spec", p.cfg.PlanSpec), logx.String("sweep_spec", p.cfg.SweepSpec))
	return nil
}

func (p *Planner) runJob(name string, job func(context.Context) (int, error)) (int, error) {
	p.mu.Lock()
	ctx := p.ctx
	timeout := p.cfg.JobTimeout
	p.mu.Unlock()
	if ctx == nil {
		ctx = context.Background()
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	start := time.Now()
	n, err := job(ctx)
	if err != nil {
		p.log.Warn("job failed", logx.String("job", name), logx.Duration("dur", time.Since(start)), logx.Err(err))
	}
	return n, err
}

// Stop removes the cron entries and waits for a running job to finish or
// ctx to end.
func (p *Planner) Stop(ctx context.Context) error {
	p.mu.Lock()
	c := p.c
	p.c = nil
	p.running = false
	p.ctx = nil
	p.mu.Unlock()
	if c == nil {
		return nil
	}
	select {
	case <-c.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Apply swaps the configuration. Changed cron specs take effect immediately
// on a running planner; a spec that does not parse leaves the old entries in
// place and is returned as an error. Turning Enabled on starts the cron and
// plans every habit when Start was already called; turning it off stops the
// cron.
func (p *Planner) Apply(cfg Config) error {
	cfg = cfg.withDefaults()
	if err := ValidateSpec(cfg.PlanSpec); err != nil {
		return err
	}
	if err := ValidateSpec(cfg.SweepSpec); err != nil {
		return err
	}

	p.mu.Lock()
	old := p.cfg
	p.cfg = cfg
	switch {
	case p.running && !cfg.Enabled:
		c := p.c
		p.c = nil
		p.running = false
		p.mu.Unlock()
		if c != nil {
			c.Stop()
		}
		p.log.Info("reminders disabled")
		return nil

	case !p.running && cfg.Enabled && p.ctx != nil:
		if err := p.startCronLocked(); err != nil {
			p.cfg = old
			p.mu.Unlock()
			return err
		}
		p.running = true
		p.mu.Unlock()
		if _, err := p.runJob("plan", p.PlanAll); err != nil {
			p.log.Warn("planning after enable incomplete", logx.Err(err))
		}
		return nil

	case !p.running || (old.PlanSpec == cfg.PlanSpec && old.SweepSpec == cfg.SweepSpec):
		p.mu.Unlock()
		return nil
	}

	prev := p.c
	err := p.startCronLocked()
	if err != nil {
		p.cfg = old
	}
	p.mu.Unlock()

	if err != nil {
		return err
	}
	if prev != nil {
		prev.Stop()
	}
	return nil
}

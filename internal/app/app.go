package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"habitbot/internal/bot"
	"habitbot/internal/config"
	"habitbot/internal/dateparse"
	"habitbot/internal/eventbus"
	"habitbot/internal/extract"
	"habitbot/internal/notifier"
	"habitbot/internal/planner"
	"habitbot/internal/reminder"
	"habitbot/internal/runtime/supervisor"
	"habitbot/internal/storage"
	kit "habitbot/internal/transport"
	telegram "habitbot/internal/transport/telegram/adapter"
	"habitbot/internal/transport/telegram/router"
	logx "habitbot/pkg/logx"
	"habitbot/pkg/systemd"
)

type App struct {
	cfgPath string

	cfgm *config.ConfigManager
	sup  *supervisor.Supervisor

	log   logx.Logger
	logs  *logx.Service
	bus   eventbus.Bus
	store storage.Store

	adapter kit.Adapter

	notif     *notifier.Service
	reminders *reminder.Scheduler
	planner   *planner.Planner
	bot       *bot.Bot
	router    *router.Router

	updates chan kit.Update
}

func New(cfgPath string) (*App, error) {
	cfgm := config.NewConfigManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, err
	}

	logSvc, log := logx.New(loggingConfig(cfg))
	log = log.With(logx.String("comp", "app"))

	store, err := openStore(cfg, log)
	if err != nil {
		_ = logSvc.Close()
		return nil, err
	}

	bus := eventbus.New()

	ad, err := telegram.New(telegram.Config{
		Token:       cfg.Telegram.Token,
		PollTimeout: cfg.Telegram.PollTimeoutOr(defaultPollTimeout),
	}, log)
	if err != nil {
		_ = store.Close()
		_ = logSvc.Close()
		return nil, fmt.Errorf("telegram: %w", err)
	}

	notif := notifier.New(notifierConfig(cfg), ad, log)
	rem := reminder.New(notif, reminder.WithLogger(log), reminder.WithBus(bus))
	plan := planner.New(plannerConfig(cfg), store, rem, planner.WithLogger(log))

	dates := dateparse.New()
	b := bot.New(botConfig(cfg), bot.Deps{
		Store:     store,
		Planner:   plan,
		Reminders: rem,
		Extractor: extract.New(dates),
		Dates:     dates,
		Bus:       bus,
		Log:       log,
	})
	r := router.New(log, ad, router.Options{})
	b.Register(r)

	return &App{
		cfgPath:   cfgPath,
		cfgm:      cfgm,
		log:       log,
		logs:      logSvc,
		bus:       bus,
		store:     store,
		adapter:   ad,
		notif:     notif,
		reminders: rem,
		planner:   plan,
		bot:       b,
		router:    r,
		updates:   make(chan kit.Update, 256),
	}, nil
}

// openStore falls back to an in-memory store when storage is switched off;
// habits then live only as long as the process.
func openStore(cfg *config.Config, log logx.Logger) (storage.Store, error) {
	sc := storageConfig(cfg)
	st, err := storage.Open(sc, log)
	if errors.Is(err, storage.ErrDisabled) {
		log.Warn("storage disabled; habits are kept in memory only")
		return storage.NewMemory(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("storage: %w", err)
	}
	log.Info("storage ready", logx.String("driver", sc.Driver))
	return st, nil
}

// Done is closed when the app supervisor context is canceled (fatal error or Stop()).
func (a *App) Done() <-chan struct{} {
	if a.sup == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return a.sup.Context().Done()
}

// Err returns the first fatal error observed by the supervisor (if any).
func (a *App) Err() error {
	if a.sup == nil {
		return nil
	}
	return a.sup.Err()
}

func (a *App) Start(ctx context.Context) error {
	a.sup = supervisor.New(ctx, supervisor.WithLogger(a.log), supervisor.WithCancelOnError(true))

	a.cfgm.SetLogger(a.log.With(logx.String("comp", "config")))
	a.cfgm.SetValidator(func(_ context.Context, cfg *config.Config) error {
		return validatePlanner(cfg)
	})

	if err := a.adapter.Start(a.sup.Context(), a.updates); err != nil {
		return err
	}

	menuCtx, cancel := context.WithTimeout(a.sup.Context(), 10*time.Second)
	if err := a.router.PublishMenu(menuCtx); err != nil {
		a.log.Warn("command menu not published", logx.Err(err))
	}
	cancel()

	a.sup.Go("commands.dispatch", func(c context.Context) error {
		return a.router.DispatchLoop(c, a.updates)
	})

	if err := a.planner.Start(a.sup.Context()); err != nil {
		return err
	}

	a.startEventLog()
	a.startConfigReload()

	a.sup.Go("config.watch", func(c context.Context) error {
		return a.cfgm.Watch(c)
	})

	if ok, err := systemd.Ready(); err != nil {
		a.log.Warn("sd_notify ready failed", logx.Err(err))
	} else if ok {
		a.log.Debug("sd_notify ready sent")
	}
	if iv := systemd.WatchdogInterval(); iv > 0 {
		a.log.Info("systemd watchdog enabled", logx.Duration("interval", iv))
		a.sup.Go0("systemd.watchdog", func(c context.Context) { systemd.Watchdog(c, iv) })
	}

	a.log.Info("app started")
	return nil
}

// startEventLog mirrors bus events into debug logs.
func (a *App) startEventLog() {
	events, unsub := a.bus.Subscribe(128)
	a.sup.Go0("eventbus.log", func(c context.Context) {
		defer unsub()
		for {
			select {
			case <-c.Done():
				return
			case e, ok := <-events:
				if !ok {
					return
				}
				a.log.Debug("event", logx.String("type", e.Type), logx.Time("time", e.Time), logx.Any("data", e.Data))
			}
		}
	})
}

func (a *App) startConfigReload() {
	sub := a.cfgm.Subscribe(8)
	a.sup.Go0("config.reload", func(c context.Context) {
		defer a.cfgm.Unsubscribe(sub)
		lastApplied := a.cfgm.Get()
		for {
			select {
			case <-c.Done():
				return
			case newCfg, ok := <-sub:
				if !ok {
					return
				}
				// Coalesce bursts: keep only the latest config in the channel.
				for {
					select {
					case newer := <-sub:
						if newer != nil {
							newCfg = newer
						}
					default:
						goto APPLY
					}
				}
			APPLY:
				a.applyConfig(lastApplied, newCfg)
				lastApplied = newCfg
			}
		}
	})
}

func (a *App) applyConfig(oldCfg, newCfg *config.Config) {
	sections, attrs, restart := config.SummarizeChange(oldCfg, newCfg)
	if len(sections) == 0 {
		a.log.Info("config reloaded (no changes)")
		return
	}
	if restart {
		a.log.Warn("telegram or storage config changed; restart required for changes to take effect")
	}

	a.logs.Apply(loggingConfig(newCfg))
	a.notif.Apply(notifierConfig(newCfg))
	a.bot.Apply(botConfig(newCfg))

	if err := a.planner.Apply(plannerConfig(newCfg)); err != nil {
		a.log.Warn("invalid reminders config; keeping previous", logx.Err(err))
	}

	a.bus.Publish(eventbus.Event{Type: eventbus.ConfigReloaded, Time: time.Now(), Data: sections})
	fields := append([]logx.Field{logx.String("changed", strings.Join(sections, ","))}, attrs...)
	a.log.Info("config reloaded", fields...)
}

func (a *App) Stop(ctx context.Context, reason StopReason) error {
	if a.sup == nil {
		return nil
	}
	a.log.Info("stopping", logx.String("reason", string(reason)))
	if _, err := systemd.Stopping(); err != nil {
		a.log.Debug("sd_notify stopping failed", logx.Err(err))
	}

	// Cancel first so background loops start unwinding immediately.
	a.sup.Cancel()

	// Order: stop producing reminders, drain deliveries, then close the
	// transport and storage they use.
	a.step(ctx, "planner", 2*time.Second, a.planner.Stop)
	a.step(ctx, "reminders", 3*time.Second, a.reminders.Stop)
	a.step(ctx, "notifier", time.Second, a.notif.Stop)
	a.step(ctx, "adapter", 2*time.Second, a.adapter.Stop)
	a.step(ctx, "storage", time.Second, func(context.Context) error { return a.store.Close() })
	a.step(ctx, "supervisor", 2*time.Second, a.sup.Wait)

	a.log.Info("stopped")
	if a.logs != nil {
		_ = a.logs.Close()
	}
	return nil
}

// step runs one shutdown step with an upper bound so one component can't
// stall the whole stop.
func (a *App) step(ctx context.Context, name string, max time.Duration, fn func(context.Context) error) {
	start := time.Now()
	a.log.Debug("stop step begin", logx.String("name", name), logx.Duration("max", max))

	stepCtx := ctx
	if max > 0 {
		// respect the caller's deadline; never extend it
		if dl, ok := ctx.Deadline(); ok {
			if rem := time.Until(dl); rem < max {
				max = rem
			}
		}
		if max > 0 {
			var cancel context.CancelFunc
			stepCtx, cancel = context.WithTimeout(ctx, max)
			defer cancel()
		}
	}

	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("panic in stop step %s: %v", name, r)
			}
		}()
		done <- fn(stepCtx)
	}()

	select {
	case err := <-done:
		if err != nil {
			a.log.Warn("stop step error", logx.String("name", name), logx.Err(err))
		}
		took := time.Since(start)
		if took >= 500*time.Millisecond {
			a.log.Info("stop step end", logx.String("name", name), logx.Duration("took", took))
		} else {
			a.log.Debug("stop step end", logx.String("name", name), logx.Duration("took", took))
		}
	case <-stepCtx.Done():
		// fn must honor stepCtx; if it doesn't, log when it eventually returns.
		a.log.Warn("stop step deadline reached (continuing)",
			logx.String("name", name),
			logx.Err(stepCtx.Err()),
			logx.Duration("elapsed", time.Since(start)),
		)
		go func() {
			err := <-done
			took := time.Since(start)
			if err != nil {
				a.log.Warn("stop step finished after deadline", logx.String("name", name), logx.Err(err), logx.Duration("took", took))
			} else {
				a.log.Info("stop step finished after deadline", logx.String("name", name), logx.Duration("took", took))
			}
		}()
	}
}

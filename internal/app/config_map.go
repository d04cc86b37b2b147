package app

import (
	"errors"
	"strings"
	"time"

	"habitbot/internal/bot"
	"habitbot/internal/config"
	"habitbot/internal/notifier"
	"habitbot/internal/planner"
	"habitbot/internal/storage"
	logx "habitbot/pkg/logx"
)

const (
	defaultStoragePath = "./habitbot.db"
	defaultPollTimeout = 10 * time.Second
	defaultSendTimeout = 10 * time.Second
	defaultBusyTimeout = time.Second
)

func loggingConfig(cfg *config.Config) logx.Config {
	return logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	}
}

// storageConfig defaults an omitted driver to a SQLite file next to the
// process.
func storageConfig(cfg *config.Config) storage.Config {
	sc := cfg.Storage
	driver := strings.ToLower(strings.TrimSpace(sc.Driver))
	path := strings.TrimSpace(sc.Path)
	if driver == "" {
		driver = "sqlite"
		if path == "" {
			path = defaultStoragePath
		}
	}
	return storage.Config{
		Driver:      driver,
		Path:        path,
		BusyTimeout: sc.BusyTimeoutOr(defaultBusyTimeout),
	}
}

func notifierConfig(cfg *config.Config) notifier.Config {
	return notifier.Config{
		RatePerSec:  cfg.Notifier.RatePerSec,
		SendTimeout: cfg.Notifier.SendTimeoutOr(defaultSendTimeout),
	}
}

func plannerConfig(cfg *config.Config) planner.Config {
	rc := cfg.Reminders
	hour := planner.DefaultHour
	if rc.DefaultHour != nil {
		hour = *rc.DefaultHour
	}
	return planner.Config{
		Enabled:       rc.IsEnabled(),
		PlanSpec:      rc.PlanSpec,
		SweepSpec:     rc.SweepSpec,
		InactiveAfter: rc.InactiveAfterOr(planner.DefaultInactiveAfter),
		Snooze:        rc.SnoozeOr(planner.DefaultSnooze),
		DefaultHour:   hour,
		DefaultMinute: rc.DefaultMinute,
		JobTimeout:    rc.JobTimeoutOr(0),
	}
}

func botConfig(cfg *config.Config) bot.Config {
	return bot.Config{
		MinNameLen:      cfg.Habits.MinNameLen,
		MaxNameLen:      cfg.Habits.MaxNameLen,
		StatsPeriodDays: cfg.Habits.StatsPeriodDays,
	}
}

// validatePlanner rejects cron specs the planner's parser would refuse, so a
// bad hot reload never reaches the running cron.
func validatePlanner(cfg *config.Config) error {
	pc := plannerConfig(cfg)
	var errs []error
	for _, spec := range []string{pc.PlanSpec, pc.SweepSpec} {
		if strings.TrimSpace(spec) == "" {
			continue
		}
		if err := planner.ValidateSpec(spec); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

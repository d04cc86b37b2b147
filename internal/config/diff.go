package config

import (
	"strings"

	logx "habitbot/pkg/logx"
)

// SummarizeChange lists the sections that differ between two configs plus
// safe log fields describing the new values. The bot token is never logged.
// restart is set when a changed section only takes effect after a restart.
func SummarizeChange(oldCfg, newCfg *Config) (changed []string, fields []logx.Field, restart bool) {
	if oldCfg == nil {
		oldCfg = &Config{}
	}
	if newCfg == nil {
		newCfg = &Config{}
	}

	if oldCfg.Telegram != newCfg.Telegram {
		changed = append(changed, "telegram")
		restart = true
		fields = append(fields,
			logx.String("telegram.poll_timeout", strings.TrimSpace(newCfg.Telegram.PollTimeout)),
			logx.Bool("telegram.token_changed", oldCfg.Telegram.Token != newCfg.Telegram.Token),
		)
	}
	if oldCfg.Logging != newCfg.Logging {
		changed = append(changed, "logging")
		fields = append(fields,
			logx.String("logging.level", newCfg.Logging.Level),
			logx.Bool("logging.console", newCfg.Logging.Console),
			logx.Bool("logging.file_enabled", newCfg.Logging.File.Enabled),
		)
	}
	if oldCfg.Storage != newCfg.Storage {
		changed = append(changed, "storage")
		restart = true
		fields = append(fields,
			logx.String("storage.driver", newCfg.Storage.Driver),
			logx.String("storage.path", newCfg.Storage.Path),
		)
	}
	if !remindersEqual(oldCfg.Reminders, newCfg.Reminders) {
		changed = append(changed, "reminders")
		fields = append(fields,
			logx.Bool("reminders.enabled", newCfg.Reminders.IsEnabled()),
			logx.String("reminders.plan_spec", newCfg.Reminders.PlanSpec),
			logx.String("reminders.sweep_spec", newCfg.Reminders.SweepSpec),
		)
	}
	if oldCfg.Notifier != newCfg.Notifier {
		changed = append(changed, "notifier")
		fields = append(fields,
			logx.Int("notifier.rate_per_sec", newCfg.Notifier.RatePerSec),
			logx.String("notifier.send_timeout", newCfg.Notifier.SendTimeout),
		)
	}
	if oldCfg.Habits != newCfg.Habits {
		changed = append(changed, "habits")
		fields = append(fields,
			logx.Int("habits.min_name_len", newCfg.Habits.MinNameLen),
			logx.Int("habits.max_name_len", newCfg.Habits.MaxNameLen),
			logx.Int("habits.stats_period_days", newCfg.Habits.StatsPeriodDays),
		)
	}
	return changed, fields, restart
}

func remindersEqual(a, b RemindersConfig) bool {
	if a.IsEnabled() != b.IsEnabled() {
		return false
	}
	ah, bh := -1, -1
	if a.DefaultHour != nil {
		ah = *a.DefaultHour
	}
	if b.DefaultHour != nil {
		bh = *b.DefaultHour
	}
	a.Enabled, b.Enabled, a.DefaultHour, b.DefaultHour = nil, nil, nil, nil
	return ah == bh && a == b
}

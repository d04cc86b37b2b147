package config

import (
	"strings"
	"time"
)

// durationOr parses a validated duration string, falling back to def when it
// is empty or zero.
func durationOr(raw string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil || d <= 0 {
		return def
	}
	return d
}

func (c TelegramConfig) PollTimeoutOr(def time.Duration) time.Duration {
	return durationOr(c.PollTimeout, def)
}

func (c StorageConfig) BusyTimeoutOr(def time.Duration) time.Duration {
	return durationOr(c.BusyTimeout, def)
}

func (c RemindersConfig) InactiveAfterOr(def time.Duration) time.Duration {
	return durationOr(c.InactiveAfter, def)
}

func (c RemindersConfig) SnoozeOr(def time.Duration) time.Duration {
	return durationOr(c.Snooze, def)
}

func (c RemindersConfig) JobTimeoutOr(def time.Duration) time.Duration {
	return durationOr(c.JobTimeout, def)
}

func (c NotifierConfig) SendTimeoutOr(def time.Duration) time.Duration {
	return durationOr(c.SendTimeout, def)
}

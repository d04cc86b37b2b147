package config

// Config is the on-disk configuration. Every duration is a Go duration
// string ("10s", "720h"); an empty string means the default.
type Config struct {
	Telegram  TelegramConfig  `json:"telegram"`
	Logging   LoggingConfig   `json:"logging"`
	Storage   StorageConfig   `json:"storage"`
	Reminders RemindersConfig `json:"reminders"`
	Notifier  NotifierConfig  `json:"notifier"`
	Habits    HabitsConfig    `json:"habits"`
}

type TelegramConfig struct {
	Token       string `json:"token" validate:"required"`
	PollTimeout string `json:"poll_timeout,omitempty" validate:"omitempty,duration"`
}

type LoggingConfig struct {
	Level   string      `json:"level,omitempty" validate:"omitempty,oneof=trace debug info warn warning error"`
	Console bool        `json:"console"`
	File    LoggingFile `json:"file"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path,omitempty"`
}

// StorageConfig selects the persistence driver.
//
// Example:
//
//	"storage": { "driver": "sqlite", "path": "./habitbot.db" }
type StorageConfig struct {
	Driver      string `json:"driver,omitempty" validate:"omitempty,oneof=sqlite sqlite3 memory none"`
	Path        string `json:"path,omitempty" validate:"required_if=Driver sqlite,required_if=Driver sqlite3"`
	BusyTimeout string `json:"busy_timeout,omitempty" validate:"omitempty,duration"`
}

// RemindersConfig drives reminder planning. Enabled is a pointer so an
// omitted key keeps reminders on.
type RemindersConfig struct {
	Enabled       *bool  `json:"enabled,omitempty"`
	PlanSpec      string `json:"plan_spec,omitempty" validate:"omitempty,cronspec"`
	SweepSpec     string `json:"sweep_spec,omitempty" validate:"omitempty,cronspec"`
	InactiveAfter string `json:"inactive_after,omitempty" validate:"omitempty,duration"`
	Snooze        string `json:"snooze,omitempty" validate:"omitempty,duration"`
	DefaultHour   *int   `json:"default_hour,omitempty" validate:"omitempty,min=0,max=23"`
	DefaultMinute int    `json:"default_minute,omitempty" validate:"min=0,max=59"`
	JobTimeout    string `json:"job_timeout,omitempty" validate:"omitempty,duration"`
}

func (r RemindersConfig) IsEnabled() bool { return r.Enabled == nil || *r.Enabled }

type NotifierConfig struct {
	RatePerSec  int    `json:"rate_per_sec,omitempty" validate:"min=0,max=30"`
	SendTimeout string `json:"send_timeout,omitempty" validate:"omitempty,duration"`
}

type HabitsConfig struct {
	MinNameLen      int `json:"min_name_len,omitempty" validate:"min=0"`
	MaxNameLen      int `json:"max_name_len,omitempty" validate:"min=0,max=4096"`
	StatsPeriodDays int `json:"stats_period_days,omitempty" validate:"min=0,max=3660"`
}

package app

import (
	"testing"
	"time"

	"habitbot/internal/config"
	"habitbot/internal/planner"
)

func TestStorageConfigDefaults(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		in         config.StorageConfig
		wantDriver string
		wantPath   string
	}{
		{"omitted", config.StorageConfig{}, "sqlite", defaultStoragePath},
		{"memory", config.StorageConfig{Driver: "Memory"}, "memory", ""},
		{"sqlite", config.StorageConfig{Driver: "sqlite", Path: " /var/lib/habits.db "}, "sqlite", "/var/lib/habits.db"},
		{"none", config.StorageConfig{Driver: "none"}, "none", ""},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := storageConfig(&config.Config{Storage: tt.in})
			if got.Driver != tt.wantDriver || got.Path != tt.wantPath {
				t.Fatalf("storageConfig = %+v, want driver=%q path=%q", got, tt.wantDriver, tt.wantPath)
			}
			if got.BusyTimeout != defaultBusyTimeout {
				t.Fatalf("BusyTimeout = %v, want %v", got.BusyTimeout, defaultBusyTimeout)
			}
		})
	}
}

func TestPlannerConfigMapping(t *testing.T) {
	t.Parallel()

	got := plannerConfig(&config.Config{})
	if !got.Enabled || got.DefaultHour != planner.DefaultHour || got.Snooze != planner.DefaultSnooze {
		t.Fatalf("plannerConfig(empty) = %+v", got)
	}
	if got.InactiveAfter != planner.DefaultInactiveAfter {
		t.Fatalf("InactiveAfter = %v, want %v", got.InactiveAfter, planner.DefaultInactiveAfter)
	}

	off, zero := false, 0
	got = plannerConfig(&config.Config{Reminders: config.RemindersConfig{
		Enabled:     &off,
		DefaultHour: &zero,
		Snooze:      "15m",
		JobTimeout:  "30s",
	}})
	if got.Enabled || got.DefaultHour != 0 || got.Snooze != 15*time.Minute || got.JobTimeout != 30*time.Second {
		t.Fatalf("plannerConfig = %+v", got)
	}
}

func TestValidatePlanner(t *testing.T) {
	t.Parallel()

	if err := validatePlanner(&config.Config{}); err != nil {
		t.Fatalf("empty specs: %v", err)
	}
	ok := &config.Config{Reminders: config.RemindersConfig{PlanSpec: "0 6 * * *", SweepSpec: "@every 30m"}}
	if err := validatePlanner(ok); err != nil {
		t.Fatalf("valid specs: %v", err)
	}
	bad := &config.Config{Reminders: config.RemindersConfig{SweepSpec: "every hour"}}
	if err := validatePlanner(bad); err == nil {
		t.Fatalf("validatePlanner(%q) = nil, want error", bad.Reminders.SweepSpec)
	}
}

func TestNotifierAndBotConfig(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{
		Notifier: config.NotifierConfig{RatePerSec: 5},
		Habits:   config.HabitsConfig{MinNameLen: 2, MaxNameLen: 50, StatsPeriodDays: 7},
	}
	n := notifierConfig(cfg)
	if n.RatePerSec != 5 || n.SendTimeout != defaultSendTimeout {
		t.Fatalf("notifierConfig = %+v", n)
	}
	b := botConfig(cfg)
	if b.MinNameLen != 2 || b.MaxNameLen != 50 || b.StatsPeriodDays != 7 {
		t.Fatalf("botConfig = %+v", b)
	}
}

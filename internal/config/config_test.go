package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestLoadYAML(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, path, `
telegram:
  token: "123:abc"
  poll_timeout: 30s
storage:
  driver: sqlite
  path: ./habitbot.db
reminders:
  plan_spec: "5 0 * * *"
  sweep_spec: "@hourly"
  default_hour: 0
habits:
  min_name_len: 2
`)
	cfg, err := NewConfigManager(path).Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Telegram.Token != "123:abc" || cfg.Storage.Driver != "sqlite" || cfg.Habits.MinNameLen != 2 {
		t.Fatalf("cfg = %+v", cfg)
	}
	if !cfg.Reminders.IsEnabled() {
		t.Fatalf("reminders should default to enabled")
	}
	if cfg.Reminders.DefaultHour == nil || *cfg.Reminders.DefaultHour != 0 {
		t.Fatalf("DefaultHour = %v, want explicit 0", cfg.Reminders.DefaultHour)
	}
}

func TestLoadRejects(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name, body, want string
	}{
		{"unknown field", `{"telegram":{"token":"x"},"plugins":{}}`, "unknown field"},
		{"trailing data", `{"telegram":{"token":"x"}}{}`, "trailing data"},
		{"missing token", `{"telegram":{}}`, "telegram.token"},
		{"bad cron", `{"telegram":{"token":"x"},"reminders":{"plan_spec":"every day"}}`, "reminders.plan_spec"},
		{"bad duration", `{"telegram":{"token":"x"},"notifier":{"send_timeout":"soon"}}`, "notifier.send_timeout"},
		{"sqlite without path", `{"telegram":{"token":"x"},"storage":{"driver":"sqlite"}}`, "storage.path"},
		{"bad driver", `{"telegram":{"token":"x"},"storage":{"driver":"postgres"}}`, "storage.driver"},
		{"name limits", `{"telegram":{"token":"x"},"habits":{"min_name_len":10,"max_name_len":5}}`, "min_name_len"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			path := filepath.Join(t.TempDir(), "config.json")
			writeFile(t, path, tt.body)
			_, err := NewConfigManager(path).Load()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("Load err = %v, want mention of %q", err, tt.want)
			}
		})
	}
}

func TestValidateRedactsToken(t *testing.T) {
	t.Parallel()

	// A token is never echoed back, even inside a validation error.
	cfg := &Config{Telegram: TelegramConfig{Token: "secret-token"}, Notifier: NotifierConfig{RatePerSec: 1000}}
	err := Validate(cfg)
	if err == nil {
		t.Fatalf("Validate accepted rate_per_sec=1000")
	}
	if strings.Contains(err.Error(), "secret-token") {
		t.Fatalf("error leaks token: %v", err)
	}
}

func TestSummarizeChange(t *testing.T) {
	t.Parallel()

	off := false
	a := &Config{Telegram: TelegramConfig{Token: "x"}}
	b := &Config{Telegram: TelegramConfig{Token: "x"}, Reminders: RemindersConfig{Enabled: &off}, Habits: HabitsConfig{MaxNameLen: 100}}

	changed, _, restart := SummarizeChange(a, b)
	if strings.Join(changed, ",") != "reminders,habits" || restart {
		t.Fatalf("changed = %v restart = %v", changed, restart)
	}

	c := *b
	c.Storage.Path = "other.db"
	if changed, _, restart := SummarizeChange(b, &c); len(changed) != 1 || !restart {
		t.Fatalf("storage change = %v restart = %v", changed, restart)
	}

	on := true
	d := *a
	d.Reminders.Enabled = &on
	if changed, _, _ := SummarizeChange(a, &d); len(changed) != 0 {
		t.Fatalf("explicit enabled=true vs omitted reported as %v", changed)
	}
}

func TestWatchPublishesChanges(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.json")
	writeFile(t, path, `{"telegram":{"token":"x"}}`)
	m := NewConfigManager(path)
	if _, err := m.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	sub := m.Subscribe(1)
	defer m.Unsubscribe(sub)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = m.Watch(ctx) }()

	// An invalid edit is never published.
	writeFile(t, path, `{"telegram":{}}`)
	deadline := time.After(5 * time.Second)
	tick := time.NewTicker(300 * time.Millisecond)
	defer tick.Stop()
	for {
		select {
		case cfg := <-sub:
			if cfg.Habits.MaxNameLen != 50 {
				t.Fatalf("published %+v, want the valid edit", cfg)
			}
			if got := m.Get(); got.Habits.MaxNameLen != 50 {
				t.Fatalf("Get = %+v after publish", got)
			}
			return
		case <-tick.C:
			writeFile(t, path, `{"telegram":{"token":"x"},"habits":{"max_name_len":50}}`)
		case <-deadline:
			t.Fatalf("no config published")
		}
	}
}

package logx

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
)

func TestLoggerWritesFields(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := NewWriter(&buf, "info").With(String("comp", "test"))
	log.Debug("hidden")
	log.Info("hello", Int("n", 3), Err(errors.New("boom")))

	var m map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &m); err != nil {
		t.Fatalf("output is not one JSON line: %q (%v)", buf.String(), err)
	}
	if m["message"] != "hello" || m["comp"] != "test" || m["n"] != float64(3) || m["err"] != "boom" {
		t.Fatalf("fields = %v", m)
	}
}

func TestZeroLoggerIsNoop(t *testing.T) {
	t.Parallel()

	var l Logger
	if !l.IsZero() {
		t.Fatalf("zero logger IsZero = false")
	}
	l.Info("nothing happens")
	l.Printf("%d", 1)
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want Level
	}{
		{"debug", LevelDebug},
		{" WARNING ", LevelWarn},
		{"error", LevelError},
		{"bogus", LevelInfo},
	}
	for _, tt := range tests {
		if got := parseLevel(tt.in, LevelInfo); got != tt.want {
			t.Fatalf("parseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestIDFieldsShareKeys(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	NewWriter(&buf, "info").With(UserID(7)).Info("x", HabitID(42))

	var m map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &m); err != nil {
		t.Fatalf("output is not one JSON line: %q (%v)", buf.String(), err)
	}
	if m[KeyUserID] != float64(7) || m[KeyHabitID] != float64(42) {
		t.Fatalf("fields = %v", m)
	}
}

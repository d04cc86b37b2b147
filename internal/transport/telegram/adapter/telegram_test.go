package adapter

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestSplitTelegramText(t *testing.T) {
	t.Parallel()

	if got := splitTelegramText("short", 10, ""); len(got) != 1 || got[0] != "short" {
		t.Fatalf("split(short) = %q", got)
	}

	line := strings.Repeat("я", 30)
	text := strings.Join([]string{line, line, line, line}, "\n")
	chunks := splitTelegramText(text, 70, "")
	if len(chunks) != 2 {
		t.Fatalf("chunks = %d, want 2 (%q)", len(chunks), chunks)
	}
	for _, c := range chunks {
		if n := utf8.RuneCountInString(c); n > 70 {
			t.Fatalf("chunk has %d runes, limit 70", n)
		}
		if strings.HasPrefix(c, "\n") || strings.HasSuffix(c, "\n") {
			t.Fatalf("chunk %q has edge newlines", c)
		}
	}
}

func TestSplitTelegramTextAvoidsTags(t *testing.T) {
	t.Parallel()

	text := strings.Repeat("a", 18) + "<b>bold</b>" + strings.Repeat("c", 20)
	chunks := splitTelegramText(text, 20, "HTML")
	if !strings.HasPrefix(chunks[1], "<b>") {
		t.Fatalf("tag was split: %q", chunks)
	}
}

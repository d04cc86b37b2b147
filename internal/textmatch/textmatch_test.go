package textmatch

import "testing"

func TestFindRespectsCyrillicBoundaries(t *testing.T) {
	t.Parallel()

	p := Compile(`сегодня|today`)
	tests := []struct {
		in   string
		want bool
	}{
		{"сегодня", true},
		{"бегать сегодня утром", true},
		{"СЕГОДНЯ", true},
		{"Today!", true},
		{"сегодняшний", false},
		{"todays", false},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			_, ok := p.Find(tt.in)
			if ok != tt.want {
				t.Fatalf("Find(%q) ok = %v, want %v", tt.in, ok, tt.want)
			}
		})
	}
}

func TestFindSkipsRejectedCandidate(t *testing.T) {
	t.Parallel()

	p := Compile(`(\d{1,2})[./-](\d{1,2})`)
	m, ok := p.Find("2024-12-25")
	if !ok {
		t.Fatalf("expected a bounded match")
	}
	if m.Groups[1] != "12" || m.Groups[2] != "25" {
		t.Fatalf("groups = %q, want [12 25]", m.Groups[1:])
	}
}

func TestMatchInt(t *testing.T) {
	t.Parallel()

	m, ok := Compile(`в\s+(\d{1,2}):(\d{2})`).Find("зарядка в 7:45")
	if !ok {
		t.Fatalf("expected match")
	}
	h, err := m.Int(1)
	if err != nil || h != 7 {
		t.Fatalf("Int(1) = %d, %v; want 7", h, err)
	}
	if _, err := m.Int(5); err == nil {
		t.Fatalf("Int(5) expected error for missing group")
	}
}

func TestStripCollapsesWhitespace(t *testing.T) {
	t.Parallel()

	got := Compile(`каждый\s+день`).Strip("  читать   каждый день  книги ")
	if got != "читать книги" {
		t.Fatalf("Strip = %q, want %q", got, "читать книги")
	}
}

func TestFindAllNonOverlapping(t *testing.T) {
	t.Parallel()

	ms := Compile(`пн|вт`).FindAll("пн вт пнуть")
	if len(ms) != 2 {
		t.Fatalf("FindAll len = %d, want 2", len(ms))
	}
}

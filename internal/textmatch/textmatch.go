// Package textmatch provides case-insensitive, word-bounded regular
// expression matching that treats Cyrillic letters as word characters.
//
// RE2's \b only knows ASCII word characters, so "\bсегодня\b" never matches.
// Patterns here are compiled without boundaries and every candidate match is
// checked against its neighbouring runes instead.
package textmatch

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Pattern is a compiled word-bounded expression.
type Pattern struct {
	re *regexp.Regexp
}

// Match is a single word-bounded hit. Start and End are byte offsets into the
// searched string; Groups[0] is the whole match and Groups[i] the i-th
// capture group ("" when the group did not participate).
type Match struct {
	Start  int
	End    int
	Groups []string
}

// Int returns capture group i as an int.
func (m Match) Int(i int) (int, error) {
	if i < 0 || i >= len(m.Groups) {
		return 0, strconv.ErrSyntax
	}
	return strconv.Atoi(m.Groups[i])
}

// Compile compiles expr as a case-insensitive pattern. It panics on a bad
// expression, like regexp.MustCompile; patterns are package-level tables.
func Compile(expr string) *Pattern {
	return &Pattern{re: regexp.MustCompile(`(?i)` + expr)}
}

func (p *Pattern) String() string { return p.re.String() }

// Find returns the leftmost word-bounded match in s.
func (p *Pattern) Find(s string) (Match, bool) {
	return p.findFrom(s, 0)
}

// FindAll returns all non-overlapping word-bounded matches, left to right.
func (p *Pattern) FindAll(s string) []Match {
	var out []Match
	pos := 0
	for pos <= len(s) {
		m, ok := p.findFrom(s, pos)
		if !ok {
			break
		}
		out = append(out, m)
		if m.End > pos {
			pos = m.End
		} else {
			pos = nextRune(s, pos)
		}
	}
	return out
}

// Strip removes every match of p from s and collapses the remaining
// whitespace.
func (p *Pattern) Strip(s string) string {
	ms := p.FindAll(s)
	if len(ms) == 0 {
		return s
	}
	var b strings.Builder
	last := 0
	for _, m := range ms {
		b.WriteString(s[last:m.Start])
		b.WriteByte(' ')
		last = m.End
	}
	b.WriteString(s[last:])
	return CollapseSpace(b.String())
}

// CollapseSpace trims s and replaces whitespace runs with a single space.
func CollapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func (p *Pattern) findFrom(s string, pos int) (Match, bool) {
	for pos <= len(s) {
		loc := p.re.FindStringSubmatchIndex(s[pos:])
		if loc == nil {
			return Match{}, false
		}
		start, end := pos+loc[0], pos+loc[1]
		if end > start && bounded(s, start, end) {
			groups := make([]string, len(loc)/2)
			for i := range groups {
				a, b := loc[2*i], loc[2*i+1]
				if a >= 0 && b >= 0 {
					groups[i] = s[pos+a : pos+b]
				}
			}
			return Match{Start: start, End: end, Groups: groups}, true
		}
		// Rejected candidate: retry one rune further so an overlapping
		// bounded match is not hidden behind it.
		pos = nextRune(s, start)
		if pos > len(s) {
			break
		}
	}
	return Match{}, false
}

func bounded(s string, start, end int) bool {
	if start > 0 {
		r, _ := utf8.DecodeLastRuneInString(s[:start])
		first, _ := utf8.DecodeRuneInString(s[start:])
		if isWord(r) && isWord(first) {
			return false
		}
	}
	if end < len(s) {
		r, _ := utf8.DecodeRuneInString(s[end:])
		last, _ := utf8.DecodeLastRuneInString(s[:end])
		if isWord(r) && isWord(last) {
			return false
		}
	}
	return true
}

func isWord(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

func nextRune(s string, i int) int {
	if i >= len(s) {
		return len(s) + 1
	}
	_, size := utf8.DecodeRuneInString(s[i:])
	return i + size
}

// internal/assistant/synthesize-response/truncate.go
package synthesizeresponse

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Truncate shortens s to at most max runes. It prefers the last sentence end,
// then the last clause separator, then the last space, appending an ellipsis
// in the latter two cases.
func Truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= max {
		return s
	}

	r := []rune(s)
	if cut, ok := sentenceCut(r, max); ok {
		return cut
	}

	limit := max - utf8.RuneCountInString(ellipsis)
	if limit <= 0 {
		return string(r[:max])
	}
	if cut, ok := clauseCut(r, limit); ok {
		return cut + ellipsis
	}
	if cut, ok := spaceCut(r, limit); ok {
		return cut + ellipsis
	}
	// a single word longer than the budget
	return string(r[:limit]) + ellipsis
}

func sentenceCut(r []rune, max int) (string, bool) {
	for i := max - 1; i > 0; i-- {
		switch r[i] {
		case '\n':
			if out := trimRight(r[:i]); out != "" {
				return out, true
			}
		case '.', '!', '?':
			if followedBySpace(r, i) {
				if out := trimRight(r[:i+1]); out != "" {
					return out, true
				}
			}
		}
	}
	return "", false
}

func clauseCut(r []rune, limit int) (string, bool) {
	for i := limit; i > 0; i-- {
		switch r[i] {
		case ',', ';', ':':
			if followedBySpace(r, i) {
				if out := trimClause(r[:i]); out != "" {
					return out, true
				}
			}
		}
	}
	return "", false
}

func spaceCut(r []rune, limit int) (string, bool) {
	for i := limit; i > 0; i-- {
		if unicode.IsSpace(r[i]) {
			if out := trimClause(r[:i]); out != "" {
				return out, true
			}
		}
	}
	return "", false
}

// followedBySpace reports whether r[i] ends a token, so "3.5" or "12:30" are
// never split.
func followedBySpace(r []rune, i int) bool {
	return i+1 >= len(r) || unicode.IsSpace(r[i+1])
}

func trimRight(r []rune) string {
	return strings.TrimRightFunc(string(r), unicode.IsSpace)
}

func trimClause(r []rune) string {
	return strings.TrimRightFunc(string(r), func(c rune) bool {
		return unicode.IsSpace(c) || c == ',' || c == ';' || c == ':'
	})
}

package search

import (
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// ignorable reports whether r may be skipped in a haystack without breaking a
// match. The set covers whitespace plus the punctuation commonly embedded in
// dialect names and transcribed answers.
func ignorable(r rune) bool {
	switch r {
	case '-', '\'', '.', ',', '(', ')':
		return true
	}
	return unicode.IsSpace(r)
}

// foldRune lowercases r and strips its combining marks, so that e.g. 'É'
// compares equal to 'e'.
func foldRune(r rune) rune {
	if r < 128 {
		if r >= 'A' && r <= 'Z' {
			return r + ('a' - 'A')
		}
		return r
	}
	for _, d := range norm.NFD.String(string(r)) {
		if !unicode.Is(unicode.Mn, d) {
			return unicode.ToLower(d)
		}
	}
	return unicode.ToLower(r)
}

// foldRunes folds every rune of s, preserving positions
func foldRunes(s []rune) []rune {
	out := make([]rune, len(s))
	for i, r := range s {
		out[i] = foldRune(r)
	}
	return out
}

// foldNeedle folds s and strips ignorable runes entirely, producing the
// canonical form a query word is matched in.
func foldNeedle(s string) []rune {
	var out []rune
	for _, r := range s {
		if ignorable(r) {
			continue
		}
		out = append(out, foldRune(r))
	}
	return out
}

// EqualFolded reports whether a and b are equal after case and diacritic
// folding with ignorable punctuation stripped. Used for exact-token filters.
func EqualFolded(a, b string) bool {
	fa, fb := foldNeedle(a), foldNeedle(b)
	if len(fa) != len(fb) {
		return false
	}
	for i := range fa {
		if fa[i] != fb[i] {
			return false
		}
	}
	return len(fa) > 0
}

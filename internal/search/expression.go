// Package search evaluates boolean fuzzy queries against single text fields,
// returning the matched rune ranges used for highlighting.
package search

import "strings"

// phraseWindow is how far (in runes) past the end of a phrase chain the next
// word of the phrase may start.
const phraseWindow = 3

// Span is a half-open matched range in rune offsets
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

type unitKind int

const (
	unitWord unitKind = iota
	unitAnd
	unitPhrase
)

type unit struct {
	kind   unitKind
	word   []rune   // folded needle (unitWord)
	phrase [][]rune // folded needle per phrase word (unitPhrase)
}

// Expression is one compiled search query, stateless per Search call and
// reusable across haystacks.
type Expression struct {
	units []unit
}

// Compile parses a query string into an Expression.
//
// Tokens are split on spaces. Bare words are fuzzy alternatives; '&' joins
// words into a conjunction whose group is rejected wholesale if any member
// fails; double quotes delimit phrases whose words must follow each other
// within a small window.
func Compile(query string) *Expression {
	e := &Expression{}
	var phrase [][]rune
	inPhrase := false

	appendWords := func(tok string, conjoin bool) {
		parts := strings.Split(tok, "&")
		first := true
		for _, p := range parts {
			needle := foldNeedle(p)
			if len(needle) == 0 {
				continue
			}
			if !first || conjoin {
				e.units = append(e.units, unit{kind: unitAnd})
			}
			e.units = append(e.units, unit{kind: unitWord, word: needle})
			first = false
		}
	}

	for _, tok := range strings.Fields(query) {
		if tok == "&" {
			if !inPhrase {
				e.units = append(e.units, unit{kind: unitAnd})
			}
			continue
		}
		if !inPhrase && strings.HasPrefix(tok, `"`) {
			inPhrase = true
			phrase = nil
			tok = strings.TrimPrefix(tok, `"`)
		}
		if inPhrase {
			closing := strings.HasSuffix(tok, `"`)
			if closing {
				tok = strings.TrimSuffix(tok, `"`)
			}
			if needle := foldNeedle(tok); len(needle) > 0 {
				phrase = append(phrase, needle)
			}
			if closing {
				inPhrase = false
				if len(phrase) > 0 {
					e.units = append(e.units, unit{kind: unitPhrase, phrase: phrase})
				}
				phrase = nil
			}
			continue
		}
		appendWords(tok, false)
	}

	// Unterminated phrase: treat the collected words as a phrase anyway
	if inPhrase && len(phrase) > 0 {
		e.units = append(e.units, unit{kind: unitPhrase, phrase: phrase})
	}

	return e
}

// Empty reports whether the expression has no searchable units
func (e *Expression) Empty() bool { return len(e.units) == 0 }

// Search evaluates the expression against haystack and returns every matched
// range. Ranges may overlap or be adjacent; callers merge with MergeMatches.
func (e *Expression) Search(haystack string) []Span {
	if e.Empty() || haystack == "" {
		return nil
	}
	hay := []rune(haystack)
	folded := foldRunes(hay)

	var result []Span
	var group []Span
	groupOK := true
	pendingAnd := false

	flush := func() {
		if groupOK {
			result = append(result, group...)
		}
		group = nil
		groupOK = true
	}

	for _, u := range e.units {
		if u.kind == unitAnd {
			pendingAnd = true
			continue
		}

		// A non-AND unit commits the previous group before starting its own
		if !pendingAnd {
			flush()
		}
		pendingAnd = false
		if !groupOK {
			continue
		}

		var spans []Span
		switch u.kind {
		case unitWord:
			spans = fuzzyWord(hay, folded, u.word)
		case unitPhrase:
			spans = phraseSearch(hay, folded, u.phrase)
		}

		if len(spans) == 0 {
			groupOK = false
			group = nil
			continue
		}
		group = append(group, spans...)
	}
	flush()

	return result
}

// fuzzyWord finds every occurrence of needle in the folded haystack.
// Ignorable runes in the haystack are skipped without breaking a match; a
// mismatch restarts the attempt one rune past the failed start; every full
// needle consumption emits one span and the scan resumes right after it.
func fuzzyWord(hay, folded, needle []rune) []Span {
	if len(needle) == 0 {
		return nil
	}
	var spans []Span
	start := 0
	for start < len(hay) {
		i, ni := start, 0
		matchStart := -1
		for i < len(hay) && ni < len(needle) {
			if folded[i] == needle[ni] {
				if ni == 0 {
					matchStart = i
				}
				i++
				ni++
				continue
			}
			if ni > 0 && ignorable(hay[i]) {
				i++
				continue
			}
			break
		}
		if ni == len(needle) {
			spans = append(spans, Span{Start: matchStart, End: i})
			start = i
		} else {
			start++
		}
	}
	return spans
}

// chain is one candidate phrase continuation
type chain struct {
	spans []Span
	end   int
}

// phraseSearch matches a quoted phrase. The first word seeds candidate
// chains; each following word must match starting within phraseWindow runes
// of the chain's last match or the chain is dropped. All surviving chains'
// ranges are flattened into the result.
func phraseSearch(hay, folded []rune, words [][]rune) []Span {
	first := fuzzyWord(hay, folded, words[0])
	if len(first) == 0 {
		return nil
	}
	chains := make([]chain, 0, len(first))
	for _, m := range first {
		chains = append(chains, chain{spans: []Span{m}, end: m.End})
	}

	for _, w := range words[1:] {
		matches := fuzzyWord(hay, folded, w)
		var next []chain
		for _, c := range chains {
			for _, m := range matches {
				if m.Start >= c.end && m.Start <= c.end+phraseWindow {
					spans := append(append([]Span(nil), c.spans...), m)
					next = append(next, chain{spans: spans, end: m.End})
				}
			}
		}
		chains = next
		if len(chains) == 0 {
			return nil
		}
	}

	var spans []Span
	for _, c := range chains {
		spans = append(spans, c.spans...)
	}
	return spans
}

// CoversAll reports whether the spans cover every non-ignorable rune of
// haystack, i.e. the entire field is one matched region.
func CoversAll(haystack string, spans []Span) bool {
	hay := []rune(haystack)
	covered := make([]bool, len(hay))
	for _, s := range spans {
		for i := s.Start; i < s.End && i < len(hay); i++ {
			covered[i] = true
		}
	}
	any := false
	for i, r := range hay {
		if ignorable(r) {
			continue
		}
		if !covered[i] {
			return false
		}
		any = true
	}
	return any
}

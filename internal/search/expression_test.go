package search

import (
	"reflect"
	"testing"
)

func TestSearch_SingleWord(t *testing.T) {
	expr := Compile("appel")
	spans := expr.Search("ik zoek een appel")

	want := []Span{{Start: 12, End: 17}}
	if !reflect.DeepEqual(spans, want) {
		t.Errorf("expected %v, got %v", want, spans)
	}
}

func TestSearch_BareWordsAreAlternatives(t *testing.T) {
	expr := Compile("appel of banaan")
	spans := expr.Search("alleen appel is goed")

	want := []Span{{Start: 7, End: 12}}
	if !reflect.DeepEqual(spans, want) {
		t.Errorf("expected only the appel span %v, got %v", want, spans)
	}
}

func TestSearch_AmpersandConjunction(t *testing.T) {
	expr := Compile("appel&banaan")
	spans := expr.Search("een appel en banaan is wel goed")

	want := []Span{{Start: 4, End: 9}, {Start: 13, End: 19}}
	if !reflect.DeepEqual(spans, want) {
		t.Errorf("expected %v, got %v", want, spans)
	}
}

func TestSearch_ConjunctionRejectsGroup(t *testing.T) {
	expr := Compile("appel&kers")
	spans := expr.Search("een appel en banaan")

	if len(spans) != 0 {
		t.Errorf("expected no spans for failed conjunction, got %v", spans)
	}
}

func TestSearch_ConjunctionFailureKeepsOtherGroups(t *testing.T) {
	expr := Compile("banaan appel&kers")
	spans := expr.Search("een appel en banaan")

	// The standalone word commits its own group; only the AND-group is lost
	want := []Span{{Start: 13, End: 19}}
	if !reflect.DeepEqual(spans, want) {
		t.Errorf("expected %v, got %v", want, spans)
	}
}

func TestSearch_Phrase(t *testing.T) {
	expr := Compile(`"zoek een"`)
	spans := expr.Search("ik zoek een appel")

	want := []Span{{Start: 3, End: 7}, {Start: 8, End: 11}}
	if !reflect.DeepEqual(spans, want) {
		t.Errorf("expected %v, got %v", want, spans)
	}
}

func TestSearch_PhraseChainWindow(t *testing.T) {
	// "appel" starts 5 runes after the end of "zoek", outside the window
	expr := Compile(`"zoek appel"`)
	spans := expr.Search("ik zoek een appel")

	if len(spans) != 0 {
		t.Errorf("expected phrase to fail outside window, got %v", spans)
	}
}

func TestSearch_PhraseFailureRejectsConjunction(t *testing.T) {
	expr := Compile(`appel&"zoek appel"`)
	spans := expr.Search("ik zoek een appel")

	if len(spans) != 0 {
		t.Errorf("expected failed phrase to reject the whole group, got %v", spans)
	}
}

func TestSearch_DiacriticFolding(t *testing.T) {
	expr := Compile("hé")
	spans := expr.Search("he zei ze")

	if len(spans) == 0 {
		t.Fatal("expected accented needle to match unaccented haystack")
	}
	if spans[0].Start != 0 || spans[0].End != 2 {
		t.Errorf("expected span (0,2), got %v", spans[0])
	}
}

func TestSearch_IgnorableCharactersSkipped(t *testing.T) {
	expr := Compile("zuidbrabants")
	spans := expr.Search("Zuid-Brabants")

	want := []Span{{Start: 0, End: 13}}
	if !reflect.DeepEqual(spans, want) {
		t.Errorf("expected %v, got %v", want, spans)
	}
	if !CoversAll("Zuid-Brabants", spans) {
		t.Error("expected full coverage ignoring punctuation")
	}
}

func TestSearch_RepeatedOccurrences(t *testing.T) {
	expr := Compile("an")
	spans := expr.Search("banaan ananas")

	want := []Span{{Start: 1, End: 3}, {Start: 4, End: 6}, {Start: 7, End: 9}, {Start: 9, End: 11}}
	if !reflect.DeepEqual(spans, want) {
		t.Errorf("expected %v, got %v", want, spans)
	}
}

func TestSearch_EmptyInputs(t *testing.T) {
	if spans := Compile("").Search("iets"); len(spans) != 0 {
		t.Errorf("empty query should match nothing, got %v", spans)
	}
	if spans := Compile("iets").Search(""); len(spans) != 0 {
		t.Errorf("empty haystack should match nothing, got %v", spans)
	}
}

func TestEqualFolded(t *testing.T) {
	cases := []struct {
		a, b string
		want bool
	}{
		{"Zuid-Brabants", "zuid-brabants", true},
		{"Zuid-Brabants", "ZuidBrabants", true},
		{"hé", "he", true},
		{"appel", "appels", false},
		{"", "", false},
	}
	for _, c := range cases {
		if got := EqualFolded(c.a, c.b); got != c.want {
			t.Errorf("EqualFolded(%q, %q) = %v, want %v", c.a, c.b, got, c.want)
		}
	}
}

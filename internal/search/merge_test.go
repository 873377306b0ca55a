package search

import (
	"reflect"
	"testing"
)

func TestMergeMatches(t *testing.T) {
	cases := []struct {
		name string
		in   []Span
		want []Span
	}{
		{"empty", nil, nil},
		{"single", []Span{{0, 3}}, []Span{{0, 3}}},
		{"overlapping", []Span{{0, 5}, {3, 8}}, []Span{{0, 8}}},
		{"adjacent", []Span{{0, 2}, {2, 4}}, []Span{{0, 4}}},
		{"disjoint", []Span{{5, 8}, {0, 2}}, []Span{{0, 2}, {5, 8}}},
		{"contained", []Span{{0, 10}, {2, 4}}, []Span{{0, 10}}},
		{"unsorted mixed", []Span{{7, 9}, {0, 3}, {2, 5}, {9, 12}}, []Span{{0, 5}, {7, 12}}},
	}

	for _, c := range cases {
		got := MergeMatches(c.in)
		if !reflect.DeepEqual(got, c.want) {
			t.Errorf("%s: expected %v, got %v", c.name, c.want, got)
		}
	}
}

func TestMergeMatches_CoverageUnion(t *testing.T) {
	in := []Span{{3, 6}, {0, 2}, {5, 9}, {1, 3}}
	merged := MergeMatches(in)

	// The merged output must cover exactly the union of the inputs
	union := make(map[int]bool)
	for _, s := range in {
		for i := s.Start; i < s.End; i++ {
			union[i] = true
		}
	}
	covered := make(map[int]bool)
	for k, s := range merged {
		if k > 0 && merged[k-1].End >= s.Start {
			t.Errorf("spans %v and %v overlap or touch", merged[k-1], s)
		}
		for i := s.Start; i < s.End; i++ {
			covered[i] = true
		}
	}
	if !reflect.DeepEqual(union, covered) {
		t.Errorf("coverage mismatch: union %v, covered %v", union, covered)
	}
}

func TestMergeMatches_DoesNotMutateInput(t *testing.T) {
	in := []Span{{5, 8}, {0, 2}}
	MergeMatches(in)
	if in[0].Start != 5 || in[1].Start != 0 {
		t.Error("input slice was reordered")
	}
}

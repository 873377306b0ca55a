package model

import (
	"reflect"
	"testing"
)

func sampleMatchedItem() *MatchedItem {
	return &MatchedItem{
		ID:   "q7",
		Kind: ItemKindQuestion,
		Prompt: MatchedParts{
			Parts: []MatchedFragment{
				{Text: "ik zoek een "},
				{Text: "appel", Match: true},
			},
			Match: true,
		},
		Tags: []MatchedParts{
			{Parts: []MatchedFragment{{Text: "fruit", Match: true}}, Match: true, FullMatch: true},
		},
		Answers: []MatchedAnswer{
			{
				Text:        MatchedParts{Parts: []MatchedFragment{{Text: "appel", Match: true}}, Match: true, FullMatch: true},
				Participant: MatchedParts{Parts: []MatchedFragment{{Text: "p1"}}},
				Match:       true,
			},
		},
		MatchedSubItems:     1,
		MatchedDialects:     []string{"Antwerps"},
		MatchedParticipants: []string{"p1"},
		TotalDialects:       3,
	}
}

func TestMatchedItem_WireRoundTrip(t *testing.T) {
	original := sampleMatchedItem()

	data, err := original.Wire()
	if err != nil {
		t.Fatalf("wire: %v", err)
	}
	restored, err := MatchedItemFromWire(data)
	if err != nil {
		t.Fatalf("restore: %v", err)
	}

	if !reflect.DeepEqual(original, restored) {
		t.Errorf("round trip changed the value:\noriginal: %+v\nrestored: %+v", original, restored)
	}
}

func TestMatchedParts_TextReconstruction(t *testing.T) {
	original := sampleMatchedItem()

	if got := original.Prompt.Text(); got != "ik zoek een appel" {
		t.Errorf("expected reconstructed prompt, got %q", got)
	}

	data, err := original.Wire()
	if err != nil {
		t.Fatalf("wire: %v", err)
	}
	restored, err := MatchedItemFromWire(data)
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if got := restored.Prompt.Text(); got != "ik zoek een appel" {
		t.Errorf("derived getter must survive the round trip, got %q", got)
	}
}

func TestMatchedItemFromWire_Garbage(t *testing.T) {
	if _, err := MatchedItemFromWire([]byte("{not json")); err == nil {
		t.Error("expected an error for malformed wire data")
	}
}

func TestFilterSet_Normalized(t *testing.T) {
	s := FilterSet{}.Normalized()
	if len(s.Filters) != 1 || s.Filters[0].Field != FieldWildcard {
		t.Errorf("expected a default wildcard filter, got %+v", s.Filters)
	}
	if s.Operator != OperatorOr {
		t.Errorf("expected operator to default to or, got %q", s.Operator)
	}

	ordered := FilterSet{
		Filters: []Filter{
			{Field: FieldAnswer, Index: 2},
			{Field: FieldQuestion, Index: 0},
		},
		Operator: OperatorAnd,
	}.Normalized()
	if ordered.Filters[0].Index != 0 || ordered.Filters[1].Index != 2 {
		t.Errorf("expected filters ordered by index, got %+v", ordered.Filters)
	}
}

func TestFilter_Empty(t *testing.T) {
	if !(Filter{Content: []string{"", "  "}}).Empty() {
		t.Error("whitespace-only content should be empty")
	}
	if (Filter{Content: []string{"appel"}}).Empty() {
		t.Error("real content should not be empty")
	}
	if !DefaultFilter(0).Empty() {
		t.Error("the default filter must be empty")
	}
}

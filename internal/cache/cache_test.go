package cache

import (
	"strings"
	"testing"

	"github.com/taalatlas/dialectsearch/internal/model"
)

func TestFingerprint_Stable(t *testing.T) {
	set := model.FilterSet{
		Filters:  []model.Filter{{Field: model.FieldAnswer, Content: []string{"appel"}, Index: 0}},
		Operator: model.OperatorOr,
	}

	a, err := Fingerprint(1, set)
	if err != nil {
		t.Fatalf("fingerprint: %v", err)
	}
	b, err := Fingerprint(1, set)
	if err != nil {
		t.Fatalf("fingerprint: %v", err)
	}
	if a != b {
		t.Errorf("same inputs must fingerprint identically: %s vs %s", a, b)
	}
	if !strings.HasPrefix(a, "dialectsearch:v1:") {
		t.Errorf("unexpected fingerprint shape: %s", a)
	}
}

func TestFingerprint_GenerationSeparates(t *testing.T) {
	set := model.FilterSet{
		Filters:  []model.Filter{{Field: model.FieldAnswer, Content: []string{"appel"}, Index: 0}},
		Operator: model.OperatorOr,
	}
	a, _ := Fingerprint(1, set)
	b, _ := Fingerprint(2, set)
	if a == b {
		t.Error("different generations must not share a fingerprint")
	}
}

func TestFingerprint_FilterOrderCanonical(t *testing.T) {
	fa := model.Filter{Field: model.FieldAnswer, Content: []string{"appel"}, Index: 0}
	fb := model.Filter{Field: model.FieldQuestion, Content: []string{"fruit"}, Index: 1}

	a, _ := Fingerprint(1, model.FilterSet{Filters: []model.Filter{fa, fb}, Operator: model.OperatorAnd})
	b, _ := Fingerprint(1, model.FilterSet{Filters: []model.Filter{fb, fa}, Operator: model.OperatorAnd})
	if a != b {
		t.Error("filter order must not influence the fingerprint")
	}
}

func TestFingerprint_ContentChanges(t *testing.T) {
	a, _ := Fingerprint(1, model.FilterSet{
		Filters:  []model.Filter{{Field: model.FieldAnswer, Content: []string{"appel"}, Index: 0}},
		Operator: model.OperatorOr,
	})
	b, _ := Fingerprint(1, model.FilterSet{
		Filters:  []model.Filter{{Field: model.FieldAnswer, Content: []string{"banaan"}, Index: 0}},
		Operator: model.OperatorOr,
	})
	if a == b {
		t.Error("different filter content must not share a fingerprint")
	}
}

func TestFingerprint_EmptyEqualsDefault(t *testing.T) {
	a, _ := Fingerprint(1, model.FilterSet{})
	b, _ := Fingerprint(1, model.FilterSet{
		Filters:  []model.Filter{model.DefaultFilter(0)},
		Operator: model.OperatorOr,
	})
	if a != b {
		t.Error("an empty set and the explicit default must fingerprint identically")
	}
}

func TestRegistry_PutGetDelete(t *testing.T) {
	r := NewRegistry()

	if _, ok := r.Get("missing"); ok {
		t.Error("expected a miss on an empty registry")
	}

	r.Put("fp1", "value")
	v, ok := r.Get("fp1")
	if !ok || v.(string) != "value" {
		t.Errorf("expected a hit with the stored value, got %v %v", v, ok)
	}
	if r.Len() != 1 {
		t.Errorf("expected 1 entry, got %d", r.Len())
	}

	r.Delete("fp1")
	if _, ok := r.Get("fp1"); ok {
		t.Error("expected a miss after delete")
	}
}

func TestRegistry_Flush(t *testing.T) {
	r := NewRegistry()
	r.Put("a", 1)
	r.Put("b", 2)
	r.Flush()
	if r.Len() != 0 {
		t.Errorf("expected an empty registry after flush, got %d entries", r.Len())
	}
}

package model

import "strings"

// Operator combines the filters of a FilterSet
type Operator string

const (
	OperatorAnd Operator = "and" // every filter must match
	OperatorOr  Operator = "or"  // any filter may match
)

// FieldID identifies one searchable field of an item or sub-item
type FieldID string

const (
	FieldWildcard     FieldID = "*"             // Matches against every field
	FieldQuestion     FieldID = "question"      // Question prompt text
	FieldChapter      FieldID = "chapter"       // Question chapter label
	FieldTags         FieldID = "tags"          // Question topic tags
	FieldAnswer       FieldID = "answer"        // Answer text
	FieldParticipant  FieldID = "participant"   // Participant identifier
	FieldDialect      FieldID = "dialect"       // Dialect classification entries
	FieldScore        FieldID = "score"         // Likert score
	FieldMainQuestion FieldID = "main_question" // Judgment main question text
	FieldSubQuestion  FieldID = "sub_question"  // Judgment sub-question text
)

// knownFields is the closed set of valid filter targets
var knownFields = map[FieldID]bool{
	FieldWildcard:     true,
	FieldQuestion:     true,
	FieldChapter:      true,
	FieldTags:         true,
	FieldAnswer:       true,
	FieldParticipant:  true,
	FieldDialect:      true,
	FieldScore:        true,
	FieldMainQuestion: true,
	FieldSubQuestion:  true,
}

// Known reports whether f targets a recognized field. A filter referencing an
// unknown field never matches but is not a hard failure, so stale filter
// state survives dataset reloads.
func (f FieldID) Known() bool { return knownFields[f] }

// Filter is one field/value constraint contributed by the user.
// Content values are alternatives (OR within the filter).
type Filter struct {
	Field         FieldID  `json:"field"`           // Target field, or wildcard
	Content       []string `json:"content"`         // Alternative values
	OnlyFullMatch bool     `json:"only_full_match"` // Exact-token matching instead of fuzzy
	Index         int      `json:"index"`           // Stable position for update-by-position and AND identity
}

// Empty reports whether the filter carries no usable content.
// An empty filter matches everything and never counts as a highlight hit.
func (f Filter) Empty() bool {
	for _, c := range f.Content {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// DefaultFilter returns the wildcard filter that stands in when the user
// removes the last real filter.
func DefaultFilter(index int) Filter {
	return Filter{Field: FieldWildcard, Content: nil, Index: index}
}

// FilterSet is the ordered list of active filters plus the combining operator
type FilterSet struct {
	Filters  []Filter `json:"filters"`
	Operator Operator `json:"operator"`
}

// Normalized returns a copy that upholds the filter-set invariants: at least
// one filter exists, filters are ordered by index, and the operator defaults
// to OR when unset.
func (s FilterSet) Normalized() FilterSet {
	out := FilterSet{Operator: s.Operator}
	if out.Operator != OperatorAnd && out.Operator != OperatorOr {
		out.Operator = OperatorOr
	}
	out.Filters = append([]Filter(nil), s.Filters...)
	if len(out.Filters) == 0 {
		out.Filters = []Filter{DefaultFilter(0)}
	}
	for i := 1; i < len(out.Filters); i++ {
		for j := i; j > 0 && out.Filters[j].Index < out.Filters[j-1].Index; j-- {
			out.Filters[j], out.Filters[j-1] = out.Filters[j-1], out.Filters[j]
		}
	}
	return out
}

// AllEmpty reports whether every filter in the set is empty, in which case
// every item matches vacuously.
func (s FilterSet) AllEmpty() bool {
	for _, f := range s.Filters {
		if !f.Empty() {
			return false
		}
	}
	return true
}

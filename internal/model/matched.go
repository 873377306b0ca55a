package model

import (
	"encoding/json"
	"fmt"
	"strings"
)

// MatchedFragment is one run of text that either matched or did not
type MatchedFragment struct {
	Text  string `json:"text"`
	Match bool   `json:"match"`
}

// MatchedParts is one text field broken into matched/unmatched fragments for
// highlighting. Concatenating the fragments reconstructs the original text.
type MatchedParts struct {
	Parts        []MatchedFragment `json:"parts,omitempty"`
	Empty        bool              `json:"empty"`         // Field had no text
	Match        bool              `json:"match"`         // Any highlighted span
	FullMatch    bool              `json:"full_match"`    // The entire field is matched, ignoring ignorable punctuation
	EmptyFilters bool              `json:"empty_filters"` // Match is vacuous: no real filter applied
}

// Text reconstructs the original field text from the fragments
func (p MatchedParts) Text() string {
	var b strings.Builder
	for _, f := range p.Parts {
		b.WriteString(f.Text)
	}
	return b.String()
}

// MatchedAnswer mirrors Answer with highlight fragments per field
type MatchedAnswer struct {
	Text        MatchedParts   `json:"text"`
	Participant MatchedParts   `json:"participant"`
	Dialects    []MatchedParts `json:"dialects,omitempty"`
	Match       bool           `json:"match"`
}

// MatchedResponse mirrors LikertResponse with highlight fragments per field
type MatchedResponse struct {
	Score       MatchedParts   `json:"score"`
	Participant MatchedParts   `json:"participant"`
	Dialects    []MatchedParts `json:"dialects,omitempty"`
	Match       bool           `json:"match"`
}

// MatchedItem is the result of matching one item: the item shape mirrored
// field-for-field with MatchedParts, plus derived aggregates. It is created
// fresh per evaluation and never mutated after construction.
type MatchedItem struct {
	ID   string   `json:"id"`
	Kind ItemKind `json:"kind"`

	// Question shape
	Prompt  MatchedParts    `json:"prompt,omitempty"`
	Chapter MatchedParts    `json:"chapter,omitempty"`
	Tags    []MatchedParts  `json:"tags,omitempty"`
	Answers []MatchedAnswer `json:"answers,omitempty"`

	// Judgment shape
	MainQuestion MatchedParts      `json:"main_question,omitempty"`
	SubQuestion  MatchedParts      `json:"sub_question,omitempty"`
	Responses    []MatchedResponse `json:"responses,omitempty"`

	// Aggregates
	MatchedSubItems     int      `json:"matched_sub_items"`
	MatchedDialects     []string `json:"matched_dialects,omitempty"`     // Sorted lexicographically
	MatchedParticipants []string `json:"matched_participants,omitempty"` // Sorted lexicographically
	TotalDialects       int      `json:"total_dialects"`                 // Distinct dialects seen on the item
}

// Wire serializes the matched item for transport across a scheduler boundary
func (m *MatchedItem) Wire() ([]byte, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("marshal matched item: %w", err)
	}
	return data, nil
}

// MatchedItemFromWire restores a matched item from its wire form. The result
// is structurally equal to the value that was serialized; derived getters
// such as MatchedParts.Text remain re-derivable.
func MatchedItemFromWire(data []byte) (*MatchedItem, error) {
	var m MatchedItem
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("unmarshal matched item: %w", err)
	}
	return &m, nil
}

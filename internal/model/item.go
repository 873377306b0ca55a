package model

// ItemKind discriminates the two record types in a dataset
type ItemKind string

const (
	ItemKindQuestion ItemKind = "question" // translated question with answers
	ItemKindJudgment ItemKind = "judgment" // Likert-style acceptability judgment
)

// Item is one searchable record. Items are immutable once loaded and are
// replaced wholesale on dataset reload, never mutated in place.
type Item interface {
	Key() string
	Kind() ItemKind
}

// Question represents a translated question with its collected answers
type Question struct {
	ID      string   `json:"id"`                // Stable string key
	Prompt  string   `json:"prompt"`            // The question text itself
	Chapter string   `json:"chapter,omitempty"` // Chapter / section label
	Tags    []string `json:"tags,omitempty"`    // Hierarchical topic tags
	Answers []Answer `json:"answers"`           // Collected answers
}

// Key returns the stable identifier of the question
func (q *Question) Key() string { return q.ID }

// Kind returns ItemKindQuestion
func (q *Question) Kind() ItemKind { return ItemKindQuestion }

// Answer is one collected answer belonging to exactly one Question
type Answer struct {
	Text          string   `json:"text"`               // Answer text in the participant's dialect
	ParticipantID string   `json:"participant_id"`     // Participant identifier
	Dialects      []string `json:"dialects,omitempty"` // Dialect classification path entries
}

// Judgment represents a Likert-style acceptability judgment record
type Judgment struct {
	ID           string           `json:"id"`                     // Stable string key
	MainQuestion string           `json:"main_question"`          // Main question text
	SubQuestion  string           `json:"sub_question,omitempty"` // Optional sub-question text
	Responses    []LikertResponse `json:"responses"`              // Collected responses
}

// Key returns the stable identifier of the judgment
func (j *Judgment) Key() string { return j.ID }

// Kind returns ItemKindJudgment
func (j *Judgment) Kind() ItemKind { return ItemKindJudgment }

// LikertResponse is one Likert-scale response belonging to exactly one Judgment
type LikertResponse struct {
	Score         int      `json:"score"`              // Likert score (1-5)
	ParticipantID string   `json:"participant_id"`     // Participant identifier
	Dialects      []string `json:"dialects,omitempty"` // Dialect classification path entries
}

// Dataset is one loaded collection of items. The generation counter
// distinguishes reloads so caches never rely on reference identity.
type Dataset struct {
	Generation uint64 `json:"generation"`
	Items      []Item `json:"-"`
}

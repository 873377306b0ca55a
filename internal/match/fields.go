package match

import (
	"strconv"

	"github.com/taalatlas/dialectsearch/internal/model"
)

// Field accessor tables. Each item kind exposes a closed set of scalar text
// fields; dispatch over them is resolved through these tables rather than
// stringly-typed property lookups.

type questionScalar struct {
	field model.FieldID
	get   func(*model.Question) string
	set   func(*model.MatchedItem, model.MatchedParts)
}

var questionScalars = []questionScalar{
	{
		field: model.FieldQuestion,
		get:   func(q *model.Question) string { return q.Prompt },
		set:   func(m *model.MatchedItem, p model.MatchedParts) { m.Prompt = p },
	},
	{
		field: model.FieldChapter,
		get:   func(q *model.Question) string { return q.Chapter },
		set:   func(m *model.MatchedItem, p model.MatchedParts) { m.Chapter = p },
	},
}

type judgmentScalar struct {
	field model.FieldID
	get   func(*model.Judgment) string
	set   func(*model.MatchedItem, model.MatchedParts)
}

var judgmentScalars = []judgmentScalar{
	{
		field: model.FieldMainQuestion,
		get:   func(j *model.Judgment) string { return j.MainQuestion },
		set:   func(m *model.MatchedItem, p model.MatchedParts) { m.MainQuestion = p },
	},
	{
		field: model.FieldSubQuestion,
		get:   func(j *model.Judgment) string { return j.SubQuestion },
		set:   func(m *model.MatchedItem, p model.MatchedParts) { m.SubQuestion = p },
	},
}

type answerScalar struct {
	field model.FieldID
	get   func(*model.Answer) string
	set   func(*model.MatchedAnswer, model.MatchedParts)
}

var answerScalars = []answerScalar{
	{
		field: model.FieldAnswer,
		get:   func(a *model.Answer) string { return a.Text },
		set:   func(m *model.MatchedAnswer, p model.MatchedParts) { m.Text = p },
	},
	{
		field: model.FieldParticipant,
		get:   func(a *model.Answer) string { return a.ParticipantID },
		set:   func(m *model.MatchedAnswer, p model.MatchedParts) { m.Participant = p },
	},
}

type responseScalar struct {
	field model.FieldID
	get   func(*model.LikertResponse) string
	set   func(*model.MatchedResponse, model.MatchedParts)
}

var responseScalars = []responseScalar{
	{
		field: model.FieldScore,
		get:   func(r *model.LikertResponse) string { return strconv.Itoa(r.Score) },
		set:   func(m *model.MatchedResponse, p model.MatchedParts) { m.Score = p },
	},
	{
		field: model.FieldParticipant,
		get:   func(r *model.LikertResponse) string { return r.ParticipantID },
		set:   func(m *model.MatchedResponse, p model.MatchedParts) { m.Participant = p },
	},
}

// Applicable field sets per sub-item kind, used for the AND match rule
var (
	answerFieldSet   = []model.FieldID{model.FieldAnswer, model.FieldParticipant, model.FieldDialect}
	responseFieldSet = []model.FieldID{model.FieldScore, model.FieldParticipant, model.FieldDialect}
)

// applies reports whether a filter targeting filterField runs against field.
// Unknown filter fields never apply, keeping stale filters harmless.
func applies(filterField, field model.FieldID) bool {
	if !filterField.Known() {
		return false
	}
	return filterField == model.FieldWildcard || filterField == field
}

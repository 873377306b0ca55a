// Package match decides whether an item matches the active filter set and
// builds the per-field highlight fragments and aggregates of a MatchedItem.
package match

import (
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/taalatlas/dialectsearch/internal/hierarchy"
	"github.com/taalatlas/dialectsearch/internal/model"
	"github.com/taalatlas/dialectsearch/internal/search"
)

// compiledFilter is one filter with its search expressions pre-compiled
type compiledFilter struct {
	filter   model.Filter
	contents []string             // trimmed non-empty content values
	exprs    []*search.Expression // one per content value, fuzzy filters only
	empty    bool
}

// Evaluator matches items against one fixed filter set. It is stateless per
// ApplyFilters call and safe for concurrent use once constructed.
type Evaluator struct {
	set           model.FilterSet
	filters       []compiledFilter
	hier          *hierarchy.Hierarchy
	allEmpty      bool
	dialectFilter bool // a non-empty filter explicitly targets the dialect field
	log           zerolog.Logger
}

// NewEvaluator compiles the filter set once so per-item evaluation does no
// query parsing.
func NewEvaluator(set model.FilterSet, hier *hierarchy.Hierarchy, log zerolog.Logger) *Evaluator {
	set = set.Normalized()
	if hier == nil {
		hier, _ = hierarchy.Build(hierarchy.Source{}, log)
	}
	e := &Evaluator{
		set:      set,
		hier:     hier,
		allEmpty: set.AllEmpty(),
		log:      log,
	}
	for _, f := range set.Filters {
		cf := compiledFilter{filter: f, empty: f.Empty()}
		if !cf.empty {
			for _, c := range f.Content {
				c = strings.TrimSpace(c)
				if c == "" {
					continue
				}
				cf.contents = append(cf.contents, c)
				if !f.OnlyFullMatch {
					cf.exprs = append(cf.exprs, search.Compile(c))
				}
			}
			if f.Field == model.FieldDialect {
				e.dialectFilter = true
			}
		}
		e.filters = append(e.filters, cf)
	}
	return e
}

// Operator returns the combining operator of the evaluator's filter set
func (e *Evaluator) Operator() model.Operator { return e.set.Operator }

// ApplyFilters evaluates one item against the filter set. It returns nil when
// the item does not match. Calling it twice with identical inputs yields
// structurally equal results.
func (e *Evaluator) ApplyFilters(item model.Item) *model.MatchedItem {
	switch it := item.(type) {
	case *model.Question:
		return e.applyQuestion(it)
	case *model.Judgment:
		return e.applyJudgment(it)
	default:
		e.log.Warn().Str("item", item.Key()).Msg("unknown item kind")
		return nil
	}
}

// fieldResult is the outcome of matching one text value
type fieldResult struct {
	parts model.MatchedParts
	hits  []int // Filter.Index of every non-empty filter that matched
}

// matchText runs every applicable filter against value and assembles the
// highlight fragments.
func (e *Evaluator) matchText(field model.FieldID, value string) fieldResult {
	var spans []search.Span
	var hits []int
	sawEmpty := false
	exact := false

	for i := range e.filters {
		cf := &e.filters[i]
		if !applies(cf.filter.Field, field) {
			continue
		}
		if cf.empty {
			sawEmpty = true
			continue
		}
		if cf.filter.OnlyFullMatch {
			for _, c := range cf.contents {
				if search.EqualFolded(value, c) {
					spans = append(spans, search.Span{Start: 0, End: len([]rune(value))})
					hits = append(hits, cf.filter.Index)
					exact = true
					break
				}
			}
			continue
		}
		matched := false
		for _, expr := range cf.exprs {
			if s := expr.Search(value); len(s) > 0 {
				matched = true
				spans = append(spans, s...)
			}
		}
		if matched {
			hits = append(hits, cf.filter.Index)
		}
	}

	merged := search.MergeMatches(spans)
	parts := buildParts(value, merged)
	parts.Empty = value == ""
	parts.Match = len(merged) > 0
	parts.FullMatch = exact || (parts.Match && search.CoversAll(value, merged))
	parts.EmptyFilters = sawEmpty && !parts.Match
	return fieldResult{parts: parts, hits: hits}
}

// matchDialectEntry matches one entry of a sub-item's dialect list. A dialect
// filter hit is hierarchy-expanded: a filter naming a parent dialect also
// credits its descendants, via the entry's root paths.
func (e *Evaluator) matchDialectEntry(entry string) fieldResult {
	res := e.matchText(model.FieldDialect, entry)
	if res.parts.Match {
		return res
	}

	// No verbatim hit; check for an ancestor hit from explicit dialect filters
	var paths []hierarchy.Path
	for i := range e.filters {
		cf := &e.filters[i]
		if cf.empty || cf.filter.Field != model.FieldDialect {
			continue
		}
		if paths == nil {
			paths = e.hier.PathsOf(entry)
			if len(paths) == 0 {
				return res
			}
		}
		if hierarchy.AnyDialectInPaths(cf.contents, paths) {
			res.hits = append(res.hits, cf.filter.Index)
			res.parts = buildParts(entry, []search.Span{{Start: 0, End: len([]rune(entry))}})
			res.parts.Match = true
			res.parts.FullMatch = true
		}
	}
	return res
}

func (e *Evaluator) applyQuestion(q *model.Question) *model.MatchedItem {
	mi := &model.MatchedItem{ID: q.ID, Kind: model.ItemKindQuestion}
	top := newHitSet()

	for _, fs := range questionScalars {
		res := e.matchText(fs.field, fs.get(q))
		fs.set(mi, res.parts)
		top.add(res.hits...)
	}
	for _, tag := range q.Tags {
		res := e.matchText(model.FieldTags, tag)
		mi.Tags = append(mi.Tags, res.parts)
		top.add(res.hits...)
	}

	all := top.clone()
	subHits := make([]*hitSet, len(q.Answers))
	credits := make([][]string, len(q.Answers))

	for i := range q.Answers {
		ans := &q.Answers[i]
		ma := model.MatchedAnswer{}
		hits := newHitSet()
		for _, fs := range answerScalars {
			res := e.matchText(fs.field, fs.get(ans))
			fs.set(&ma, res.parts)
			hits.add(res.hits...)
		}
		for _, d := range ans.Dialects {
			res := e.matchDialectEntry(d)
			ma.Dialects = append(ma.Dialects, res.parts)
			if len(res.hits) > 0 {
				credits[i] = append(credits[i], d)
			}
			hits.add(res.hits...)
		}
		subHits[i] = hits
		all.merge(hits)
		mi.Answers = append(mi.Answers, ma)
	}

	if !e.accept(mi, top, all, subHits, answerFieldSet) {
		return nil
	}

	e.aggregateQuestion(mi, q, credits)
	return mi
}

func (e *Evaluator) applyJudgment(j *model.Judgment) *model.MatchedItem {
	mi := &model.MatchedItem{ID: j.ID, Kind: model.ItemKindJudgment}
	top := newHitSet()

	for _, fs := range judgmentScalars {
		res := e.matchText(fs.field, fs.get(j))
		fs.set(mi, res.parts)
		top.add(res.hits...)
	}

	all := top.clone()
	subHits := make([]*hitSet, len(j.Responses))
	credits := make([][]string, len(j.Responses))

	for i := range j.Responses {
		resp := &j.Responses[i]
		mr := model.MatchedResponse{}
		hits := newHitSet()
		for _, fs := range responseScalars {
			res := e.matchText(fs.field, fs.get(resp))
			fs.set(&mr, res.parts)
			hits.add(res.hits...)
		}
		for _, d := range resp.Dialects {
			res := e.matchDialectEntry(d)
			mr.Dialects = append(mr.Dialects, res.parts)
			if len(res.hits) > 0 {
				credits[i] = append(credits[i], d)
			}
			hits.add(res.hits...)
		}
		subHits[i] = hits
		all.merge(hits)
		mi.Responses = append(mi.Responses, mr)
	}

	if !e.accept(mi, top, all, subHits, responseFieldSet) {
		return nil
	}

	e.aggregateJudgment(mi, j, credits)
	return mi
}

// accept applies the item-level acceptance rule and settles every sub-item's
// match flag. It reports whether the item matches at all.
func (e *Evaluator) accept(mi *model.MatchedItem, top, all *hitSet, subHits []*hitSet, subFields []model.FieldID) bool {
	// A fully empty filter set matches everything, vacuously
	if e.allEmpty {
		setAllSubMatches(mi, func(int) bool { return true })
		return true
	}

	if all.len() == 0 {
		return false
	}

	switch e.set.Operator {
	case model.OperatorAnd:
		// Every filter must have matched somewhere; empty filters match
		// everything and count as satisfied. Identity is by filter index.
		satisfied := all.clone()
		for i := range e.filters {
			if e.filters[i].empty {
				satisfied.add(e.filters[i].filter.Index)
			}
		}
		if satisfied.len() != len(e.filters) {
			return false
		}
		required := e.applicableCount(subFields)
		setAllSubMatches(mi, func(i int) bool { return subHits[i].len() == required })
	default: // or
		topMatched := top.len() > 0
		setAllSubMatches(mi, func(i int) bool { return topMatched || subHits[i].len() > 0 })
	}
	return true
}

// applicableCount counts the non-empty filters that can run against the given
// sub-item fields. Used for the AND rule on sub-items.
func (e *Evaluator) applicableCount(fields []model.FieldID) int {
	n := 0
	for i := range e.filters {
		if e.filters[i].empty {
			continue
		}
		for _, f := range fields {
			if applies(e.filters[i].filter.Field, f) {
				n++
				break
			}
		}
	}
	return n
}

func setAllSubMatches(mi *model.MatchedItem, match func(int) bool) {
	for i := range mi.Answers {
		mi.Answers[i].Match = match(i)
	}
	for i := range mi.Responses {
		mi.Responses[i].Match = match(i)
	}
}

func (e *Evaluator) aggregateQuestion(mi *model.MatchedItem, q *model.Question, credits [][]string) {
	agg := newAggregates()
	for i := range q.Answers {
		agg.seeDialects(q.Answers[i].Dialects)
		if !mi.Answers[i].Match {
			continue
		}
		agg.matched++
		agg.addParticipant(q.Answers[i].ParticipantID)
		e.creditDialects(agg, q.Answers[i].Dialects, credits[i])
	}
	agg.fill(mi)
}

func (e *Evaluator) aggregateJudgment(mi *model.MatchedItem, j *model.Judgment, credits [][]string) {
	agg := newAggregates()
	for i := range j.Responses {
		agg.seeDialects(j.Responses[i].Dialects)
		if !mi.Responses[i].Match {
			continue
		}
		agg.matched++
		agg.addParticipant(j.Responses[i].ParticipantID)
		e.creditDialects(agg, j.Responses[i].Dialects, credits[i])
	}
	agg.fill(mi)
}

// creditDialects records the matched dialect names of one matching sub-item.
// Only end dialects count: the most specific dialect actually present in the
// sub-item's own list. With an explicit dialect filter, only entries that hit
// the filter are credited; without one, every end dialect of the sub-item is.
func (e *Evaluator) creditDialects(agg *aggregates, observed, credited []string) {
	if e.dialectFilter {
		for _, d := range credited {
			if e.hier.IsEndDialect(d, observed) {
				agg.addDialect(d)
			}
		}
		return
	}
	for _, d := range observed {
		if e.hier.IsEndDialect(d, observed) {
			agg.addDialect(d)
		}
	}
}

// hitSet tracks distinct matching filters by index
type hitSet struct {
	m map[int]bool
}

func newHitSet() *hitSet { return &hitSet{m: map[int]bool{}} }

func (s *hitSet) add(idxs ...int) {
	for _, i := range idxs {
		s.m[i] = true
	}
}

func (s *hitSet) merge(o *hitSet) {
	for i := range o.m {
		s.m[i] = true
	}
}

func (s *hitSet) clone() *hitSet {
	c := newHitSet()
	c.merge(s)
	return c
}

func (s *hitSet) len() int { return len(s.m) }

// aggregates accumulates the derived counters of a MatchedItem
type aggregates struct {
	matched      int
	seen         map[string]bool
	dialects     map[string]bool
	participants map[string]bool
}

func newAggregates() *aggregates {
	return &aggregates{
		seen:         map[string]bool{},
		dialects:     map[string]bool{},
		participants: map[string]bool{},
	}
}

func (a *aggregates) seeDialects(ds []string) {
	for _, d := range ds {
		a.seen[d] = true
	}
}

func (a *aggregates) addDialect(d string) { a.dialects[d] = true }

func (a *aggregates) addParticipant(p string) {
	if p != "" {
		a.participants[p] = true
	}
}

func (a *aggregates) fill(mi *model.MatchedItem) {
	mi.MatchedSubItems = a.matched
	mi.TotalDialects = len(a.seen)
	mi.MatchedDialects = sortedKeys(a.dialects)
	mi.MatchedParticipants = sortedKeys(a.participants)
}

func sortedKeys(m map[string]bool) []string {
	if len(m) == 0 {
		return nil
	}
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// buildParts slices value into matched/unmatched fragments along the merged
// spans. Concatenation of the fragments reconstructs value.
func buildParts(value string, spans []search.Span) model.MatchedParts {
	runes := []rune(value)
	var parts []model.MatchedFragment
	pos := 0
	for _, s := range spans {
		if s.Start > pos {
			parts = append(parts, model.MatchedFragment{Text: string(runes[pos:s.Start])})
		}
		end := s.End
		if end > len(runes) {
			end = len(runes)
		}
		parts = append(parts, model.MatchedFragment{Text: string(runes[s.Start:end]), Match: true})
		pos = end
	}
	if pos < len(runes) {
		parts = append(parts, model.MatchedFragment{Text: string(runes[pos:])})
	}
	return model.MatchedParts{Parts: parts}
}

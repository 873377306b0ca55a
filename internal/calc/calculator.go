// Package calc runs the filter matcher across the full item set in
// priority-ordered, pausable batches, emitting incremental match/unmatch
// deltas.
package calc

import (
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/taalatlas/dialectsearch/internal/hierarchy"
	"github.com/taalatlas/dialectsearch/internal/match"
	"github.com/taalatlas/dialectsearch/internal/metrics"
	"github.com/taalatlas/dialectsearch/internal/model"
)

// DefaultBatchSize bounds one remainder slice so the host stays responsive
const DefaultBatchSize = 10

// Phase is the scheduler state. Phases advance linearly and cycle back on
// Start.
type Phase int

const (
	PhaseStart Phase = iota
	PhaseVisible
	PhaseMatches
	PhaseRemainder
	PhaseDone
)

func (p Phase) String() string {
	switch p {
	case PhaseStart:
		return "start"
	case PhaseVisible:
		return "visible"
	case PhaseMatches:
		return "matches"
	case PhaseRemainder:
		return "remainder"
	case PhaseDone:
		return "done"
	default:
		return "unknown"
	}
}

// Emission is one incremental batch of classifications. The consumer merges
// these into a running result map: upsert on Matched, delete on Unmatched.
type Emission struct {
	Matched   []*model.MatchedItem
	Unmatched []string
}

// EmitFunc receives incremental emissions
type EmitFunc func(Emission)

// itemState tracks one item within the current pass
type itemState struct {
	matched bool // outcome of the most recent settled evaluation
	stale   bool // not yet evaluated in this pass
}

// Calculator evaluates one fixed filter configuration over the item set.
// Items are shared and read-only; all mutable state is internal. Pause,
// Resume, SetVisible and SeedResults may be called from the caller's
// goroutine while a scheduler drives Step from another.
type Calculator struct {
	mu sync.Mutex

	items []model.Item
	index map[string]int
	eval  *match.Evaluator

	phase       Phase
	cursor      int // position in items during remainder
	matchCursor int // position in prevMatched during matches
	prevMatched []string
	states      map[string]*itemState
	visible     []string // replaced wholesale, never mutated in place
	paused      bool

	results   map[string]*model.MatchedItem
	batchSize int

	emit   EmitFunc
	onDone func()

	log zerolog.Logger
	met *metrics.Metrics
}

// New creates a calculator for one filter configuration. The item slice is
// treated as immutable.
func New(items []model.Item, set model.FilterSet, hier *hierarchy.Hierarchy, batchSize int, log zerolog.Logger) *Calculator {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	c := &Calculator{
		items:     items,
		index:     make(map[string]int, len(items)),
		eval:      match.NewEvaluator(set, hier, log),
		states:    make(map[string]*itemState, len(items)),
		results:   make(map[string]*model.MatchedItem),
		batchSize: batchSize,
		phase:     PhaseDone,
		log:       log,
		met:       metrics.Default(),
	}
	for i, item := range items {
		c.index[item.Key()] = i
		c.states[item.Key()] = &itemState{}
	}
	return c
}

// OnEmit registers the emission consumer
func (c *Calculator) OnEmit(fn EmitFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.emit = fn
}

// OnDone registers the end-of-pass callback
func (c *Calculator) OnDone(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onDone = fn
}

// Start begins a new evaluation pass: every item becomes stale again and the
// ids that matched under the previous configuration are queued for early
// re-validation. Start itself emits nothing.
func (c *Calculator) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.prevMatched = c.prevMatched[:0]
	for id, st := range c.states {
		st.stale = true
		if st.matched {
			c.prevMatched = append(c.prevMatched, id)
		}
	}
	sort.Strings(c.prevMatched)
	c.phase = PhaseStart
	c.cursor = 0
	c.matchCursor = 0
	c.log.Debug().Int("items", len(c.items)).Msg("evaluation pass started")
}

// SetVisible replaces the visible-id set. The change is layered into the
// running pass at the next batch boundary; it never restarts the pass.
func (c *Calculator) SetVisible(ids []string) {
	snapshot := append([]string(nil), ids...)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.visible = snapshot
	if c.phase == PhaseDone && c.staleVisibleLocked() != nil {
		// Settled passes have no stale items, so this only fires when new
		// ids appeared that were never part of the item set refresh
		c.phase = PhaseRemainder
	}
}

// Pause suspends stepping without resetting pass state
func (c *Calculator) Pause() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.paused = true
}

// Resume continues a paused pass
func (c *Calculator) Resume() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.paused = false
}

// Paused reports whether the calculator is paused
func (c *Calculator) Paused() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.paused
}

// Done reports whether the current pass reached the terminal state
func (c *Calculator) Done() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase == PhaseDone
}

// Runnable reports whether Step would make progress
func (c *Calculator) Runnable() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.paused && c.phase != PhaseDone
}

// SeedResults pre-fills the running result map, typically with a snapshot
// from the previously active calculator, so consumers never see a blank
// interim state. Seeded ids are queued for early re-validation.
func (c *Calculator) SeedResults(snapshot map[string]*model.MatchedItem) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id, mi := range snapshot {
		if _, ok := c.index[id]; !ok {
			continue
		}
		c.results[id] = mi
		c.states[id].matched = true
	}
}

// Results returns a copy of the running result map
func (c *Calculator) Results() map[string]*model.MatchedItem {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]*model.MatchedItem, len(c.results))
	for id, mi := range c.results {
		out[id] = mi
	}
	return out
}

// SettledIDs returns every id classified so far in the current pass, split
// into matched and unmatched.
func (c *Calculator) SettledIDs() (matched, unmatched []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id, st := range c.states {
		if st.stale {
			continue
		}
		if st.matched {
			matched = append(matched, id)
		} else {
			unmatched = append(unmatched, id)
		}
	}
	sort.Strings(matched)
	sort.Strings(unmatched)
	return matched, unmatched
}

// Step runs one scheduling slice and reports whether the pass is done.
// Visible items always drain first; the remainder is evaluated in fixed-size
// batches so the caller regains control between slices.
func (c *Calculator) Step() bool {
	c.mu.Lock()
	if c.paused || c.phase == PhaseDone {
		done := c.phase == PhaseDone
		c.mu.Unlock()
		return done
	}

	var batch []string
	switch {
	case c.phase == PhaseStart:
		c.phase = PhaseVisible
		c.mu.Unlock()
		return false

	case c.phase == PhaseVisible:
		// The visibility contract requires completeness: every visible item
		// is evaluated in this one slice, unbatched
		batch = c.staleVisibleLocked()
		c.phase = PhaseMatches

	default:
		// A visible set replaced mid-pass is drained before phase work
		if stale := c.staleVisibleLocked(); len(stale) > 0 {
			batch = stale
			break
		}
		if c.phase == PhaseMatches {
			batch = c.nextMatchesBatchLocked()
			if batch == nil {
				c.phase = PhaseRemainder
			}
		}
		if c.phase == PhaseRemainder && batch == nil {
			batch = c.nextRemainderBatchLocked()
			if batch == nil {
				c.phase = PhaseDone
			}
		}
	}

	if c.phase == PhaseDone {
		emitDone := c.onDone
		c.mu.Unlock()
		if c.met != nil {
			c.met.PassesCompleted.Inc()
		}
		c.log.Debug().Msg("evaluation pass done")
		if emitDone != nil {
			emitDone()
		}
		return true
	}
	c.mu.Unlock()

	if len(batch) > 0 {
		c.evaluate(batch)
	}
	return false
}

// RunToCompletion drives the pass synchronously until done. Used by the
// inline scheduler and by tests.
func (c *Calculator) RunToCompletion() {
	for !c.Step() {
		if c.Paused() {
			return
		}
	}
}

// staleVisibleLocked returns the visible ids not yet settled in this pass
func (c *Calculator) staleVisibleLocked() []string {
	var out []string
	for _, id := range c.visible {
		if st, ok := c.states[id]; ok && st.stale {
			out = append(out, id)
		}
	}
	return out
}

// nextMatchesBatchLocked returns the next batch of previously-matched ids,
// or nil when that queue is exhausted.
func (c *Calculator) nextMatchesBatchLocked() []string {
	var out []string
	for c.matchCursor < len(c.prevMatched) && len(out) < c.batchSize {
		id := c.prevMatched[c.matchCursor]
		c.matchCursor++
		if st, ok := c.states[id]; ok && st.stale {
			out = append(out, id)
		}
	}
	if len(out) == 0 && c.matchCursor >= len(c.prevMatched) {
		return nil
	}
	return out
}

// nextRemainderBatchLocked returns the next batch of still-stale items in
// index order, or nil when the sweep is complete.
func (c *Calculator) nextRemainderBatchLocked() []string {
	var out []string
	for c.cursor < len(c.items) && len(out) < c.batchSize {
		item := c.items[c.cursor]
		c.cursor++
		if st := c.states[item.Key()]; st.stale {
			out = append(out, item.Key())
		}
	}
	if len(out) == 0 && c.cursor >= len(c.items) {
		return nil
	}
	return out
}

// evaluate settles one batch of ids and emits the resulting deltas. Each
// item settles exactly once per pass.
func (c *Calculator) evaluate(ids []string) {
	started := time.Now()
	var em Emission

	for _, id := range ids {
		pos, ok := c.index[id]
		if !ok {
			continue
		}
		mi := c.safeApply(c.items[pos])

		c.mu.Lock()
		st := c.states[id]
		if !st.stale {
			c.mu.Unlock()
			continue
		}
		st.stale = false
		st.matched = mi != nil
		if mi != nil {
			c.results[id] = mi
		} else {
			delete(c.results, id)
		}
		c.mu.Unlock()

		if mi != nil {
			em.Matched = append(em.Matched, mi)
		} else {
			em.Unmatched = append(em.Unmatched, id)
		}
	}

	if c.met != nil {
		c.met.ItemsEvaluated.Add(float64(len(ids)))
		c.met.BatchDuration.Observe(time.Since(started).Seconds())
	}

	c.mu.Lock()
	emit := c.emit
	c.mu.Unlock()
	if emit != nil && (len(em.Matched) > 0 || len(em.Unmatched) > 0) {
		emit(em)
	}
}

// safeApply contains per-item matching failures: a broken item is treated as
// non-matching and the pass continues.
func (c *Calculator) safeApply(item model.Item) (mi *model.MatchedItem) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Error().Str("item", item.Key()).Interface("panic", r).
				Msg("item evaluation failed, treating as unmatched")
			mi = nil
		}
	}()
	return c.eval.ApplyFilters(item)
}

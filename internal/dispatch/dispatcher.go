package dispatch

import (
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"github.com/taalatlas/dialectsearch/internal/cache"
	"github.com/taalatlas/dialectsearch/internal/calc"
	"github.com/taalatlas/dialectsearch/internal/hierarchy"
	"github.com/taalatlas/dialectsearch/internal/model"
)

// Dispatcher owns the calculator lifecycle: it activates a calculator per
// filter configuration, pauses the one it replaces, and republishes cached
// results when a configuration comes back. It performs no stepping of its
// own; a scheduler drives StepActive.
type Dispatcher struct {
	mu sync.Mutex

	items      []model.Item
	generation uint64
	hier       *hierarchy.Hierarchy
	registry   *cache.Registry

	active   *calc.Calculator
	activeFP string
	visible  []string

	batchSize int
	sink      Sink
	log       zerolog.Logger
}

// NewDispatcher creates a dispatcher over one dataset
func NewDispatcher(ds *model.Dataset, hier *hierarchy.Hierarchy, batchSize int, sink Sink, log zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		items:      ds.Items,
		generation: ds.Generation,
		hier:       hier,
		registry:   cache.NewRegistry(),
		batchSize:  batchSize,
		sink:       sink,
		log:        log,
	}
}

// Handle executes one request. Unknown operations and requests that need an
// active calculator when none exists are reported through the sink as
// recoverable errors; Handle itself only returns them for callers that want
// to inspect.
func (d *Dispatcher) Handle(req Request) error {
	switch req.Op {
	case OpStartCalc:
		return d.activate(req.Filters)
	case OpSetVisible:
		return d.withActive(req.Op, func(c *calc.Calculator) {
			d.mu.Lock()
			d.visible = append([]string(nil), req.VisibleIDs...)
			d.mu.Unlock()
			c.SetVisible(req.VisibleIDs)
		})
	case OpPause:
		return d.withActive(req.Op, func(c *calc.Calculator) { c.Pause() })
	case OpResume:
		return d.withActive(req.Op, func(c *calc.Calculator) { c.Resume() })
	case OpTerminate:
		d.mu.Lock()
		if d.active != nil {
			d.active.Pause()
		}
		d.active = nil
		d.activeFP = ""
		d.mu.Unlock()
		return nil
	default:
		return d.fail(&ProtocolError{Op: req.Op, Reason: "unknown operation"})
	}
}

// SetDataset swaps the item set in. The generation advance invalidates every
// cached calculator and the active one is dropped; the next start_calc
// rebuilds against the new data.
func (d *Dispatcher) SetDataset(ds *model.Dataset) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.items = ds.Items
	d.generation = ds.Generation
	d.registry.Flush()
	if d.active != nil {
		d.active.Pause()
	}
	d.active = nil
	d.activeFP = ""
	d.log.Info().Uint64("generation", ds.Generation).Int("items", len(ds.Items)).
		Msg("dataset replaced, calculator cache flushed")
}

// ActiveRunnable reports whether the active calculator has work pending
func (d *Dispatcher) ActiveRunnable() bool {
	d.mu.Lock()
	c := d.active
	d.mu.Unlock()
	return c != nil && c.Runnable()
}

// StepActive advances the active calculator by one slice and reports whether
// its pass is done. With no active calculator it reports done.
func (d *Dispatcher) StepActive() bool {
	d.mu.Lock()
	c := d.active
	d.mu.Unlock()
	if c == nil {
		return true
	}
	return c.Step()
}

// ActiveResults returns a snapshot of the active calculator's running results
func (d *Dispatcher) ActiveResults() map[string]*model.MatchedItem {
	d.mu.Lock()
	c := d.active
	d.mu.Unlock()
	if c == nil {
		return nil
	}
	return c.Results()
}

func (d *Dispatcher) withActive(op Op, fn func(*calc.Calculator)) error {
	d.mu.Lock()
	c := d.active
	d.mu.Unlock()
	if c == nil {
		return d.fail(&ProtocolError{Op: op, Reason: "no active calculator"})
	}
	fn(c)
	return nil
}

func (d *Dispatcher) fail(perr *ProtocolError) error {
	d.log.Warn().Str("op", string(perr.Op)).Str("reason", perr.Reason).Msg("request rejected")
	if d.sink != nil {
		d.sink(Response{Err: perr})
	}
	return perr
}

// activate makes the calculator for the given filter configuration the
// active one. A cached calculator is revived with its settled results
// republished; a fresh one is seeded with the previous calculator's snapshot
// so the consumer never drops to an empty view mid-switch.
func (d *Dispatcher) activate(set model.FilterSet) error {
	d.mu.Lock()
	fp, err := cache.Fingerprint(d.generation, set)
	if err != nil {
		d.mu.Unlock()
		return d.fail(&ProtocolError{Op: OpStartCalc, Reason: err.Error()})
	}
	if fp == d.activeFP && d.active != nil {
		c := d.active
		d.mu.Unlock()
		c.Resume()
		return nil
	}

	prev := d.active
	var snapshot map[string]*model.MatchedItem
	if prev != nil {
		prev.Pause()
		snapshot = prev.Results()
	}

	if v, ok := d.registry.Get(fp); ok {
		c := v.(*calc.Calculator)
		d.active = c
		d.activeFP = fp
		visible := d.visible
		d.mu.Unlock()

		d.log.Debug().Str("fingerprint", fp).Msg("calculator revived from cache")
		c.SetVisible(visible)
		d.republish(c)
		c.Resume()
		return nil
	}

	c := calc.New(d.items, set, d.hier, d.batchSize, d.log)
	if snapshot != nil {
		c.SeedResults(snapshot)
	}
	c.OnEmit(func(em calc.Emission) {
		if d.sink != nil {
			d.sink(Response{Matched: em.Matched, Unmatched: em.Unmatched})
		}
	})
	c.OnDone(func() {
		if d.sink != nil {
			d.sink(Response{Done: true})
		}
	})
	d.registry.Put(fp, c)
	d.active = c
	d.activeFP = fp
	visible := d.visible
	d.mu.Unlock()

	d.log.Debug().Str("fingerprint", fp).Msg("calculator created")
	c.SetVisible(visible)
	c.Start()
	return nil
}

// republish replays a revived calculator's settled classification so the
// consumer's view converges without waiting for new evaluations.
func (d *Dispatcher) republish(c *calc.Calculator) {
	if d.sink == nil {
		return
	}
	results := c.Results()
	matched := make([]*model.MatchedItem, 0, len(results))
	ids := make([]string, 0, len(results))
	for id := range results {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		matched = append(matched, results[id])
	}
	_, unmatched := c.SettledIDs()

	if len(matched) > 0 || len(unmatched) > 0 {
		d.sink(Response{Matched: matched, Unmatched: unmatched})
	}
	if c.Done() {
		d.sink(Response{Done: true})
	}
}

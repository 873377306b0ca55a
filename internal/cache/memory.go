package cache

import (
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/taalatlas/dialectsearch/internal/metrics"
)

// Registry retains calculators by fingerprint. Entries never expire on
// their own; the dispatcher evicts stale generations explicitly.
type Registry struct {
	store *gocache.Cache
	met   *metrics.Metrics
}

// NewRegistry creates an empty calculator registry
func NewRegistry() *Registry {
	return &Registry{
		store: gocache.New(gocache.NoExpiration, 10*time.Minute),
		met:   metrics.Default(),
	}
}

// Get returns the cached value for a fingerprint
func (r *Registry) Get(fingerprint string) (any, bool) {
	v, ok := r.store.Get(fingerprint)
	if r.met != nil {
		if ok {
			r.met.CacheHits.Inc()
		} else {
			r.met.CacheMisses.Inc()
		}
	}
	return v, ok
}

// Put stores a value under a fingerprint
func (r *Registry) Put(fingerprint string, v any) {
	r.store.Set(fingerprint, v, gocache.NoExpiration)
	if r.met != nil {
		r.met.CalculatorsActive.Set(float64(r.store.ItemCount()))
	}
}

// Delete removes one entry
func (r *Registry) Delete(fingerprint string) {
	r.store.Delete(fingerprint)
	if r.met != nil {
		r.met.CalculatorsActive.Set(float64(r.store.ItemCount()))
	}
}

// Flush drops every entry. Used when the dataset generation advances and
// all settled results are invalid.
func (r *Registry) Flush() {
	r.store.Flush()
	if r.met != nil {
		r.met.CalculatorsActive.Set(0)
	}
}

// Len reports the number of cached entries
func (r *Registry) Len() int {
	return r.store.ItemCount()
}

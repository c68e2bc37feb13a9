package observe

import (
	"sync"
	"time"

	"github.com/stupside/lutra/internal/media"
)

// Registry owns the per-context stores. Stores are created lazily on first
// observation and dropped when their context closes, so no entries outlive
// the context they were captured in.
type Registry struct {
	mu        sync.Mutex
	stores    map[string]*Store
	onObserve func(contextID string, obs Observation)
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{stores: make(map[string]*Store)}
}

// OnObserve registers a callback invoked after each successful append.
// Delivery is fire-and-forget; having no consumer is not an error. Passing
// nil removes the callback.
func (r *Registry) OnObserve(fn func(contextID string, obs Observation)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onObserve = fn
}

// Observe appends an observation to the context's store, creating the store
// on first use. It reports whether the observation was new.
func (r *Registry) Observe(contextID string, obs Observation) bool {
	r.mu.Lock()
	store, ok := r.stores[contextID]
	if !ok {
		store = &Store{}
		r.stores[contextID] = store
	}
	notify := r.onObserve
	r.mu.Unlock()

	if !store.Append(obs) {
		return false
	}
	if notify != nil {
		notify(contextID, obs)
	}
	return true
}

// ObserveURL applies the network admission rule to a raw request URL:
// rejected schemes and URLs the classifier does not recognize as media are
// ignored. It reports whether a new observation was recorded.
func (r *Registry) ObserveURL(contextID, rawURL string, at time.Time) bool {
	if RejectedScheme(rawURL) || !media.IsMediaURL(rawURL) {
		return false
	}
	return r.Observe(contextID, Observation{
		URL:          rawURL,
		Kind:         media.ClassifyURL(rawURL),
		Origin:       OriginNetwork,
		DiscoveredAt: at,
	})
}

// Lookup returns the store for a context, if one exists.
func (r *Registry) Lookup(contextID string) (*Store, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	store, ok := r.stores[contextID]
	return store, ok
}

// Drop removes a context's store entirely.
func (r *Registry) Drop(contextID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.stores, contextID)
}

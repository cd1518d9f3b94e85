package worker

import (
	"fmt"
	"sync"
)

// Pool is the registry of one Executor per service type, including the
// dynamically-named per-content-provider executors spec §4.5 calls for.
type Pool struct {
	mu        sync.RWMutex
	executors map[string]*Executor
}

// NewPool returns an empty registry.
func NewPool() *Pool {
	return &Pool{executors: make(map[string]*Executor)}
}

// Register adds an executor under its own name. Panics on duplicate
// registration since that indicates a wiring bug, not a runtime
// condition callers should handle.
func (p *Pool) Register(e *Executor) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, exists := p.executors[e.name]; exists {
		panic(fmt.Sprintf("worker: executor %q already registered", e.name))
	}
	p.executors[e.name] = e
}

// Get returns the named executor, or (nil, false) if it hasn't been
// registered (e.g. a content provider name the scraper aggregator never
// configured).
func (p *Pool) Get(name string) (*Executor, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	e, ok := p.executors[name]
	return e, ok
}

// All returns every registered executor, for wiring into a supervisor
// tree at startup.
func (p *Pool) All() []*Executor {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]*Executor, 0, len(p.executors))
	for _, e := range p.executors {
		out = append(out, e)
	}
	return out
}

// Cancel forwards a cancellation request to whichever executor has
// eventID in flight. Returns true if any executor reported a live call.
func (p *Pool) Cancel(eventID string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, e := range p.executors {
		if e.Cancel(eventID) {
			return true
		}
	}
	return false
}

// Service type names spec §4.5 enumerates explicitly. Content-provider
// executors are registered under their own provider name instead.
const (
	ServiceIndexer       = "indexer"
	ServiceScraper       = "scraper"
	ServiceDownloader    = "downloader"
	ServiceSymlinker     = "symlinker"
	ServiceUpdater       = "updater"
	ServicePostProcessor = "postprocessor"
)

// Package risk holds per-context risk state and the guards evaluated against it.
package risk

import (
	"sort"
	"sync"
	"time"
)

type entry struct {
	mu  sync.Mutex
	mgr *Manager
	// evicted is set under mu once the entry left the registry.
	evicted bool
}

// Registry owns one Manager per trading context (a pair or a session).
// Access to a single context is serialized through Do.
//
// Lock order is entry.mu before Registry.mu.
type Registry struct {
	mu       sync.RWMutex
	cfg      Config
	entries  map[string]*entry
	lastSeen map[string]time.Time
	// peaks keeps the peak balance of evicted contexts so the circuit
	// breaker still measures drawdown from it when the context returns.
	peaks map[string]float64
	now   func() time.Time
}

// NewRegistry creates an empty registry whose managers share cfg.
func NewRegistry(cfg Config) *Registry {
	return &Registry{
		cfg:      cfg,
		entries:  make(map[string]*entry),
		lastSeen: make(map[string]time.Time),
		peaks:    make(map[string]float64),
		now:      time.Now,
	}
}

// SetClock replaces the clock used for activity and cooldown checks.
func (r *Registry) SetClock(now func() time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.now = now
}

func (r *Registry) getOrCreate(id string) *entry {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.entries[id]; ok {
		r.lastSeen[id] = r.now()
		return e
	}
	mgr := NewInMemory(r.cfg).withContext(id)
	if peak, ok := r.peaks[id]; ok {
		mgr.peakBalance = peak
		delete(r.peaks, id)
	}
	e := &entry{mgr: mgr}
	r.entries[id] = e
	r.lastSeen[id] = r.now()
	return e
}

// Do runs fn with exclusive access to the context's manager, creating it if needed.
func (r *Registry) Do(id string, fn func(*Manager)) {
	for {
		e := r.getOrCreate(id)
		e.mu.Lock()
		if e.evicted {
			// Lost a race with CleanupIdle; the next lookup creates a fresh entry.
			e.mu.Unlock()
			continue
		}
		defer e.mu.Unlock()
		fn(e.mgr)
		return
	}
}

// GetOrCreate returns the manager for id, creating it if needed. Callers that
// mutate it concurrently with other goroutines must go through Do instead.
func (r *Registry) GetOrCreate(id string) *Manager {
	return r.getOrCreate(id).mgr
}

// Get returns the manager for id, or nil. It refreshes activity for existing
// contexts and never creates a new one.
func (r *Registry) Get(id string) *Manager {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[id]; ok {
		r.lastSeen[id] = r.now()
		return e.mgr
	}
	return nil
}

// Snapshot returns a copy of the state for id and whether it exists.
func (r *Registry) Snapshot(id string) (State, bool) {
	r.mu.RLock()
	e, ok := r.entries[id]
	r.mu.RUnlock()
	if !ok {
		return State{}, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.evicted {
		return State{}, false
	}
	return e.mgr.Snapshot(), true
}

// Snapshots returns the state of every context.
func (r *Registry) Snapshots() map[string]State {
	r.mu.RLock()
	entries := make(map[string]*entry, len(r.entries))
	for id, e := range r.entries {
		entries[id] = e
	}
	r.mu.RUnlock()

	out := make(map[string]State, len(entries))
	for id, e := range entries {
		e.mu.Lock()
		if !e.evicted {
			out[id] = e.mgr.Snapshot()
		}
		e.mu.Unlock()
	}
	return out
}

// IDs returns the known context ids in sorted order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.entries))
	for id := range r.entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Remove drops all state for id, including a retained peak balance.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	e, ok := r.entries[id]
	delete(r.entries, id)
	delete(r.lastSeen, id)
	delete(r.peaks, id)
	r.mu.Unlock()

	if ok {
		e.mu.Lock()
		e.evicted = true
		e.mu.Unlock()
	}
}

// Count returns the number of tracked contexts.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// CleanupIdle evicts contexts idle longer than ttl whose state is inert: no
// pending cooldown, no loss streak and no loss recorded today. A context
// holding any of these is kept however long it idles. The peak balance of an
// evicted context is retained. It returns how many contexts were evicted.
func (r *Registry) CleanupIdle(ttl time.Duration) int {
	if ttl <= 0 {
		return 0
	}

	r.mu.RLock()
	now := r.now()
	cutoff := now.Add(-ttl)
	candidates := make(map[string]*entry)
	for id, seen := range r.lastSeen {
		if seen.Before(cutoff) {
			candidates[id] = r.entries[id]
		}
	}
	r.mu.RUnlock()

	removed := 0
	for id, e := range candidates {
		if r.evictIfInert(id, e, now, cutoff) {
			removed++
		}
	}
	return removed
}

func (r *Registry) evictIfInert(id string, e *entry, now, cutoff time.Time) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.evicted || !e.mgr.inert(now) {
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	// Skip entries touched or replaced since the scan.
	if r.entries[id] != e || !r.lastSeen[id].Before(cutoff) {
		return false
	}
	if peak := e.mgr.peakBalance; peak > 0 {
		r.peaks[id] = peak
	}
	delete(r.entries, id)
	delete(r.lastSeen, id)
	e.evicted = true
	return true
}

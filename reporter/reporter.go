// Package reporter composes the Snapshot() outputs of the toolkit's
// components into one map, grounded on the teacher's memmetrics RTMetrics
// (which exposes a single metrics surface over several internal rolling
// counters) generalized to an arbitrary set of named, heterogeneous
// collectors rather than one fixed HTTP-roundtrip shape.
package reporter

import (
	"fmt"
	"sort"
	"sync"

	"github.com/vulcand/resilience/errs"
)

// Collector is anything that can report a flat point-in-time snapshot of
// int64 counters. latency.Tracker, outcome.Tracker, semaphore.Semaphore,
// pool.Pool, and breaker.CircuitBreaker all implement it.
type Collector interface {
	Snapshot() map[string]int64
}

// Reporter aggregates named collectors into one flat namespace, prefixing
// each collector's keys with its registered name so unrelated collectors
// never collide.
type Reporter struct {
	mu         sync.RWMutex
	collectors map[string]Collector
	order      []string
}

// New creates an empty Reporter.
func New() *Reporter {
	return &Reporter{collectors: make(map[string]Collector)}
}

// Register adds (or replaces) a named collector. Registering the same name
// twice replaces the previous collector in place, preserving its original
// position in Names' registration order.
func (r *Reporter) Register(name string, c Collector) error {
	if name == "" {
		return errs.NewInvalidArgument("collector name must not be empty")
	}
	if c == nil {
		return errs.NewInvalidArgument("collector %q must not be nil", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.collectors[name]; !exists {
		r.order = append(r.order, name)
	}
	r.collectors[name] = c
	return nil
}

// Deregister removes a named collector, if present.
func (r *Reporter) Deregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.collectors[name]; !exists {
		return
	}
	delete(r.collectors, name)
	for i, n := range r.order {
		if n == name {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

// Names returns the registered collector names in registration order.
func (r *Reporter) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}

// Snapshot returns every registered collector's counters, each key
// prefixed "<name>.<counter>". Collisions cannot occur across collectors
// since each key carries its collector's own name.
func (r *Reporter) Snapshot() map[string]int64 {
	r.mu.RLock()
	names := make([]string, len(r.order))
	copy(names, r.order)
	collectors := make(map[string]Collector, len(r.collectors))
	for k, v := range r.collectors {
		collectors[k] = v
	}
	r.mu.RUnlock()

	sort.Strings(names)

	out := make(map[string]int64)
	for _, name := range names {
		for k, v := range collectors[name].Snapshot() {
			out[fmt.Sprintf("%s.%s", name, k)] = v
		}
	}
	return out
}

package rag

import (
	"context"
	"sync"
	"sync/atomic"

	"scholarbot/src/log"
)

const DefaultMaintenanceInterval = 100

// Maintenance tracks the process-wide completed-query counter and fires the
// registered cleanup hooks exactly when the counter reaches a multiple of the
// interval. Hooks run off the request path and must be safe to run
// concurrently with retrieval and ingestion.
type Maintenance struct {
	interval uint64
	counter  atomic.Uint64
	store    CounterStore

	mu    sync.Mutex
	hooks []func()
}

// NewMaintenance initializes the counter from its persisted value, or zero
// when no state exists yet.
func NewMaintenance(ctx context.Context, interval uint64, store CounterStore) (*Maintenance, error) {
	m := &Maintenance{interval: interval, store: store}
	if store != nil {
		n, err := store.LoadQueryCount(ctx)
		if err != nil {
			return nil, err
		}
		m.counter.Store(n)
	}
	return m, nil
}

// AddHook registers a cleanup action.
func (m *Maintenance) AddHook(fn func()) {
	m.mu.Lock()
	m.hooks = append(m.hooks, fn)
	m.mu.Unlock()
}

// Count returns the current completed-query count.
func (m *Maintenance) Count() uint64 {
	return m.counter.Load()
}

// QueryCompleted atomically increments the counter and, on interval
// boundaries, runs the hooks in the background so in-flight requests are
// never blocked. The persist runs detached from any request context.
func (m *Maintenance) QueryCompleted() uint64 {
	n := m.counter.Add(1)
	if m.interval > 0 && n%m.interval == 0 {
		go m.run(n)
	}
	return n
}

func (m *Maintenance) run(n uint64) {
	log.Info("maintenance firing", "query_count", n)
	m.mu.Lock()
	hooks := make([]func(), len(m.hooks))
	copy(hooks, m.hooks)
	m.mu.Unlock()

	for _, fn := range hooks {
		fn()
	}
	if m.store != nil {
		if err := m.store.SaveQueryCount(context.Background(), n); err != nil {
			log.Error(err, "failed to persist query counter", "query_count", n)
		}
	}
}

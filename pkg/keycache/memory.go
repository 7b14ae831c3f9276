package keycache

import (
	"context"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Memory is an in-process [Store] backed by go-cache. Expired entries are
// never returned by Get; a background goroutine additionally purges them
// every sweep interval so memory does not grow with stale keys.
//
// Call [Memory.Close] to stop the sweep goroutine.
type Memory struct {
	items    *gocache.Cache
	interval time.Duration

	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

var _ Store = (*Memory)(nil)

// NewMemory creates a Memory store and starts its sweep goroutine.
func NewMemory(opts ...Option) *Memory {
	o := buildOptions(opts)

	// go-cache's own janitor is disabled; the sweep below is stoppable.
	m := &Memory{
		items:    gocache.New(o.ttl, 0),
		interval: o.sweepInterval,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	go m.sweep()
	return m
}

func (m *Memory) sweep() {
	defer close(m.done)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.items.DeleteExpired()
		case <-m.stop:
			return
		}
	}
}

// Get implements [Store]. It never fails.
func (m *Memory) Get(_ context.Context, key string) (string, bool, error) {
	v, ok := m.items.Get(key)
	if !ok {
		return "", false, nil
	}
	blob, ok := v.(string)
	return blob, ok, nil
}

// Set implements [Store]. It never fails.
func (m *Memory) Set(_ context.Context, key, blob string) error {
	m.items.SetDefault(key, blob)
	return nil
}

// FlushAll implements [Store]. It never fails.
func (m *Memory) FlushAll(_ context.Context) error {
	m.items.Flush()
	return nil
}

// Len returns the number of stored entries, including expired entries
// that have not been swept yet.
func (m *Memory) Len() int {
	return m.items.ItemCount()
}

// Close stops the sweep goroutine and waits for it to exit. The store
// remains readable afterwards but is no longer swept. Close is safe to
// call more than once.
func (m *Memory) Close() error {
	m.closeOnce.Do(func() {
		close(m.stop)
	})
	<-m.done
	return nil
}

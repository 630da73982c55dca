// Package cache keeps dashboard sessions in memory: a size bounded LRU
// whose entries expire after a period without use, and a Manager sweeping
// expired entries on a ticker.
package cache

import (
	"context"
	"time"

	"gnucashboard/internal/log"
)

// Cache is a keyed store with expiring entries.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, data T)
	Delete(key string)
	Clear()
	Size() int
}

// EvictReason tells an eviction hook why an entry left the cache.
type EvictReason int

const (
	Expired EvictReason = iota
	Capacity
	Deleted
	Cleared
)

func (r EvictReason) String() string {
	switch r {
	case Expired:
		return "expired"
	case Capacity:
		return "capacity"
	case Deleted:
		return "deleted"
	case Cleared:
		return "cleared"
	}
	return "unknown"
}

// Cleaner is implemented by caches the Manager can sweep.
type Cleaner interface {
	CleanExpired() int
}

// Manager sweeps registered caches until its context is cancelled.
type Manager struct {
	caches []Cleaner
	logger *log.Logger
	done   chan struct{}
}

func NewManager(logger *log.Logger) *Manager {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &Manager{logger: logger.WithComponent(log.ComponentCache)}
}

// Register adds a cache to sweep. Call before Start.
func (m *Manager) Register(c Cleaner) {
	m.caches = append(m.caches, c)
}

// Start sweeps every interval in a goroutine.
func (m *Manager) Start(ctx context.Context, interval time.Duration) {
	m.done = make(chan struct{})
	go m.run(ctx, interval)
}

func (m *Manager) run(ctx context.Context, interval time.Duration) {
	defer close(m.done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			cleaned := 0
			for _, c := range m.caches {
				cleaned += c.CleanExpired()
			}
			if cleaned > 0 {
				m.logger.Debug("Expired cache entries removed", "count", cleaned)
			}
		case <-ctx.Done():
			return
		}
	}
}

// Wait blocks until the sweeping goroutine has returned.
func (m *Manager) Wait() {
	if m.done != nil {
		<-m.done
	}
}

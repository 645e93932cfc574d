// Package coalesce folds concurrent fetches of the same key into a single call
// and caches successful results for a short period. It shields a backend from
// spike-like load when many callers poll the same resource at once.
package coalesce

import (
	"context"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

const defaultCleanupInterval = 5 * time.Millisecond

// TODO: cache errors with their own, shorter TTL

type result[T any] struct {
	v   T
	err error
}

type Manager[T any] struct {
	fetch func(ctx context.Context, key string) (T, error)
	cache *gocache.Cache

	mu      sync.Mutex
	waiters map[string][]chan result[T]
}

func NewManager[T any](fetch func(ctx context.Context, key string) (T, error), cacheTime time.Duration) *Manager[T] {
	return &Manager[T]{
		fetch:   fetch,
		cache:   gocache.New(cacheTime, defaultCleanupInterval),
		waiters: make(map[string][]chan result[T]),
	}
}

// Get returns the cached value for key or joins the in-flight fetch for it,
// starting one if none exists. Errors are delivered to every waiter and are
// not cached.
func (m *Manager[T]) Get(ctx context.Context, key string) (T, error) {
	m.mu.Lock()
	if v, ok := m.cache.Get(key); ok {
		m.mu.Unlock()
		return v.(T), nil //nolint:forcetypeassert
	}

	ch := make(chan result[T], 1)
	chans, inflight := m.waiters[key]
	m.waiters[key] = append(chans, ch)
	if !inflight {
		go m.run(key)
	}
	m.mu.Unlock()

	select {
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	case res := <-ch:
		return res.v, res.err
	}
}

func (m *Manager[T]) run(key string) {
	v, err := m.fetch(context.Background(), key)

	m.mu.Lock()
	if err == nil {
		m.cache.SetDefault(key, v)
	}
	chans := m.waiters[key]
	delete(m.waiters, key)
	m.mu.Unlock()

	for _, ch := range chans {
		ch <- result[T]{v: v, err: err}
	}
}

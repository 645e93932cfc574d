package relay

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

const (
	// DefaultOutcomeTTL bounds memory held by terminal outcomes. A terminal
	// outcome only needs to live long enough for the caller's poll loop.
	DefaultOutcomeTTL      = 10 * time.Minute
	outcomeCleanupInterval = time.Minute
)

// OutcomeStore holds terminal outcomes keyed by idempotency key. A key maps to
// at most one terminal outcome; Record keeps the first write.
type OutcomeStore interface {
	Record(ctx context.Context, outcome Outcome) error
	Get(ctx context.Context, key string) (Outcome, bool, error)
}

// MemoryOutcomeStore is the default single-process store. Outcomes are evicted
// after the configured TTL; ttl <= 0 disables eviction.
type MemoryOutcomeStore struct {
	cache *gocache.Cache
}

func NewMemoryOutcomeStore(ttl time.Duration) *MemoryOutcomeStore {
	if ttl <= 0 {
		return &MemoryOutcomeStore{cache: gocache.New(gocache.NoExpiration, 0)}
	}
	return &MemoryOutcomeStore{cache: gocache.New(ttl, outcomeCleanupInterval)}
}

func (s *MemoryOutcomeStore) Record(_ context.Context, outcome Outcome) error {
	// Add fails when the key exists, which makes re-recording a no-op.
	_ = s.cache.Add(outcome.Key, outcome, gocache.DefaultExpiration)
	return nil
}

func (s *MemoryOutcomeStore) Get(_ context.Context, key string) (Outcome, bool, error) {
	v, ok := s.cache.Get(key)
	if !ok {
		return Outcome{}, false, nil
	}
	return v.(Outcome), true, nil //nolint:forcetypeassert
}

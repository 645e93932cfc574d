package relay

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

var ErrBuilderNotAvailable = errors.New("transaction builder not available")

// TxBuilder builds an unsigned transaction for one protocol-specific flow.
// Implementations live outside this package; the relay only sees the bytes.
type TxBuilder interface {
	BuildTransaction(ctx context.Context) ([]byte, error)
}

// BuilderProvider lazily constructs a TxBuilder. Providers back optional
// protocol SDKs that may be unavailable at runtime.
type BuilderProvider func() (TxBuilder, error)

// BuilderRegistry maps flow names to providers. Load reports a missing or
// failing provider as ErrBuilderNotAvailable so callers branch on a typed
// error instead of crashing on a missing backend.
type BuilderRegistry struct {
	mu        sync.RWMutex
	providers map[string]BuilderProvider
}

func NewBuilderRegistry() *BuilderRegistry {
	return &BuilderRegistry{
		providers: make(map[string]BuilderProvider),
	}
}

func (r *BuilderRegistry) Register(name string, provider BuilderProvider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[name] = provider
}

func (r *BuilderRegistry) Load(name string) (TxBuilder, error) {
	r.mu.RLock()
	provider, ok := r.providers[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrBuilderNotAvailable, name)
	}
	builder, err := provider()
	if err != nil {
		return nil, errors.Join(ErrBuilderNotAvailable, err)
	}
	return builder, nil
}

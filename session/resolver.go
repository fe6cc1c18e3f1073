package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// resolveTimeout bounds store access so a slow backend cannot stall
// the first tracking call.
const resolveTimeout = 2 * time.Second

// Resolver memoizes a stable session identifier. The first resolution
// reads the store; a missing or failing read mints a fresh UUID and
// writes it back best-effort. Reset clears the cache for test
// isolation or engine cleanup.
type Resolver struct {
	store Store
	key   string

	mu     sync.Mutex
	cached string
}

// NewResolver creates a resolver persisting under the given key.
func NewResolver(store Store, key string) *Resolver {
	return &Resolver{store: store, key: key}
}

// ID returns the session identifier, resolving and caching it on
// first use. It never fails; storage errors degrade to an ephemeral
// identifier.
func (r *Resolver) ID() string {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cached != "" {
		return r.cached
	}

	ctx, cancel := context.WithTimeout(context.Background(), resolveTimeout)
	defer cancel()

	value, err := r.store.Get(ctx, r.key)
	if err == nil && value != "" {
		r.cached = value
		return r.cached
	}

	r.cached = uuid.New().String()
	if err == nil || errors.Is(err, ErrNotFound) {
		// Best-effort persistence; an ephemeral id is acceptable.
		_ = r.store.Set(ctx, r.key, r.cached)
	}
	return r.cached
}

// Provider adapts the resolver to the engine's session hook.
func (r *Resolver) Provider() func() string {
	return r.ID
}

// Reset clears the cached identifier; the next ID call resolves
// again.
func (r *Resolver) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cached = ""
}

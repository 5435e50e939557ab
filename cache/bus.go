package cache

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
)

// Bus is the explicit invalidation bus between the entity services and
// the cache. A service publishes Changed after every mutating write; the
// bus clears the cache key prefixes subscribed to that entity. There is
// no implicit broadcast: every (entity, prefix) edge is registered by
// the wiring code at startup.
type Bus struct {
	cache  Cache
	logger zerolog.Logger

	mu   sync.RWMutex
	subs map[string][]string
}

// NewBus returns a Bus invalidating entries in the given cache.
func NewBus(c Cache, logger zerolog.Logger) *Bus {
	return &Bus{
		cache:  c,
		logger: logger,
		subs:   map[string][]string{},
	}
}

// Subscribe registers cache key prefixes to clear whenever the named
// entity changes.
func (b *Bus) Subscribe(entity string, prefixes ...string) {
	b.mu.Lock()
	b.subs[entity] = append(b.subs[entity], prefixes...)
	b.mu.Unlock()
}

// Changed reports a write to the named entity and clears every
// subscribed prefix. Invalidation failures are logged, not propagated:
// the write that triggered them has already succeeded.
func (b *Bus) Changed(ctx context.Context, entity string) {
	b.mu.RLock()
	prefixes := b.subs[entity]
	b.mu.RUnlock()
	for _, prefix := range prefixes {
		if err := b.cache.CleanPrefix(ctx, prefix); err != nil {
			b.logger.Warn().Err(err).Str("entity", entity).Str("prefix", prefix).Msg("cache invalidation failed")
		}
	}
}

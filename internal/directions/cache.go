package directions

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/chargeroute/chargeroute/internal/location"
)

// DefaultFetchTimeout bounds a single provider fetch started by Ensure.
const DefaultFetchTimeout = 30 * time.Second

// Fetcher retrieves the route for one leg from an external provider.
type Fetcher interface {
	Fetch(ctx context.Context, from, to location.Location) (Entry, error)
}

// CacheConfig configures a Cache.
type CacheConfig struct {
	// Store persists entries. Optional; nil keeps entries in memory only.
	Store Store

	// Fetcher fills misses in Ensure. Optional.
	Fetcher Fetcher

	// FetchTimeout bounds each shared fetch. Default: DefaultFetchTimeout
	FetchTimeout time.Duration

	Logger zerolog.Logger
}

// Cache is an unbounded directional leg cache. Entries are never evicted;
// Put overwrites. Reads are concurrent, writes are serialized, and Ensure
// collapses concurrent fetches of the same leg into one provider call.
type Cache struct {
	mu           sync.RWMutex
	entries      map[Key]Entry
	store        Store
	fetcher      Fetcher
	fetchTimeout time.Duration
	group        singleflight.Group
	logger       zerolog.Logger
}

// NewCache creates a cache and loads any persisted entries.
func NewCache(ctx context.Context, cfg CacheConfig) (*Cache, error) {
	timeout := cfg.FetchTimeout
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}
	c := &Cache{
		entries:      make(map[Key]Entry),
		store:        cfg.Store,
		fetcher:      cfg.Fetcher,
		fetchTimeout: timeout,
		logger:       cfg.Logger,
	}

	if c.store != nil {
		loaded, err := c.store.Load(ctx)
		if err != nil {
			return nil, fmt.Errorf("load directions: %w", err)
		}
		c.entries = loaded
		if c.entries == nil {
			c.entries = make(map[Key]Entry)
		}
	}

	c.logger.Debug().Int("entries", len(c.entries)).Msg("directions cache loaded")
	return c, nil
}

// Get returns the entry for the leg from -> to.
func (c *Cache) Get(from, to location.ID) (Entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[Key{From: from, To: to}]
	return e, ok
}

// Put validates and stores entry for the leg from -> to, replacing any previous value.
func (c *Cache) Put(ctx context.Context, from, to location.ID, entry Entry) error {
	if err := entry.Validate(); err != nil {
		return err
	}
	key := Key{From: from, To: to}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.store != nil {
		if err := c.store.Put(ctx, key, entry); err != nil {
			return fmt.Errorf("persist directions %s: %w", key, err)
		}
	}
	c.entries[key] = entry
	return nil
}

// Len returns the number of cached legs.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Snapshot returns a copy of all entries.
func (c *Cache) Snapshot() map[Key]Entry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[Key]Entry, len(c.entries))
	for k, v := range c.entries {
		out[k] = v
	}
	return out
}

// Ensure returns the cached leg, fetching and storing it on a miss.
// Concurrent callers for the same leg share one fetch. The fetch is detached
// from any single caller's cancellation and bounded by the fetch timeout;
// each caller still returns as soon as its own context is done.
func (c *Cache) Ensure(ctx context.Context, from, to location.Location) (Entry, error) {
	if e, ok := c.Get(from.ID, to.ID); ok {
		return e, nil
	}
	if c.fetcher == nil {
		return Entry{}, ErrNoFetcher
	}

	key := Key{From: from.ID, To: to.ID}
	ch := c.group.DoChan(key.String(), func() (any, error) {
		if e, ok := c.Get(from.ID, to.ID); ok {
			return e, nil
		}

		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.fetchTimeout)
		defer cancel()

		c.logger.Debug().Str("leg", key.String()).Msg("fetching directions")

		e, err := c.fetcher.Fetch(fetchCtx, from, to)
		if err != nil {
			c.logger.Error().Err(err).Str("leg", key.String()).Msg("failed to fetch directions")
			return Entry{}, err
		}
		if err := c.Put(fetchCtx, from.ID, to.ID, e); err != nil {
			return Entry{}, err
		}
		return e, nil
	})

	select {
	case <-ctx.Done():
		return Entry{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return Entry{}, res.Err
		}
		if res.Shared {
			c.logger.Debug().Str("leg", key.String()).Msg("shared in-flight directions fetch")
		}
		return res.Val.(Entry), nil
	}
}

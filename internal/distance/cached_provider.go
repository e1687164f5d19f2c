package distance

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/chargeroute/chargeroute/internal/location"
)

// CachedProvider serves matrices from a FileStore and falls back to a live
// provider when the stored matrix does not cover the requested locations.
type CachedProvider struct {
	mu     sync.Mutex
	store  *FileStore
	source Provider
	cached *Matrix
	loaded bool
	logger zerolog.Logger
}

// NewCachedProvider wraps source with the on-disk store.
func NewCachedProvider(store *FileStore, source Provider, logger zerolog.Logger) *CachedProvider {
	return &CachedProvider{
		store:  store,
		source: source,
		logger: logger,
	}
}

// Matrix returns a matrix restricted to locs, in their order.
func (p *CachedProvider) Matrix(ctx context.Context, locs []location.Location) (*Matrix, error) {
	ids := location.IDs(locs)

	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.loaded {
		m, err := p.store.Load()
		if err != nil {
			p.logger.Warn().Err(err).Msg("ignoring unreadable distance cache")
		}
		p.cached = m
		p.loaded = true
	}

	if p.cached != nil && p.cached.Covers(ids) {
		p.logger.Debug().Int("locations", len(ids)).Msg("distance cache hit")
		return p.cached.Submatrix(ids)
	}

	p.logger.Debug().Int("locations", len(ids)).Msg("distance cache miss, fetching matrix")

	m, err := p.source.Matrix(ctx, locs)
	if err != nil {
		return nil, fmt.Errorf("fetch distance matrix: %w", err)
	}

	// The stored matrix is replaced rather than merged since pairs between
	// old and new locations are unknown.
	if p.cached == nil || m.Len() >= p.cached.Len() {
		if err := p.store.Save(m); err != nil {
			p.logger.Warn().Err(err).Msg("failed to persist distance matrix")
		} else {
			p.cached = m
		}
	}

	return m, nil
}

package location

import (
	"context"
	"fmt"
	"slices"
	"sync"
)

// InMemoryRepository is an in-memory implementation of Repository.
type InMemoryRepository struct {
	mu        sync.RWMutex
	locations map[ID]Location
}

// NewInMemoryRepository creates a repository seeded with locs.
func NewInMemoryRepository(locs ...Location) *InMemoryRepository {
	r := &InMemoryRepository{locations: make(map[ID]Location, len(locs))}
	for _, l := range locs {
		r.locations[l.ID] = l
	}
	return r
}

// Add inserts or replaces a location after validating it.
func (r *InMemoryRepository) Add(loc Location) error {
	if err := loc.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.locations[loc.ID] = loc
	return nil
}

// List returns all locations ordered by ID.
func (r *InMemoryRepository) List(_ context.Context) ([]Location, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Location, 0, len(r.locations))
	for _, l := range r.locations {
		out = append(out, l)
	}
	slices.SortFunc(out, func(a, b Location) int {
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return 0
	})
	return out, nil
}

// Get returns the requested locations in order.
func (r *InMemoryRepository) Get(_ context.Context, ids []ID) ([]Location, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Location, 0, len(ids))
	for _, id := range ids {
		l, ok := r.locations[id]
		if !ok {
			return nil, fmt.Errorf("%w: %d", ErrNotFound, id)
		}
		out = append(out, l)
	}
	return out, nil
}

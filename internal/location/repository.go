package location

import "context"

// Repository is a read-only location catalog.
type Repository interface {
	// List returns every location in the catalog ordered by ID.
	List(ctx context.Context) ([]Location, error)

	// Get returns the locations for ids in the order requested.
	// Returns ErrNotFound if any ID is missing.
	Get(ctx context.Context, ids []ID) ([]Location, error)
}

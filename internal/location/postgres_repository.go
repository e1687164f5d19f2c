package location

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository reads locations from the attractions table.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL location repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// List returns all locations ordered by ID.
func (r *PostgresRepository) List(ctx context.Context) ([]Location, error) {
	query := `
		SELECT id, lat, lon, name
		FROM attractions
		ORDER BY id
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query locations: %w", err)
	}
	defer rows.Close()

	var out []Location
	for rows.Next() {
		var l Location
		if err := rows.Scan(&l.ID, &l.Lat, &l.Lon, &l.Name); err != nil {
			return nil, fmt.Errorf("scan location: %w", err)
		}
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate locations: %w", err)
	}
	return out, nil
}

// Get returns the requested locations in the order of ids.
func (r *PostgresRepository) Get(ctx context.Context, ids []ID) ([]Location, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	raw := make([]int64, len(ids))
	for i, id := range ids {
		raw[i] = int64(id)
	}

	query := `
		SELECT id, lat, lon, name
		FROM attractions
		WHERE id = ANY($1)
	`

	rows, err := r.pool.Query(ctx, query, raw)
	if err != nil {
		return nil, fmt.Errorf("query locations: %w", err)
	}
	defer rows.Close()

	found := make(map[ID]Location, len(ids))
	for rows.Next() {
		var l Location
		if err := rows.Scan(&l.ID, &l.Lat, &l.Lon, &l.Name); err != nil {
			return nil, fmt.Errorf("scan location: %w", err)
		}
		found[l.ID] = l
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate locations: %w", err)
	}

	out := make([]Location, 0, len(ids))
	for _, id := range ids {
		l, ok := found[id]
		if !ok {
			return nil, fmt.Errorf("%w: %d", ErrNotFound, id)
		}
		out = append(out, l)
	}
	return out, nil
}

package charging

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository queries the charging_stations table through the
// get_nearest_chargers database function.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL station repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// Nearest returns up to n stations ordered by distance from (lat, lon).
func (r *PostgresRepository) Nearest(ctx context.Context, lat, lon float64, n int) ([]Nearby, error) {
	if n < 1 {
		return nil, ErrInvalidCount
	}

	query := `
		SELECT id, operator_id, operator_name, lat, lon, distance_meters
		FROM get_nearest_chargers($1, $2, $3)
	`

	rows, err := r.pool.Query(ctx, query, lat, lon, n)
	if err != nil {
		return nil, fmt.Errorf("query nearest chargers: %w", err)
	}
	defer rows.Close()

	var out []Nearby
	for rows.Next() {
		var s Nearby
		if err := rows.Scan(&s.ID, &s.OperatorID, &s.OperatorName, &s.Lat, &s.Lon, &s.DistanceMeters); err != nil {
			return nil, fmt.Errorf("scan charger: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chargers: %w", err)
	}
	return out, nil
}

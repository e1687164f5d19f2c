package distance

import (
	"context"

	"github.com/chargeroute/chargeroute/internal/location"
	"github.com/chargeroute/chargeroute/pkg/polyline"
)

// Provider computes a distance matrix for a set of locations.
type Provider interface {
	Matrix(ctx context.Context, locs []location.Location) (*Matrix, error)
}

// DefaultDetourFactor approximates road distance from great-circle distance.
const DefaultDetourFactor = 1.3

// HaversineProvider estimates distances from coordinates without a network call.
type HaversineProvider struct {
	// DetourFactor scales straight-line distance. Zero means 1.
	DetourFactor float64
}

// Matrix returns the scaled great-circle distance for each ordered pair.
func (p HaversineProvider) Matrix(_ context.Context, locs []location.Location) (*Matrix, error) {
	factor := p.DetourFactor
	if factor == 0 {
		factor = 1
	}

	n := len(locs)
	flat := make([]float64, n*n)
	for i, a := range locs {
		for j, b := range locs {
			if i == j {
				continue
			}
			flat[i*n+j] = factor * polyline.Haversine(
				polyline.Coordinate{Lat: a.Lat, Lon: a.Lon},
				polyline.Coordinate{Lat: b.Lat, Lon: b.Lon},
			)
		}
	}
	return NewMatrixFromFlat(location.IDs(locs), flat)
}

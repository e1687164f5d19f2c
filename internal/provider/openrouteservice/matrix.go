package openrouteservice

import (
	"context"
	"fmt"

	"github.com/chargeroute/chargeroute/internal/distance"
	"github.com/chargeroute/chargeroute/internal/location"
	"github.com/chargeroute/chargeroute/internal/provider"
)

// Matrix fetches road distances between every ordered pair of locations.
// Requests larger than the configured element limit are split by source rows.
func (c *Client) Matrix(ctx context.Context, locs []location.Location) (*distance.Matrix, error) {
	n := len(locs)
	if n == 0 {
		return distance.NewMatrixFromFlat(nil, nil)
	}

	coords := make([][]float64, n)
	for i, loc := range locs {
		if err := loc.Validate(); err != nil {
			return nil, invalidCoordinates("INVALID_LOCATION", loc)
		}
		coords[i] = []float64{loc.Lon, loc.Lat}
	}

	rowsPerRequest := c.maxElements / n
	if rowsPerRequest < 1 {
		rowsPerRequest = 1
	}

	flat := make([]float64, n*n)
	for first := 0; first < n; first += rowsPerRequest {
		last := min(first+rowsPerRequest, n)
		if err := c.fetchRows(ctx, locs, coords, first, last, flat); err != nil {
			return nil, err
		}
	}

	c.logger.Debug().
		Int("locations", n).
		Msg("received distance matrix from ORS")

	return distance.NewMatrixFromFlat(location.IDs(locs), flat)
}

// fetchRows fills flat rows [first, last) from a single matrix request.
func (c *Client) fetchRows(ctx context.Context, locs []location.Location, coords [][]float64, first, last int, flat []float64) error {
	n := len(locs)
	sources := make([]int, 0, last-first)
	for i := first; i < last; i++ {
		sources = append(sources, i)
	}

	req := matrixRequest{
		Locations: coords,
		Sources:   sources,
		Metrics:   []string{"distance"},
		Units:     "m",
	}

	var resp matrixResponse
	if err := c.post(ctx, "/v2/matrix", req, &resp); err != nil {
		return err
	}

	if len(resp.Distances) != len(sources) {
		return &provider.Error{
			Provider: ProviderName,
			Code:     "BAD_MATRIX",
			Message:  fmt.Sprintf("expected %d source rows, got %d", len(sources), len(resp.Distances)),
			Err:      provider.ErrInvalidResponse,
		}
	}

	for r, row := range resp.Distances {
		i := sources[r]
		if len(row) != n {
			return &provider.Error{
				Provider: ProviderName,
				Code:     "BAD_MATRIX",
				Message:  fmt.Sprintf("row %d has %d entries, expected %d", i, len(row), n),
				Err:      provider.ErrInvalidResponse,
			}
		}
		for j, v := range row {
			if i == j {
				continue
			}
			if v == nil {
				return &provider.Error{
					Provider: ProviderName,
					Code:     "NO_ROUTE",
					Message:  fmt.Sprintf("no route from %d to %d", locs[i].ID, locs[j].ID),
					Err:      provider.ErrNoRouteFound,
				}
			}
			flat[i*n+j] = *v
		}
	}
	return nil
}

package openrouteservice

import (
	"context"
	"fmt"

	"github.com/chargeroute/chargeroute/internal/directions"
	"github.com/chargeroute/chargeroute/internal/location"
	"github.com/chargeroute/chargeroute/internal/provider"
	"github.com/chargeroute/chargeroute/pkg/polyline"
)

// Fetch retrieves the driving route for a single leg.
func (c *Client) Fetch(ctx context.Context, from, to location.Location) (directions.Entry, error) {
	if err := from.Validate(); err != nil {
		return directions.Entry{}, invalidCoordinates("INVALID_ORIGIN", from)
	}
	if err := to.Validate(); err != nil {
		return directions.Entry{}, invalidCoordinates("INVALID_DESTINATION", to)
	}

	req := directionsRequest{
		// ORS uses [lon, lat] order (GeoJSON)
		Coordinates: [][]float64{
			{from.Lon, from.Lat},
			{to.Lon, to.Lat},
		},
		Geometry: true,
		Units:    "m",
	}

	c.logger.Debug().
		Str("profile", c.profile).
		Int64("from", int64(from.ID)).
		Int64("to", int64(to.ID)).
		Msg("requesting directions from ORS")

	var resp directionsResponse
	if err := c.post(ctx, "/v2/directions", req, &resp); err != nil {
		return directions.Entry{}, err
	}

	if len(resp.Routes) == 0 {
		return directions.Entry{}, &provider.Error{
			Provider: ProviderName,
			Code:     "NO_ROUTE",
			Message:  fmt.Sprintf("no route from %d to %d", from.ID, to.ID),
			Err:      provider.ErrNoRouteFound,
		}
	}

	route := resp.Routes[0]
	coords := polyline.Decode(route.Geometry)
	if len(coords) == 0 {
		return directions.Entry{}, &provider.Error{
			Provider: ProviderName,
			Code:     "EMPTY_GEOMETRY",
			Message:  fmt.Sprintf("route from %d to %d has no geometry", from.ID, to.ID),
			Err:      provider.ErrInvalidResponse,
		}
	}

	return directions.Entry{
		DistanceMeters:  route.Summary.Distance,
		DurationSeconds: route.Summary.Duration,
		Geometry:        directions.LineString(coords),
	}, nil
}

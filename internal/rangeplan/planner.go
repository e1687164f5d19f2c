// Package rangeplan finds how far along an ordered tour a travel budget reaches.
package rangeplan

import (
	"fmt"
	"math"

	"github.com/chargeroute/chargeroute/internal/directions"
	"github.com/chargeroute/chargeroute/internal/location"
	"github.com/chargeroute/chargeroute/pkg/polyline"
)

// Distances looks up the distance between two stops.
type Distances interface {
	Distance(a, b location.ID) (float64, error)
}

// Legs looks up cached leg geometry.
type Legs interface {
	Get(from, to location.ID) (directions.Entry, bool)
}

// Result describes the furthest reachable point of a tour.
// Lat, Lon and Next are set only when ReachedEndpoint is false.
type Result struct {
	MaxReachLocation location.ID  `json:"max_reach_location"`
	ReachedEndpoint  bool         `json:"reached_endpoint"`
	RemainingBudget  float64      `json:"remaining_budget"`
	Lat              *float64     `json:"lat,omitempty"`
	Lon              *float64     `json:"lon,omitempty"`
	Next             *location.ID `json:"next_location,omitempty"`
	Ratio            float64      `json:"ratio"`
}

// CumulativeDistanceTo returns the distance traveled along tour from its first
// stop up to and including the stop id.
func CumulativeDistanceTo(tour []location.ID, id location.ID, d Distances) (float64, error) {
	var total float64
	for i, stop := range tour {
		if i > 0 {
			leg, err := d.Distance(tour[i-1], stop)
			if err != nil {
				return 0, err
			}
			total += leg
		}
		if stop == id {
			return total, nil
		}
	}
	return 0, fmt.Errorf("%w: %d", ErrLocationNotInTour, id)
}

// FindLastReachable returns the last stop whose cumulative distance does not
// exceed budget, together with the budget left on arrival there. The first
// stop is always reachable.
func FindLastReachable(tour []location.ID, budget float64, d Distances) (location.ID, float64, error) {
	pos, remaining, err := lastReachable(tour, budget, d)
	if err != nil {
		return 0, 0, err
	}
	return tour[pos], remaining, nil
}

func lastReachable(tour []location.ID, budget float64, d Distances) (int, float64, error) {
	if len(tour) < 2 {
		return 0, 0, ErrTourTooShort
	}
	if math.IsNaN(budget) || budget < 0 {
		return 0, 0, fmt.Errorf("%w: %v", ErrInvalidBudget, budget)
	}

	var total float64
	last := 0
	for i := 1; i < len(tour); i++ {
		leg, err := d.Distance(tour[i-1], tour[i])
		if err != nil {
			return 0, 0, err
		}
		if total+leg > budget {
			break
		}
		total += leg
		last = i
	}
	return last, budget - total, nil
}

// FindReachPoint returns where along tour the budget runs out. If the final
// stop is reachable the result reports the leftover budget. Otherwise the
// remaining budget past the last reachable stop L is spent on the leg to the
// following stop N: ratio = remaining / leg distance, clamped to [0, 1], and
// the point at that fraction of the leg's arc length is returned.
func FindReachPoint(tour []location.ID, budget float64, d Distances, legs Legs) (*Result, error) {
	pos, remaining, err := lastReachable(tour, budget, d)
	if err != nil {
		return nil, err
	}

	last := tour[pos]
	if pos == len(tour)-1 {
		return &Result{
			MaxReachLocation: last,
			ReachedEndpoint:  true,
			RemainingBudget:  remaining,
		}, nil
	}

	next := tour[pos+1]
	leg, ok := legs.Get(last, next)
	if !ok {
		return nil, &MissingLegError{From: last, To: next}
	}

	ratio := 1.0
	if leg.DistanceMeters > 0 {
		ratio = clamp(remaining/leg.DistanceMeters, 0, 1)
	}

	point, err := polyline.Interpolate(leg.Coordinates(), ratio)
	if err != nil {
		return nil, fmt.Errorf("leg %d -> %d: %w", last, next, err)
	}

	return &Result{
		MaxReachLocation: last,
		ReachedEndpoint:  false,
		RemainingBudget:  remaining,
		Lat:              &point.Lat,
		Lon:              &point.Lon,
		Next:             &next,
		Ratio:            ratio,
	}, nil
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

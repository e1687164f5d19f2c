package planner

import (
	"github.com/chargeroute/chargeroute/internal/charging"
	"github.com/chargeroute/chargeroute/internal/location"
	"github.com/chargeroute/chargeroute/internal/precedence"
	"github.com/chargeroute/chargeroute/internal/rangeplan"
	"github.com/chargeroute/chargeroute/internal/solver"
)

// Request asks for a visiting order and, when MaxMileage is set, the point
// where the range runs out along it.
type Request struct {
	Locations   []location.ID           `json:"locations"`
	Start       *location.ID            `json:"start"`
	Precedences []precedence.Precedence `json:"precedences,omitempty"`
	MaxMileage  *float64                `json:"max_mileage,omitempty"`
}

// Route returns the request as a precedence route.
func (r Request) Route() precedence.Route {
	return precedence.Route{
		Locations:   r.Locations,
		Start:       r.Start,
		Precedences: r.Precedences,
	}
}

// ReachRequest asks for the reach point along an already ordered route.
type ReachRequest struct {
	OrderedRoute []location.ID `json:"ordered_route"`
	MaxMileage   float64       `json:"max_mileage"`
}

// Plan is the outcome of a planning call.
type Plan struct {
	SessionID string            `json:"session_id"`
	Tour      *solver.Tour      `json:"tour,omitempty"`
	Reach     *rangeplan.Result `json:"reach,omitempty"`
	Chargers  []charging.Nearby `json:"chargers,omitempty"`
}

// Outcome labels a plan for metrics.
func (p *Plan) Outcome() string {
	switch {
	case p.Reach == nil:
		return "ordered"
	case p.Reach.ReachedEndpoint:
		return "reached"
	default:
		return "partial"
	}
}

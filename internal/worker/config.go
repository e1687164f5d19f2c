// Package worker warms the directions cache in the background so that range
// planning rarely has to wait on the routing provider.
package worker

import (
	"time"

	"github.com/chargeroute/chargeroute/internal/location"
)

// PrefetchTarget is a named ordered route whose consecutive legs should be cached.
type PrefetchTarget struct {
	Name  string        `json:"name,omitempty"`
	Route []location.ID `json:"route"`
}

// Leg is one directed hop of a route.
type Leg struct {
	From location.ID
	To   location.ID
}

// Legs returns the consecutive legs of the target's route.
func (t PrefetchTarget) Legs() []Leg {
	if len(t.Route) < 2 {
		return nil
	}
	legs := make([]Leg, 0, len(t.Route)-1)
	for i := 1; i < len(t.Route); i++ {
		legs = append(legs, Leg{From: t.Route[i-1], To: t.Route[i]})
	}
	return legs
}

// PrefetchConfig holds configuration for the prefetch job.
type PrefetchConfig struct {
	// Concurrency is the number of concurrent provider fetches.
	// Default: 3
	Concurrency int

	// Timeout bounds each leg fetch.
	// Default: 30 seconds
	Timeout time.Duration
}

// DefaultPrefetchConfig returns the default prefetch configuration.
func DefaultPrefetchConfig() PrefetchConfig {
	return PrefetchConfig{
		Concurrency: 3,
		Timeout:     30 * time.Second,
	}
}

// UniqueLegs flattens the targets' legs, dropping repeats and self-loops,
// in first-seen order.
func UniqueLegs(targets []PrefetchTarget) []Leg {
	seen := make(map[Leg]bool)
	var legs []Leg
	for _, t := range targets {
		for _, leg := range t.Legs() {
			if leg.From == leg.To || seen[leg] {
				continue
			}
			seen[leg] = true
			legs = append(legs, leg)
		}
	}
	return legs
}

// Package precedence validates routes and the ordering constraints between their stops.
package precedence

import (
	"fmt"
	"slices"

	"github.com/chargeroute/chargeroute/internal/location"
)

// Precedence requires Before to be visited earlier than After.
type Precedence struct {
	Before location.ID `json:"before"`
	After  location.ID `json:"after"`
}

func (p Precedence) String() string {
	return fmt.Sprintf("%d -> %d", p.Before, p.After)
}

// Route is an unordered set of locations to visit from a starting point.
type Route struct {
	Locations   []location.ID `json:"locations"`
	Start       *location.ID  `json:"start,omitempty"`
	Precedences []Precedence  `json:"precedences,omitempty"`
}

// Validate checks a route in a fixed order and returns the first failure:
// duplicate locations, missing start, start outside the locations, precedences
// that put anything before the start, precedences naming unknown locations,
// then precedence cycles.
func Validate(r Route) error {
	if dups := duplicates(r.Locations); len(dups) > 0 {
		return &DuplicateLocationsError{IDs: dups}
	}
	if r.Start == nil {
		return ErrNoStartingPoint
	}

	known := make(map[location.ID]struct{}, len(r.Locations))
	for _, id := range r.Locations {
		known[id] = struct{}{}
	}
	if _, ok := known[*r.Start]; !ok {
		return fmt.Errorf("%w: %d", ErrStartingPointNotInLocations, *r.Start)
	}

	for _, p := range r.Precedences {
		if p.After == *r.Start {
			return &StartingPointPrecedenceError{Precedence: p}
		}
	}

	for _, p := range r.Precedences {
		for _, id := range []location.ID{p.Before, p.After} {
			if _, ok := known[id]; !ok {
				return &UnknownLocationError{ID: id, Precedence: p}
			}
		}
	}

	if cycle := FindCycle(r.Precedences); cycle != nil {
		return &CycleError{Cycle: cycle}
	}
	return nil
}

func duplicates(ids []location.ID) []location.ID {
	seen := make(map[location.ID]int, len(ids))
	var dups []location.ID
	for _, id := range ids {
		seen[id]++
		if seen[id] == 2 {
			dups = append(dups, id)
		}
	}
	slices.Sort(dups)
	return dups
}

type frame struct {
	node location.ID
	next int
}

// FindCycle returns the first cycle found in the precedence graph, or nil.
// Roots are explored in ascending ID order and edges in input order, so the
// result is deterministic. The search uses an explicit stack.
func FindCycle(precs []Precedence) []location.ID {
	adj := make(map[location.ID][]location.ID)
	for _, p := range precs {
		adj[p.Before] = append(adj[p.Before], p.After)
		if _, ok := adj[p.After]; !ok {
			adj[p.After] = nil
		}
	}

	roots := make([]location.ID, 0, len(adj))
	for id := range adj {
		roots = append(roots, id)
	}
	slices.Sort(roots)

	const (
		unvisited = iota
		onPath
		done
	)
	state := make(map[location.ID]int, len(adj))
	pathIndex := make(map[location.ID]int)
	var path []location.ID
	var stack []frame

	for _, root := range roots {
		if state[root] != unvisited {
			continue
		}

		stack = append(stack[:0], frame{node: root})
		state[root] = onPath
		pathIndex[root] = len(path)
		path = append(path, root)

		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			edges := adj[top.node]

			if top.next < len(edges) {
				next := edges[top.next]
				top.next++

				switch state[next] {
				case onPath:
					return append([]location.ID(nil), path[pathIndex[next]:]...)
				case unvisited:
					state[next] = onPath
					pathIndex[next] = len(path)
					path = append(path, next)
					stack = append(stack, frame{node: next})
				}
				continue
			}

			state[top.node] = done
			delete(pathIndex, top.node)
			path = path[:len(path)-1]
			stack = stack[:len(stack)-1]
		}
	}
	return nil
}

// Before returns, for each location, the set of locations that must precede it.
func Before(precs []Precedence) map[location.ID][]location.ID {
	out := make(map[location.ID][]location.ID)
	for _, p := range precs {
		out[p.After] = append(out[p.After], p.Before)
	}
	return out
}

// Satisfied reports whether order honors every precedence whose endpoints both appear in it.
func Satisfied(order []location.ID, precs []Precedence) bool {
	pos := make(map[location.ID]int, len(order))
	for i, id := range order {
		pos[id] = i
	}
	for _, p := range precs {
		b, okB := pos[p.Before]
		a, okA := pos[p.After]
		if okB && okA && b >= a {
			return false
		}
	}
	return true
}

package precedence

import (
	"errors"
	"fmt"
	"strings"

	"github.com/chargeroute/chargeroute/internal/location"
)

var (
	// ErrDuplicateLocations is returned when a location ID appears more than once.
	ErrDuplicateLocations = errors.New("duplicate locations")

	// ErrNoStartingPoint is returned when the route has no starting point.
	ErrNoStartingPoint = errors.New("no starting point")

	// ErrStartingPointNotInLocations is returned when the start is not one of the locations.
	ErrStartingPointNotInLocations = errors.New("starting point not in locations")

	// ErrInvalidStartingPointPrecedence is returned when a precedence requires
	// visiting something before the starting point.
	ErrInvalidStartingPointPrecedence = errors.New("starting point cannot come after another location")

	// ErrPrecedenceCycle is returned when precedences form a cycle.
	ErrPrecedenceCycle = errors.New("precedence cycle")
)

// DuplicateLocationsError lists every ID that occurs more than once.
type DuplicateLocationsError struct {
	IDs []location.ID
}

func (e *DuplicateLocationsError) Error() string {
	return fmt.Sprintf("duplicate locations: %s", joinIDs(e.IDs, ", "))
}

// Is matches ErrDuplicateLocations.
func (e *DuplicateLocationsError) Is(target error) bool {
	return target == ErrDuplicateLocations
}

// StartingPointPrecedenceError carries the offending precedence.
type StartingPointPrecedenceError struct {
	Precedence Precedence
}

func (e *StartingPointPrecedenceError) Error() string {
	return fmt.Sprintf("precedence %s targets the starting point", e.Precedence)
}

// Is matches ErrInvalidStartingPointPrecedence.
func (e *StartingPointPrecedenceError) Is(target error) bool {
	return target == ErrInvalidStartingPointPrecedence
}

// CycleError carries the locations on a precedence cycle in traversal order.
// The edge from the last element back to the first closes the cycle.
type CycleError struct {
	Cycle []location.ID
}

func (e *CycleError) Error() string {
	return "precedence cycle: " + e.Path()
}

// Path renders the cycle with the first location repeated at the end, e.g. "1 -> 2 -> 3 -> 1".
func (e *CycleError) Path() string {
	if len(e.Cycle) == 0 {
		return ""
	}
	return joinIDs(append(append([]location.ID(nil), e.Cycle...), e.Cycle[0]), " -> ")
}

// Is matches ErrPrecedenceCycle.
func (e *CycleError) Is(target error) bool {
	return target == ErrPrecedenceCycle
}

// UnknownLocationError is returned when a precedence names a location outside the route.
type UnknownLocationError struct {
	ID         location.ID
	Precedence Precedence
}

func (e *UnknownLocationError) Error() string {
	return fmt.Sprintf("precedence %s references unknown location %d", e.Precedence, e.ID)
}

// Is matches location.ErrUnknownLocation.
func (e *UnknownLocationError) Is(target error) bool {
	return target == location.ErrUnknownLocation
}

func joinIDs(ids []location.ID, sep string) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = id.String()
	}
	return strings.Join(parts, sep)
}

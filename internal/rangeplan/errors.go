package rangeplan

import (
	"errors"
	"fmt"

	"github.com/chargeroute/chargeroute/internal/location"
)

var (
	// ErrTourTooShort is returned for tours with fewer than two stops.
	ErrTourTooShort = errors.New("tour needs at least two stops")

	// ErrInvalidBudget is returned for negative or NaN budgets.
	ErrInvalidBudget = errors.New("budget must be a non-negative number")

	// ErrLocationNotInTour is returned when a location is not one of the tour's stops.
	ErrLocationNotInTour = errors.New("location not in tour")

	// ErrMissingDirectionsLeg is returned when the leg geometry needed for interpolation is not cached.
	ErrMissingDirectionsLeg = errors.New("missing directions leg")
)

// MissingLegError names the leg that has no cached directions.
type MissingLegError struct {
	From location.ID
	To   location.ID
}

func (e *MissingLegError) Error() string {
	return fmt.Sprintf("missing directions for leg %d -> %d", e.From, e.To)
}

// Is matches ErrMissingDirectionsLeg.
func (e *MissingLegError) Is(target error) bool {
	return target == ErrMissingDirectionsLeg
}

package solver

import (
	"errors"
	"fmt"
)

var (
	// ErrTooFewLocations is returned for routes with fewer than two locations.
	ErrTooFewLocations = errors.New("route needs at least two locations")

	// ErrTooManyLocations is returned when the exact DP is asked for more locations than it supports.
	ErrTooManyLocations = errors.New("too many locations for exact search")

	// ErrInfeasible is returned when no ordering satisfies the constraints.
	ErrInfeasible = errors.New("no feasible route")

	// ErrSolverFailure is returned when the optimizer stops without a proven optimum.
	ErrSolverFailure = errors.New("solver failure")
)

// SolverError reports a non-optimal optimizer outcome.
type SolverError struct {
	Status Status
	Err    error
}

func (e *SolverError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("solver stopped with status %s: %v", e.Status, e.Err)
	}
	return fmt.Sprintf("solver stopped with status %s", e.Status)
}

// Is matches ErrSolverFailure.
func (e *SolverError) Is(target error) bool {
	return target == ErrSolverFailure
}

func (e *SolverError) Unwrap() error {
	return e.Err
}

package location

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a location ID is not in the catalog.
	ErrNotFound = errors.New("location not found")

	// ErrInvalidCoordinates is returned when latitude or longitude is out of range.
	ErrInvalidCoordinates = errors.New("invalid coordinates")

	// ErrDuplicateID is returned when two locations share an ID.
	ErrDuplicateID = errors.New("duplicate location id")

	// ErrUnknownLocation is returned when an ID is referenced outside the set it belongs to.
	ErrUnknownLocation = errors.New("unknown location")
)

// InvalidLocationError wraps a validation failure for a single location.
type InvalidLocationError struct {
	ID  ID
	Err error
}

func (e *InvalidLocationError) Error() string {
	return fmt.Sprintf("location %d: %v", e.ID, e.Err)
}

// Is matches ErrInvalidCoordinates.
func (e *InvalidLocationError) Is(target error) bool {
	return target == ErrInvalidCoordinates
}

func (e *InvalidLocationError) Unwrap() error {
	return e.Err
}

package distance

import (
	"errors"
	"fmt"

	"github.com/chargeroute/chargeroute/internal/location"
)

var (
	// ErrUnknownLocation is returned when a lookup names an ID outside the matrix.
	ErrUnknownLocation = location.ErrUnknownLocation

	// ErrInvalidMatrix is returned when matrix input is malformed.
	ErrInvalidMatrix = errors.New("invalid distance matrix")
)

// UnknownLocationError reports the ID that was not part of the matrix.
type UnknownLocationError struct {
	ID location.ID
}

func (e *UnknownLocationError) Error() string {
	return fmt.Sprintf("unknown location %d", e.ID)
}

// Is matches ErrUnknownLocation.
func (e *UnknownLocationError) Is(target error) bool {
	return target == ErrUnknownLocation
}

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidMatrix, fmt.Sprintf(format, args...))
}

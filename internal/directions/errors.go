package directions

import "errors"

var (
	// ErrInvalidKey is returned when a persisted key is not of the form "{from}-{to}".
	ErrInvalidKey = errors.New("invalid directions key")

	// ErrInvalidEntry is returned when an entry has no usable geometry or distance.
	ErrInvalidEntry = errors.New("invalid directions entry")

	// ErrNoFetcher is returned by Ensure when the cache has no fetcher configured.
	ErrNoFetcher = errors.New("directions fetcher not configured")
)

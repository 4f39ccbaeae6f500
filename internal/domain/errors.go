package domain

import "errors"

// Sentinel errors for the reservation domain. Services return these (usually
// wrapped with context via fmt.Errorf and %w) and handlers map them to HTTP
// status codes with errors.Is.
var (
	ErrInvalidInput     = errors.New("invalid input")
	ErrNotFound         = errors.New("not found")
	ErrUnauthenticated  = errors.New("unauthenticated")
	ErrForbidden        = errors.New("forbidden")
	ErrConflict         = errors.New("conflict")
	ErrAlreadyCancelled = errors.New("reservation already cancelled")
	ErrUnavailable      = errors.New("dependency unavailable")
)

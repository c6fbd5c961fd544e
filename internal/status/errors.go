package status

import "errors"

var (
	// ErrInvalidStatus is returned when a status is not a known state
	ErrInvalidStatus = errors.New("invalid invoice status")

	// ErrInvalidTransition is returned when a status change is not allowed
	ErrInvalidTransition = errors.New("invalid status transition")
)

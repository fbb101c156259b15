package service

import "errors"

// Core failure taxonomy. Validation errors live next to the operation
// that raises them; these four cut across services and drive the HTTP
// status mapping in the handlers.
var (
	// ErrNotFound covers both "does not exist" and "belongs to another
	// tenant" — the two are deliberately indistinguishable.
	ErrNotFound = errors.New("not found")

	// ErrInvalidTransition is a state machine precondition failure.
	// Never retried, never silently corrected.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrForbidden marks attempts to mutate system-derived records.
	ErrForbidden = errors.New("forbidden")
)

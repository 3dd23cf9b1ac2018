package errors

import "errors"

// Common application errors. Services wrap these with fmt.Errorf("%w: ...")
// and handlers map them to HTTP statuses with errors.Is.
var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrUnauthorized is returned for bad credentials or an invalid token.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden is returned when the caller's role does not allow the action.
	ErrForbidden = errors.New("forbidden")

	// ErrValidation is returned for missing or malformed input.
	ErrValidation = errors.New("validation failed")

	// ErrExpired is returned when a code or token matched but is past its expiry.
	ErrExpired = errors.New("expired")

	// ErrConflict is returned for state conflicts, e.g. a duplicate stock number
	// or selling a vehicle that is already sold.
	ErrConflict = errors.New("resource state conflict")
)

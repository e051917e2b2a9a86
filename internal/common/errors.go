// Package common defines shared constants and sentinel errors used across
// the nightpost server layers. Callers should use errors.Is to match these
// values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Validation errors (bad input from the client).
	ErrorValidation = errors.New("validation error")

	// Authorization errors.
	ErrorForbidden    = errors.New("forbidden")
	ErrorUnauthorized = errors.New("unauthorized")
	ErrInvalidToken   = errors.New("invalid token")

	// Assignment outcomes. These are expected flow-control results, not
	// failures: the service layer converts them into explicit outcome
	// variants before anything reaches a client.
	ErrorNoneAvailable        = errors.New("no public thread available")
	ErrorAlreadyAssignedToday = errors.New("already assigned today")

	// ErrLockTimeout is returned when the claim transaction could not
	// acquire the pool row lock within the configured bound. Safe to retry.
	ErrLockTimeout = errors.New("lock wait timeout")

	// Service-level errors (generic/internal flow control).
	ErrorInternal = errors.New("internal error")
)

package models

import (
	"errors"
	"fmt"
)

// Sentinel errors shared across services.
var (
	ErrNotFound     = errors.New("not found")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")
)

// ValidationError reports a request that is malformed or violates a local
// invariant before any remote call is attempted.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s", e.Reason)
}

// ConflictError reports that a requested slot or quantity is not available.
type ConflictError struct {
	Reason string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("availability conflict: %s", e.Reason)
}

// StateError reports an operation applied to a booking whose status does not
// admit it.
type StateError struct {
	Status string
	Action string
}

func (e *StateError) Error() string {
	return fmt.Sprintf("cannot %s booking in status %q", e.Action, e.Status)
}

// TransportError wraps a failure to reach or understand the booking
// authority. Callers may retry; no state was assumed changed.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("authority %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

func IsConflict(err error) bool {
	var ce *ConflictError
	return errors.As(err, &ce)
}

func IsStateError(err error) bool {
	var se *StateError
	return errors.As(err, &se)
}

func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

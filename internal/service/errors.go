package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/iliyamo/bus-seat-admin/internal/repository"
)

// Errors returned by the seat registry, booking ledger and the other
// services.  Callers test for them with errors.Is.
var (
	ErrSeatConflict         = errors.New("seat is no longer available")
	ErrInvalidTransition    = errors.New("invalid status transition")
	ErrNotFound             = errors.New("not found")
	ErrAuthenticationFailed = errors.New("invalid credentials")
	ErrStoreUnavailable     = errors.New("store unavailable")
	ErrAlreadyInitialized   = errors.New("seats already initialized with a different capacity")
	ErrSeatUnavailable      = errors.New("seat is not available")
	ErrSeatOccupied         = errors.New("seat is held by an active booking")
	ErrInvalidSeat          = errors.New("invalid seat number")
	ErrConflict             = errors.New("conflict")
	ErrForbidden            = errors.New("forbidden")
	ErrValidation           = errors.New("validation failed")
)

// ValidationError reports a bad input field.  It matches ErrValidation.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Msg
	}
	return e.Field + ": " + e.Msg
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func invalid(field, msg string) error { return &ValidationError{Field: field, Msg: msg} }

var known = []error{
	ErrSeatConflict, ErrInvalidTransition, ErrNotFound, ErrAuthenticationFailed,
	ErrStoreUnavailable, ErrAlreadyInitialized, ErrSeatUnavailable, ErrSeatOccupied,
	ErrInvalidSeat, ErrConflict, ErrForbidden, ErrValidation,
	context.Canceled, context.DeadlineExceeded,
}

// storeErr passes service errors through and wraps anything else coming
// out of the persistence layer as ErrStoreUnavailable.
func storeErr(err error) error {
	if err == nil {
		return nil
	}
	for _, k := range known {
		if errors.Is(err, k) {
			return err
		}
	}
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, repository.ErrDuplicate) {
		return ErrConflict
	}
	return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
}

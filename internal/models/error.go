package models

import (
	"errors"
	"fmt"
)

// Sentinel errors for common failure conditions
var (
	ErrNotFound       = errors.New("resource not found")
	ErrConflict       = errors.New("resource already exists")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrBadRequest     = errors.New("bad request")
	ErrInternalServer = errors.New("internal server error")

	// Account state errors
	ErrAccountDisabled = errors.New("account is disabled")
	ErrAccountLocked   = errors.New("account is temporarily locked")

	// MFA errors
	ErrMFARequired    = errors.New("mfa code required")
	ErrInvalidMFACode = errors.New("invalid mfa code")
	ErrMFANotEnrolled = errors.New("mfa enrollment not started")
)

// LockedError carries the lockout decision so handlers can surface the wait time
type LockedError struct {
	Decision *LoginDecision
}

func (e *LockedError) Error() string {
	if e.Decision == nil || e.Decision.LockoutMinutes == nil {
		return ErrAccountLocked.Error()
	}
	return fmt.Sprintf("%s for %d minute(s)", ErrAccountLocked.Error(), *e.Decision.LockoutMinutes)
}

func (e *LockedError) Unwrap() error {
	return ErrAccountLocked
}

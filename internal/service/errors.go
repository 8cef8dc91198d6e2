package service

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrValidation = errors.New("validation failed")
	// ErrInvalidCredentials deliberately does not say whether the identifier
	// or the password was wrong.
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotFound       = errors.New("user not found")
	ErrPasswordTooShort   = errors.New("new password must be at least 8 characters long")
	ErrPasswordTooWeak    = errors.New("password must contain at least 1 uppercase, 1 lowercase, and 1 number")
	ErrSeededAccount      = errors.New("cannot change password for this account")
	ErrWrongPassword      = errors.New("current password is incorrect")
)

// AccountLockedError carries the lockout expiry so the handler can surface
// the remaining minutes. The decision itself was already made from the
// stored state.
type AccountLockedError struct {
	Until time.Time
}

func (e *AccountLockedError) Error() string {
	return fmt.Sprintf("account is locked until %s", e.Until.Format(time.RFC3339))
}

// BadCredentialsError reports a failed attempt together with how many
// attempts remain before lockout, for messaging only.
type BadCredentialsError struct {
	Remaining int
}

func (e *BadCredentialsError) Error() string {
	return fmt.Sprintf("invalid credentials, %d attempt(s) remaining", e.Remaining)
}

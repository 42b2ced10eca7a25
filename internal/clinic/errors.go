// Package clinic holds the booking workflow: accounts, the two request
// ledgers and the ownership checks that gate every status change.
package clinic

import (
	"errors"
	"fmt"
)

var (
	ErrDuplicateIdentity  = errors.New("duplicate identity")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNotFound           = errors.New("not found")
	ErrForbidden          = errors.New("forbidden")
	ErrInvalidRole        = errors.New("invalid role")
	ErrNotReady           = errors.New("not ready")
	ErrAlreadyReviewed    = errors.New("already reviewed")
	ErrValidation         = errors.New("validation error")
)

// Error pairs a sentinel kind with a message fit for the end user.
type Error struct {
	Kind error
	Msg  string
}

func (e *Error) Error() string { return e.Msg }

func (e *Error) Unwrap() error { return e.Kind }

func fail(kind error, format string, args ...any) error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

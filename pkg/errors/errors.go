package errors

import (
	goErrors "errors"
	"fmt"
)

// New returns an error with the given message.
func New(msg string) error {
	return goErrors.New(msg)
}

// Is and As are re-exported so that callers don't need to import both this
// package and the standard library's.
var (
	Is = goErrors.Is
	As = goErrors.As
)

type contextError struct {
	context string
	err     error
}

// WithContext wraps `err` with a short description of what was being done
// when it occurred. The description is prepended to the error message.
func WithContext(err error, context string) error {
	if err == nil {
		return nil
	}
	return contextError{context: context, err: err}
}

func (err contextError) Error() string {
	return fmt.Sprintf("%s: %s", err.context, err.err)
}

func (err contextError) Unwrap() error {
	return err.err
}

// FriendlyError is an error whose message is suitable for displaying
// directly to users.
type FriendlyError interface {
	error
	FriendlyMessage() string
}

type friendlyError struct {
	msg string
}

// NewFriendlyError creates an error with a message intended for users rather
// than developers.
func NewFriendlyError(format string, args ...interface{}) error {
	return friendlyError{msg: fmt.Sprintf(format, args...)}
}

func (err friendlyError) Error() string {
	return err.msg
}

func (err friendlyError) FriendlyMessage() string {
	return err.msg
}

// RootCause returns the innermost error that was wrapped with WithContext.
func RootCause(err error) error {
	for {
		ctxErr, ok := err.(contextError)
		if !ok {
			return err
		}
		err = ctxErr.err
	}
}

// GetPrintableMessage returns the friendliest message available for `err`.
// If any error in the chain is a FriendlyError, its message is used.
// Otherwise, the full error string is returned.
func GetPrintableMessage(err error) string {
	var friendly FriendlyError
	if As(err, &friendly) {
		return friendly.FriendlyMessage()
	}
	return err.Error()
}

package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a failure at the point it occurs. Handlers map kinds
// to HTTP statuses with a switch; nothing downstream inspects error text.
type ErrorKind string

const (
	KindInvalidRequest          ErrorKind = "invalid_request"
	KindUnauthorized            ErrorKind = "unauthorized"
	KindTokenExpired            ErrorKind = "token_expired"
	KindReportNotFound          ErrorKind = "report_not_found"
	KindInsufficientPermissions ErrorKind = "insufficient_permissions"
	KindRateLimited             ErrorKind = "rate_limited"
	KindUpstream                ErrorKind = "upstream_error"
	KindSecurity                ErrorKind = "security_violation"
	KindInternal                ErrorKind = "internal_error"
)

// Error is a failure tagged with its kind. The message is safe to return to
// callers; the wrapped cause is for logs only and may carry upstream detail.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates a tagged error with no underlying cause.
func NewError(kind ErrorKind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// WrapError tags an underlying failure with a kind and a caller-safe message.
func WrapError(kind ErrorKind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// kinder lets error types outside this package carry a kind without
// depending on the Error struct.
type kinder interface {
	AppErrorKind() ErrorKind
}

// KindOf extracts the kind from an error chain, defaulting to internal.
func KindOf(err error) ErrorKind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}

	var k kinder
	if errors.As(err, &k) {
		return k.AppErrorKind()
	}

	return KindInternal
}

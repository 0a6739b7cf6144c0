// Package apierr defines the typed error taxonomy the HTTP layer maps to
// status codes, generalizing the ad hoc writeError(w, status, msg) call
// sites into a single error -> status mapping.
package apierr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for HTTP status mapping.
type Kind string

const (
	KindValidation   Kind = "validation"
	KindAuthorization Kind = "authorization"
	KindPolicy       Kind = "policy"
	KindNotFound     Kind = "not_found"
	KindInternal     Kind = "internal"
)

// Error is a taxonomy-tagged error carrying enough context for the API
// layer to render a response without re-deriving the status code.
type Error struct {
	Kind    Kind
	Message string
	// Extra carries kind-specific fields merged into the error response body
	// (e.g. required_role/current_role for KindAuthorization, policy for an
	// armed-gate KindPolicy error).
	Extra map[string]any
	Err   error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// As reports whether target is an *Error and populates it, following the
// standard errors.As contract.
func As(err error, target **Error) bool {
	return errors.As(err, target)
}

// Validation builds a 400-class error for malformed or missing input.
func Validation(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// Authorization builds a 403-class error with required/current role context.
func Authorization(message, requiredRole, currentRole string) *Error {
	return &Error{
		Kind:    KindAuthorization,
		Message: message,
		Extra: map[string]any{
			"required_role": requiredRole,
			"current_role":  currentRole,
		},
	}
}

// Policy builds a policy-gate error. httpStatus is either 403 (armed-gate)
// or 400 (insufficient approvals), per spec.
func Policy(httpStatus int, message string, extra map[string]any) *Error {
	e := &Error{Kind: KindPolicy, Message: message, Extra: extra}
	if e.Extra == nil {
		e.Extra = map[string]any{}
	}
	e.Extra["_status"] = httpStatus
	return e
}

// NotFound builds a 404-class error.
func NotFound(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

// Internal wraps an unexpected error as a 500-class error.
func Internal(message string, err error) *Error {
	return &Error{Kind: KindInternal, Message: message, Err: err}
}

// Status returns the HTTP status code this error should be rendered with.
func Status(err error) int {
	var apiErr *Error
	if !errors.As(err, &apiErr) {
		return 500
	}
	switch apiErr.Kind {
	case KindValidation:
		return 400
	case KindAuthorization:
		return 403
	case KindPolicy:
		if status, ok := apiErr.Extra["_status"].(int); ok {
			return status
		}
		return 400
	case KindNotFound:
		return 404
	default:
		return 500
	}
}

// Package apperr classifies failures so the HTTP layer can map them to status codes.
package apperr

import (
	"errors"
	"net/http"
)

type Kind int

const (
	KindUpstream Kind = iota
	KindValidation
	KindAuth
	KindNotFound
	KindUnknownCategory
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAuth:
		return "auth"
	case KindNotFound:
		return "not_found"
	case KindUnknownCategory:
		return "unknown_category"
	default:
		return "upstream"
	}
}

// Error carries a client-facing message and the wrapped cause.
type Error struct {
	Kind    Kind
	Message string
	Err     error

	// status overrides the kind's default code when non-zero.
	status int
}

func (e *Error) Error() string {
	if e.Err != nil && e.Message == "" {
		return e.Err.Error()
	}
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func Validation(msg string) *Error { return &Error{Kind: KindValidation, Message: msg} }

func Auth(msg string) *Error { return &Error{Kind: KindAuth, Message: msg} }

func NotFound(msg string) *Error { return &Error{Kind: KindNotFound, Message: msg} }

func UnknownCategory(msg string) *Error { return &Error{Kind: KindUnknownCategory, Message: msg} }

// Upstream wraps a failure of a model, storage, LLM or database call.
func Upstream(msg string, err error) *Error {
	return &Error{Kind: KindUpstream, Message: msg, Err: err}
}

var (
	ErrDuplicateEmail     = &Error{Kind: KindValidation, Message: "Email already exists"}
	ErrInvalidEmail       = &Error{Kind: KindValidation, Message: "Invalid email address"}
	ErrInvalidCredentials = &Error{Kind: KindAuth, Message: "Invalid credentials"}
)

// InvalidToken is an auth failure reported as 400, matching the Google sign-in contract.
func InvalidToken(err error) *Error {
	return &Error{Kind: KindAuth, Message: "Invalid token", Err: err, status: http.StatusBadRequest}
}

// KindOf returns the kind of the first *Error in err's chain, KindUpstream otherwise.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUpstream
}

func Is(err error, k Kind) bool {
	return err != nil && KindOf(err) == k
}

// Status maps err to an HTTP status code.
func Status(err error) int {
	var e *Error
	if errors.As(err, &e) && e.status != 0 {
		return e.status
	}
	switch KindOf(err) {
	case KindValidation, KindUnknownCategory:
		return http.StatusBadRequest
	case KindAuth:
		return http.StatusUnauthorized
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// Message is the text written to the client. Upstream errors surface their raw cause.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Error()
	}
	return err.Error()
}

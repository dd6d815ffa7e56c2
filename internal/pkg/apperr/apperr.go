// Package apperr carries the typed errors that cross from use cases to transports.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is the stable error identifier clients switch on.
type Kind string

const (
	KindForbidden      Kind = "forbidden"
	KindInvalidRequest Kind = "invalid_request"
	KindInvalidItem    Kind = "invalid_item"
	KindNoShipping     Kind = "no_shipping"
	KindInternal       Kind = "internal"
)

// Error is an application error with a kind, an HTTP status and optional client data.
type Error struct {
	Kind    Kind
	Message string
	Status  int
	Data    map[string]any
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// With adds one data entry.
func (e *Error) With(key string, value any) *Error {
	if e.Data == nil {
		e.Data = make(map[string]any)
	}
	e.Data[key] = value
	return e
}

// Wrap records the underlying cause.
func (e *Error) Wrap(err error) *Error {
	e.Err = err
	return e
}

func New(kind Kind, message string, status int) *Error {
	return &Error{Kind: kind, Message: message, Status: status}
}

func Forbidden(message string) *Error {
	if message == "" {
		message = "Access denied"
	}
	return New(KindForbidden, message, http.StatusForbidden)
}

func InvalidRequest(message string) *Error {
	return New(KindInvalidRequest, message, http.StatusBadRequest)
}

// InvalidItem reports line items that could not be added at all.
func InvalidItem(failed int) *Error {
	return New(KindInvalidItem, fmt.Sprintf("Failed to add %d items", failed), http.StatusBadRequest).
		With("failed_items", failed)
}

// NoShipping is the typed empty-quote result; required tells "not needed" apart from "unavailable".
func NoShipping(required bool) *Error {
	return New(KindNoShipping, "No Shipping", http.StatusBadRequest).
		With("required_shipping", required)
}

func Internal(message string) *Error {
	if message == "" {
		message = "an internal error occurred"
	}
	return New(KindInternal, message, http.StatusInternalServerError)
}

// As extracts an *Error from err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// From returns err as an *Error, wrapping unknown errors as internal.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	if e, ok := As(err); ok {
		return e
	}
	return Internal("").Wrap(err)
}

// IsKind reports whether err carries kind.
func IsKind(err error, kind Kind) bool {
	e, ok := As(err)
	return ok && e.Kind == kind
}

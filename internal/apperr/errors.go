// Package apperr holds the business error taxonomy shared by every layer.
// Services return these errors; the HTTP layer maps them to statuses.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound              = errors.New("not found")
	ErrInsufficientInventory = errors.New("insufficient inventory")
	ErrDuplicate             = errors.New("duplicate resource")
	ErrInvalidOperation      = errors.New("invalid operation")
	ErrConflict              = errors.New("conflict")
	ErrUnauthenticated       = errors.New("authentication failed")
	ErrForbidden             = errors.New("access denied")
)

// Error is a business error with a client-facing message.
type Error struct {
	Kind error
	Msg  string
}

func (e *Error) Error() string {
	return e.Msg
}

func (e *Error) Unwrap() error {
	return e.Kind
}

func newf(kind error, format string, args ...any) error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...any) error {
	return newf(ErrNotFound, format, args...)
}

func Duplicate(format string, args ...any) error {
	return newf(ErrDuplicate, format, args...)
}

func InvalidOperation(format string, args ...any) error {
	return newf(ErrInvalidOperation, format, args...)
}

func Conflict(format string, args ...any) error {
	return newf(ErrConflict, format, args...)
}

func Unauthenticated(format string, args ...any) error {
	return newf(ErrUnauthenticated, format, args...)
}

func Forbidden(format string, args ...any) error {
	return newf(ErrForbidden, format, args...)
}

// InsufficientInventoryError reports a failed stock check.
type InsufficientInventoryError struct {
	ProductName string
	Available   int
	Requested   int
}

func (e *InsufficientInventoryError) Error() string {
	if e.ProductName != "" {
		return fmt.Sprintf("Insufficient inventory for product '%s'. Available: %d, Requested: %d",
			e.ProductName, e.Available, e.Requested)
	}
	return fmt.Sprintf("Insufficient inventory. Available: %d, Requested: %d", e.Available, e.Requested)
}

func (e *InsufficientInventoryError) Unwrap() error {
	return ErrInsufficientInventory
}

func InsufficientInventory(productName string, available, requested int) error {
	return &InsufficientInventoryError{ProductName: productName, Available: available, Requested: requested}
}

// Message returns the client-facing message of a business error, or
// fallback when err carries none.
func Message(err error, fallback string) string {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Msg
	}
	var invErr *InsufficientInventoryError
	if errors.As(err, &invErr) {
		return invErr.Error()
	}
	return fallback
}

// IsBusiness reports whether err carries a business error from this
// package, as opposed to an infrastructure failure.
func IsBusiness(err error) bool {
	var appErr *Error
	var invErr *InsufficientInventoryError
	return errors.As(err, &appErr) || errors.As(err, &invErr)
}

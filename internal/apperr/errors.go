// Package apperr defines the error taxonomy surfaced by the order,
// waitlist and loyalty engines. Every error carries a display-safe
// message; internal causes are logged, never returned to callers.
package apperr

import (
	"errors"
	"fmt"
)

type Code string

const (
	CodeInvalidQuantity   Code = "INVALID_QUANTITY"
	CodeRoundNotFound     Code = "ROUND_NOT_FOUND"
	CodeOptionNotFound    Code = "OPTION_NOT_FOUND"
	CodeInsufficientStock Code = "INSUFFICIENT_STOCK"
	CodeNotFound          Code = "NOT_FOUND"
	CodeForbidden         Code = "FORBIDDEN"
	CodeInvalidState      Code = "INVALID_STATE"
	CodeWindowClosed      Code = "WINDOW_CLOSED"
	CodeOptionGone        Code = "OPTION_GONE"
	CodeIllegalTransition Code = "ILLEGAL_TRANSITION"
	CodeContention        Code = "CONTENTION"
	CodeInvalidArgument   Code = "INVALID_ARGUMENT"
)

type Error struct {
	Code    Code
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is lets errors.Is match any error of the same code, so sentinels below
// can be used as targets regardless of the formatted message.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code
}

func New(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Sentinels for errors.Is checks.
var (
	ErrInvalidQuantity   = &Error{Code: CodeInvalidQuantity, Message: "quantity must be at least 1"}
	ErrRoundNotFound     = &Error{Code: CodeRoundNotFound, Message: "sales round not found or not open"}
	ErrOptionNotFound    = &Error{Code: CodeOptionNotFound, Message: "product option not found"}
	ErrInsufficientStock = &Error{Code: CodeInsufficientStock, Message: "not enough stock"}
	ErrNotFound          = &Error{Code: CodeNotFound, Message: "not found"}
	ErrForbidden         = &Error{Code: CodeForbidden, Message: "not allowed"}
	ErrInvalidState      = &Error{Code: CodeInvalidState, Message: "order is not in a cancellable state"}
	ErrWindowClosed      = &Error{Code: CodeWindowClosed, Message: "cancellation window has closed"}
	ErrOptionGone        = &Error{Code: CodeOptionGone, Message: "the waitlisted option no longer exists"}
	ErrIllegalTransition = &Error{Code: CodeIllegalTransition, Message: "illegal status transition"}
	ErrContention        = &Error{Code: CodeContention, Message: "the store is busy, please retry"}
)

func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

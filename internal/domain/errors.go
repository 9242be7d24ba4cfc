package domain

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes domain errors.
type ErrorCode string

const (
	// ErrCodeNotFound indicates the requested record does not exist.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"

	// ErrCodeForbidden indicates the caller does not own the record.
	ErrCodeForbidden ErrorCode = "FORBIDDEN"

	// ErrCodeValidation indicates rejected user input.
	ErrCodeValidation ErrorCode = "VALIDATION"

	// ErrCodeConflict indicates a uniqueness violation (e.g. email taken).
	ErrCodeConflict ErrorCode = "CONFLICT"

	// ErrCodeEmptyCart indicates an order or checkout was attempted with no items.
	ErrCodeEmptyCart ErrorCode = "EMPTY_CART"

	// ErrCodeUnauthorized indicates failed authentication.
	ErrCodeUnauthorized ErrorCode = "UNAUTHORIZED"

	// ErrCodeExpired indicates a token or session past its expiry.
	ErrCodeExpired ErrorCode = "EXPIRED"

	// ErrCodePaymentPending indicates a payment session that is not paid.
	ErrCodePaymentPending ErrorCode = "PAYMENT_PENDING"
)

// Error is a domain error with a machine-readable code.
//
// Message is safe to show to end users. Err, when set, carries the
// underlying cause for logs.
type Error struct {
	Code    ErrorCode
	Message string
	Field   string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// CodeOf returns the code of the first *Error in err's chain, or "".
func CodeOf(err error) ErrorCode {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// MessageOf returns the user-facing message of err, falling back to fallback
// when err is not a domain error.
func MessageOf(err error, fallback string) string {
	var de *Error
	if errors.As(err, &de) && de.Message != "" {
		return de.Message
	}
	return fallback
}

// IsNotFound reports whether err is a NOT_FOUND domain error.
func IsNotFound(err error) bool { return CodeOf(err) == ErrCodeNotFound }

// IsForbidden reports whether err is a FORBIDDEN domain error.
func IsForbidden(err error) bool { return CodeOf(err) == ErrCodeForbidden }

// IsValidation reports whether err is a VALIDATION domain error.
func IsValidation(err error) bool { return CodeOf(err) == ErrCodeValidation }

// IsConflict reports whether err is a CONFLICT domain error.
func IsConflict(err error) bool { return CodeOf(err) == ErrCodeConflict }

// IsEmptyCart reports whether err is an EMPTY_CART domain error.
func IsEmptyCart(err error) bool { return CodeOf(err) == ErrCodeEmptyCart }

// IsUnauthorized reports whether err is an UNAUTHORIZED domain error.
func IsUnauthorized(err error) bool { return CodeOf(err) == ErrCodeUnauthorized }

// IsExpired reports whether err is an EXPIRED domain error.
func IsExpired(err error) bool { return CodeOf(err) == ErrCodeExpired }

// IsPaymentPending reports whether err is a PAYMENT_PENDING domain error.
func IsPaymentPending(err error) bool { return CodeOf(err) == ErrCodePaymentPending }

// NotFound creates a NOT_FOUND error for the named entity.
func NotFound(entity string) *Error {
	return &Error{Code: ErrCodeNotFound, Message: entity + " not found"}
}

// Forbidden creates a FORBIDDEN error.
func Forbidden(message string) *Error {
	return &Error{Code: ErrCodeForbidden, Message: message}
}

// Invalid creates a VALIDATION error for a form field.
func Invalid(field, message string) *Error {
	return &Error{Code: ErrCodeValidation, Field: field, Message: message}
}

// Conflict creates a CONFLICT error.
func Conflict(message string, err error) *Error {
	return &Error{Code: ErrCodeConflict, Message: message, Err: err}
}

// EmptyCart creates an EMPTY_CART error.
func EmptyCart() *Error {
	return &Error{Code: ErrCodeEmptyCart, Message: "Your cart is empty"}
}

// Unauthorized creates an UNAUTHORIZED error.
func Unauthorized(message string) *Error {
	return &Error{Code: ErrCodeUnauthorized, Message: message}
}

// Expired creates an EXPIRED error.
func Expired(message string) *Error {
	return &Error{Code: ErrCodeExpired, Message: message}
}

// PaymentPending creates a PAYMENT_PENDING error.
func PaymentPending(message string) *Error {
	return &Error{Code: ErrCodePaymentPending, Message: message}
}

// Package apperrors defines the error taxonomy shared by every service and the single
// mapping from that taxonomy to HTTP status codes.
package apperrors

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/go-playground/validator/v10"
)

// Kind classifies a domain error
type Kind string

const (
	KindUnauthenticated   Kind = "unauthenticated"
	KindForbidden         Kind = "forbidden"
	KindNotFound          Kind = "not_found"
	KindConflict          Kind = "conflict"
	KindInvalidState      Kind = "invalid_state"
	KindInvalidItem       Kind = "invalid_item"
	KindInsufficientFunds Kind = "insufficient_funds"
	KindValidation        Kind = "validation"
)

// Error is a classified domain error
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind, so errors.Is(err, apperrors.ErrConflict) works.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind && t.Message == ""
}

// Sentinels for errors.Is checks
var (
	ErrUnauthenticated   = &Error{Kind: KindUnauthenticated}
	ErrForbidden         = &Error{Kind: KindForbidden}
	ErrNotFound          = &Error{Kind: KindNotFound}
	ErrConflict          = &Error{Kind: KindConflict}
	ErrInvalidState      = &Error{Kind: KindInvalidState}
	ErrInvalidItem       = &Error{Kind: KindInvalidItem}
	ErrInsufficientFunds = &Error{Kind: KindInsufficientFunds}
	ErrValidation        = &Error{Kind: KindValidation}
)

func newf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func Unauthenticated(format string, args ...interface{}) *Error {
	return newf(KindUnauthenticated, format, args...)
}

func Forbidden(format string, args ...interface{}) *Error {
	return newf(KindForbidden, format, args...)
}

func NotFound(format string, args ...interface{}) *Error {
	return newf(KindNotFound, format, args...)
}

func Conflict(format string, args ...interface{}) *Error {
	return newf(KindConflict, format, args...)
}

func InvalidState(format string, args ...interface{}) *Error {
	return newf(KindInvalidState, format, args...)
}

func InvalidItem(format string, args ...interface{}) *Error {
	return newf(KindInvalidItem, format, args...)
}

func InsufficientFunds(format string, args ...interface{}) *Error {
	return newf(KindInsufficientFunds, format, args...)
}

func Validation(format string, args ...interface{}) *Error {
	return newf(KindValidation, format, args...)
}

// FromValidator turns validator.ValidationErrors into a Validation error listing every field
func FromValidator(err error) error {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return &Error{Kind: KindValidation, Message: "invalid request", Err: err}
	}

	messages := make([]string, 0, len(validationErrors))
	for _, fieldError := range validationErrors {
		messages = append(messages, formatFieldError(fieldError))
	}
	return &Error{Kind: KindValidation, Message: fmt.Sprintf("invalid request: %v", messages)}
}

func formatFieldError(err validator.FieldError) string {
	field := err.Field()
	switch err.Tag() {
	case "required":
		return field + " is required"
	case "min":
		return field + " must be at least " + err.Param()
	case "max":
		return field + " must be at most " + err.Param()
	case "gte":
		return field + " must be >= " + err.Param()
	case "lte":
		return field + " must be <= " + err.Param()
	case "oneof":
		return field + " must be one of: " + err.Param()
	default:
		return field + " is invalid"
	}
}

// KindOf returns the kind of err, or "" for unclassified errors
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return ""
}

// StatusCode maps err to the HTTP status returned by the API
func StatusCode(err error) int {
	switch KindOf(err) {
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict, KindInvalidState:
		return http.StatusConflict
	case KindInvalidItem, KindInsufficientFunds:
		return http.StatusUnprocessableEntity
	case KindValidation:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// ToHuma converts err into a huma status error. Unclassified errors become a 500 whose
// body does not leak the cause.
func ToHuma(err error) error {
	if err == nil {
		return nil
	}
	status := StatusCode(err)
	if status == http.StatusInternalServerError {
		return huma.Error500InternalServerError("internal server error")
	}
	return huma.NewError(status, err.Error())
}

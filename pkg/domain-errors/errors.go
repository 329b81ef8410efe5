// Package domainerrors carries typed error codes from services to transports.
//
// Services return *Error values built with New or Wrap. Transports (HTTP
// handlers, the Discord interaction router) translate the code into a status
// and decide whether the message is safe to show to the caller.
package domainerrors

import (
	"errors"
	"net/http"
)

// Code identifies the class of a domain failure.
type Code string

const (
	CodeBadRequest         Code = "bad_request"
	CodeValidation         Code = "validation_error"
	CodeUnauthorized       Code = "unauthorized"
	CodeForbidden          Code = "forbidden"
	CodeNotFound           Code = "not_found"
	CodeConflict           Code = "conflict"
	CodeRateLimited        Code = "rate_limited"
	CodeConfiguration      Code = "configuration_error"
	CodeUnavailable        Code = "unavailable"
	CodeInvariantViolation Code = "invariant_violation"
	CodeInternal           Code = "internal_error"
)

// Error is a domain error with a stable code and a human-readable message.
type Error struct {
	Code    Code
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

// Is matches another *Error with the same code and message, so tests can use
// errors.Is against a freshly constructed value.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code && e.Message == t.Message
}

func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

func Wrap(err error, code Code, message string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, Err: err}
}

// HasCode reports whether any *Error in err's chain carries code.
func HasCode(err error, code Code) bool {
	for err != nil {
		var de *Error
		if !errors.As(err, &de) {
			return false
		}
		if de.Code == code {
			return true
		}
		err = de.Err
	}
	return false
}

// Is is shorthand for HasCode.
func Is(err error, code Code) bool {
	return HasCode(err, code)
}

// CodeOf returns the outermost domain code, or CodeInternal for foreign errors.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// MessageOf returns the outermost domain message without the wrapped cause.
func MessageOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Message
	}
	if err == nil {
		return ""
	}
	return err.Error()
}

// HTTPStatus maps a code to the status a JSON transport should return.
func HTTPStatus(code Code) int {
	switch code {
	case CodeBadRequest, CodeValidation:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict:
		return http.StatusConflict
	case CodeRateLimited:
		return http.StatusTooManyRequests
	case CodeConfiguration, CodeInvariantViolation:
		return http.StatusUnprocessableEntity
	case CodeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

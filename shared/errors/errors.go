package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// default error is internal service error at handler level
// if error has different status code use ErrorWithStatusCode
type ErrorWithStatusCode struct {
	Message    string
	StatusCode int
}

func (e *ErrorWithStatusCode) Error() string {
	return e.Message
}

func newError(code int, format string, args ...any) error {
	return &ErrorWithStatusCode{Message: fmt.Sprintf(format, args...), StatusCode: code}
}

func NotFound(format string, args ...any) error {
	return newError(http.StatusNotFound, format, args...)
}

func Forbidden(format string, args ...any) error {
	return newError(http.StatusForbidden, format, args...)
}

func BadRequest(format string, args ...any) error {
	return newError(http.StatusBadRequest, format, args...)
}

// Conflict is an illegal state transition or a violated uniqueness constraint.
func Conflict(format string, args ...any) error {
	return newError(http.StatusConflict, format, args...)
}

// Internal marks invariant violations, e.g. an updated document that cannot be read back.
func Internal(format string, args ...any) error {
	return newError(http.StatusInternalServerError, format, args...)
}

// StatusCode classifies err. Anything that is not an ErrorWithStatusCode is internal.
func StatusCode(err error) int {
	var e *ErrorWithStatusCode
	if errors.As(err, &e) {
		return e.StatusCode
	}
	return http.StatusInternalServerError
}

func IsNotFound(err error) bool {
	return err != nil && StatusCode(err) == http.StatusNotFound
}

func IsConflict(err error) bool {
	return err != nil && StatusCode(err) == http.StatusConflict
}

func IsForbidden(err error) bool {
	return err != nil && StatusCode(err) == http.StatusForbidden
}

// Check if err is instance of T for custom error types
func Is[T error](err error) bool {
	var target T
	return errors.As(err, &target)
}

// Package apperr defines the error kinds shared by services and handlers.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"sort"

	validation "github.com/go-ozzo/ozzo-validation"
)

// UnauthenticatedError indicates missing or unusable credentials.
type UnauthenticatedError struct {
	Message string
}

func (e *UnauthenticatedError) Error() string { return e.Message }

// ForbiddenError indicates an authenticated actor lacks permission.
type ForbiddenError struct {
	Message string
}

func (e *ForbiddenError) Error() string { return e.Message }

// NotFoundError indicates a resource was not found.
type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string { return e.Message }

// ValidationError indicates invalid input. Field is empty when the problem
// is not tied to a single field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

// ConflictError indicates a duplicate resource or a lost concurrent update.
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string { return e.Message }

func Unauthenticated(format string, args ...any) *UnauthenticatedError {
	return &UnauthenticatedError{Message: fmt.Sprintf(format, args...)}
}

func Forbidden(format string, args ...any) *ForbiddenError {
	return &ForbiddenError{Message: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...any) *NotFoundError {
	return &NotFoundError{Message: fmt.Sprintf(format, args...)}
}

func Invalid(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

func Conflict(format string, args ...any) *ConflictError {
	return &ConflictError{Message: fmt.Sprintf(format, args...)}
}

// HTTPStatus maps an error to the status code a handler should answer with.
func HTTPStatus(err error) int {
	var unauth *UnauthenticatedError
	var forbidden *ForbiddenError
	var notFound *NotFoundError
	var invalid *ValidationError
	var conflict *ConflictError

	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &unauth):
		return http.StatusUnauthorized
	case errors.As(err, &forbidden):
		return http.StatusForbidden
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &invalid):
		return http.StatusBadRequest
	case errors.As(err, &conflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage returns the message safe to show to a client. Errors of an
// unknown kind collapse to "internal error".
func PublicMessage(err error) string {
	var (
		unauth    *UnauthenticatedError
		forbidden *ForbiddenError
		notFound  *NotFoundError
		invalid   *ValidationError
		conflict  *ConflictError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &unauth):
		return unauth.Message
	case errors.As(err, &forbidden):
		return forbidden.Message
	case errors.As(err, &notFound):
		return notFound.Message
	case errors.As(err, &invalid):
		return invalid.Message
	case errors.As(err, &conflict):
		return conflict.Message
	default:
		return "internal error"
	}
}

// FieldOf returns the offending field of a validation error, if any.
func FieldOf(err error) string {
	var invalid *ValidationError
	if errors.As(err, &invalid) {
		return invalid.Field
	}
	return ""
}

// FromValidation converts an ozzo-validation result into a *ValidationError
// naming the first failing field in sorted order. Internal rule errors are
// passed through untouched.
func FromValidation(err error) error {
	if err == nil {
		return nil
	}
	var internal validation.InternalError
	if errors.As(err, &internal) {
		return err
	}
	var errs validation.Errors
	if errors.As(err, &errs) {
		keys := make([]string, 0, len(errs))
		for k, v := range errs {
			if v != nil {
				keys = append(keys, k)
			}
		}
		if len(keys) == 0 {
			return nil
		}
		sort.Strings(keys)
		inner := errs[keys[0]]
		if nested := FromValidation(inner); nested != nil {
			var v *ValidationError
			if errors.As(nested, &v) && v.Field != "" {
				return &ValidationError{Field: keys[0] + "." + v.Field, Message: v.Message}
			}
			if errors.As(nested, &v) {
				return &ValidationError{Field: keys[0], Message: v.Message}
			}
			return nested
		}
		return nil
	}
	return &ValidationError{Message: err.Error()}
}

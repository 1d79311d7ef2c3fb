package core

import "github.com/pkg/errors"

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		return ""
	}
	return err.Err.Error()
}

// NotFoundError maps to a 404 on the API.
type NotFoundError struct {
	message string
}

func NewNotFoundError(msg string) error { return &NotFoundError{message: msg} }

func (err NotFoundError) Error() string { return err.message }

func IsNotFound(err error) bool {
	_, ok := errors.Cause(err).(*NotFoundError)
	return ok
}

// ForbiddenError carries an explicit reason ("not enrolled",
// "already submitted", "deadline passed", ...) and maps to a 403.
type ForbiddenError struct {
	Reason string
}

func NewForbiddenError(reason string) error { return &ForbiddenError{Reason: reason} }

func (err ForbiddenError) Error() string { return err.Reason }

func IsForbidden(err error) bool {
	_, ok := errors.Cause(err).(*ForbiddenError)
	return ok
}

// ConflictError signals a write that lost to an existing row (duplicate
// submission, duplicate course title); maps to a 400 with the reason.
type ConflictError struct {
	Reason string
}

func NewConflictError(reason string) error { return &ConflictError{Reason: reason} }

func (err ConflictError) Error() string { return err.Reason }

func IsConflict(err error) bool {
	_, ok := errors.Cause(err).(*ConflictError)
	return ok
}

type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}

package service

import (
	"errors"
	"fmt"

	"freight/internal/repository"
)

var (
	// ErrUnauthorized is returned when the caller has no session or organization.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden is returned when the caller's role lacks the required capability.
	ErrForbidden = errors.New("forbidden")

	// ErrValidation is returned when input fails structural or business validation.
	ErrValidation = errors.New("validation failed")

	// ErrPreconditionFailed is returned when a business-rule gate is not satisfied.
	ErrPreconditionFailed = errors.New("precondition failed")

	// ErrInternal is returned when persistence or a collaborator fails unexpectedly.
	ErrInternal = errors.New("internal error")
)

// Code is the stable, client-visible kind of an Error.
type Code string

const (
	CodeUnauthorized       Code = "UNAUTHORIZED"
	CodeForbidden          Code = "FORBIDDEN"
	CodeNotFound           Code = "NOT_FOUND"
	CodeValidation         Code = "VALIDATION_ERROR"
	CodePreconditionFailed Code = "PRECONDITION_FAILED"
	CodeInternal           Code = "INTERNAL_ERROR"
)

var codeSentinels = map[Code]error{
	CodeUnauthorized:       ErrUnauthorized,
	CodeForbidden:          ErrForbidden,
	CodeNotFound:           repository.ErrNotFound,
	CodeValidation:         ErrValidation,
	CodePreconditionFailed: ErrPreconditionFailed,
	CodeInternal:           ErrInternal,
}

// Error is a typed service failure. Message is safe to show to callers;
// the cause is kept for logging only.
type Error struct {
	Code    Code
	Message string
	Fields  map[string]string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the sentinel for the code, so errors.Is works against it.
func (e *Error) Unwrap() []error {
	errs := []error{codeSentinels[e.Code]}
	if e.cause != nil {
		errs = append(errs, e.cause)
	}
	return errs
}

// Cause returns the underlying error, if any.
func (e *Error) Cause() error {
	return e.cause
}

func unauthorized() *Error {
	return &Error{Code: CodeUnauthorized, Message: "authentication required"}
}

func forbidden(capability Capability) *Error {
	return &Error{Code: CodeForbidden, Message: fmt.Sprintf("missing permission %s", capability)}
}

func notFound(entity string) *Error {
	return &Error{Code: CodeNotFound, Message: entity + " not found", cause: repository.ErrNotFound}
}

func precondition(msg string) *Error {
	return &Error{Code: CodePreconditionFailed, Message: msg}
}

func internal(err error) *Error {
	return &Error{Code: CodeInternal, Message: "an internal error occurred", cause: err}
}

// validationErrors collects field-level problems before any write happens.
type validationErrors map[string]string

func (v validationErrors) add(field, msg string) {
	if _, ok := v[field]; !ok {
		v[field] = msg
	}
}

func (v validationErrors) err() error {
	if len(v) == 0 {
		return nil
	}
	return &Error{Code: CodeValidation, Message: "invalid input", Fields: v}
}

// lookupErr turns a repository lookup failure into a typed error.
func lookupErr(entity string, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return notFound(entity)
	}
	return asServiceErr(err)
}

// asServiceErr passes typed errors through and wraps everything else as internal.
func asServiceErr(err error) error {
	if err == nil {
		return nil
	}
	var se *Error
	if errors.As(err, &se) {
		return se
	}
	return internal(err)
}

// CodeOf returns the code of err, or CodeInternal for untyped errors.
func CodeOf(err error) Code {
	var se *Error
	if errors.As(err, &se) {
		return se.Code
	}
	if errors.Is(err, repository.ErrNotFound) {
		return CodeNotFound
	}
	return CodeInternal
}

// Package errs defines the error kinds shared by the feed pipeline and its
// transport adapters.
package errs

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for transport mapping.
type Kind int

const (
	Internal Kind = iota
	Unauthenticated
	Forbidden
	NotFound
	Conflict
	Validation
)

var kindNames = map[Kind]string{
	Internal:        "internal",
	Unauthenticated: "unauthenticated",
	Forbidden:       "forbidden",
	NotFound:        "not_found",
	Conflict:        "conflict",
	Validation:      "validation_failed",
}

var kindStatus = map[Kind]int{
	Internal:        http.StatusInternalServerError,
	Unauthenticated: http.StatusUnauthorized,
	Forbidden:       http.StatusForbidden,
	NotFound:        http.StatusNotFound,
	Conflict:        http.StatusConflict,
	Validation:      http.StatusUnprocessableEntity,
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return kindNames[Internal]
}

// FieldError is a single input violation.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error is the tagged error returned by the pipeline. Fields is only set for
// Validation errors.
type Error struct {
	Kind    Kind
	Message string
	Fields  []FieldError
	err     error
}

// Newf builds an error of the given kind from a format string.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Invalid builds a Validation error carrying every field violation.
func Invalid(message string, fields []FieldError) *Error {
	return &Error{Kind: Validation, Message: message, Fields: fields}
}

// Wrap keeps err as the cause while exposing message to clients.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, err: err}
}

func (e *Error) Error() string {
	if e.err != nil && e.err.Error() != e.Message {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.err
}

// HTTPStatus maps the kind to a status code.
func (e *Error) HTTPStatus() int {
	if status, ok := kindStatus[e.Kind]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// Extensions is picked up by the GraphQL executor and rendered under the
// error's "extensions" key.
func (e *Error) Extensions() map[string]any {
	ext := map[string]any{
		"status": e.HTTPStatus(),
		"code":   e.Kind.String(),
	}
	if len(e.Fields) > 0 {
		ext["data"] = e.Fields
	}
	return ext
}

// From classifies any error. Errors that are not already an *Error become
// Internal with a generic message.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return Wrap(Internal, "An error occurred", err)
}

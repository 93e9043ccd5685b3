package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an AppError for callers and HTTP rendering.
type Kind string

const (
	KindInvalidRequest  Kind = "INVALID_REQUEST"
	KindUnauthorized    Kind = "UNAUTHORIZED"
	KindForbidden       Kind = "FORBIDDEN"
	KindNotFound        Kind = "NOT_FOUND"
	KindPolicyViolation Kind = "POLICY_VIOLATION"
	KindUpstream        Kind = "UPSTREAM_ERROR"
	KindStorage         Kind = "STORAGE_ERROR"
)

// AppError is a client-facing error with a stable kind and HTTP status.
type AppError struct {
	Kind    Kind
	Message string
	Status  int
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(kind Kind, message string, status int, err error) *AppError {
	return &AppError{Kind: kind, Message: message, Status: status, Err: err}
}

func InvalidRequest(message string) *AppError {
	return New(KindInvalidRequest, message, http.StatusBadRequest, nil)
}

func Unauthorized(message string) *AppError {
	return New(KindUnauthorized, message, http.StatusUnauthorized, nil)
}

func Forbidden(message string) *AppError {
	return New(KindForbidden, message, http.StatusForbidden, nil)
}

func NotFound(resource string, err error) *AppError {
	return New(KindNotFound, resource+" not found", http.StatusNotFound, err)
}

// PolicyViolation is returned when message text trips the content filter.
func PolicyViolation(message string) *AppError {
	return New(KindPolicyViolation, message, http.StatusUnprocessableEntity, nil)
}

func Upstream(message string, err error) *AppError {
	return New(KindUpstream, message, http.StatusBadGateway, err)
}

func Storage(message string, err error) *AppError {
	return New(KindStorage, message, http.StatusInternalServerError, err)
}

// Is reports whether err is an AppError of the given kind.
func Is(err error, kind Kind) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind == kind
	}
	return false
}

// From converts any error into an AppError; unknown errors become StorageError.
func From(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return Storage("internal server error", err)
}

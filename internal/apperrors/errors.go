package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for callers and for HTTP rendering.
type Kind string

const (
	KindValidation   Kind = "VALIDATION_ERROR"
	KindRemoteRead   Kind = "REMOTE_READ_ERROR"
	KindRemoteWrite  Kind = "REMOTE_WRITE_ERROR"
	KindUpload       Kind = "UPLOAD_ERROR"
	KindUnauthorized Kind = "UNAUTHORIZED"
	KindInternal     Kind = "INTERNAL_ERROR"
)

// AppError is the structured error shared by services and handlers.
type AppError struct {
	Kind       Kind              `json:"code"`
	Message    string            `json:"message"`
	Fields     map[string]string `json:"fields,omitempty"`
	StatusCode int               `json:"-"`
	Internal   error             `json:"-"`
}

func (e *AppError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Internal != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Internal)
	}
	return e.Message
}

// Unwrap exposes the internal error for errors.Is / errors.As.
func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Internal
}

// ErrNotFound marks a store operation that matched no row.
var ErrNotFound = errors.New("record not found")

// ErrUnauthorized is returned when credentials are missing or wrong.
var ErrUnauthorized = &AppError{
	Kind:       KindUnauthorized,
	Message:    "Invalid email or password",
	StatusCode: http.StatusUnauthorized,
}

// Validation builds a local validation failure. Fields maps a field name to
// the message shown next to it.
func Validation(message string, fields map[string]string) *AppError {
	if message == "" {
		message = "Validation failed"
	}
	return &AppError{
		Kind:       KindValidation,
		Message:    message,
		Fields:     fields,
		StatusCode: http.StatusUnprocessableEntity,
	}
}

// FieldValidation is a shorthand for a single failing field.
func FieldValidation(field, message string) *AppError {
	return Validation(message, map[string]string{field: message})
}

// RemoteRead wraps a failed fetch from the store.
func RemoteRead(err error) *AppError {
	return &AppError{
		Kind:       KindRemoteRead,
		Message:    remoteMessage(err),
		StatusCode: http.StatusBadGateway,
		Internal:   err,
	}
}

// RemoteWrite wraps a failed mutation. The message is the remote message so it
// can be shown to the admin as-is.
func RemoteWrite(err error) *AppError {
	status := http.StatusBadGateway
	if errors.Is(err, ErrNotFound) {
		status = http.StatusNotFound
	}
	return &AppError{
		Kind:       KindRemoteWrite,
		Message:    remoteMessage(err),
		StatusCode: status,
		Internal:   err,
	}
}

// Upload rejects a file before it is sent to object storage.
func Upload(message string, status int) *AppError {
	return &AppError{
		Kind:       KindUpload,
		Message:    message,
		StatusCode: status,
	}
}

// Internal wraps an unexpected error.
func Internal(err error, message string) *AppError {
	return &AppError{
		Kind:       KindInternal,
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Internal:   err,
	}
}

// Is reports whether err is an AppError of the given kind.
func Is(err error, kind Kind) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind == kind
	}
	return false
}

// FromError converts any error into an AppError, defaulting to an internal error.
func FromError(err error) *AppError {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return Internal(err, "Internal server error")
}

func remoteMessage(err error) string {
	if err == nil {
		return "unknown remote error"
	}
	return err.Error()
}

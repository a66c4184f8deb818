package apperrors

import (
	"errors"
	"net/http"
)

// AppError is a user-facing error with an HTTP status.
type AppError struct {
	Code    int
	Message string
}

func (e *AppError) Error() string {
	return e.Message
}

// Validation returns a 400-class error for malformed input or a failed
// referential check.
func Validation(message string) *AppError {
	return &AppError{Code: http.StatusBadRequest, Message: message}
}

// Unauthorized returns a 401 error for a missing, invalid or expired
// credential.
func Unauthorized(message string) *AppError {
	return &AppError{Code: http.StatusUnauthorized, Message: message}
}

// NotFound returns a 404 error for an absent entity. resource reads like
// "Task" or "Notification".
func NotFound(resource string) *AppError {
	return &AppError{Code: http.StatusNotFound, Message: resource + " not found"}
}

// Conflict returns a 409 error for a duplicate unique key.
func Conflict(message string) *AppError {
	return &AppError{Code: http.StatusConflict, Message: message}
}

// StatusOf maps any error to an HTTP status and a safe message. Unknown
// errors never leak internals to the caller.
func StatusOf(err error) (int, string) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code, appErr.Message
	}
	return http.StatusInternalServerError, "Internal server error"
}

// IsValidation reports whether err is a validation error.
func IsValidation(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == http.StatusBadRequest
}

// IsNotFound reports whether err is a not-found error.
func IsNotFound(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == http.StatusNotFound
}

// IsUnauthorized reports whether err is an unauthorized error.
func IsUnauthorized(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == http.StatusUnauthorized
}

// IsConflict reports whether err is a conflict error.
func IsConflict(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == http.StatusConflict
}

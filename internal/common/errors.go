package common

import "errors"

// AppError represents an error with an attached code and HTTP status.
type AppError struct {
	Code       string
	Message    string
	HTTPStatus int
	Err        error
	Details    any
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

// Unwrap allows errors.Is/As to inspect the underlying error.
func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// NewAppError constructs an AppError.
func NewAppError(code, message string, status int, err error) *AppError {
	return &AppError{Code: code, Message: message, HTTPStatus: status, Err: err}
}

// IsAppError checks whether the error is an AppError.
func IsAppError(err error) bool {
	var target *AppError
	return errors.As(err, &target)
}

// Error codes shared by the cart client and the reference cart API.
const (
	CodeTransport = "TRANSPORT"
	CodeRejected  = "REJECTED"
	CodeBadInput  = "BAD_REQUEST"
	CodeNotFound  = "NOT_FOUND"
	CodeInternal  = "INTERNAL"
)

// CodeOf returns the AppError code carried by err, or an empty string.
func CodeOf(err error) string {
	var target *AppError
	if errors.As(err, &target) && target != nil {
		return target.Code
	}
	return ""
}

// MessageOf returns the human readable message carried by err. AppError
// messages win over the wrapped error text; fallback is used when nothing
// readable is available.
func MessageOf(err error, fallback string) string {
	if err == nil {
		return fallback
	}
	var target *AppError
	if errors.As(err, &target) && target != nil {
		if target.Message != "" {
			return target.Message
		}
	}
	return fallback
}

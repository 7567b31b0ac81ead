package shared

import (
	"errors"
	"fmt"
	"net/http"
)

type ErrorKind string

const (
	KindAuthFailure   ErrorKind = "AUTH_FAILURE"
	KindNotFound      ErrorKind = "NOT_FOUND"
	KindValidation    ErrorKind = "VALIDATION_ERROR"
	KindUpstream      ErrorKind = "UPSTREAM_ERROR"
	KindAlreadyGraded ErrorKind = "ALREADY_GRADED"
	KindConflict      ErrorKind = "CONFLICT"
	KindRateLimited   ErrorKind = "RATE_LIMITED"
	KindInternal      ErrorKind = "INTERNAL"
)

// AppError is the error type every service returns to the delivery layer.
type AppError struct {
	StatusCode int
	Kind       ErrorKind
	Message    string
	Data       interface{}
	Err        error
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

func newAppError(status int, kind ErrorKind, err error, message string) *AppError {
	return &AppError{
		StatusCode: status,
		Kind:       kind,
		Message:    message,
		Err:        err,
	}
}

func NewBadRequestError(err error, message string) *AppError {
	return newAppError(http.StatusBadRequest, KindValidation, err, message)
}

func NewValidationError(data interface{}, message string) *AppError {
	appErr := newAppError(http.StatusBadRequest, KindValidation, nil, message)
	appErr.Data = data
	return appErr
}

func NewUnauthorizedError(err error, message string) *AppError {
	return newAppError(http.StatusUnauthorized, KindAuthFailure, err, message)
}

func NewNotFoundError(err error, message string) *AppError {
	return newAppError(http.StatusNotFound, KindNotFound, err, message)
}

func NewUpstreamError(err error, message string) *AppError {
	return newAppError(http.StatusBadGateway, KindUpstream, err, message)
}

func NewAlreadyGradedError(message string) *AppError {
	return newAppError(http.StatusConflict, KindAlreadyGraded, nil, message)
}

func NewConflictError(err error, message string) *AppError {
	return newAppError(http.StatusConflict, KindConflict, err, message)
}

func NewTooManyRequestsError(message string) *AppError {
	return newAppError(http.StatusTooManyRequests, KindRateLimited, nil, message)
}

func NewInternalError(err error, message string) *AppError {
	return newAppError(http.StatusInternalServerError, KindInternal, err, message)
}

func GetAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// IsKind reports whether err carries an AppError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	appErr, ok := GetAppError(err)
	return ok && appErr.Kind == kind
}

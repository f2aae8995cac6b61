package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// APIError is an error that knows which HTTP status it should be reported with.
type APIError struct {
	StatusCode int
	Message    string
	Err        error
}

// Error implements the error interface
func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s (status %d): %v", e.Message, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s (status %d)", e.Message, e.StatusCode)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// New creates an APIError without an underlying cause.
func New(statusCode int, message string) *APIError {
	return &APIError{StatusCode: statusCode, Message: message}
}

// Wrap creates an APIError carrying the cause for logging.
func Wrap(statusCode int, message string, err error) *APIError {
	return &APIError{StatusCode: statusCode, Message: message, Err: err}
}

func BadRequest(message string) *APIError {
	return New(http.StatusBadRequest, message)
}

func NotFound(message string) *APIError {
	return New(http.StatusNotFound, message)
}

func Internal(message string, err error) *APIError {
	return Wrap(http.StatusInternalServerError, message, err)
}

func BadGateway(message string, err error) *APIError {
	return Wrap(http.StatusBadGateway, message, err)
}

func GatewayTimeout(message string, err error) *APIError {
	return Wrap(http.StatusGatewayTimeout, message, err)
}

func Unavailable(message string) *APIError {
	return New(http.StatusServiceUnavailable, message)
}

// Status extracts the status code and client-facing message for err.
// Errors that are not APIErrors are reported as 500 with their own text.
func Status(err error) (int, string) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode, apiErr.Message
	}
	return http.StatusInternalServerError, err.Error()
}

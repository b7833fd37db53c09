package errors

import (
	"fmt"
	"net/http"
)

/*
APIError is the error body returned by the HTTP API.
*/
type APIError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error %d: %s", e.Code, e.Message)
}

var (
	ErrBadRequest = &APIError{Code: http.StatusBadRequest, Message: "Bad request"}
	ErrForbidden  = &APIError{Code: http.StatusForbidden, Message: "Forbidden"}
	ErrNotFound   = &APIError{Code: http.StatusNotFound, Message: "Not found"}
	ErrInternal   = &APIError{Code: http.StatusInternalServerError, Message: "Internal error"}
	ErrUpstream   = &APIError{Code: http.StatusBadGateway, Message: "Generation failed"}
)

// WithMessagef creates a *copy* of an APIError with a formatted message.
// It does not modify the original error variable.
func (e *APIError) WithMessagef(format string, args ...any) *APIError {
	newErr := *e
	newErr.Message = fmt.Sprintf(format, args...)
	return &newErr
}

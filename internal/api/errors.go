package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/dronelink/dronelinkd/internal/adapter"
	"github.com/dronelink/dronelinkd/internal/command"
)

// APIError is an error with its HTTP status and envelope code.
type APIError struct {
	Code       string
	Message    string
	Details    interface{}
	StatusCode int
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewAPIError creates an APIError.
func NewAPIError(code, message string, statusCode int, details interface{}) *APIError {
	return &APIError{Code: code, Message: message, Details: details, StatusCode: statusCode}
}

// API-layer conditions.
var (
	ErrBadRequest = errors.New("BAD_REQUEST")
	ErrNotFound   = errors.New("NOT_FOUND")
)

var codeStatus = map[string]int{
	"BAD_REQUEST":   http.StatusBadRequest,
	"UNKNOWN_KIND":  http.StatusBadRequest,
	"INVALID_RANGE": http.StatusBadRequest,
	"NOT_FOUND":     http.StatusNotFound,
	"INVALID_STATE": http.StatusConflict,
	"UNHANDLED":     http.StatusUnprocessableEntity,
	"NO_FILE":       http.StatusBadGateway,
	"BUSY":          http.StatusServiceUnavailable,
	"UNAVAILABLE":   http.StatusServiceUnavailable,
	"TIMEOUT":       http.StatusGatewayTimeout,
	"INTERNAL":      http.StatusInternalServerError,
}

var codeMessage = map[string]string{
	"BAD_REQUEST":   "Malformed or missing required parameter",
	"UNKNOWN_KIND":  "Unknown command type",
	"INVALID_RANGE": "Parameter value is outside the allowed range",
	"NOT_FOUND":     "Resource not found",
	"INVALID_STATE": "Not possible in the current device state",
	"UNHANDLED":     "Command is not handled",
	"NO_FILE":       "Camera produced no file",
	"BUSY":          "Device is busy, please retry with backoff",
	"UNAVAILABLE":   "Device is temporarily unavailable",
	"TIMEOUT":       "Command did not finish in time",
	"INTERNAL":      "Internal server error",
}

// ToAPIError maps err onto the envelope code and HTTP status. Device and
// command errors keep their code; the original text goes into Details.
func ToAPIError(err error) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}

	code := codeFor(err)
	status, ok := codeStatus[code]
	if !ok {
		status = http.StatusInternalServerError
	}

	var details interface{}
	if err != nil {
		details = map[string]string{"error": err.Error()}
		var vendorErr *adapter.VendorError
		if errors.As(err, &vendorErr) && vendorErr.Original != nil {
			details = map[string]string{"error": err.Error(), "vendor": vendorErr.Original.Error()}
		}
	}
	return &APIError{Code: code, Message: codeMessage[code], Details: details, StatusCode: status}
}

func codeFor(err error) string {
	switch {
	case errors.Is(err, ErrBadRequest):
		return "BAD_REQUEST"
	case errors.Is(err, ErrNotFound):
		return "NOT_FOUND"
	case errors.Is(err, context.DeadlineExceeded):
		return "TIMEOUT"
	case errors.Is(err, context.Canceled):
		return "UNAVAILABLE"
	case errors.Is(err, command.ErrInvalidParameter):
		return "BAD_REQUEST"
	}
	return command.Code(err)
}

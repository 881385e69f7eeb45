// Package response writes the JSON bodies returned by the courtsync API.
// Errors use a common envelope with a null data field and an error object;
// payloads that other systems consume directly, such as sync statistics and
// health reports, are written as-is.
package response

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"

	"github.com/agentstation/courtsync/pkg/errors"
)

// Response is the error envelope.
type Response struct {
	Data  any    `json:"data"`
	Error *Error `json:"error"`
}

// Error is an API error with code, message, and optional details.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// Fail creates an error envelope.
func Fail(code, message, details string) Response {
	return Response{
		Data: nil,
		Error: &Error{
			Code:    code,
			Message: message,
			Details: details,
		},
	}
}

// JSON writes v as JSON with the given status code.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Headers are already sent, so an encoding failure cannot be reported.
	_ = json.NewEncoder(w).Encode(v)
}

// OK writes v with 200 status.
func OK(w http.ResponseWriter, v any) {
	JSON(w, http.StatusOK, v)
}

// BadRequest writes a 400 error response.
func BadRequest(w http.ResponseWriter, message, details string) {
	JSON(w, http.StatusBadRequest, Fail("BAD_REQUEST", message, details))
}

// Unauthorized writes a 401 error response.
func Unauthorized(w http.ResponseWriter, message, details string) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="courtsync"`)
	JSON(w, http.StatusUnauthorized, Fail("UNAUTHORIZED", message, details))
}

// Forbidden writes a 403 error response.
func Forbidden(w http.ResponseWriter, message, details string) {
	JSON(w, http.StatusForbidden, Fail("FORBIDDEN", message, details))
}

// NotFound writes a 404 error response.
func NotFound(w http.ResponseWriter, message, details string) {
	JSON(w, http.StatusNotFound, Fail("NOT_FOUND", message, details))
}

// MethodNotAllowed writes a 405 error response.
func MethodNotAllowed(w http.ResponseWriter, method string) {
	JSON(w, http.StatusMethodNotAllowed, Fail(
		"METHOD_NOT_ALLOWED",
		"Method not allowed",
		"Method "+method+" is not supported for this endpoint",
	))
}

// Conflict writes a 409 error response.
func Conflict(w http.ResponseWriter, message, details string) {
	JSON(w, http.StatusConflict, Fail("CONFLICT", message, details))
}

// BadGateway writes a 502 error response for upstream failures.
func BadGateway(w http.ResponseWriter, message, details string) {
	JSON(w, http.StatusBadGateway, Fail("BAD_GATEWAY", message, details))
}

// GatewayTimeout writes a 504 error response.
func GatewayTimeout(w http.ResponseWriter, details string) {
	JSON(w, http.StatusGatewayTimeout, Fail("TIMEOUT", "Operation timed out", details))
}

// InternalError writes a 500 error response. The error is not exposed.
func InternalError(w http.ResponseWriter, _ error) {
	JSON(w, http.StatusInternalServerError, Fail(
		"INTERNAL_ERROR",
		"Internal server error",
		"An unexpected error occurred",
	))
}

// ServiceUnavailable writes a 503 error response.
func ServiceUnavailable(w http.ResponseWriter, message string) {
	JSON(w, http.StatusServiceUnavailable, Fail(
		"SERVICE_UNAVAILABLE",
		"Service unavailable",
		message,
	))
}

// ErrorFromType maps typed errors to HTTP responses. Failures reported by an
// upstream API become 502 regardless of how deeply they are wrapped.
func ErrorFromType(w http.ResponseWriter, err error) {
	var apiErr *errors.APIError
	switch {
	case errors.IsValidationError(err):
		BadRequest(w, err.Error(), "")
	case stderrors.Is(err, context.DeadlineExceeded):
		GatewayTimeout(w, err.Error())
	case stderrors.As(err, &apiErr):
		BadGateway(w, "Upstream service failed", apiErr.Error())
	case errors.IsUnauthorized(err):
		Unauthorized(w, err.Error(), "")
	case errors.IsForbidden(err):
		Forbidden(w, err.Error(), "")
	default:
		InternalError(w, err)
	}
}

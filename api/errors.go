// Package api is the HTTP surface (§6): routing, request validation,
// and per-endpoint handlers wired to internal/ingestion,
// internal/contextmatch, internal/store, internal/tier, and
// internal/transport. Grounded on the teacher's api/handlers package
// (response/validation helper shape) and cmd/agentflow/middleware.go
// (the middleware chain), with its own request/response DTOs since
// this server's domain is events and reminders rather than chat
// completions.
package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"go.uber.org/zap"
)

// ErrorCode is a stable, machine-readable error classification
// returned in every non-2xx JSON body.
type ErrorCode string

const (
	ErrInvalidRequest ErrorCode = "INVALID_REQUEST"
	ErrNotFound       ErrorCode = "NOT_FOUND"
	ErrInternal       ErrorCode = "INTERNAL_ERROR"
	ErrPayloadTooLarge ErrorCode = "PAYLOAD_TOO_LARGE"
)

// Error is the structured error value every handler returns on
// failure, adapted from the teacher's types.Error (code, message,
// HTTP status, cause) and restricted to this server's boundary: it
// never crosses into internal packages, which return plain errors.
type Error struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Status  int       `json:"-"`
	Cause   error      `json:"-"`
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// NewError builds an Error carrying its own HTTP status.
func NewError(code ErrorCode, status int, message string) *Error {
	return &Error{Code: code, Message: message, Status: status}
}

// BadRequest is shorthand for a 400 shape-validation failure (§7:
// "Shape-validation failure at HTTP boundary - 400 with validation
// details").
func BadRequest(message string) *Error {
	return NewError(ErrInvalidRequest, http.StatusBadRequest, message)
}

// NotFound is shorthand for a 404.
func NotFound(message string) *Error {
	return NewError(ErrNotFound, http.StatusNotFound, message)
}

// errorBody is the wire shape of an error response.
type errorBody struct {
	Error struct {
		Code    ErrorCode `json:"code"`
		Message string    `json:"message"`
	} `json:"error"`
}

// writeJSON encodes v as the response body with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

// writeError renders err as a JSON error body. A plain (non-*Error)
// error is treated as an unexpected failure and logged server-side
// with a generic 500 returned to the client (§7: "the HTTP surface
// returns generic 500 on unexpected exceptions and the full error is
// logged server-side").
func writeError(w http.ResponseWriter, logger *zap.Logger, err error) {
	apiErr, ok := err.(*Error)
	if !ok {
		if logger != nil {
			logger.Error("unhandled handler error", zap.Error(err))
		}
		apiErr = NewError(ErrInternal, http.StatusInternalServerError, "internal error")
	}

	var body errorBody
	body.Error.Code = apiErr.Code
	body.Error.Message = apiErr.Message
	writeJSON(w, apiErr.Status, body)
}

// decodeJSON decodes r's body into v, rejecting unknown fields (the
// teacher's api/handlers/common.go DecodeJSONBody idiom) and capping
// the body at maxBytes.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any, maxBytes int64) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return BadRequest(fmt.Sprintf("invalid request body: %v", err))
	}
	return nil
}

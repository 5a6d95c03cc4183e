// Package respond writes JSON responses and maps error kinds to status codes.
package respond

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/isdelr/quill-be/internal/apperr"
	"github.com/rs/zerolog/log"
)

// ErrorResponse is the body of every error response.
type ErrorResponse struct {
	Error   string            `json:"error"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// MessageResponse is the body of acknowledgment responses.
type MessageResponse struct {
	Message string `json:"message"`
}

// JSON writes v with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// Message writes an acknowledgment.
func Message(w http.ResponseWriter, status int, message string) {
	JSON(w, status, MessageResponse{Message: message})
}

// StatusFor returns the HTTP status for err's kind.
func StatusFor(err error) int {
	if errors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout
	}
	switch apperr.Kind(err) {
	case apperr.ErrValidation:
		return http.StatusBadRequest
	case apperr.ErrAuthentication:
		return http.StatusUnauthorized
	case apperr.ErrAuthorization:
		return http.StatusForbidden
	case apperr.ErrNotFound:
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

var defaultMessages = map[int]string{
	http.StatusBadRequest:          "Invalid input",
	http.StatusUnauthorized:        "Authentication required",
	http.StatusForbidden:           "Permission denied",
	http.StatusNotFound:            "Not found",
	http.StatusInternalServerError: "Internal server error",
	http.StatusGatewayTimeout:      "Request timed out",
}

// Error maps err to a status code and writes an ErrorResponse. Unexpected
// errors are logged and reported with a generic message only. Any failure
// after the request deadline has passed is a 504, since drivers do not
// always wrap the context error.
func Error(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusFor(err)
	if errors.Is(r.Context().Err(), context.DeadlineExceeded) {
		status = http.StatusGatewayTimeout
	}
	resp := ErrorResponse{
		Error:   http.StatusText(status),
		Message: defaultMessages[status],
	}

	logger := log.Ctx(r.Context())
	if status == http.StatusGatewayTimeout {
		logger.Warn().Err(err).Str("method", r.Method).Str("path", r.URL.Path).Msg("Request deadline exceeded")
		JSON(w, status, resp)
		return
	}
	if status == http.StatusInternalServerError {
		logger.Error().Err(err).Str("method", r.Method).Str("path", r.URL.Path).Msg("Unexpected error")
		JSON(w, status, resp)
		return
	}
	logger.Debug().Err(err).Int("status", status).Msg("Request failed")

	if msg, ok := apperr.PublicMessage(err); ok {
		resp.Message = msg
	}
	var verr *apperr.ValidationError
	if errors.As(err, &verr) {
		resp.Fields = verr.Fields
	}
	JSON(w, status, resp)
}

package web

// errors.go provides unified error response handling for the web layer.
//
// Every handler error flows through respondError, which logs the
// technical error with the request ID for correlation, maps it to a
// user-facing message via core.MapError, and writes a JSON body with a
// stable code. The HTTP status is derived from the error's place in the
// pipeline taxonomy.

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/tigerops/salesops/internal/core"
)

// ErrorResponse is the JSON structure for API error responses. It carries
// both machine-readable (Code) and human-readable (Message, Action) fields.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

// respondError logs err and writes the mapped user message as JSON.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	userMsg := core.MapError(err)

	slog.Error("request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"error", err.Error(),
		"code", userMsg.Code,
		"request_id", middleware.GetReqID(r.Context()),
	)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{
		Error:   userMsg.Message,
		Message: userMsg.Message,
		Action:  userMsg.Action,
		Code:    userMsg.Code,
	})
}

// errorBody maps err to the JSON error structure without writing it,
// for responses that embed the error alongside other data.
func errorBody(err error) ErrorResponse {
	userMsg := core.MapError(err)
	return ErrorResponse{
		Error:   userMsg.Message,
		Message: userMsg.Message,
		Action:  userMsg.Action,
		Code:    userMsg.Code,
	}
}

// statusFor maps pipeline errors onto HTTP status codes.
func statusFor(err error) int {
	var mappingErr *core.MappingError
	var extractErr *core.ExtractionError
	var commitErr *core.CommitError
	var validationErr *core.ValidationFailure

	switch {
	case errors.Is(err, core.ErrSessionNotFound),
		errors.Is(err, core.ErrRowNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, core.ErrTooManySessions):
		return http.StatusTooManyRequests
	case errors.As(err, &mappingErr),
		errors.As(err, &validationErr),
		errors.Is(err, core.ErrNoValidRows):
		return http.StatusUnprocessableEntity
	case errors.As(err, &extractErr),
		errors.Is(err, core.ErrUnknownField):
		return http.StatusBadRequest
	case errors.As(err, &commitErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// respondJSON writes v as a JSON response with the given status.
func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("response encoding failed", "error", err)
	}
}

// badRequest writes a plain 400 with a literal message, for request-shape
// problems that never reach the pipeline.
func badRequest(w http.ResponseWriter, message string) {
	respondJSON(w, http.StatusBadRequest, ErrorResponse{
		Error:   message,
		Message: message,
		Code:    "REQ400",
	})
}

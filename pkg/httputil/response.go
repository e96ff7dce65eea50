package httputil

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	apperrors "github.com/utafrali/hybridsearch/pkg/errors"
	"github.com/utafrali/hybridsearch/pkg/logger"
	"github.com/utafrali/hybridsearch/pkg/validator"
)

// Response is the JSON envelope used for errors and non-search payloads.
// Search result pages are written bare.
type Response struct {
	Data  any            `json:"data,omitempty"`
	Error *ErrorResponse `json:"error,omitempty"`
}

// ErrorResponse represents an error in the standard response format.
type ErrorResponse struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Fields    map[string]string `json:"fields,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
}

// WriteJSON writes v as JSON with the given status code.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Headers are already sent; nothing meaningful can be done if encoding fails.
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError maps err to a status and error envelope. 5xx errors are logged
// with the request-scoped logger when one is present, otherwise fallback.
func WriteError(w http.ResponseWriter, r *http.Request, err error, fallback *slog.Logger) {
	l := logger.FromContext(r.Context())
	if l == slog.Default() && fallback != nil {
		l = fallback
	}
	requestID := logger.CorrelationIDFromContext(r.Context())

	var valErr *validator.ValidationError
	if errors.As(err, &valErr) {
		WriteJSON(w, http.StatusBadRequest, Response{
			Error: &ErrorResponse{
				Code:      "VALIDATION_ERROR",
				Message:   "request validation failed",
				Fields:    valErr.Fields(),
				RequestID: requestID,
			},
		})
		return
	}

	resp := &ErrorResponse{Code: "INTERNAL_ERROR", Message: "an internal error occurred", RequestID: requestID}
	status := apperrors.HTTPStatus(err)

	var appErr *apperrors.AppError
	switch {
	case errors.As(err, &appErr):
		resp.Code, resp.Message = appErr.Code, appErr.Message
	case errors.Is(err, apperrors.ErrInvalidInput):
		resp.Code, resp.Message = "INVALID_INPUT", err.Error()
	}

	if status >= http.StatusInternalServerError {
		l.ErrorContext(r.Context(), "request failed",
			slog.Int("status", status),
			slog.String("error", err.Error()),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
		)
	}

	WriteJSON(w, status, Response{Error: resp})
}

// QueryInt reads an integer query parameter. Missing or malformed values
// return fallback.
func QueryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

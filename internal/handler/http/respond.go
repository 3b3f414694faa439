package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	apperrors "github.com/Muhsiinn/JonasV2/pkg/errors"
	"github.com/Muhsiinn/JonasV2/pkg/logger"
	"github.com/Muhsiinn/JonasV2/pkg/validator"
)

// errorEnvelope is the JSON shape of every error response. Successful
// responses carry their payload at the top level.
type errorEnvelope struct {
	Error *errorResponse `json:"error"`
}

type errorResponse struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Headers are already sent; nothing meaningful can be done if encoding fails.
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorEnvelope{
		Error: &errorResponse{Code: code, Message: message},
	})
}

// writeAppError translates a service error into its HTTP representation.
// Unrecognized errors are logged and reported as a generic 500 so internal
// details never reach clients.
func writeAppError(w http.ResponseWriter, r *http.Request, err error) {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		writeError(w, appErr.Status, appErr.Code, appErr.Message)
		return
	}

	status := apperrors.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		logger.FromContext(r.Context()).ErrorContext(r.Context(), "request failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "an internal error occurred")
		return
	}

	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		writeError(w, status, "NOT_FOUND", "resource not found")
	case errors.Is(err, apperrors.ErrAlreadyExists):
		writeError(w, status, "ALREADY_EXISTS", "resource already exists")
	case errors.Is(err, apperrors.ErrInvalidInput):
		writeError(w, status, "INVALID_INPUT", err.Error())
	case errors.Is(err, apperrors.ErrUnauthorized):
		writeError(w, status, "UNAUTHORIZED", "invalid or expired token")
	default:
		writeError(w, status, "ERROR", err.Error())
	}
}

func writeValidationError(w http.ResponseWriter, err error) {
	var valErr *validator.ValidationError
	if errors.As(err, &valErr) {
		writeJSON(w, http.StatusBadRequest, errorEnvelope{
			Error: &errorResponse{
				Code:    "VALIDATION_ERROR",
				Message: "request validation failed",
				Fields:  valErr.Fields(),
			},
		})
		return
	}

	writeError(w, http.StatusBadRequest, "INVALID_INPUT", err.Error())
}

package handler

// Every handler answers with JSON through writeJSON, and every failure has
// the same shape:
//
//	{"error": "not_found", "message": "snippet not found with id abc123"}
//
// writeError is the one place where domain errors become status codes.

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/sakif/webconsole/internal/apperror"
)

// maxBodyBytes bounds request bodies: the largest snippet plus JSON overhead.
const maxBodyBytes = 256 << 10

// ErrorResponse is the body of every non-2xx answer.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// Headers are gone already; all we can do is log.
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// writeError maps an apperror sentinel onto its HTTP status. Anything else
// is a 500 with a generic message so internals never leak.
func writeError(w http.ResponseWriter, err error) {
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "An internal error occurred",
		})
		return
	}

	status := http.StatusInternalServerError
	errorType := "internal_error"

	switch {
	case errors.Is(err, apperror.ErrValidation):
		status, errorType = http.StatusBadRequest, "validation_error"
	case errors.Is(err, apperror.ErrUnauthorized):
		status, errorType = http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, apperror.ErrForbidden):
		status, errorType = http.StatusForbidden, "forbidden"
	case errors.Is(err, apperror.ErrNotFound):
		status, errorType = http.StatusNotFound, "not_found"
	case errors.Is(err, apperror.ErrConflict):
		status, errorType = http.StatusConflict, "conflict"
	}

	writeJSON(w, status, ErrorResponse{
		Error:   errorType,
		Message: appErr.Message,
		Field:   appErr.Field,
	})
}

// decodeJSON reads a single JSON object into dst. Unknown fields and
// trailing data are validation errors.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return apperror.ValidationFailed("body", fmt.Sprintf("request body must be %d bytes or less", tooLarge.Limit))
		}
		return apperror.ValidationFailed("body", "invalid JSON body: "+err.Error())
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return apperror.ValidationFailed("body", "request body must contain a single JSON object")
	}
	return nil
}

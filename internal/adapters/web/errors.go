package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"bizledger/internal/core"
)

type errorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	RequestID string `json:"request_id,omitempty"`
}

// writeError writes a structured JSON error response.
func writeError(w http.ResponseWriter, r *http.Request, message, code string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	resp := errorResponse{
		Error:     message,
		Code:      code,
		RequestID: requestIDFromContext(r.Context()),
	}
	_ = json.NewEncoder(w).Encode(resp)
}

// writeJSON writes a JSON response with status 200.
func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// writeCreated writes a JSON response with status 201.
func writeCreated(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(v)
}

// writeServiceError maps core errors onto HTTP statuses: missing entities
// are 404, business rule violations 422, setup faults 500. Anything
// unrecognized is treated as a validation failure rather than a crash.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		unbalanced *core.UnbalancedEntryError
		transition *core.InvalidTransitionError
		short      *core.InsufficientError
		missing    *core.MissingConfigurationError
	)
	switch {
	case errors.Is(err, core.ErrNotFound):
		writeError(w, r, err.Error(), "NOT_FOUND", http.StatusNotFound)
	case errors.As(err, &unbalanced):
		writeError(w, r, err.Error(), "UNBALANCED_ENTRY", http.StatusUnprocessableEntity)
	case errors.As(err, &transition):
		writeError(w, r, err.Error(), "INVALID_TRANSITION", http.StatusUnprocessableEntity)
	case errors.As(err, &short):
		writeError(w, r, err.Error(), "INSUFFICIENT", http.StatusUnprocessableEntity)
	case errors.As(err, &missing):
		writeError(w, r, err.Error(), "MISSING_CONFIGURATION", http.StatusInternalServerError)
	default:
		writeError(w, r, err.Error(), "VALIDATION_ERROR", http.StatusUnprocessableEntity)
	}
}

// decodeJSON decodes the request body into v, rejecting unknown fields.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

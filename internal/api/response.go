package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/erazemk/najdeno/internal/apperr"
	"github.com/erazemk/najdeno/internal/validate"
)

type envelope struct {
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}

type errorEnvelope struct {
	Message string            `json:"message"`
	Error   string            `json:"error"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// jsonResponse writes a JSON response with the given status code.
func jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("error encoding response", "error", err)
		}
	}
}

// jsonData writes a success envelope.
func jsonData(w http.ResponseWriter, status int, data any, message string) {
	jsonResponse(w, status, envelope{Data: data, Message: message})
}

// jsonError writes an error envelope. code is a short machine-readable tag.
func jsonError(w http.ResponseWriter, status int, code, message string) {
	jsonResponse(w, status, errorEnvelope{Message: message, Error: code})
}

// statusOf maps an error kind to its HTTP status. Conflicts and invalid
// transitions are client errors like validation failures.
func statusOf(kind apperr.Kind) int {
	switch kind {
	case apperr.KindValidation, apperr.KindConflict, apperr.KindInvalidTransition:
		return http.StatusBadRequest
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// writeError writes err as an error envelope. Unclassified and storage
// errors are logged and reported without detail.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *validate.ValidationError
	if errors.As(err, &verr) {
		jsonResponse(w, http.StatusBadRequest, errorEnvelope{
			Message: verr.Error(),
			Error:   apperr.KindValidation.String(),
			Fields:  verr.Errors,
		})
		return
	}

	kind := apperr.KindOf(err)
	status := statusOf(kind)
	if status == http.StatusInternalServerError {
		slog.ErrorContext(r.Context(), "request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		jsonError(w, status, kind.String(), "internal error")
		return
	}
	jsonError(w, status, kind.String(), apperr.MessageOf(err))
}

// decodeJSON decodes a JSON request body into the given target.
func decodeJSON(r *http.Request, target any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(target)
}

// bind decodes and validates a request body. It writes the error response
// itself and reports whether the handler may continue.
func bind(w http.ResponseWriter, r *http.Request, v *validate.Validator, target any) bool {
	if err := decodeJSON(r, target); err != nil {
		jsonError(w, http.StatusBadRequest, apperr.KindValidation.String(), "invalid request body")
		return false
	}
	if err := v.Struct(target); err != nil {
		writeError(w, r, err)
		return false
	}
	return true
}

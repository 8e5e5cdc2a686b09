package api

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/hrmate/hrmate/internal/hrerr"
)

// errorBody is the uniform error envelope.
type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// writeJSON encodes data into a buffer first so headers go out only
// after encoding succeeded, leaving room for a clean 500 otherwise.
func writeJSON(w http.ResponseWriter, status int, data any, logger *slog.Logger) {
	buf := new(bytes.Buffer)
	if err := json.NewEncoder(buf).Encode(data); err != nil {
		logger.Error("encoding response", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	if _, err := w.Write(buf.Bytes()); err != nil {
		// Client disconnects are routine.
		logger.Debug("writing response body", "error", err)
	}
}

// writeError sends the uniform error envelope.
func writeError(w http.ResponseWriter, status int, code, message string, logger *slog.Logger) {
	writeJSON(w, status, errorBody{Error: errorDetail{Code: code, Message: message}}, logger)
}

// writeDomainError maps a domain error to its HTTP shape.
func writeDomainError(w http.ResponseWriter, err error, logger *slog.Logger) {
	status, code := statusForError(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		// Do not leak internals.
		msg = "internal server error"
		logger.Error("request failed", "error", err)
	}
	writeError(w, status, code, msg, logger)
}

// statusForError translates the domain error taxonomy to HTTP.
func statusForError(err error) (int, string) {
	switch {
	case hrerr.IsValidation(err):
		return http.StatusBadRequest, "validation_failed"
	case hrerr.IsNotFound(err):
		return http.StatusNotFound, "not_found"
	case hrerr.IsConflict(err):
		return http.StatusConflict, "conflict"
	case hrerr.IsExternal(err):
		return http.StatusBadGateway, "upstream_unavailable"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

// writeEvent emits one SSE event and flushes it to the client.
func writeEvent(w http.ResponseWriter, flusher http.Flusher, event string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}
	if _, err := w.Write([]byte("event: " + event + "\ndata: " + string(payload) + "\n\n")); err != nil {
		return err
	}
	flusher.Flush()
	return nil
}

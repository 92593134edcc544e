package httputil

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// WriteJSON writes a JSON response with the given status code and data.
// If encoding fails, it logs the error.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Failed to write JSON response", slog.Any("error", err))
	}
}

// WriteError writes a JSON error response with the given status code and message.
func WriteError(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, map[string]any{
		"success": false,
		"error":   message,
	})
}

// WriteErrorKind writes a JSON error response carrying the machine-readable
// taxonomy kind ("syntax", "security", "eval") alongside the message, so
// callers can tell a malformed condition from a rejected or failed one.
func WriteErrorKind(w http.ResponseWriter, status int, message, kind string) {
	WriteJSON(w, status, map[string]any{
		"success":    false,
		"error":      message,
		"error_kind": kind,
	})
}

// Package httpx holds small helpers shared by the HTTP handler packages.
package httpx

import (
	"encoding/json"
	"net/http"
)

// WriteJSON renders payload as an indented JSON response.
func WriteJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(payload)
}

// Error renders a JSON error body.
func Error(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, map[string]string{"error": message})
}

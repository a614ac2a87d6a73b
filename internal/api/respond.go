// Package api exposes the soil telemetry, irrigation settings and realtime
// endpoints over HTTP.
package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/technohub6911/smartcropx/internal/data"
)

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

// respondError writes the failure body. It never carries actuation guidance.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]any{"success": false, "error": message})
}

// respondServiceError maps domain errors onto status codes.
func respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, data.ErrValidation):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, data.ErrStorage):
		respondError(w, http.StatusServiceUnavailable, "storage unavailable")
	default:
		log.Printf("[ERROR] unhandled service error: %v", err)
		respondError(w, http.StatusInternalServerError, "internal error")
	}
}

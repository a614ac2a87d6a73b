package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/technohub6911/smartcropx/internal/irrigation"
)

type SettingsHandler struct {
	Store irrigation.SettingsStore
}

func NewSettingsHandler(store irrigation.SettingsStore) *SettingsHandler {
	return &SettingsHandler{Store: store}
}

// POST /auto-irrigation
func (h *SettingsHandler) Put(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID    string   `json:"userId"`
		Enabled   bool     `json:"enabled"`
		Threshold *float64 `json:"threshold"`
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	s, err := h.Store.Put(r.Context(), req.UserID, req.Enabled, req.Threshold)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	msg := "Auto irrigation disabled"
	if s.Enabled {
		msg = "Auto irrigation enabled"
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"message":  msg,
		"settings": s,
	})
}

// GET /irrigation-settings/{userId}
func (h *SettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	s, err := h.Store.Get(r.Context(), chi.URLParam(r, "userId"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"settings": s,
	})
}

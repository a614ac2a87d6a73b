package api

import (
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/technohub6911/smartcropx/internal/data"
	"github.com/technohub6911/smartcropx/internal/ingest"
)

const maxBodyBytes = 64 << 10

type SoilHandler struct {
	Service      *ingest.Service
	DefaultHours int
}

func NewSoilHandler(svc *ingest.Service, defaultHours int) *SoilHandler {
	if defaultHours <= 0 {
		defaultHours = 24
	}
	return &SoilHandler{Service: svc, DefaultHours: defaultHours}
}

// POST /soil-data
func (h *SoilHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in data.ReadingInput
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&in); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	reading, err := in.Normalize()
	if err != nil {
		respondServiceError(w, err)
		return
	}

	res, err := h.Service.Ingest(r.Context(), reading)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	msg := "Soil data received"
	if res.IrrigationCommand {
		msg = "Soil data received, irrigation required"
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"success":           true,
		"irrigationCommand": res.IrrigationCommand,
		"autoIrrigation":    res.AutoIrrigation,
		"message":           msg,
	})
}

// maxHistoryHours keeps the window representable as a time.Duration.
const maxHistoryHours = int(math.MaxInt64 / int64(time.Hour))

// GET /soil-data/{userId}?hours=N
func (h *SoilHandler) History(w http.ResponseWriter, r *http.Request) {
	hours := h.DefaultHours
	if raw := r.URL.Query().Get("hours"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			respondError(w, http.StatusBadRequest, "hours must be a positive integer")
			return
		}
		hours = min(n, maxHistoryHours)
	}

	readings := h.Service.History(chi.URLParam(r, "userId"), time.Duration(hours)*time.Hour)
	respondJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"data":    readings,
		"count":   len(readings),
	})
}

// GET /soil-data/latest/{userId}
func (h *SoilHandler) Latest(w http.ResponseWriter, r *http.Request) {
	var payload any
	if latest, ok := h.Service.Latest(chi.URLParam(r, "userId")); ok {
		payload = latest
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"data":    payload,
	})
}

// DELETE /soil-data/{userId}
func (h *SoilHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID := strings.TrimSpace(chi.URLParam(r, "userId"))
	if userID == "" {
		respondError(w, http.StatusBadRequest, "userId is required")
		return
	}

	removed, remaining := h.Service.DeleteUser(userID)
	respondJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"message":   fmt.Sprintf("Deleted %d readings for %s", removed, userID),
		"remaining": remaining,
	})
}

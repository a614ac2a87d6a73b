// Package ingest validates inbound soil readings, records them and returns
// the irrigation decision to the reporting device.
package ingest

import (
	"context"
	"log"
	"time"

	"github.com/technohub6911/smartcropx/internal/data"
	"github.com/technohub6911/smartcropx/internal/irrigation"
	"github.com/technohub6911/smartcropx/internal/metrics"
	"github.com/technohub6911/smartcropx/internal/telemetry"
)

// ActuationResult is the synchronous answer to a reporting device.
type ActuationResult struct {
	IrrigationCommand bool `json:"irrigationCommand"`
	AutoIrrigation    bool `json:"autoIrrigation"`
}

// Notifier is told about every decision after it is made.
type Notifier interface {
	Notify(ctx context.Context, r data.StoredReading, res ActuationResult)
}

type Service struct {
	Store    *telemetry.Store
	Settings irrigation.SettingsStore
	Archive  telemetry.Archive // optional
	Notifier Notifier          // optional
}

func NewService(store *telemetry.Store, settings irrigation.SettingsStore, archive telemetry.Archive, notifier Notifier) *Service {
	return &Service{
		Store:    store,
		Settings: settings,
		Archive:  archive,
		Notifier: notifier,
	}
}

// Ingest records the reading and derives the actuation command.
//
// The device flag is always required. Stored settings, when the user has
// them, additionally gate the engine and supply the threshold; otherwise the
// device flag alone decides and the default threshold applies.
func (s *Service) Ingest(ctx context.Context, r data.Reading) (ActuationResult, error) {
	r, err := r.Normalize()
	if err != nil {
		metrics.ReadingsIngestedTotal.WithLabelValues("invalid").Inc()
		return ActuationResult{}, err
	}

	stored, err := s.Store.Append(r)
	if err != nil {
		metrics.ReadingsIngestedTotal.WithLabelValues("invalid").Inc()
		return ActuationResult{}, err
	}

	if s.Archive != nil {
		if err := s.Archive.Write(ctx, stored); err != nil {
			log.Printf("[ERROR] Ingest: archive write for device %s failed: %v", stored.DeviceID, err)
			// The device retries on failure; keep the ring free of duplicates.
			s.Store.Remove(stored.ID)
			metrics.ReadingsIngestedTotal.WithLabelValues("storage_error").Inc()
			return ActuationResult{}, err
		}
	}

	settings, found, err := s.Settings.Lookup(ctx, stored.UserID)
	if err != nil {
		log.Printf("[ERROR] Ingest: settings lookup for user %s failed: %v", stored.UserID, err)
		metrics.ReadingsIngestedTotal.WithLabelValues("storage_error").Inc()
		return ActuationResult{}, err
	}

	auto := stored.AutoIrrigationRequested
	if found {
		auto = auto && settings.Enabled
	}

	res := ActuationResult{
		IrrigationCommand: irrigation.Decide(stored.SoilMoisture, auto, settings),
		AutoIrrigation:    auto,
	}

	metrics.ReadingsIngestedTotal.WithLabelValues("ok").Inc()
	if res.IrrigationCommand {
		metrics.IrrigationDecisionsTotal.WithLabelValues("irrigate").Inc()
	} else {
		metrics.IrrigationDecisionsTotal.WithLabelValues("hold").Inc()
	}

	if s.Notifier != nil {
		s.Notifier.Notify(ctx, stored, res)
	}
	return res, nil
}

// History returns readings matching selector within the window, oldest first.
func (s *Service) History(selector string, since time.Duration) []data.StoredReading {
	return s.Store.Query(selector, since)
}

func (s *Service) Latest(userID string) (data.StoredReading, bool) {
	return s.Store.Latest(userID)
}

// DeleteUser removes the user's readings and reports how many remain store-wide.
func (s *Service) DeleteUser(userID string) (removed, remaining int) {
	return s.Store.DeleteUser(userID)
}

package data

import (
	"context"
	"time"
)

const DefaultThreshold = 30.0

// IrrigationSettings is the per-user irrigation configuration.
type IrrigationSettings struct {
	UserID      string    `json:"userId"`
	Enabled     bool      `json:"enabled"`
	Threshold   float64   `json:"threshold"`
	LastUpdated time.Time `json:"lastUpdated"`
}

// DefaultSettings is what a never-written user reads back.
func DefaultSettings(userID string, now time.Time) IrrigationSettings {
	return IrrigationSettings{
		UserID:      userID,
		Enabled:     false,
		Threshold:   DefaultThreshold,
		LastUpdated: now,
	}
}

// SettingsRepository is the durable backing for irrigation settings.
// Get returns ErrNotFound when the user never wrote settings.
type SettingsRepository interface {
	Get(ctx context.Context, userID string) (*IrrigationSettings, error)
	Upsert(ctx context.Context, s *IrrigationSettings) error
}

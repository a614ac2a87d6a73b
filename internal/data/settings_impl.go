package data

import (
	"context"
	"database/sql"
)

// SettingsModel stores irrigation settings in PostgreSQL (table irrigation_settings).
type SettingsModel struct {
	DB DBTX
}

func (m SettingsModel) Get(ctx context.Context, userID string) (*IrrigationSettings, error) {
	query := `
		SELECT user_id, enabled, threshold, last_updated
		FROM irrigation_settings
		WHERE user_id = $1`

	var s IrrigationSettings
	err := m.DB.QueryRowContext(ctx, query, userID).Scan(&s.UserID, &s.Enabled, &s.Threshold, &s.LastUpdated)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// Upsert overwrites the whole record for the user.
func (m SettingsModel) Upsert(ctx context.Context, s *IrrigationSettings) error {
	query := `
		INSERT INTO irrigation_settings (user_id, enabled, threshold, last_updated)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id) DO UPDATE SET
			enabled = EXCLUDED.enabled,
			threshold = EXCLUDED.threshold,
			last_updated = EXCLUDED.last_updated`
	_, err := m.DB.ExecContext(ctx, query, s.UserID, s.Enabled, s.Threshold, s.LastUpdated)
	return err
}

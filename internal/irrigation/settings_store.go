package irrigation

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/technohub6911/smartcropx/internal/data"
)

// SettingsStore reads and writes per-user irrigation settings.
type SettingsStore interface {
	// Get returns stored settings or the defaults for a never-written user.
	Get(ctx context.Context, userID string) (data.IrrigationSettings, error)
	// Lookup is Get that also reports whether a record exists.
	Lookup(ctx context.Context, userID string) (data.IrrigationSettings, bool, error)
	// Put overwrites the record. A nil threshold means the default.
	Put(ctx context.Context, userID string, enabled bool, threshold *float64) (data.IrrigationSettings, error)
}

func buildSettings(userID string, enabled bool, threshold *float64, now time.Time) (data.IrrigationSettings, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return data.IrrigationSettings{}, fmt.Errorf("%w: userId is required", data.ErrValidation)
	}
	t := data.DefaultThreshold
	if threshold != nil {
		t = *threshold
	}
	if math.IsNaN(t) || t < data.MinMoisture || t > data.MaxMoisture {
		return data.IrrigationSettings{}, fmt.Errorf("%w: threshold must be within [0,100]", data.ErrValidation)
	}
	return data.IrrigationSettings{
		UserID:      userID,
		Enabled:     enabled,
		Threshold:   t,
		LastUpdated: now,
	}, nil
}

// MemorySettings keeps settings in process memory.
type MemorySettings struct {
	mu       sync.RWMutex
	settings map[string]data.IrrigationSettings
	now      func() time.Time
}

func NewMemorySettings() *MemorySettings {
	return &MemorySettings{
		settings: make(map[string]data.IrrigationSettings),
		now:      time.Now,
	}
}

func (m *MemorySettings) Get(ctx context.Context, userID string) (data.IrrigationSettings, error) {
	s, _, err := m.Lookup(ctx, userID)
	return s, err
}

func (m *MemorySettings) Lookup(ctx context.Context, userID string) (data.IrrigationSettings, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if s, ok := m.settings[userID]; ok {
		return s, true, nil
	}
	return data.DefaultSettings(userID, m.now()), false, nil
}

func (m *MemorySettings) Put(ctx context.Context, userID string, enabled bool, threshold *float64) (data.IrrigationSettings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, err := buildSettings(userID, enabled, threshold, m.now())
	if err != nil {
		return s, err
	}
	m.settings[s.UserID] = s
	return s, nil
}

// RepoSettings persists settings through a data.SettingsRepository.
// Writes are serialized so a user's record is never half-overwritten by a
// concurrent writer.
type RepoSettings struct {
	repo data.SettingsRepository
	mu   sync.Mutex
	now  func() time.Time
}

func NewRepoSettings(repo data.SettingsRepository) *RepoSettings {
	return &RepoSettings{repo: repo, now: time.Now}
}

func (r *RepoSettings) Get(ctx context.Context, userID string) (data.IrrigationSettings, error) {
	s, _, err := r.Lookup(ctx, userID)
	return s, err
}

func (r *RepoSettings) Lookup(ctx context.Context, userID string) (data.IrrigationSettings, bool, error) {
	s, err := r.repo.Get(ctx, userID)
	if errors.Is(err, data.ErrNotFound) {
		return data.DefaultSettings(userID, r.now()), false, nil
	}
	if err != nil {
		return data.IrrigationSettings{}, false, fmt.Errorf("%w: settings read: %v", data.ErrStorage, err)
	}
	return *s, true, nil
}

func (r *RepoSettings) Put(ctx context.Context, userID string, enabled bool, threshold *float64) (data.IrrigationSettings, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, err := buildSettings(userID, enabled, threshold, r.now())
	if err != nil {
		return s, err
	}
	if err := r.repo.Upsert(ctx, &s); err != nil {
		return data.IrrigationSettings{}, fmt.Errorf("%w: settings write: %v", data.ErrStorage, err)
	}
	return s, nil
}

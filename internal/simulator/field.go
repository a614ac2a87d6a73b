package simulator

import (
	"math/rand"

	"github.com/technohub6911/smartcropx/internal/data"
)

// Field models one sensor slot: moisture dries out each tick and a valve
// adds water while open.
type Field struct {
	DeviceID string
	UserID   string
	Slot     int

	Moisture   float64
	DryRate    float64 // points lost per tick
	WaterRate  float64 // points gained per tick while irrigating
	Irrigating bool

	rng *rand.Rand
}

func NewField(deviceID, userID string, slot int, start float64, seed int64) *Field {
	return &Field{
		DeviceID:  deviceID,
		UserID:    userID,
		Slot:      slot,
		Moisture:  start,
		DryRate:   1.5,
		WaterRate: 6,
		rng:       rand.New(rand.NewSource(seed)),
	}
}

// Tick advances the soil by one step and returns the reading to report.
func (f *Field) Tick() data.Reading {
	if f.Irrigating {
		f.Moisture += f.WaterRate
	} else {
		f.Moisture -= f.DryRate
	}
	f.Moisture += (f.rng.Float64() - 0.5) * 0.5
	f.Moisture = clamp(f.Moisture, data.MinMoisture, data.MaxMoisture)

	return data.Reading{
		DeviceID:                f.DeviceID,
		UserID:                  f.UserID,
		SoilMoisture:            f.Moisture,
		Temperature:             22 + f.rng.Float64()*6,
		Humidity:                45 + f.rng.Float64()*15,
		AutoIrrigationRequested: true,
		SensorSlot:              f.Slot,
	}
}

// Apply follows the server's command for the next tick.
func (f *Field) Apply(ack *Ack) {
	f.Irrigating = ack.IrrigationCommand
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

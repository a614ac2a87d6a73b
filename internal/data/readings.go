package data

import (
	"fmt"
	"log"
	"math"
	"strings"
	"time"
)

const (
	DefaultUserID      = "default_user"
	DefaultTemperature = 25.0
	DefaultHumidity    = 50.0
	DefaultSensorSlot  = 1

	MinMoisture = 0.0
	MaxMoisture = 100.0
)

// Reading is one sensor report from a field device.
type Reading struct {
	DeviceID                string  `json:"deviceId"`
	UserID                  string  `json:"userId"`
	SoilMoisture            float64 `json:"soilMoisture"`
	Temperature             float64 `json:"temperature"`
	Humidity                float64 `json:"humidity"`
	AutoIrrigationRequested bool    `json:"autoIrrigation"`
	SensorSlot              int     `json:"sensorSlot"`
}

// StoredReading is a Reading after the telemetry store accepted it.
type StoredReading struct {
	ID uint64 `json:"id"`
	Reading
	Timestamp time.Time `json:"timestamp"`
}

// ReadingInput mirrors the POST /soil-data body. Pointer fields distinguish
// "absent" from zero so defaults can be applied.
type ReadingInput struct {
	DeviceID       string   `json:"deviceId"`
	UserID         string   `json:"userId,omitempty"`
	SoilMoisture   *float64 `json:"soilMoisture"`
	Temperature    *float64 `json:"temperature,omitempty"`
	Humidity       *float64 `json:"humidity,omitempty"`
	AutoIrrigation *bool    `json:"autoIrrigation,omitempty"`
	SensorSlot     *int     `json:"sensorSlot,omitempty"`
}

// Normalize validates the input and applies defaults for optional fields.
func (in ReadingInput) Normalize() (Reading, error) {
	if in.SoilMoisture == nil {
		return Reading{}, fmt.Errorf("%w: soilMoisture is required", ErrValidation)
	}
	r := Reading{
		DeviceID:     in.DeviceID,
		UserID:       in.UserID,
		SoilMoisture: *in.SoilMoisture,
		Temperature:  DefaultTemperature,
		Humidity:     DefaultHumidity,
		SensorSlot:   DefaultSensorSlot,
	}
	if in.Temperature != nil {
		r.Temperature = *in.Temperature
	}
	if in.Humidity != nil {
		r.Humidity = *in.Humidity
	}
	if in.AutoIrrigation != nil {
		r.AutoIrrigationRequested = *in.AutoIrrigation
	}
	if in.SensorSlot != nil {
		r.SensorSlot = *in.SensorSlot
	}
	return r.Normalize()
}

// Normalize checks required fields, fills defaults left at zero value and
// clamps moisture into [0,100].
func (r Reading) Normalize() (Reading, error) {
	r.DeviceID = strings.TrimSpace(r.DeviceID)
	if r.DeviceID == "" {
		return r, fmt.Errorf("%w: deviceId is required", ErrValidation)
	}
	if math.IsNaN(r.SoilMoisture) || math.IsInf(r.SoilMoisture, 0) {
		return r, fmt.Errorf("%w: soilMoisture must be a finite number", ErrValidation)
	}
	if math.IsNaN(r.Temperature) || math.IsInf(r.Temperature, 0) ||
		math.IsNaN(r.Humidity) || math.IsInf(r.Humidity, 0) {
		return r, fmt.Errorf("%w: temperature and humidity must be finite numbers", ErrValidation)
	}
	if r.SensorSlot == 0 {
		r.SensorSlot = DefaultSensorSlot
	}
	if r.SensorSlot < 1 {
		return r, fmt.Errorf("%w: sensorSlot must be >= 1", ErrValidation)
	}
	if strings.TrimSpace(r.UserID) == "" {
		r.UserID = DefaultUserID
	}

	if r.SoilMoisture < MinMoisture || r.SoilMoisture > MaxMoisture {
		clamped := math.Max(MinMoisture, math.Min(MaxMoisture, r.SoilMoisture))
		log.Printf("Reading: device %s reported moisture %.2f outside [0,100], clamped to %.0f", r.DeviceID, r.SoilMoisture, clamped)
		r.SoilMoisture = clamped
	}
	return r, nil
}

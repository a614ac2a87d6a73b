package telemetry

import (
	"context"
	"fmt"
	"strconv"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"

	"github.com/technohub6911/smartcropx/internal/data"
)

const measurement = "soil_readings"

// Archive is a durable sink that receives every accepted reading.
type Archive interface {
	Write(ctx context.Context, r data.StoredReading) error
	Close()
}

// InfluxArchive writes readings as points into an InfluxDB v2 bucket.
type InfluxArchive struct {
	client influxdb2.Client
	writer api.WriteAPIBlocking
}

func NewInfluxArchive(url, token, org, bucket string) *InfluxArchive {
	client := influxdb2.NewClient(url, token)
	return &InfluxArchive{
		client: client,
		writer: client.WriteAPIBlocking(org, bucket),
	}
}

func (a *InfluxArchive) Write(ctx context.Context, r data.StoredReading) error {
	p := influxdb2.NewPoint(
		measurement,
		map[string]string{
			"device_id":   r.DeviceID,
			"user_id":     r.UserID,
			"sensor_slot": strconv.Itoa(r.SensorSlot),
		},
		map[string]interface{}{
			"soil_moisture":   r.SoilMoisture,
			"temperature":     r.Temperature,
			"humidity":        r.Humidity,
			"auto_irrigation": r.AutoIrrigationRequested,
		},
		r.Timestamp,
	)
	if err := a.writer.WritePoint(ctx, p); err != nil {
		return fmt.Errorf("%w: influx write: %v", data.ErrStorage, err)
	}
	return nil
}

func (a *InfluxArchive) Close() {
	a.client.Close()
}

// Ping reports whether the InfluxDB server is reachable.
func (a *InfluxArchive) Ping(ctx context.Context) error {
	ok, err := a.client.Ping(ctx)
	if err != nil {
		return fmt.Errorf("%w: influx ping: %v", data.ErrStorage, err)
	}
	if !ok {
		return fmt.Errorf("%w: influx ping failed", data.ErrStorage)
	}
	return nil
}

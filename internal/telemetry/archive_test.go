package telemetry

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/technohub6911/smartcropx/internal/data"
)

func TestInfluxArchive_WritesLineProtocol(t *testing.T) {
	var (
		mu   sync.Mutex
		body string
		path string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		mu.Lock()
		body = string(b)
		path = r.URL.Path
		mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	a := NewInfluxArchive(srv.URL, "token", "farm", "soil")
	defer a.Close()

	err := a.Write(context.Background(), data.StoredReading{
		ID: 1,
		Reading: data.Reading{
			DeviceID: "esp32_1", UserID: "u1", SoilMoisture: 20,
			Temperature: 25, Humidity: 50, SensorSlot: 1,
		},
		Timestamp: time.Unix(1700000000, 0),
	})
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "/api/v2/write", path)
	assert.Contains(t, body, "soil_readings,")
	assert.Contains(t, body, "device_id=esp32_1")
	assert.Contains(t, body, "soil_moisture=20")
}

func TestInfluxArchive_FailureIsStorageError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	a := NewInfluxArchive(srv.URL, "token", "farm", "soil")
	defer a.Close()

	err := a.Write(context.Background(), data.StoredReading{Reading: data.Reading{DeviceID: "d", UserID: "u"}, Timestamp: time.Now()})
	assert.True(t, errors.Is(err, data.ErrStorage))
}

func TestInfluxArchive_Ping(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/ping" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	a := NewInfluxArchive(srv.URL, "token", "farm", "soil")
	defer a.Close()

	require.NoError(t, a.Ping(context.Background()))

	srv.Close()
	assert.True(t, errors.Is(a.Ping(context.Background()), data.ErrStorage))
}

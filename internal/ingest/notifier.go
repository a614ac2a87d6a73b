package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/nats-io/nats.go"

	"github.com/technohub6911/smartcropx/internal/data"
	"github.com/technohub6911/smartcropx/internal/metrics"
)

// ActuationEvent is published when a device's irrigation command changes.
type ActuationEvent struct {
	EventID           uuid.UUID `json:"event_id"`
	DeviceID          string    `json:"device_id"`
	UserID            string    `json:"user_id"`
	SensorSlot        int       `json:"sensor_slot"`
	IrrigationCommand bool      `json:"irrigation_command"`
	AutoIrrigation    bool      `json:"auto_irrigation"`
	SoilMoisture      float64   `json:"soil_moisture"`
	OccurredAt        time.Time `json:"occurred_at"`
}

// Publisher delivers encoded events to a subject.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// TransitionTracker remembers the last command per device and slot so only
// changes are announced. Bounded by an LRU; forgotten devices re-announce.
type TransitionTracker struct {
	mu    sync.Mutex
	cache *lru.Cache[string, bool]
}

func NewTransitionTracker(maxDevices int) *TransitionTracker {
	if maxDevices <= 0 {
		maxDevices = 1024
	}
	c, _ := lru.New[string, bool](maxDevices)
	return &TransitionTracker{cache: c}
}

// Changed records the command and reports whether it differs from the last one seen.
func (t *TransitionTracker) Changed(key string, command bool) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	prev, ok := t.cache.Get(key)
	t.cache.Add(key, command)
	return !ok || prev != command
}

const publishBackoff = 50 * time.Millisecond

func trackerKey(deviceID string, slot int) string {
	return fmt.Sprintf("%s|%d", deviceID, slot)
}

// NATSNotifier publishes actuation transitions with bounded retries.
// Failures are logged and counted; they never change the device's answer.
// Retry backoff is bounded by the caller's context.
type NATSNotifier struct {
	pub        Publisher
	subject    string
	maxRetries int
	tracker    *TransitionTracker
}

func NewNATSNotifier(conn *nats.Conn, subject string, maxRetries int, tracker *TransitionTracker) *NATSNotifier {
	return newNotifier(conn, subject, maxRetries, tracker)
}

func newNotifier(pub Publisher, subject string, maxRetries int, tracker *TransitionTracker) *NATSNotifier {
	if tracker == nil {
		tracker = NewTransitionTracker(0)
	}
	return &NATSNotifier{
		pub:        pub,
		subject:    subject,
		maxRetries: maxRetries,
		tracker:    tracker,
	}
}

func (n *NATSNotifier) Notify(ctx context.Context, r data.StoredReading, res ActuationResult) {
	if !n.tracker.Changed(trackerKey(r.DeviceID, r.SensorSlot), res.IrrigationCommand) {
		return
	}
	evt := &ActuationEvent{
		EventID:           uuid.New(),
		DeviceID:          r.DeviceID,
		UserID:            r.UserID,
		SensorSlot:        r.SensorSlot,
		IrrigationCommand: res.IrrigationCommand,
		AutoIrrigation:    res.AutoIrrigation,
		SoilMoisture:      r.SoilMoisture,
		OccurredAt:        r.Timestamp,
	}
	if err := n.publish(ctx, evt); err != nil {
		metrics.ActuationPublishTotal.WithLabelValues("fail").Inc()
		log.Printf("[ERROR] Actuation Notifier: %v", err)
		return
	}
	metrics.ActuationPublishTotal.WithLabelValues("ok").Inc()
}

func (n *NATSNotifier) publish(ctx context.Context, evt *ActuationEvent) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal error: %w", err)
	}

	for i := 0; i <= n.maxRetries; i++ {
		err = n.pub.Publish(n.subject, payload)
		if err == nil {
			return nil
		}
		if i == n.maxRetries {
			break
		}
		// Backoff
		select {
		case <-ctx.Done():
			return fmt.Errorf("publish abandoned after %d attempts: %w", i+1, ctx.Err())
		case <-time.After(time.Duration(i+1) * publishBackoff):
		}
	}
	return fmt.Errorf("publish failed after %d retries: %w", n.maxRetries, err)
}

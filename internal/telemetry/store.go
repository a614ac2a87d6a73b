package telemetry

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/technohub6911/smartcropx/internal/data"
	"github.com/technohub6911/smartcropx/internal/metrics"
)

// DefaultCapacity is the number of readings retained before the oldest is evicted.
const DefaultCapacity = 100

// Store is a fixed-capacity ring of readings. Eviction is FIFO by insertion
// and purely count based. All methods are safe for concurrent use.
type Store struct {
	mu       sync.RWMutex
	ring     []data.StoredReading
	start    int // index of the oldest entry
	count    int
	nextID   uint64
	lastTime time.Time
	now      func() time.Time
}

func NewStore(capacity int) *Store {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Store{
		ring: make([]data.StoredReading, capacity),
		now:  time.Now,
	}
}

// SetClock replaces the time source. Intended for tests.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *Store) Capacity() int {
	return len(s.ring)
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.count
}

// Append stamps the reading with an id and a timestamp and stores it,
// evicting the oldest entry when full.
func (s *Store) Append(r data.Reading) (data.StoredReading, error) {
	r, err := r.Normalize()
	if err != nil {
		return data.StoredReading{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ts := s.now()
	// Timestamps never go backwards relative to insertion order.
	if ts.Before(s.lastTime) {
		ts = s.lastTime
	}
	s.lastTime = ts
	s.nextID++

	sr := data.StoredReading{ID: s.nextID, Reading: r, Timestamp: ts}

	capacity := len(s.ring)
	if s.count == capacity {
		s.ring[s.start] = sr
		s.start = (s.start + 1) % capacity
		metrics.TelemetryEvictionsTotal.Inc()
	} else {
		s.ring[(s.start+s.count)%capacity] = sr
		s.count++
	}
	metrics.TelemetryStoreSize.Set(float64(s.count))
	return sr, nil
}

// Query returns readings whose user id equals selector or whose device id
// contains it, with timestamp >= now-since, oldest first.
func (s *Store) Query(selector string, since time.Duration) []data.StoredReading {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cutoff := s.now().Add(-since)
	out := make([]data.StoredReading, 0)
	s.each(func(r data.StoredReading) {
		if r.UserID != selector && !strings.Contains(r.DeviceID, selector) {
			return
		}
		if r.Timestamp.Before(cutoff) {
			return
		}
		out = append(out, r)
	})
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out
}

// Latest returns the last-inserted reading for the user.
func (s *Store) Latest(userID string) (data.StoredReading, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	capacity := len(s.ring)
	for i := s.count - 1; i >= 0; i-- {
		r := s.ring[(s.start+i)%capacity]
		if r.UserID == userID {
			return r, true
		}
	}
	return data.StoredReading{}, false
}

// DeleteUser drops every reading with the given user id and compacts the
// ring without reordering the survivors.
func (s *Store) DeleteUser(userID string) (removed, remaining int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed = s.removeWhere(func(r data.StoredReading) bool { return r.UserID == userID })
	return removed, s.count
}

// Remove drops the reading with the given id. It is used to roll back an
// append whose downstream write failed; an entry evicted by that append is
// not restored.
func (s *Store) Remove(id uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.removeWhere(func(r data.StoredReading) bool { return r.ID == id }) > 0
}

// removeWhere compacts the ring, keeping survivors in order. Caller holds the lock.
func (s *Store) removeWhere(drop func(data.StoredReading) bool) int {
	kept := make([]data.StoredReading, 0, s.count)
	removed := 0
	s.each(func(r data.StoredReading) {
		if drop(r) {
			removed++
			return
		}
		kept = append(kept, r)
	})
	if removed == 0 {
		return 0
	}

	clear(s.ring)
	copy(s.ring, kept)
	s.start = 0
	s.count = len(kept)
	metrics.TelemetryStoreSize.Set(float64(s.count))
	return removed
}

// each walks entries oldest first. Caller holds the lock.
func (s *Store) each(fn func(data.StoredReading)) {
	capacity := len(s.ring)
	for i := 0; i < s.count; i++ {
		fn(s.ring[(s.start+i)%capacity])
	}
}

// Package health probes the service's backing dependencies and keeps the
// latest result for the readiness endpoint.
package health

import (
	"context"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/technohub6911/smartcropx/internal/metrics"
)

// Probe returns nil when the dependency is reachable.
type Probe func(ctx context.Context) error

type Check struct {
	Name  string
	Probe Probe
}

type Status struct {
	Name                string    `json:"name"`
	Healthy             bool      `json:"healthy"`
	Error               string    `json:"error,omitempty"`
	LatencyMs           int64     `json:"latencyMs"`
	CheckedAt           time.Time `json:"checkedAt"`
	ConsecutiveFailures int       `json:"consecutiveFailures"`
}

type Service struct {
	checks  []Check
	timeout time.Duration
	now     func() time.Time

	mu   sync.RWMutex
	last map[string]Status
}

func NewService(timeout time.Duration, checks ...Check) *Service {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &Service{
		checks:  checks,
		timeout: timeout,
		now:     time.Now,
		last:    make(map[string]Status),
	}
}

// Perform runs one check and records the outcome.
func (s *Service) Perform(ctx context.Context, c Check) Status {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := s.now()
	err := c.Probe(ctx)
	st := Status{
		Name:      c.Name,
		Healthy:   err == nil,
		LatencyMs: s.now().Sub(start).Milliseconds(),
		CheckedAt: s.now(),
	}

	s.mu.Lock()
	prev := s.last[c.Name]
	if err != nil {
		st.Error = err.Error()
		st.ConsecutiveFailures = prev.ConsecutiveFailures + 1
	}
	s.last[c.Name] = st
	s.mu.Unlock()

	if err != nil {
		metrics.DependencyUp.WithLabelValues(c.Name).Set(0)
		if prev.Healthy || prev.CheckedAt.IsZero() {
			log.Printf("[ERROR] Health: %s unreachable: %v", c.Name, err)
		}
	} else {
		metrics.DependencyUp.WithLabelValues(c.Name).Set(1)
		if !prev.Healthy && !prev.CheckedAt.IsZero() {
			log.Printf("Health: %s recovered", c.Name)
		}
	}
	return st
}

// RunAll checks every dependency once.
func (s *Service) RunAll(ctx context.Context) []Status {
	out := make([]Status, 0, len(s.checks))
	for _, c := range s.checks {
		out = append(out, s.Perform(ctx, c))
	}
	return out
}

// Snapshot returns the last known statuses sorted by name and whether all
// of them are healthy. Never-checked dependencies count as unhealthy.
func (s *Service) Snapshot() ([]Status, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ready := true
	out := make([]Status, 0, len(s.checks))
	for _, c := range s.checks {
		st, ok := s.last[c.Name]
		if !ok {
			st = Status{Name: c.Name, Error: "not checked yet"}
		}
		if !st.Healthy {
			ready = false
		}
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, ready
}

func (s *Service) status(name string) (Status, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.last[name]
	return st, ok
}

package health

import (
	"context"
	"sync"
	"time"
)

type SchedulerConfig struct {
	Interval time.Duration
}

// Scheduler re-probes dependencies on an interval. Failing ones back off.
type Scheduler struct {
	config  SchedulerConfig
	service *Service
	quit    chan struct{}
	wg      sync.WaitGroup
}

func NewScheduler(cfg SchedulerConfig, svc *Service) *Scheduler {
	if cfg.Interval == 0 {
		cfg.Interval = 15 * time.Second
	}
	return &Scheduler{
		config:  cfg,
		service: svc,
		quit:    make(chan struct{}),
	}
}

func (s *Scheduler) Start() {
	s.wg.Add(1)
	go s.run()
}

func (s *Scheduler) Stop() {
	close(s.quit)
	s.wg.Wait()
}

func (s *Scheduler) run() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	s.dispatch()
	for {
		select {
		case <-ticker.C:
			s.dispatch()
		case <-s.quit:
			return
		}
	}
}

func (s *Scheduler) dispatch() {
	ctx := context.Background()
	for _, c := range s.service.checks {
		if s.shouldSkip(c.Name) {
			continue
		}
		s.service.Perform(ctx, c)
	}
}

// shouldSkip holds off re-probing a dependency that keeps failing:
// 1x interval, 2x after two failures, 5x after five.
func (s *Scheduler) shouldSkip(name string) bool {
	st, ok := s.service.status(name)
	if !ok || st.Healthy {
		return false
	}

	backoff := s.config.Interval
	if st.ConsecutiveFailures > 1 {
		backoff = 2 * s.config.Interval
	}
	if st.ConsecutiveFailures > 5 {
		backoff = 5 * s.config.Interval
	}
	return s.service.now().Before(st.CheckedAt.Add(backoff))
}

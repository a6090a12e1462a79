package studio

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// DefaultSweepSchedule runs the sweeper every ten minutes.
const DefaultSweepSchedule = "@every 10m"

// Sweeper periodically deletes expired sessions and their blobs.
type Sweeper struct {
	svc     *Service
	cron    *cron.Cron
	timeout time.Duration
}

// NewSweeper schedules Service.Sweep. An empty schedule selects
// DefaultSweepSchedule; schedules use the standard cron syntax plus the
// "@every" descriptors.
func NewSweeper(svc *Service, schedule string) (*Sweeper, error) {
	if schedule == "" {
		schedule = DefaultSweepSchedule
	}
	s := &Sweeper{
		svc:     svc,
		cron:    cron.New(),
		timeout: time.Minute,
	}
	if _, err := s.cron.AddFunc(schedule, s.run); err != nil {
		return nil, fmt.Errorf("invalid sweep schedule %q: %w", schedule, err)
	}
	return s, nil
}

// Start runs the schedule in the background.
func (s *Sweeper) Start() {
	s.cron.Start()
}

// Stop halts the schedule. The returned context is done once a running
// sweep has finished.
func (s *Sweeper) Stop() context.Context {
	return s.cron.Stop()
}

func (s *Sweeper) run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	start := time.Now()
	n, err := s.svc.Sweep(ctx, start)
	if err != nil {
		s.svc.logger.Error("sweep", "err", err)
		return
	}
	if n > 0 {
		s.svc.logger.Info("swept expired sessions", "removed", n, "duration", time.Since(start))
	}
}

package drift

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pcsensei/pcsensei/pkg/storage"
	"github.com/robfig/cron/v3"
)

// DefaultSchedule runs the drift once a day.
const DefaultSchedule = "@every 24h"

// Runner is anything that performs one drift run.
type Runner interface {
	Run(ctx context.Context) ([]storage.PriceChange, error)
}

// RunStatus holds the result of the last run.
type RunStatus struct {
	StartedAt time.Time     `json:"startedAt"`
	Duration  time.Duration `json:"duration"`
	Success   bool          `json:"success"`
	Updates   int           `json:"updates"`
	Error     string        `json:"error,omitempty"`
}

// Scheduler fires drift runs on a cron schedule and makes sure at most one
// run is in flight, whether it came from the schedule or from RunNow.
type Scheduler struct {
	cron    *cron.Cron
	runner  Runner
	log     Logger
	running atomic.Bool

	mu      sync.Mutex
	entryID cron.EntryID
	last    *RunStatus
}

// NewScheduler creates a stopped scheduler in loc (UTC when nil).
func NewScheduler(r Runner, loc *time.Location, log Logger) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	if log == nil {
		log = nopLogger{}
	}
	return &Scheduler{
		cron:   cron.New(cron.WithLocation(loc)),
		runner: r,
		log:    log,
	}
}

// Schedule sets the cron spec, replacing any previous one. Standard five
// field specs and descriptors such as "@daily" or "@every 24h" are accepted.
func (s *Scheduler) Schedule(spec string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.entryID != 0 {
		s.cron.Remove(s.entryID)
		s.entryID = 0
	}
	id, err := s.cron.AddFunc(spec, s.fire)
	if err != nil {
		return fmt.Errorf("adding cron entry %q: %w", spec, err)
	}
	s.entryID = id
	s.log.Infof("Price drift scheduled (%s)", spec)
	return nil
}

// Start begins firing scheduled runs.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts the schedule and waits for a running job to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// Next returns the next scheduled fire time, zero when nothing is scheduled.
func (s *Scheduler) Next() time.Time {
	s.mu.Lock()
	id := s.entryID
	s.mu.Unlock()
	if id == 0 {
		return time.Time{}
	}
	return s.cron.Entry(id).Next
}

func (s *Scheduler) fire() {
	if _, err := s.RunNow(context.Background()); err != nil {
		if errors.Is(err, ErrRunInProgress) {
			s.log.Warnf("Skipping scheduled drift run: previous run still in progress")
			return
		}
		s.log.Errorf("Scheduled drift run failed: %v", err)
	}
}

// RunNow performs a run immediately. It returns ErrRunInProgress when
// another run has not finished yet.
func (s *Scheduler) RunNow(ctx context.Context) ([]storage.PriceChange, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, ErrRunInProgress
	}
	defer s.running.Store(false)

	start := time.Now()
	changes, err := s.runner.Run(ctx)
	status := &RunStatus{
		StartedAt: start,
		Duration:  time.Since(start),
		Success:   err == nil,
		Updates:   len(changes),
	}
	if err != nil {
		status.Error = err.Error()
	}
	s.mu.Lock()
	s.last = status
	s.mu.Unlock()
	return changes, err
}

// Running reports whether a run is in flight.
func (s *Scheduler) Running() bool {
	return s.running.Load()
}

// LastStatus returns a copy of the last run's status, nil if none ran.
func (s *Scheduler) LastStatus() *RunStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil {
		return nil
	}
	cp := *s.last
	return &cp
}

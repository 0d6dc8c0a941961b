package services

import (
	"fmt"
	"log/slog"
	"time"

	cronlib "github.com/robfig/cron/v3"
)

var sweepParser = cronlib.NewParser(
	cronlib.SecondOptional | cronlib.Minute | cronlib.Hour | cronlib.Dom | cronlib.Month | cronlib.Dow,
)

// Sweeper runs the engine's expiry sweep on a cron schedule. The sweep is
// destructive: swept jobs are gone from the store, so owners are expected to
// have consumed results (or rely on the journal) before the schedule fires.
type Sweeper struct {
	logger *slog.Logger
	engine *Engine
	maxAge time.Duration
	cron   *cronlib.Cron
}

// NewSweeper schedules a sweep of jobs older than maxAge according to the
// cron expression (standard 5-field, optional leading seconds field).
func NewSweeper(logger *slog.Logger, engine *Engine, schedule string, maxAge time.Duration) (*Sweeper, error) {
	s := &Sweeper{
		logger: logger,
		engine: engine,
		maxAge: maxAge,
		cron:   cronlib.New(cronlib.WithParser(sweepParser)),
	}
	if _, err := s.cron.AddFunc(schedule, s.run); err != nil {
		return nil, fmt.Errorf("invalid sweep schedule %q: %w", schedule, err)
	}
	return s, nil
}

func (s *Sweeper) Start() {
	s.cron.Start()
	s.logger.Info("sweep schedule started", "max_age", s.maxAge)
}

// Stop halts the schedule and waits for an in-flight sweep to finish.
func (s *Sweeper) Stop() {
	<-s.cron.Stop().Done()
}

func (s *Sweeper) run() {
	if n := s.engine.Sweep(s.maxAge); n > 0 {
		s.logger.Info("scheduled sweep removed jobs", "count", n)
	}
}

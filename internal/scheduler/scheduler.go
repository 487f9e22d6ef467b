// Package scheduler runs the daily warranty sweep on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"it-inventory-api/internal/config"
	"it-inventory-api/internal/inventory"
)

const defaultTimeout = 5 * time.Minute

// Sweeper runs one warranty sweep
type Sweeper interface {
	RunWarrantySweep(ctx context.Context, force bool) (inventory.SweepReport, error)
}

type Scheduler struct {
	cron    *cron.Cron
	sweeper Sweeper
	log     logrus.FieldLogger
	timeout time.Duration
	spec    string

	ctx    context.Context
	cancel context.CancelFunc
}

// New parses the schedule in the configured time zone. A run that is still
// going when the next one is due causes the next one to be skipped.
func New(cfg config.SweepConfig, sweeper Sweeper, log logrus.FieldLogger) (*Scheduler, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, fmt.Errorf("load sweep time zone: %w", err)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	log = log.WithField("component", "scheduler")
	c := cron.New(
		cron.WithLocation(loc),
		cron.WithChain(cron.Recover(cron.PrintfLogger(log)), cron.SkipIfStillRunning(cron.PrintfLogger(log))),
	)

	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		cron:    c,
		sweeper: sweeper,
		log:     log,
		timeout: timeout,
		spec:    cfg.Schedule,
		ctx:     ctx,
		cancel:  cancel,
	}
	if _, err := c.AddFunc(cfg.Schedule, func() { s.RunOnce(s.ctx) }); err != nil {
		cancel()
		return nil, fmt.Errorf("invalid sweep schedule %q: %w", cfg.Schedule, err)
	}
	return s, nil
}

// RunOnce runs a single non-forced sweep bounded by the configured timeout.
func (s *Scheduler) RunOnce(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	report, err := s.sweeper.RunWarrantySweep(ctx, false)
	if err != nil {
		s.log.WithError(err).Error("scheduled warranty sweep failed")
		return
	}
	entry := s.log.WithFields(logrus.Fields{
		"run_id":        report.RunID,
		"run_date":      report.RunDate.String(),
		"notifications": report.Notifications,
		"emails_sent":   report.EmailsSent,
		"emails_failed": report.EmailsFailed,
	})
	if report.Skipped {
		entry.WithField("reason", report.Reason).Info("scheduled warranty sweep skipped")
		return
	}
	entry.Info("scheduled warranty sweep finished")
}

// Next returns the time the sweep fires next, or the zero time before Start.
func (s *Scheduler) Next() time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.WithField("schedule", s.spec).WithField("next_run", s.Next()).Info("warranty sweep scheduled")
}

// Stop cancels a running sweep and waits for it to return or for ctx to end.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.cancel()
	done := s.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

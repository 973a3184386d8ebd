package evaluation

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	id "shiftguard/pkg/domain"
	"shiftguard/pkg/requestcontext"
)

// PassRunner is satisfied by *Service.
type PassRunner interface {
	RunEvaluationPass(ctx context.Context, tenantID *id.TenantID) (*PassResult, error)
}

// Scheduler triggers a pass over all tenants on a fixed interval, but only
// inside the daily active window [StartHour, EndHour) of the server clock.
type Scheduler struct {
	runner    PassRunner
	interval  time.Duration
	startHour int
	endHour   int
	logger    *slog.Logger
	now       func() time.Time
}

type SchedulerOption func(*Scheduler)

func WithSchedulerLogger(logger *slog.Logger) SchedulerOption {
	return func(s *Scheduler) {
		s.logger = logger
	}
}

// WithSchedulerClock overrides the clock used for the active-window check.
func WithSchedulerClock(now func() time.Time) SchedulerOption {
	return func(s *Scheduler) {
		s.now = now
	}
}

func NewScheduler(runner PassRunner, interval time.Duration, startHour, endHour int, opts ...SchedulerOption) (*Scheduler, error) {
	if runner == nil {
		return nil, fmt.Errorf("pass runner is required")
	}
	if interval <= 0 {
		return nil, fmt.Errorf("interval must be positive")
	}
	if startHour < 0 || endHour > 24 || startHour >= endHour {
		return nil, fmt.Errorf("invalid active window %d-%d", startHour, endHour)
	}
	s := &Scheduler{
		runner:    runner,
		interval:  interval,
		startHour: startHour,
		endHour:   endHour,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Active reports whether t falls inside the daily window.
func (s *Scheduler) Active(t time.Time) bool {
	h := t.Hour()
	return h >= s.startHour && h < s.endHour
}

// Run ticks until ctx is cancelled. A tick that arrives while the previous
// pass is still running is dropped by the ticker.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.Tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Tick runs one pass if the current time is inside the active window and
// reports whether it ran.
func (s *Scheduler) Tick(ctx context.Context) bool {
	now := s.now()
	if !s.Active(now) {
		if s.logger != nil {
			s.logger.DebugContext(ctx, "outside evaluation window", "hour", now.Hour())
		}
		return false
	}
	ctx = requestcontext.WithTime(ctx, now)
	if _, err := s.runner.RunEvaluationPass(ctx, nil); err != nil && s.logger != nil {
		s.logger.ErrorContext(ctx, "scheduled evaluation pass failed", "error", err)
	}
	return true
}

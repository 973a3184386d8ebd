// Package evaluation runs the periodic evaluation pass: for every tenant it
// reconstructs each user's work session from the event log, runs the geofence,
// overtime and shift monitors, gates the candidates through deduplication and
// queues created alerts for delivery.
package evaluation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"shiftguard/internal/alert/dedup"
	alertmodels "shiftguard/internal/alert/models"
	attendance "shiftguard/internal/attendance/models"
	"shiftguard/internal/attendance/session"
	"shiftguard/internal/evaluation/lock"
	"shiftguard/internal/evaluation/metrics"
	"shiftguard/internal/geofence"
	"shiftguard/internal/overtime"
	"shiftguard/internal/shift"
	tenantmodels "shiftguard/internal/tenant/models"
	id "shiftguard/pkg/domain"
	dErrors "shiftguard/pkg/domain-errors"
	"shiftguard/pkg/platform/sentinel"
	"shiftguard/pkg/requestcontext"
)

const tracerName = "shiftguard/evaluation"

// Check names used in logs and the skipped-checks metric.
const (
	CheckGeofence        = "geofence"
	CheckOvertime        = "overtime"
	CheckBreak           = "break"
	CheckMissingClockOut = "missing_clock_out"
)

// EventStore reads the attendance log.
type EventStore interface {
	ListEventsForUser(ctx context.Context, userID id.UserID, since time.Time) ([]attendance.AttendanceEvent, error)
	ListUsersWithEventsSince(ctx context.Context, tenantID id.TenantID, since time.Time) ([]id.UserID, error)
	ListLocationSamples(ctx context.Context, userID id.UserID, since time.Time) ([]attendance.LocationSample, error)
	// ListOpenShifts returns users still clocked in from before the cutoff.
	ListOpenShifts(ctx context.Context, tenantID id.TenantID, before time.Time) ([]attendance.OpenShift, error)
}

// SettingsStore reads tenant configuration.
type SettingsStore interface {
	GetSettings(ctx context.Context, tenantID id.TenantID) (*tenantmodels.Settings, error)
	ListActiveTenants(ctx context.Context) ([]tenantmodels.Tenant, error)
}

// AlertReader looks up prior alerts for the monitors' own dedup inputs.
type AlertReader interface {
	FindAlert(ctx context.Context, userID id.UserID, typ alertmodels.Type, filter alertmodels.Filter) (*alertmodels.Alert, error)
}

type AlertGate interface {
	Create(ctx context.Context, candidate alertmodels.Candidate, window dedup.Window, now time.Time) (*dedup.Outcome, error)
}

// Enqueuer hands created alerts to the delivery side. It must not block.
type Enqueuer interface {
	Enqueue(ctx context.Context, alert *alertmodels.Alert) bool
}

type Locker interface {
	TryAcquire(ctx context.Context, key string, ttl time.Duration) (lock.Release, bool, error)
}

// Config tunes a pass.
type Config struct {
	Concurrency     int
	Lookback        time.Duration
	LocationHistory time.Duration
	LockTTL         time.Duration
	Location        geofence.LocationPolicy
}

func DefaultConfig() Config {
	return Config{
		Concurrency:     8,
		Lookback:        24 * time.Hour,
		LocationHistory: 2 * time.Hour,
		LockTTL:         10 * time.Minute,
		Location:        geofence.DefaultLocationPolicy,
	}
}

// UserResult is the outcome of evaluating one user.
type UserResult struct {
	UserID   id.UserID
	TenantID id.TenantID
	Created  []*alertmodels.Alert
	// Suppressed counts candidates the dedup gate refused.
	Suppressed int
	Err        error
}

// PassResult summarizes one RunEvaluationPass call.
type PassResult struct {
	PassID            string
	StartedAt         time.Time
	Duration          time.Duration
	TenantsEvaluated  int
	TenantsSkipped    int
	UsersEvaluated    int
	UsersFailed       int
	AlertsCreated     int
	AlertsSuppressed  int
	DispatchDropped   int
	ForcedTransitions int
	Users             []UserResult
	// TenantErrors holds tenants whose settings or user list could not be read.
	TenantErrors map[id.TenantID]error
}

// Failed returns the per-user results that carry an error.
func (r *PassResult) Failed() []UserResult {
	var out []UserResult
	for _, u := range r.Users {
		if u.Err != nil {
			out = append(out, u)
		}
	}
	return out
}

// Service runs evaluation passes.
type Service struct {
	events   EventStore
	settings SettingsStore
	alerts   AlertReader
	gate     AlertGate
	queue    Enqueuer
	locker   Locker
	cfg      Config
	logger   *slog.Logger
	metrics  *metrics.Metrics
	tracer   trace.Tracer
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithConfig(cfg Config) Option {
	return func(s *Service) {
		s.cfg = cfg
	}
}

// WithLocker replaces the default in-process pass lock.
func WithLocker(l Locker) Option {
	return func(s *Service) {
		s.locker = l
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = t
	}
}

func New(events EventStore, settings SettingsStore, alerts AlertReader, gate AlertGate, queue Enqueuer, opts ...Option) (*Service, error) {
	if events == nil {
		return nil, fmt.Errorf("events store is required")
	}
	if settings == nil {
		return nil, fmt.Errorf("settings store is required")
	}
	if alerts == nil {
		return nil, fmt.Errorf("alerts store is required")
	}
	if gate == nil {
		return nil, fmt.Errorf("dedup gate is required")
	}
	if queue == nil {
		return nil, fmt.Errorf("dispatch queue is required")
	}
	svc := &Service{
		events:   events,
		settings: settings,
		alerts:   alerts,
		gate:     gate,
		queue:    queue,
		cfg:      DefaultConfig(),
		locker:   lock.NewMemory(),
		tracer:   otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(svc)
	}
	if svc.cfg.Concurrency < 1 {
		svc.cfg.Concurrency = 1
	}
	return svc, nil
}

// RunEvaluationPass evaluates one tenant, or every active tenant when
// tenantID is nil. Per-user and per-tenant failures are recorded in the
// result and never returned; the returned error covers only failures that
// prevent the pass from starting.
func (s *Service) RunEvaluationPass(ctx context.Context, tenantID *id.TenantID) (*PassResult, error) {
	passID := requestcontext.PassID(ctx)
	if passID == "" {
		passID = uuid.NewString()
		ctx = requestcontext.WithPassID(ctx, passID)
	}
	now := requestcontext.Now(ctx)
	ctx = requestcontext.WithTime(ctx, now)

	ctx, span := s.tracer.Start(ctx, "evaluation.pass", trace.WithAttributes(attribute.String("pass_id", passID)))
	defer span.End()

	result := &PassResult{
		PassID:       passID,
		StartedAt:    now,
		TenantErrors: make(map[id.TenantID]error),
	}
	start := time.Now()
	defer func() {
		result.Duration = time.Since(start)
		if s.metrics != nil {
			s.metrics.ObservePassDuration(start)
		}
	}()

	tenants, err := s.tenantsFor(ctx, tenantID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "list tenants")
		return nil, err
	}

	for _, tenant := range tenants {
		if err := ctx.Err(); err != nil {
			return result, dErrors.Wrap(err, dErrors.CodeInternal, "evaluation pass cancelled")
		}
		s.evaluateTenant(ctx, tenant, now, result)
	}

	span.SetAttributes(
		attribute.Int("tenants", result.TenantsEvaluated),
		attribute.Int("users", result.UsersEvaluated),
		attribute.Int("alerts_created", result.AlertsCreated),
	)
	if s.logger != nil {
		s.logger.InfoContext(ctx, "evaluation pass completed",
			"pass_id", passID,
			"tenants", result.TenantsEvaluated,
			"tenants_skipped", result.TenantsSkipped,
			"users", result.UsersEvaluated,
			"users_failed", result.UsersFailed,
			"alerts_created", result.AlertsCreated,
			"alerts_suppressed", result.AlertsSuppressed,
		)
	}
	return result, nil
}

func (s *Service) tenantsFor(ctx context.Context, tenantID *id.TenantID) ([]tenantmodels.Tenant, error) {
	if tenantID != nil {
		settings, err := s.settings.GetSettings(ctx, *tenantID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return nil, dErrors.New(dErrors.CodeNotFound, "tenant not found")
			}
			return nil, dErrors.Wrap(err, dErrors.CodeDataUnavailable, "failed to load tenant")
		}
		if !settings.Tenant.Active {
			return nil, nil
		}
		return []tenantmodels.Tenant{settings.Tenant}, nil
	}
	tenants, err := s.settings.ListActiveTenants(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeDataUnavailable, "failed to list tenants")
	}
	return tenants, nil
}

func (s *Service) evaluateTenant(ctx context.Context, tenant tenantmodels.Tenant, now time.Time, result *PassResult) {
	ctx, span := s.tracer.Start(ctx, "evaluation.tenant", trace.WithAttributes(attribute.String("tenant_id", tenant.ID.String())))
	defer span.End()

	release, ok, err := s.locker.TryAcquire(ctx, "tenant:"+tenant.ID.String(), s.cfg.LockTTL)
	if err != nil {
		s.recordTenantError(ctx, tenant.ID, dErrors.Wrap(err, dErrors.CodeDataUnavailable, "failed to acquire pass lock"), result)
		span.SetStatus(codes.Error, "lock")
		return
	}
	if !ok {
		result.TenantsSkipped++
		if s.metrics != nil {
			s.metrics.IncrementPassesSkipped()
		}
		if s.logger != nil {
			s.logger.InfoContext(ctx, "tenant pass already running, skipping",
				"tenant_id", tenant.ID.String(),
				"pass_id", requestcontext.PassID(ctx),
			)
		}
		return
	}
	defer func() {
		if err := release(context.WithoutCancel(ctx)); err != nil && s.logger != nil {
			s.logger.WarnContext(ctx, "failed to release pass lock", "tenant_id", tenant.ID.String(), "error", err)
		}
	}()

	settings, err := s.settings.GetSettings(ctx, tenant.ID)
	if err != nil {
		s.recordTenantError(ctx, tenant.ID, dErrors.Wrap(err, dErrors.CodeDataUnavailable, "failed to load tenant settings"), result)
		span.SetStatus(codes.Error, "settings")
		return
	}
	s.logMissingConfig(ctx, settings)

	midnight := settings.LocalMidnight(now)
	since, err := s.eventWindows(ctx, tenant.ID, midnight.Add(-s.cfg.Lookback))
	if err != nil {
		s.recordTenantError(ctx, tenant.ID, dErrors.Wrap(err, dErrors.CodeDataUnavailable, "failed to list users"), result)
		span.SetStatus(codes.Error, "users")
		return
	}
	result.TenantsEvaluated++

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Concurrency)
	for userID, from := range since {
		userID, from := userID, from
		g.Go(func() error {
			ur := s.evaluateUser(gctx, settings, userID, from, now, midnight)
			mu.Lock()
			s.collect(result, ur)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
}

// eventWindows maps each user to evaluate onto the start of the event history
// to read. Users active since windowStart read from there; a shift opened
// before windowStart and never closed is read from its opening event, so a
// long-forgotten clock-in still reconstructs as on duty.
func (s *Service) eventWindows(ctx context.Context, tenantID id.TenantID, windowStart time.Time) (map[id.UserID]time.Time, error) {
	users, err := s.events.ListUsersWithEventsSince(ctx, tenantID, windowStart)
	if err != nil {
		return nil, err
	}
	open, err := s.events.ListOpenShifts(ctx, tenantID, windowStart)
	if err != nil {
		return nil, err
	}
	since := make(map[id.UserID]time.Time, len(users)+len(open))
	for _, u := range users {
		since[u] = windowStart
	}
	for _, shift := range open {
		since[shift.UserID] = shift.StartedAt
	}
	return since, nil
}

func (s *Service) collect(result *PassResult, ur userOutcome) {
	result.UsersEvaluated++
	result.Users = append(result.Users, ur.UserResult)
	result.AlertsCreated += len(ur.Created)
	result.AlertsSuppressed += ur.Suppressed
	result.DispatchDropped += ur.dropped
	result.ForcedTransitions += ur.forced
	if ur.Err != nil {
		result.UsersFailed++
	}
}

type userOutcome struct {
	UserResult
	dropped int
	forced  int
}

func (s *Service) evaluateUser(ctx context.Context, settings *tenantmodels.Settings, userID id.UserID, since, now, midnight time.Time) userOutcome {
	ctx, span := s.tracer.Start(ctx, "evaluation.user", trace.WithAttributes(
		attribute.String("tenant_id", settings.Tenant.ID.String()),
		attribute.String("user_id", userID.String()),
	))
	defer span.End()

	if s.metrics != nil {
		s.metrics.IncrementUsersEvaluated()
	}
	out := userOutcome{UserResult: UserResult{UserID: userID, TenantID: settings.Tenant.ID}}

	candidates, forced, err := s.candidates(ctx, settings, userID, since, now, midnight)
	out.forced = forced
	if err != nil {
		out.Err = err
		s.recordUserError(ctx, settings.Tenant.ID, userID, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, string(dErrors.CodeOf(err)))
		return out
	}

	window := dedup.Window{DayStart: midnight}
	for _, c := range candidates {
		outcome, err := s.gate.Create(ctx, c, window, now)
		if err != nil {
			// Later candidates may still persist; keep going and report the first failure.
			if out.Err == nil {
				out.Err = err
			}
			s.recordUserError(ctx, settings.Tenant.ID, userID, err)
			continue
		}
		if !outcome.Created {
			out.Suppressed++
			continue
		}
		out.Created = append(out.Created, outcome.Alert)
		if !s.queue.Enqueue(ctx, outcome.Alert) {
			out.dropped++
			if s.metrics != nil {
				s.metrics.IncrementDispatchDropped()
			}
		}
	}
	if out.Err != nil {
		span.SetStatus(codes.Error, string(dErrors.CodeOf(out.Err)))
	}
	return out
}

// candidates reconstructs the user's session and runs every monitor that
// applies to its state.
func (s *Service) candidates(ctx context.Context, settings *tenantmodels.Settings, userID id.UserID, since, now, midnight time.Time) ([]alertmodels.Candidate, int, error) {
	tenantID := settings.Tenant.ID
	events, err := s.events.ListEventsForUser(ctx, userID, since)
	if err != nil {
		return nil, 0, dErrors.Wrap(err, dErrors.CodeDataUnavailable, "failed to read attendance events")
	}

	ws := session.Accumulate(events, now)
	if ws.ForcedTransitions > 0 {
		if s.metrics != nil {
			s.metrics.AddForcedTransitions(ws.ForcedTransitions)
		}
		if s.logger != nil {
			s.logger.WarnContext(ctx, "attendance log contains out-of-order transitions",
				"tenant_id", tenantID.String(),
				"user_id", userID.String(),
				"pass_id", requestcontext.PassID(ctx),
				"forced_transitions", ws.ForcedTransitions,
			)
		}
	}

	var out []alertmodels.Candidate
	if ws.IsWorking() {
		if settings.Geofence != nil {
			c, err := s.checkGeofence(ctx, settings, userID, events, ws, now)
			if err != nil {
				return nil, ws.ForcedTransitions, err
			}
			if c != nil {
				out = append(out, *c)
			}
		}
		if settings.Overtime != nil {
			today := session.AccumulateWindow(events, midnight, now)
			c, err := s.checkOvertime(ctx, settings, userID, today, midnight)
			if err != nil {
				return nil, ws.ForcedTransitions, err
			}
			if c != nil {
				out = append(out, *c)
			}
		}
	}
	if ws.IsOnDuty() {
		if c := shift.CheckMissingClockOut(userID, tenantID, ws, midnight); c != nil {
			out = append(out, *c)
		}
	}
	if settings.Breaks != nil {
		if c := shift.CheckBreak(userID, tenantID, ws, *settings.Breaks, now); c != nil {
			out = append(out, *c)
		}
	}
	return out, ws.ForcedTransitions, nil
}

func (s *Service) checkGeofence(ctx context.Context, settings *tenantmodels.Settings, userID id.UserID, events []attendance.AttendanceEvent, ws session.WorkSession, now time.Time) (*alertmodels.Candidate, error) {
	samples, err := s.events.ListLocationSamples(ctx, userID, now.Add(-s.cfg.LocationHistory))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeDataUnavailable, "failed to read location samples")
	}
	samples = append(samples, attendance.SamplesFromEvents(events)...)

	open, err := s.findAlert(ctx, userID, alertmodels.TypeGeofence, alertmodels.Filter{UnresolvedOnly: true})
	if err != nil {
		return nil, err
	}

	res := geofence.Detect(geofence.Input{
		UserID:    userID,
		TenantID:  settings.Tenant.ID,
		Samples:   samples,
		Config:    *settings.Geofence,
		Session:   ws,
		OpenAlert: open,
		Now:       now,
		Policy:    s.cfg.Location,
	})
	if res.Err != nil {
		// No violation can be asserted without a usable location.
		if s.metrics != nil {
			s.metrics.IncrementCheckSkipped(CheckGeofence, string(dErrors.CodeOf(res.Err)))
		}
		if s.logger != nil {
			s.logger.DebugContext(ctx, "geofence check skipped",
				"tenant_id", settings.Tenant.ID.String(),
				"user_id", userID.String(),
				"pass_id", requestcontext.PassID(ctx),
				"reason", res.Err.Error(),
			)
		}
		return nil, nil
	}
	return res.Candidate, nil
}

func (s *Service) checkOvertime(ctx context.Context, settings *tenantmodels.Settings, userID id.UserID, today session.WorkSession, midnight time.Time) (*alertmodels.Candidate, error) {
	var alertsToday []*alertmodels.Alert
	for _, tier := range overtime.Tiers(*settings.Overtime) {
		if today.TotalWorking < tier.Threshold {
			continue
		}
		a, err := s.findAlert(ctx, userID, tier.Type, alertmodels.Filter{CreatedSince: midnight})
		if err != nil {
			return nil, err
		}
		if a != nil {
			alertsToday = append(alertsToday, a)
		}
	}
	return overtime.Evaluate(overtime.Input{
		UserID:       userID,
		TenantID:     settings.Tenant.ID,
		TotalWorking: today.TotalWorking,
		Config:       *settings.Overtime,
		AlertsToday:  alertsToday,
	}), nil
}

func (s *Service) findAlert(ctx context.Context, userID id.UserID, typ alertmodels.Type, filter alertmodels.Filter) (*alertmodels.Alert, error) {
	a, err := s.alerts.FindAlert(ctx, userID, typ, filter)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, nil
		}
		return nil, dErrors.Wrap(err, dErrors.CodeDataUnavailable, "failed to read alerts")
	}
	return a, nil
}

func (s *Service) logMissingConfig(ctx context.Context, settings *tenantmodels.Settings) {
	var missing []string
	if settings.Geofence == nil {
		missing = append(missing, CheckGeofence)
	}
	if settings.Overtime == nil {
		missing = append(missing, CheckOvertime)
	}
	for _, check := range missing {
		if s.metrics != nil {
			s.metrics.IncrementCheckSkipped(check, string(dErrors.CodeConfigMissing))
		}
		if s.logger != nil {
			s.logger.DebugContext(ctx, "tenant has no config for check",
				"tenant_id", settings.Tenant.ID.String(),
				"pass_id", requestcontext.PassID(ctx),
				"check", check,
				"code", string(dErrors.CodeConfigMissing),
			)
		}
	}
}

func (s *Service) recordTenantError(ctx context.Context, tenantID id.TenantID, err error, result *PassResult) {
	result.TenantErrors[tenantID] = err
	if s.metrics != nil {
		s.metrics.IncrementFailure(string(dErrors.CodeOf(err)))
	}
	if s.logger != nil {
		s.logger.ErrorContext(ctx, "tenant evaluation failed",
			"tenant_id", tenantID.String(),
			"pass_id", requestcontext.PassID(ctx),
			"code", string(dErrors.CodeOf(err)),
			"error", err,
		)
	}
}

func (s *Service) recordUserError(ctx context.Context, tenantID id.TenantID, userID id.UserID, err error) {
	if s.metrics != nil {
		s.metrics.IncrementFailure(string(dErrors.CodeOf(err)))
	}
	if s.logger != nil {
		s.logger.ErrorContext(ctx, "user evaluation failed",
			"tenant_id", tenantID.String(),
			"user_id", userID.String(),
			"pass_id", requestcontext.PassID(ctx),
			"code", string(dErrors.CodeOf(err)),
			"error", err,
		)
	}
}

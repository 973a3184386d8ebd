// Package dedup decides whether an alert candidate becomes a persisted alert.
//
// Two suppression windows exist and must stay distinct:
//   - episode: suppress while an unresolved alert of the type exists
//   - daily: suppress any alert of the type raised since local midnight,
//     resolved or not
package dedup

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"shiftguard/internal/alert/metrics"
	"shiftguard/internal/alert/models"
	"shiftguard/internal/alert/observability"
	alertstore "shiftguard/internal/alert/store"
	id "shiftguard/pkg/domain"
	dErrors "shiftguard/pkg/domain-errors"
)

// Suppression reasons reported in logs and metrics.
const (
	ReasonOpenEpisode = "open_episode"
	ReasonSameDay     = "same_day"
	ReasonConflict    = "conflict"
)

// Window anchors the daily policy. DayStart is local midnight of the
// evaluation day.
type Window struct {
	DayStart time.Time
}

// Outcome reports what Create did with a candidate.
type Outcome struct {
	Alert      *models.Alert
	Created    bool
	Reason     string
	RolledOver int
}

type Gate struct {
	store   alertstore.Store
	logger  *slog.Logger
	metrics *metrics.Metrics
}

type Option func(*Gate)

func WithLogger(logger *slog.Logger) Option {
	return func(g *Gate) {
		g.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(g *Gate) {
		g.metrics = m
	}
}

func New(store alertstore.Store, opts ...Option) (*Gate, error) {
	if store == nil {
		return nil, errors.New("alert store is required")
	}
	g := &Gate{store: store}
	for _, opt := range opts {
		opt(g)
	}
	if g.logger == nil {
		g.logger = slog.Default()
	}
	if g.metrics == nil {
		g.metrics = metrics.New(nil)
	}
	return g, nil
}

// ShouldCreate reports whether an alert of typ may be created for the user now.
func (g *Gate) ShouldCreate(ctx context.Context, userID id.UserID, typ models.Type, window Window) (bool, error) {
	ok, _, err := shouldCreate(ctx, g.store, userID, typ, window)
	return ok, err
}

func shouldCreate(ctx context.Context, store alertstore.Store, userID id.UserID, typ models.Type, window Window) (bool, string, error) {
	var (
		filter models.Filter
		reason string
	)
	switch typ.DedupPolicy() {
	case models.DedupEpisode:
		filter = models.Filter{UnresolvedOnly: true}
		reason = ReasonOpenEpisode
	case models.DedupDaily:
		if window.DayStart.IsZero() {
			return false, "", dErrors.New(dErrors.CodeInvalidInput, "daily dedup requires a day start")
		}
		filter = models.Filter{CreatedSince: window.DayStart}
		reason = ReasonSameDay
	default:
		return false, "", dErrors.New(dErrors.CodeInvalidInput, "unknown dedup policy for "+typ.String())
	}

	_, err := store.FindAlert(ctx, userID, typ, filter)
	switch {
	case err == nil:
		return false, reason, nil
	case errors.Is(err, alertstore.ErrNotFound):
		return true, "", nil
	default:
		return false, "", dErrors.Wrap(err, dErrors.CodeDataUnavailable, "failed to check existing alerts")
	}
}

// Create checks the window and persists the candidate in one transaction.
// For daily types, an unresolved alert left over from an earlier day is
// resolved first so the new day can alert again.
func (g *Gate) Create(ctx context.Context, candidate models.Candidate, window Window, now time.Time) (*Outcome, error) {
	if !candidate.Type.IsValid() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "invalid alert type: "+candidate.Type.String())
	}

	var outcome Outcome
	err := g.store.RunInTx(ctx, candidate.UserID, func(ctx context.Context, tx alertstore.Store) error {
		ok, reason, err := shouldCreate(ctx, tx, candidate.UserID, candidate.Type, window)
		if err != nil {
			return err
		}
		if !ok {
			outcome.Reason = reason
			return nil
		}

		if candidate.Type.DedupPolicy() == models.DedupDaily {
			n, err := tx.ResolveOpenBefore(ctx, candidate.UserID, candidate.Type, window.DayStart, models.RolloverActor, now)
			if err != nil {
				return dErrors.Wrap(err, dErrors.CodeDataUnavailable, "failed to roll over stale alerts")
			}
			outcome.RolledOver = n
		}

		alert := candidate.NewAlert(now)
		if err := tx.CreateAlert(ctx, alert); err != nil {
			if errors.Is(err, alertstore.ErrConflict) {
				outcome.Reason = ReasonConflict
				return nil
			}
			return dErrors.Wrap(err, dErrors.CodeDataUnavailable, "failed to create alert")
		}
		outcome.Alert = alert
		outcome.Created = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	g.record(ctx, candidate, &outcome)
	return &outcome, nil
}

func (g *Gate) record(ctx context.Context, candidate models.Candidate, outcome *Outcome) {
	typ := candidate.Type.String()
	if outcome.RolledOver > 0 {
		g.metrics.AddRolledOver(typ, outcome.RolledOver)
		observability.LogAlertEvent(ctx, g.logger, observability.EventAlertRolledOver,
			"user_id", candidate.UserID.String(),
			"alert_type", typ,
			"count", outcome.RolledOver,
		)
	}
	if !outcome.Created {
		g.metrics.IncrementSuppressed(typ, outcome.Reason)
		observability.LogAlertEvent(ctx, g.logger, observability.EventAlertSuppressed,
			"user_id", candidate.UserID.String(),
			"alert_type", typ,
			"reason", outcome.Reason,
		)
		return
	}
	g.metrics.IncrementCreated(typ, string(candidate.Severity))
	observability.LogAlertEvent(ctx, g.logger, observability.EventAlertCreated,
		"user_id", candidate.UserID.String(),
		"tenant_id", candidate.TenantID.String(),
		"alert_id", outcome.Alert.ID.String(),
		"alert_type", typ,
		"severity", string(candidate.Severity),
	)
}

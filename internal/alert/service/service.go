// Package service exposes operator actions on persisted alerts.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"shiftguard/internal/alert/metrics"
	"shiftguard/internal/alert/models"
	"shiftguard/internal/alert/observability"
	alertstore "shiftguard/internal/alert/store"
	id "shiftguard/pkg/domain"
	dErrors "shiftguard/pkg/domain-errors"
	"shiftguard/pkg/requestcontext"
)

// Store is the subset of the alert store the service needs.
type Store interface {
	FindByID(ctx context.Context, alertID id.AlertID) (*models.Alert, error)
	ResolveAlert(ctx context.Context, alertID id.AlertID, resolvedBy string, at time.Time) (*models.Alert, error)
	ListAlertsSince(ctx context.Context, tenantID id.TenantID, since time.Time) ([]*models.Alert, error)
}

type Service struct {
	store   Store
	logger  *slog.Logger
	metrics *metrics.Metrics
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

func New(store Store, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("alert store is required")
	}
	svc := &Service{store: store}
	for _, opt := range opts {
		opt(svc)
	}
	if svc.metrics == nil {
		svc.metrics = metrics.New(nil)
	}
	return svc, nil
}

// Resolve closes an alert on behalf of resolvedBy. Resolving clears a
// geofence episode, so the next violation raises a fresh alert.
func (s *Service) Resolve(ctx context.Context, alertID id.AlertID, resolvedBy string) (*models.Alert, error) {
	resolvedBy = strings.TrimSpace(resolvedBy)
	if resolvedBy == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "resolvedBy is required")
	}
	if alertID.IsNil() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "alert id is required")
	}

	alert, err := s.store.ResolveAlert(ctx, alertID, resolvedBy, requestcontext.Now(ctx))
	if err != nil {
		switch {
		case errors.Is(err, alertstore.ErrNotFound):
			return nil, dErrors.Wrap(err, dErrors.CodeNotFound, "alert not found")
		case errors.Is(err, alertstore.ErrAlreadyResolved):
			return nil, dErrors.Wrap(err, dErrors.CodeConflict, "alert already resolved")
		default:
			return nil, dErrors.Wrap(err, dErrors.CodeDataUnavailable, "failed to resolve alert")
		}
	}

	s.metrics.IncrementResolved(alert.Type.String())
	observability.LogAlertEvent(ctx, s.logger, observability.EventAlertResolved,
		"alert_id", alert.ID.String(),
		"user_id", alert.UserID.String(),
		"alert_type", alert.Type.String(),
		"resolved_by", resolvedBy,
	)
	return alert, nil
}

func (s *Service) Get(ctx context.Context, alertID id.AlertID) (*models.Alert, error) {
	alert, err := s.store.FindByID(ctx, alertID)
	if err != nil {
		if errors.Is(err, alertstore.ErrNotFound) {
			return nil, dErrors.Wrap(err, dErrors.CodeNotFound, "alert not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeDataUnavailable, "failed to load alert")
	}
	return alert, nil
}

// ListSince returns a tenant's alerts created at or after since.
func (s *Service) ListSince(ctx context.Context, tenantID id.TenantID, since time.Time) ([]*models.Alert, error) {
	alerts, err := s.store.ListAlertsSince(ctx, tenantID, since)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeDataUnavailable, "failed to list alerts")
	}
	return alerts, nil
}

// Package store persists alerts. Stores enforce at most one unresolved alert
// per (user, type) and report a violating insert as sentinel.ErrConflict.
package store

import (
	"context"
	"time"

	"shiftguard/internal/alert/models"
	id "shiftguard/pkg/domain"
	"shiftguard/pkg/platform/sentinel"
)

var (
	ErrNotFound = sentinel.ErrNotFound
	ErrConflict = sentinel.ErrConflict
	// ErrAlreadyResolved is returned when resolving a resolved alert.
	ErrAlreadyResolved = sentinel.ErrInvalidState
)

//go:generate mockgen -source=store.go -destination=mocks/mocks.go -package=mocks Store

// Store is the alert persistence boundary.
type Store interface {
	// FindAlert returns the most recently created alert of the type matching
	// the filter, or ErrNotFound.
	FindAlert(ctx context.Context, userID id.UserID, typ models.Type, filter models.Filter) (*models.Alert, error)
	CreateAlert(ctx context.Context, alert *models.Alert) error
	FindByID(ctx context.Context, alertID id.AlertID) (*models.Alert, error)
	ResolveAlert(ctx context.Context, alertID id.AlertID, resolvedBy string, at time.Time) (*models.Alert, error)
	// ResolveOpenBefore resolves unresolved alerts of the type created before
	// the cutoff and returns how many were resolved.
	ResolveOpenBefore(ctx context.Context, userID id.UserID, typ models.Type, before time.Time, resolvedBy string, at time.Time) (int, error)
	ListAlertsSince(ctx context.Context, tenantID id.TenantID, since time.Time) ([]*models.Alert, error)
	// RunInTx runs fn with all alert mutations for userID serialized.
	RunInTx(ctx context.Context, userID id.UserID, fn func(ctx context.Context, store Store) error) error
}

//go:build integration

package store_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"shiftguard/internal/alert/models"
	alertstore "shiftguard/internal/alert/store"
	"shiftguard/internal/directory"
	tenantmodels "shiftguard/internal/tenant/models"
	tenantstore "shiftguard/internal/tenant/store"
	id "shiftguard/pkg/domain"
	"shiftguard/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *alertstore.PostgresStore
	tenantID id.TenantID
	userID   id.UserID
	day      time.Time
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.store = alertstore.NewPostgres(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	ctx := context.Background()
	s.Require().NoError(s.postgres.TruncateTables(ctx, "alerts", "users", "tenants"))

	s.tenantID = id.NewTenantID()
	s.userID = id.NewUserID()
	s.day = time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	s.Require().NoError(tenantstore.NewPostgres(s.postgres.DB).Put(ctx, tenantmodels.Settings{
		Tenant: tenantmodels.Tenant{ID: s.tenantID, Name: "acme", Active: true},
	}))
	s.Require().NoError(directory.NewPostgres(s.postgres.DB).Upsert(ctx, directory.User{
		ID: s.userID, TenantID: s.tenantID, Email: "e@acme.test", Role: directory.RoleEmployee, Active: true,
	}))
}

func (s *PostgresStoreSuite) newAlert(typ models.Type, at time.Time) *models.Alert {
	return models.Candidate{
		UserID:   s.userID,
		TenantID: s.tenantID,
		Type:     typ,
		Severity: models.SeverityHigh,
		Title:    "Outside geofence",
		Message:  "300m from site",
		Data:     map[string]any{"distance_meters": 300.0},
	}.NewAlert(at)
}

func (s *PostgresStoreSuite) TestCreateAndFind() {
	ctx := context.Background()
	a := s.newAlert(models.TypeGeofence, s.day.Add(9*time.Hour))
	s.Require().NoError(s.store.CreateAlert(ctx, a))

	found, err := s.store.FindAlert(ctx, s.userID, models.TypeGeofence, models.Filter{UnresolvedOnly: true})
	s.Require().NoError(err)
	s.Equal(a.ID, found.ID)
	s.Equal(300.0, found.Data["distance_meters"])

	_, err = s.store.FindAlert(ctx, s.userID, models.TypeGeofence, models.Filter{CreatedSince: s.day.Add(10 * time.Hour)})
	s.ErrorIs(err, alertstore.ErrNotFound)
}

func (s *PostgresStoreSuite) TestUniqueOpenAlertPerType() {
	ctx := context.Background()
	s.Require().NoError(s.store.CreateAlert(ctx, s.newAlert(models.TypeGeofence, s.day.Add(9*time.Hour))))

	err := s.store.CreateAlert(ctx, s.newAlert(models.TypeGeofence, s.day.Add(10*time.Hour)))
	s.ErrorIs(err, alertstore.ErrConflict)

	// A different type is independent.
	s.NoError(s.store.CreateAlert(ctx, s.newAlert(models.TypeOvertimeWarning, s.day.Add(10*time.Hour))))
}

func (s *PostgresStoreSuite) TestResolve() {
	ctx := context.Background()
	a := s.newAlert(models.TypeGeofence, s.day.Add(9*time.Hour))
	s.Require().NoError(s.store.CreateAlert(ctx, a))

	resolved, err := s.store.ResolveAlert(ctx, a.ID, "manager-1", s.day.Add(10*time.Hour))
	s.Require().NoError(err)
	s.True(resolved.Resolved)
	s.Equal("manager-1", *resolved.ResolvedBy)

	_, err = s.store.ResolveAlert(ctx, a.ID, "manager-1", s.day.Add(11*time.Hour))
	s.ErrorIs(err, alertstore.ErrAlreadyResolved)

	_, err = s.store.ResolveAlert(ctx, id.NewAlertID(), "manager-1", s.day)
	s.ErrorIs(err, alertstore.ErrNotFound)

	s.NoError(s.store.CreateAlert(ctx, s.newAlert(models.TypeGeofence, s.day.Add(12*time.Hour))))
}

func (s *PostgresStoreSuite) TestResolveOpenBefore() {
	ctx := context.Background()
	s.Require().NoError(s.store.CreateAlert(ctx, s.newAlert(models.TypeOvertimeWarning, s.day.Add(-5*time.Hour))))

	n, err := s.store.ResolveOpenBefore(ctx, s.userID, models.TypeOvertimeWarning, s.day, models.RolloverActor, s.day.Add(time.Hour))
	s.Require().NoError(err)
	s.Equal(1, n)

	n, err = s.store.ResolveOpenBefore(ctx, s.userID, models.TypeOvertimeWarning, s.day, models.RolloverActor, s.day.Add(time.Hour))
	s.Require().NoError(err)
	s.Equal(0, n)
}

func (s *PostgresStoreSuite) TestListAlertsSince() {
	ctx := context.Background()
	s.Require().NoError(s.store.CreateAlert(ctx, s.newAlert(models.TypeGeofence, s.day.Add(-time.Hour))))
	s.Require().NoError(s.store.CreateAlert(ctx, s.newAlert(models.TypeBreakExceeded, s.day.Add(time.Hour))))

	alerts, err := s.store.ListAlertsSince(ctx, s.tenantID, s.day)
	s.Require().NoError(err)
	s.Require().Len(alerts, 1)
	s.Equal(models.TypeBreakExceeded, alerts[0].Type)
}

// TestRunInTxSerializesCheckThenCreate verifies that concurrent
// check-then-create sequences for one user produce exactly one alert.
func (s *PostgresStoreSuite) TestRunInTxSerializesCheckThenCreate() {
	ctx := context.Background()
	const goroutines = 20

	var wg sync.WaitGroup
	var created, skipped atomic.Int32
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.store.RunInTx(ctx, s.userID, func(ctx context.Context, tx alertstore.Store) error {
				_, err := tx.FindAlert(ctx, s.userID, models.TypeGeofence, models.Filter{UnresolvedOnly: true})
				if err == nil {
					skipped.Add(1)
					return nil
				}
				if !errors.Is(err, alertstore.ErrNotFound) {
					return err
				}
				if err := tx.CreateAlert(ctx, s.newAlert(models.TypeGeofence, s.day.Add(9*time.Hour))); err != nil {
					return err
				}
				created.Add(1)
				return nil
			})
			s.NoError(err)
		}()
	}
	wg.Wait()

	s.Equal(int32(1), created.Load())
	s.Equal(int32(goroutines-1), skipped.Load())
}

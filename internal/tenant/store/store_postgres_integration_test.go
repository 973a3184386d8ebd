//go:build integration

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"shiftguard/internal/tenant/models"
	tenantstore "shiftguard/internal/tenant/store"
	id "shiftguard/pkg/domain"
	"shiftguard/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	redis    *containers.RedisContainer
	store    *tenantstore.PostgresStore
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
	s.redis = mgr.GetRedis(s.T())
	s.store = tenantstore.NewPostgres(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	ctx := context.Background()
	s.Require().NoError(s.postgres.TruncateTables(ctx, "tenants"))
	s.Require().NoError(s.redis.FlushAll(ctx))
}

func (s *PostgresStoreSuite) TestSettingsRoundTrip() {
	ctx := context.Background()
	warning := 8.0
	overtime, err := models.NewOvertimeConfig(&warning, nil)
	s.Require().NoError(err)
	settings := models.Settings{
		Tenant:   models.Tenant{ID: id.NewTenantID(), Name: "acme", Timezone: "Europe/Berlin", Active: true},
		Geofence: &models.GeofenceConfig{Center: models.Point{Latitude: 52.52, Longitude: 13.405}, RadiusMeters: 150, AlertAfterMinutes: 10},
		Overtime: overtime,
	}
	s.Require().NoError(s.store.Put(ctx, settings))

	got, err := s.store.GetSettings(ctx, settings.Tenant.ID)
	s.Require().NoError(err)
	s.Equal(settings.Tenant, got.Tenant)
	s.Equal(settings.Geofence, got.Geofence)
	s.Require().NotNil(got.Overtime)
	s.Equal(8*time.Hour, got.Overtime.Warning())
	s.Equal(12*time.Hour, got.Overtime.Critical())
	s.Nil(got.Breaks)

	s.Run("clearing a section removes it", func() {
		settings.Geofence = nil
		settings.Breaks = &models.BreakPolicy{MaxBreakMinutes: 45}
		s.Require().NoError(s.store.Put(ctx, settings))

		got, err := s.store.GetSettings(ctx, settings.Tenant.ID)
		s.Require().NoError(err)
		s.Nil(got.Geofence)
		s.Equal(45, got.Breaks.MaxBreakMinutes)
	})
}

func (s *PostgresStoreSuite) TestGetSettingsNotFound() {
	_, err := s.store.GetSettings(context.Background(), id.NewTenantID())
	s.ErrorIs(err, tenantstore.ErrNotFound)
}

func (s *PostgresStoreSuite) TestListActiveTenants() {
	ctx := context.Background()
	for _, t := range []models.Tenant{
		{ID: id.NewTenantID(), Name: "beta", Active: true},
		{ID: id.NewTenantID(), Name: "alpha", Active: true},
		{ID: id.NewTenantID(), Name: "gone", Active: false},
	} {
		s.Require().NoError(s.store.Put(ctx, models.Settings{Tenant: t}))
	}

	tenants, err := s.store.ListActiveTenants(ctx)
	s.Require().NoError(err)
	s.Require().Len(tenants, 2)
	s.Equal("alpha", tenants[0].Name)
	s.Equal("beta", tenants[1].Name)
}

func (s *PostgresStoreSuite) TestCacheReadThroughAndInvalidate() {
	ctx := context.Background()
	settings := models.Settings{
		Tenant: models.Tenant{ID: id.NewTenantID(), Name: "acme", Timezone: "UTC", Active: true},
		Breaks: &models.BreakPolicy{MaxBreakMinutes: 30},
	}
	s.Require().NoError(s.store.Put(ctx, settings))
	cached := tenantstore.NewCached(s.store, s.redis.Client, time.Minute, nil)

	first, err := cached.GetSettings(ctx, settings.Tenant.ID)
	s.Require().NoError(err)
	s.Equal(30, first.Breaks.MaxBreakMinutes)

	settings.Breaks.MaxBreakMinutes = 60
	s.Require().NoError(s.store.Put(ctx, settings))

	stale, err := cached.GetSettings(ctx, settings.Tenant.ID)
	s.Require().NoError(err)
	s.Equal(30, stale.Breaks.MaxBreakMinutes)

	s.Require().NoError(cached.Invalidate(ctx, settings.Tenant.ID))
	fresh, err := cached.GetSettings(ctx, settings.Tenant.ID)
	s.Require().NoError(err)
	s.Equal(60, fresh.Breaks.MaxBreakMinutes)
}

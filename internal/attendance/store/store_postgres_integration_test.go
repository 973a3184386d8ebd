//go:build integration

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"shiftguard/internal/attendance/models"
	"shiftguard/internal/attendance/session"
	attendancestore "shiftguard/internal/attendance/store"
	"shiftguard/internal/directory"
	tenantmodels "shiftguard/internal/tenant/models"
	tenantstore "shiftguard/internal/tenant/store"
	id "shiftguard/pkg/domain"
	"shiftguard/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *attendancestore.PostgresStore
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
	s.store = attendancestore.NewPostgres(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	ctx := context.Background()
	s.Require().NoError(s.postgres.TruncateTables(ctx, "attendance_events", "location_samples", "users", "tenants"))

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

func (s *PostgresStoreSuite) append(typ models.EventType, at time.Time, loc *models.Location) {
	s.Require().NoError(s.store.Append(context.Background(), models.AttendanceEvent{
		UserID: s.userID, TenantID: s.tenantID, Type: typ, Timestamp: at, Location: loc,
	}))
}

// TestOutOfOrderEventsAccumulate verifies that events written out of
// timestamp order still fold into the right totals.
func (s *PostgresStoreSuite) TestOutOfOrderEventsAccumulate() {
	ctx := context.Background()
	s.append(models.EventClockOut, s.day.Add(17*time.Hour), nil)
	s.append(models.EventClockIn, s.day.Add(8*time.Hour), &models.Location{Latitude: 52.5, Longitude: 13.4, Accuracy: 12})
	s.append(models.EventBreakEnd, s.day.Add(12*time.Hour+30*time.Minute), nil)
	s.append(models.EventBreakStart, s.day.Add(12*time.Hour), nil)

	events, err := s.store.ListEventsForUser(ctx, s.userID, s.day)
	s.Require().NoError(err)
	s.Require().Len(events, 4)

	ws := session.Accumulate(events, s.day.Add(18*time.Hour))
	s.Equal(8*time.Hour+30*time.Minute, ws.TotalWorking)
	s.Equal(30*time.Minute, ws.TotalPaused)
	s.Equal(0, ws.ForcedTransitions)

	samples := models.SamplesFromEvents(events)
	s.Require().Len(samples, 1)
	s.Equal(12.0, samples[0].Location.Accuracy)
}

func (s *PostgresStoreSuite) TestListUsersWithEventsSince() {
	ctx := context.Background()
	s.append(models.EventClockIn, s.day.Add(-48*time.Hour), nil)

	users, err := s.store.ListUsersWithEventsSince(ctx, s.tenantID, s.day.Add(-24*time.Hour))
	s.Require().NoError(err)
	s.Empty(users)

	s.append(models.EventClockIn, s.day.Add(8*time.Hour), nil)
	s.append(models.EventClockOut, s.day.Add(9*time.Hour), nil)
	users, err = s.store.ListUsersWithEventsSince(ctx, s.tenantID, s.day.Add(-24*time.Hour))
	s.Require().NoError(err)
	s.Equal([]id.UserID{s.userID}, users)
}

func (s *PostgresStoreSuite) TestListOpenShifts() {
	ctx := context.Background()
	cutoff := s.day.Add(-24 * time.Hour)
	s.append(models.EventClockIn, s.day.Add(-72*time.Hour), nil)
	s.append(models.EventBreakStart, s.day.Add(-70*time.Hour), nil)

	shifts, err := s.store.ListOpenShifts(ctx, s.tenantID, cutoff)
	s.Require().NoError(err)
	s.Require().Len(shifts, 1)
	s.Equal(s.userID, shifts[0].UserID)
	s.True(shifts[0].StartedAt.Equal(s.day.Add(-72 * time.Hour)))

	s.Run("a clock-out before the cutoff closes the shift", func() {
		s.append(models.EventClockOut, s.day.Add(-60*time.Hour), nil)
		shifts, err := s.store.ListOpenShifts(ctx, s.tenantID, cutoff)
		s.Require().NoError(err)
		s.Empty(shifts)
	})
}

func (s *PostgresStoreSuite) TestLocationSamples() {
	ctx := context.Background()
	for i, at := range []time.Duration{9 * time.Hour, 7 * time.Hour, 8 * time.Hour} {
		s.Require().NoError(s.store.AppendSample(ctx, models.LocationSample{
			UserID:     s.userID,
			Location:   models.Location{Latitude: 52.5 + float64(i)*0.001, Longitude: 13.4, Accuracy: 5},
			RecordedAt: s.day.Add(at),
		}))
	}

	samples, err := s.store.ListLocationSamples(ctx, s.userID, s.day.Add(7*time.Hour+30*time.Minute))
	s.Require().NoError(err)
	s.Require().Len(samples, 2)
	s.True(samples[0].RecordedAt.Before(samples[1].RecordedAt))
	s.Equal(s.userID, samples[0].UserID)
}

package dedup

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"shiftguard/internal/alert/models"
	alertstore "shiftguard/internal/alert/store"
	"shiftguard/internal/alert/store/mocks"
	id "shiftguard/pkg/domain"
	dErrors "shiftguard/pkg/domain-errors"
)

type GateSuite struct {
	suite.Suite
	store *alertstore.InMemoryStore
	gate  *Gate
	user  id.UserID
	day   time.Time
}

func TestGateSuite(t *testing.T) {
	suite.Run(t, new(GateSuite))
}

func (s *GateSuite) SetupTest() {
	s.store = alertstore.NewInMemory()
	gate, err := New(s.store)
	s.Require().NoError(err)
	s.gate = gate
	s.user = id.NewUserID()
	s.day = time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
}

func (s *GateSuite) candidate(typ models.Type) models.Candidate {
	return models.Candidate{UserID: s.user, TenantID: id.NewTenantID(), Type: typ, Severity: models.SeverityHigh, Title: "t"}
}

func (s *GateSuite) TestNewRequiresStore() {
	_, err := New(nil)
	s.Error(err)
}

// =============================================================================
// Episode policy
// =============================================================================

func (s *GateSuite) TestEpisodeSuppressesWhileUnresolved() {
	ctx := context.Background()
	window := Window{DayStart: s.day}

	first, err := s.gate.Create(ctx, s.candidate(models.TypeGeofence), window, s.day.Add(9*time.Hour))
	s.Require().NoError(err)
	s.True(first.Created)

	s.Run("suppressed regardless of elapsed time", func() {
		later := s.day.Add(72 * time.Hour)
		out, err := s.gate.Create(ctx, s.candidate(models.TypeGeofence), Window{DayStart: later}, later)
		s.Require().NoError(err)
		s.False(out.Created)
		s.Equal(ReasonOpenEpisode, out.Reason)
	})

	s.Run("resolution clears the episode", func() {
		_, err := s.store.ResolveAlert(ctx, first.Alert.ID, "admin", s.day.Add(10*time.Hour))
		s.Require().NoError(err)

		ok, err := s.gate.ShouldCreate(ctx, s.user, models.TypeGeofence, window)
		s.Require().NoError(err)
		s.True(ok)

		out, err := s.gate.Create(ctx, s.candidate(models.TypeGeofence), window, s.day.Add(11*time.Hour))
		s.Require().NoError(err)
		s.True(out.Created)
		s.NotEqual(first.Alert.ID, out.Alert.ID)
	})
}

// =============================================================================
// Daily policy
// =============================================================================

func (s *GateSuite) TestDailySuppressesEvenAfterResolve() {
	ctx := context.Background()
	window := Window{DayStart: s.day}

	first, err := s.gate.Create(ctx, s.candidate(models.TypeOvertimeWarning), window, s.day.Add(17*time.Hour))
	s.Require().NoError(err)
	s.Require().True(first.Created)
	_, err = s.store.ResolveAlert(ctx, first.Alert.ID, "admin", s.day.Add(18*time.Hour))
	s.Require().NoError(err)

	out, err := s.gate.Create(ctx, s.candidate(models.TypeOvertimeWarning), window, s.day.Add(19*time.Hour))
	s.Require().NoError(err)
	s.False(out.Created)
	s.Equal(ReasonSameDay, out.Reason)
}

func (s *GateSuite) TestDailyRollsOverStaleAlert() {
	ctx := context.Background()

	first, err := s.gate.Create(ctx, s.candidate(models.TypeMissingClockOut), Window{DayStart: s.day}, s.day.Add(20*time.Hour))
	s.Require().NoError(err)
	s.Require().True(first.Created)

	nextDay := s.day.Add(24 * time.Hour)
	out, err := s.gate.Create(ctx, s.candidate(models.TypeMissingClockOut), Window{DayStart: nextDay}, nextDay.Add(7*time.Hour))
	s.Require().NoError(err)
	s.True(out.Created)
	s.Equal(1, out.RolledOver)

	stale, err := s.store.FindByID(ctx, first.Alert.ID)
	s.Require().NoError(err)
	s.True(stale.Resolved)
	s.Equal(models.RolloverActor, *stale.ResolvedBy)
}

func (s *GateSuite) TestDailyRequiresDayStart() {
	_, err := s.gate.ShouldCreate(context.Background(), s.user, models.TypeOvertimeWarning, Window{})
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func (s *GateSuite) TestRejectsUnknownType() {
	_, err := s.gate.Create(context.Background(), s.candidate("bogus"), Window{DayStart: s.day}, s.day)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

// =============================================================================
// Store failures
// =============================================================================

func (s *GateSuite) TestStoreFailures() {
	ctx := context.Background()
	now := s.day.Add(9 * time.Hour)

	s.Run("lookup failure is data unavailable", func() {
		ctrl := gomock.NewController(s.T())
		store := mocks.NewMockStore(ctrl)
		gate, err := New(store)
		s.Require().NoError(err)

		store.EXPECT().RunInTx(gomock.Any(), s.user, gomock.Any()).
			DoAndReturn(func(ctx context.Context, _ id.UserID, fn func(context.Context, alertstore.Store) error) error {
				return fn(ctx, store)
			})
		store.EXPECT().FindAlert(gomock.Any(), s.user, models.TypeGeofence, models.Filter{UnresolvedOnly: true}).
			Return(nil, errors.New("connection refused"))

		_, err = gate.Create(ctx, s.candidate(models.TypeGeofence), Window{DayStart: s.day}, now)
		s.True(dErrors.HasCode(err, dErrors.CodeDataUnavailable))
	})

	s.Run("unique conflict on insert is a suppression", func() {
		ctrl := gomock.NewController(s.T())
		store := mocks.NewMockStore(ctrl)
		gate, err := New(store)
		s.Require().NoError(err)

		store.EXPECT().RunInTx(gomock.Any(), s.user, gomock.Any()).
			DoAndReturn(func(ctx context.Context, _ id.UserID, fn func(context.Context, alertstore.Store) error) error {
				return fn(ctx, store)
			})
		store.EXPECT().FindAlert(gomock.Any(), s.user, models.TypeGeofence, gomock.Any()).
			Return(nil, alertstore.ErrNotFound)
		store.EXPECT().CreateAlert(gomock.Any(), gomock.Any()).Return(alertstore.ErrConflict)

		out, err := gate.Create(ctx, s.candidate(models.TypeGeofence), Window{DayStart: s.day}, now)
		s.Require().NoError(err)
		s.False(out.Created)
		s.Equal(ReasonConflict, out.Reason)
	})
}

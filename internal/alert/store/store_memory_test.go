package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"shiftguard/internal/alert/models"
	id "shiftguard/pkg/domain"
)

type InMemoryStoreSuite struct {
	suite.Suite
	store  *InMemoryStore
	user   id.UserID
	tenant id.TenantID
	base   time.Time
}

func TestInMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryStoreSuite))
}

func (s *InMemoryStoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.user = id.NewUserID()
	s.tenant = id.NewTenantID()
	s.base = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
}

func (s *InMemoryStoreSuite) newAlert(typ models.Type, at time.Time) *models.Alert {
	return models.Candidate{UserID: s.user, TenantID: s.tenant, Type: typ, Severity: models.SeverityHigh,
		Data: map[string]any{"k": "v"}}.NewAlert(at)
}

// =============================================================================
// Uniqueness
// =============================================================================

func (s *InMemoryStoreSuite) TestCreateAlertRejectsSecondOpenAlert() {
	ctx := context.Background()
	s.Require().NoError(s.store.CreateAlert(ctx, s.newAlert(models.TypeGeofence, s.base)))

	s.Run("same type conflicts while open", func() {
		err := s.store.CreateAlert(ctx, s.newAlert(models.TypeGeofence, s.base.Add(time.Minute)))
		s.ErrorIs(err, ErrConflict)
	})

	s.Run("other type is independent", func() {
		s.NoError(s.store.CreateAlert(ctx, s.newAlert(models.TypeOvertimeWarning, s.base)))
	})
}

func (s *InMemoryStoreSuite) TestResolveThenCreateAgain() {
	ctx := context.Background()
	first := s.newAlert(models.TypeGeofence, s.base)
	s.Require().NoError(s.store.CreateAlert(ctx, first))

	resolved, err := s.store.ResolveAlert(ctx, first.ID, "admin", s.base.Add(time.Hour))
	s.Require().NoError(err)
	s.True(resolved.Resolved)

	_, err = s.store.ResolveAlert(ctx, first.ID, "admin", s.base.Add(2*time.Hour))
	s.ErrorIs(err, ErrAlreadyResolved)

	_, err = s.store.ResolveAlert(ctx, id.NewAlertID(), "admin", s.base)
	s.ErrorIs(err, ErrNotFound)

	s.NoError(s.store.CreateAlert(ctx, s.newAlert(models.TypeGeofence, s.base.Add(3*time.Hour))))
}

// =============================================================================
// Queries
// =============================================================================

func (s *InMemoryStoreSuite) TestFindAlertFilters() {
	ctx := context.Background()
	old := s.newAlert(models.TypeOvertimeWarning, s.base.Add(-24*time.Hour))
	s.Require().NoError(s.store.CreateAlert(ctx, old))
	_, err := s.store.ResolveAlert(ctx, old.ID, "admin", s.base.Add(-23*time.Hour))
	s.Require().NoError(err)

	s.Run("created since excludes yesterday", func() {
		_, err := s.store.FindAlert(ctx, s.user, models.TypeOvertimeWarning, models.Filter{CreatedSince: s.base})
		s.ErrorIs(err, ErrNotFound)
	})

	s.Run("resolved alerts match without unresolved filter", func() {
		got, err := s.store.FindAlert(ctx, s.user, models.TypeOvertimeWarning, models.Filter{})
		s.Require().NoError(err)
		s.Equal(old.ID, got.ID)
	})

	s.Run("unresolved only skips resolved", func() {
		_, err := s.store.FindAlert(ctx, s.user, models.TypeOvertimeWarning, models.Filter{UnresolvedOnly: true})
		s.ErrorIs(err, ErrNotFound)
	})

	s.Run("returns a copy", func() {
		got, err := s.store.FindAlert(ctx, s.user, models.TypeOvertimeWarning, models.Filter{})
		s.Require().NoError(err)
		got.Data["k"] = "changed"
		again, err := s.store.FindByID(ctx, old.ID)
		s.Require().NoError(err)
		s.Equal("v", again.Data["k"])
	})
}

func (s *InMemoryStoreSuite) TestResolveOpenBefore() {
	ctx := context.Background()
	stale := s.newAlert(models.TypeMissingClockOut, s.base.Add(-20*time.Hour))
	s.Require().NoError(s.store.CreateAlert(ctx, stale))

	n, err := s.store.ResolveOpenBefore(ctx, s.user, models.TypeMissingClockOut, s.base.Add(-time.Hour), models.RolloverActor, s.base)
	s.Require().NoError(err)
	s.Equal(1, n)

	got, err := s.store.FindByID(ctx, stale.ID)
	s.Require().NoError(err)
	s.True(got.Resolved)
	s.Equal(models.RolloverActor, *got.ResolvedBy)

	alerts, err := s.store.ListAlertsSince(ctx, s.tenant, s.base.Add(-48*time.Hour))
	s.Require().NoError(err)
	s.Len(alerts, 1)
}

func (s *InMemoryStoreSuite) TestRunInTxSerializesPerUser() {
	ctx := context.Background()
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		created int
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.store.RunInTx(ctx, s.user, func(ctx context.Context, tx Store) error {
				if _, err := tx.FindAlert(ctx, s.user, models.TypeGeofence, models.Filter{UnresolvedOnly: true}); err == nil {
					return nil
				}
				if err := tx.CreateAlert(ctx, s.newAlert(models.TypeGeofence, s.base)); err != nil {
					return err
				}
				mu.Lock()
				created++
				mu.Unlock()
				return nil
			})
		}()
	}
	wg.Wait()
	s.Equal(1, created)
}

package dispatcher

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	alertmodels "shiftguard/internal/alert/models"
	"shiftguard/internal/directory"
	"shiftguard/internal/notification/mocks"
	"shiftguard/internal/notification/models"
	id "shiftguard/pkg/domain"
)

type DispatcherSuite struct {
	suite.Suite
	ctrl       *gomock.Controller
	prefs      *mocks.MockPreferencesReader
	directory  *mocks.MockDirectory
	sender     *mocks.MockSender
	dispatcher *Dispatcher

	tenant id.TenantID
	owner  id.UserID
	admin  directory.User
}

func TestDispatcherSuite(t *testing.T) {
	suite.Run(t, new(DispatcherSuite))
}

func (s *DispatcherSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.prefs = mocks.NewMockPreferencesReader(s.ctrl)
	s.directory = mocks.NewMockDirectory(s.ctrl)
	s.sender = mocks.NewMockSender(s.ctrl)

	d, err := New(s.prefs, s.directory, s.sender, WithDeliveryTimeout(time.Second))
	s.Require().NoError(err)
	s.dispatcher = d

	s.tenant = id.NewTenantID()
	s.owner = id.NewUserID()
	s.admin = directory.User{ID: id.NewUserID(), TenantID: s.tenant, Role: directory.RoleAdmin, Active: true}
}

func (s *DispatcherSuite) alert(typ alertmodels.Type, sev alertmodels.Severity) *alertmodels.Alert {
	return alertmodels.Candidate{UserID: s.owner, TenantID: s.tenant, Type: typ, Severity: sev,
		Title: "title", Message: "message"}.NewAlert(time.Now())
}

func (s *DispatcherSuite) TestNewRequiresCollaborators() {
	_, err := New(nil, s.directory, s.sender)
	s.Error(err)
	_, err = New(s.prefs, nil, s.sender)
	s.Error(err)
	_, err = New(s.prefs, s.directory, nil)
	s.Error(err)
}

// =============================================================================
// Channel resolution
// =============================================================================

func (s *DispatcherSuite) TestPreferenceMatrixSelectsTriples() {
	ownerPrefs := models.Merge(models.Preferences{
		models.ChannelPush:  {alertmodels.CategoryGeofence: false},
		models.ChannelEmail: {alertmodels.CategoryGeofence: true},
	})
	adminPrefs := models.Merge(models.Preferences{
		models.ChannelPush:  {alertmodels.CategoryGeofence: false},
		models.ChannelEmail: {alertmodels.CategoryGeofence: false},
	})
	alert := s.alert(alertmodels.TypeGeofence, alertmodels.SeverityHigh)

	s.directory.EXPECT().ListEscalationTargets(gomock.Any(), s.tenant).Return([]directory.User{s.admin}, nil)
	s.prefs.EXPECT().GetPreferences(gomock.Any(), s.owner).Return(ownerPrefs, nil)
	s.prefs.EXPECT().GetPreferences(gomock.Any(), s.admin.ID).Return(adminPrefs, nil)
	s.sender.EXPECT().Send(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, d models.Delivery) error {
		s.Equal(s.owner, d.RecipientID)
		s.Equal(models.ChannelEmail, d.Channel)
		s.Equal(alert.ID.String(), d.Data["alert_id"])
		return nil
	})

	receipts, err := s.dispatcher.Dispatch(context.Background(), alert)
	s.Require().NoError(err)
	s.Require().Len(receipts, 1)
	s.True(receipts[0].Delivered())
}

func (s *DispatcherSuite) TestNonEscalatingSeverityNotifiesOwnerOnly() {
	alert := s.alert(alertmodels.TypeOvertimeWarning, alertmodels.SeverityMedium)

	s.prefs.EXPECT().GetPreferences(gomock.Any(), s.owner).Return(models.DefaultPreferences(), nil)
	s.sender.EXPECT().Send(gomock.Any(), gomock.Any()).Return(nil)

	receipts, err := s.dispatcher.Dispatch(context.Background(), alert)
	s.Require().NoError(err)
	s.Require().Len(receipts, 1, "shift alerts default to push only")
	s.Equal(models.ChannelPush, receipts[0].Delivery.Channel)
}

func (s *DispatcherSuite) TestOwnerIsNotNotifiedTwice() {
	alert := s.alert(alertmodels.TypeOvertimeCritical, alertmodels.SeverityHigh)
	ownerAsManager := directory.User{ID: s.owner, TenantID: s.tenant, Role: directory.RoleManager, Active: true}

	s.directory.EXPECT().ListEscalationTargets(gomock.Any(), s.tenant).Return([]directory.User{ownerAsManager}, nil)
	s.prefs.EXPECT().GetPreferences(gomock.Any(), s.owner).Return(models.DefaultPreferences(), nil).Times(1)
	s.sender.EXPECT().Send(gomock.Any(), gomock.Any()).Return(nil).Times(1)

	receipts, err := s.dispatcher.Dispatch(context.Background(), alert)
	s.Require().NoError(err)
	s.Len(receipts, 1)
}

// =============================================================================
// Failure isolation
// =============================================================================

func (s *DispatcherSuite) TestDeliveryFailureDoesNotAffectSiblings() {
	alert := s.alert(alertmodels.TypeGeofence, alertmodels.SeverityHigh)

	s.directory.EXPECT().ListEscalationTargets(gomock.Any(), s.tenant).Return([]directory.User{s.admin}, nil)
	s.prefs.EXPECT().GetPreferences(gomock.Any(), gomock.Any()).Return(models.DefaultPreferences(), nil).Times(2)
	s.sender.EXPECT().Send(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, d models.Delivery) error {
		if d.RecipientID == s.admin.ID && d.Channel == models.ChannelPush {
			return errors.New("push gateway timeout")
		}
		return nil
	}).Times(4)

	receipts, err := s.dispatcher.Dispatch(context.Background(), alert)
	s.Require().NoError(err)
	s.Require().Len(receipts, 4)

	failed := 0
	for _, r := range receipts {
		if !r.Delivered() {
			failed++
			s.Equal(s.admin.ID, r.Delivery.RecipientID)
			s.Contains(r.Error, "push gateway timeout")
		}
	}
	s.Equal(1, failed)
}

func (s *DispatcherSuite) TestEachDeliveryHasItsOwnDeadline() {
	d, err := New(s.prefs, s.directory, s.sender, WithDeliveryTimeout(20*time.Millisecond))
	s.Require().NoError(err)
	alert := s.alert(alertmodels.TypeGeofence, alertmodels.SeverityMedium)

	s.prefs.EXPECT().GetPreferences(gomock.Any(), s.owner).Return(models.DefaultPreferences(), nil)
	s.sender.EXPECT().Send(gomock.Any(), gomock.Any()).DoAndReturn(func(ctx context.Context, d models.Delivery) error {
		if d.Channel == models.ChannelPush {
			<-ctx.Done()
			return ctx.Err()
		}
		return nil
	}).Times(2)

	receipts, err := d.Dispatch(context.Background(), alert)
	s.Require().NoError(err)
	s.Require().Len(receipts, 2)
	for _, r := range receipts {
		s.Equal(r.Delivery.Channel == models.ChannelEmail, r.Delivered())
	}
}

func (s *DispatcherSuite) TestCollaboratorFailuresDegrade() {
	alert := s.alert(alertmodels.TypeOvertimeLegalLimit, alertmodels.SeverityCritical)

	s.directory.EXPECT().ListEscalationTargets(gomock.Any(), s.tenant).Return(nil, errors.New("db down"))
	s.prefs.EXPECT().GetPreferences(gomock.Any(), s.owner).Return(nil, errors.New("db down"))
	s.sender.EXPECT().Send(gomock.Any(), gomock.Any()).Return(nil)

	receipts, err := s.dispatcher.Dispatch(context.Background(), alert)
	s.Require().NoError(err)
	s.Require().Len(receipts, 1)
	s.Equal(s.owner, receipts[0].Delivery.RecipientID)
}

func (s *DispatcherSuite) TestNilAlert() {
	_, err := s.dispatcher.Dispatch(context.Background(), nil)
	s.Error(err)
}

// =============================================================================
// Queue
// =============================================================================

type recordingDispatcher struct {
	mu      sync.Mutex
	seen    []id.AlertID
	release chan struct{}
}

func (r *recordingDispatcher) Dispatch(_ context.Context, alert *alertmodels.Alert) ([]models.Receipt, error) {
	if r.release != nil {
		<-r.release
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen = append(r.seen, alert.ID)
	return nil, nil
}

func (s *DispatcherSuite) TestQueueDrainsOnClose() {
	rec := &recordingDispatcher{}
	q := NewQueue(rec, 8, 2, nil, nil)
	q.Start(context.Background())

	for i := 0; i < 5; i++ {
		s.True(q.Enqueue(context.Background(), s.alert(alertmodels.TypeGeofence, alertmodels.SeverityHigh)))
	}
	q.Close()
	s.Len(rec.seen, 5)
	s.False(q.Enqueue(context.Background(), s.alert(alertmodels.TypeGeofence, alertmodels.SeverityHigh)))
}

func (s *DispatcherSuite) TestQueueDropsWhenFull() {
	rec := &recordingDispatcher{release: make(chan struct{})}
	q := NewQueue(rec, 1, 1, nil, nil)

	s.True(q.Enqueue(context.Background(), s.alert(alertmodels.TypeGeofence, alertmodels.SeverityHigh)))
	s.False(q.Enqueue(context.Background(), s.alert(alertmodels.TypeGeofence, alertmodels.SeverityHigh)))

	q.Start(context.Background())
	close(rec.release)
	q.Close()
	s.Len(rec.seen, 1)
}

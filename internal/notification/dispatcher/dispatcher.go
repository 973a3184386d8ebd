// Package dispatcher turns a persisted alert into delivery attempts.
//
// Recipients are the alert's owner plus, for escalating severities, the
// tenant's active managers and admins. Each recipient gets one delivery per
// channel enabled for the alert's category. Deliveries run concurrently and a
// failed delivery never affects its siblings.
package dispatcher

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	alertmodels "shiftguard/internal/alert/models"
	"shiftguard/internal/directory"
	"shiftguard/internal/notification/metrics"
	"shiftguard/internal/notification/models"
	"shiftguard/internal/notification/sender"
	id "shiftguard/pkg/domain"
	dErrors "shiftguard/pkg/domain-errors"
)

//go:generate mockgen -source=dispatcher.go -destination=../mocks/dispatcher_mock.go -package=mocks PreferencesReader,Directory

type PreferencesReader interface {
	GetPreferences(ctx context.Context, userID id.UserID) (models.Preferences, error)
}

type Directory interface {
	ListEscalationTargets(ctx context.Context, tenantID id.TenantID) ([]directory.User, error)
}

const (
	defaultDeliveryTimeout = 5 * time.Second
	defaultFanout          = 16
)

type Dispatcher struct {
	prefs     PreferencesReader
	directory Directory
	sender    sender.Sender
	logger    *slog.Logger
	metrics   *metrics.Metrics
	timeout   time.Duration
	fanout    int
	clock     func() time.Time
}

type Option func(*Dispatcher)

func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(d *Dispatcher) {
		d.metrics = m
	}
}

// WithDeliveryTimeout bounds each delivery attempt independently.
func WithDeliveryTimeout(timeout time.Duration) Option {
	return func(d *Dispatcher) {
		if timeout > 0 {
			d.timeout = timeout
		}
	}
}

// WithFanout caps concurrent deliveries for one alert.
func WithFanout(n int) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.fanout = n
		}
	}
}

func WithClock(clock func() time.Time) Option {
	return func(d *Dispatcher) {
		if clock != nil {
			d.clock = clock
		}
	}
}

func New(prefs PreferencesReader, dir Directory, s sender.Sender, opts ...Option) (*Dispatcher, error) {
	if prefs == nil {
		return nil, errors.New("preferences reader is required")
	}
	if dir == nil {
		return nil, errors.New("directory is required")
	}
	if s == nil {
		return nil, errors.New("sender is required")
	}
	d := &Dispatcher{
		prefs:     prefs,
		directory: dir,
		sender:    s,
		timeout:   defaultDeliveryTimeout,
		fanout:    defaultFanout,
		clock:     time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.logger == nil {
		d.logger = slog.Default()
	}
	if d.metrics == nil {
		d.metrics = metrics.New(nil)
	}
	return d, nil
}

// Dispatch delivers the alert and returns one receipt per attempted triple.
// It only fails when the alert itself is unusable; delivery failures are
// reported in the receipts.
func (d *Dispatcher) Dispatch(ctx context.Context, alert *alertmodels.Alert) ([]models.Receipt, error) {
	if alert == nil {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "alert is required")
	}
	deliveries := d.Plan(ctx, alert)
	if len(deliveries) == 0 {
		return nil, nil
	}

	receipts := make([]models.Receipt, len(deliveries))
	var g errgroup.Group
	g.SetLimit(d.fanout)
	for i, delivery := range deliveries {
		i, delivery := i, delivery
		g.Go(func() error {
			receipts[i] = d.deliver(ctx, delivery)
			return nil
		})
	}
	_ = g.Wait()
	return receipts, nil
}

// Plan resolves recipients and channels into delivery triples without
// sending anything.
func (d *Dispatcher) Plan(ctx context.Context, alert *alertmodels.Alert) []models.Delivery {
	category := alert.Type.Category()
	var deliveries []models.Delivery
	for _, recipient := range d.recipients(ctx, alert) {
		prefs, err := d.prefs.GetPreferences(ctx, recipient)
		if err != nil {
			d.logger.WarnContext(ctx, "preferences unavailable, using defaults",
				"recipient_id", recipient.String(),
				"error", err,
			)
			prefs = models.DefaultPreferences()
		}
		planned := 0
		for _, ch := range models.Channels {
			if !prefs.Enabled(ch, category) {
				continue
			}
			deliveries = append(deliveries, models.Delivery{
				AlertID:     alert.ID,
				RecipientID: recipient,
				Channel:     ch,
				Title:       alert.Title,
				Body:        alert.Message,
				Data:        payloadData(alert),
			})
			planned++
		}
		if planned == 0 {
			d.metrics.IncrementRecipientsSkipped()
			d.logger.DebugContext(ctx, "recipient has no enabled channel",
				"recipient_id", recipient.String(),
				"category", string(category),
			)
		}
	}
	return deliveries
}

// recipients returns the owner first, then escalation targets, without
// duplicates.
func (d *Dispatcher) recipients(ctx context.Context, alert *alertmodels.Alert) []id.UserID {
	out := []id.UserID{alert.UserID}
	if !alert.Severity.Escalates() {
		return out
	}
	targets, err := d.directory.ListEscalationTargets(ctx, alert.TenantID)
	if err != nil {
		d.logger.WarnContext(ctx, "escalation targets unavailable, notifying owner only",
			"alert_id", alert.ID.String(),
			"tenant_id", alert.TenantID.String(),
			"error", err,
		)
		return out
	}
	seen := map[id.UserID]struct{}{alert.UserID: {}}
	for _, u := range targets {
		if !u.Active {
			continue
		}
		if _, dup := seen[u.ID]; dup {
			continue
		}
		seen[u.ID] = struct{}{}
		out = append(out, u.ID)
	}
	return out
}

func (d *Dispatcher) deliver(ctx context.Context, delivery models.Delivery) models.Receipt {
	start := time.Now()
	receipt := models.Receipt{Delivery: delivery, Status: models.StatusDelivered, AttemptedAt: d.clock()}

	sendCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()
	if err := d.sender.Send(sendCtx, delivery); err != nil {
		receipt.Status = models.StatusFailed
		receipt.Error = dErrors.Wrap(err, dErrors.CodeDeliveryFailure, "delivery failed").Error()
		d.logger.WarnContext(ctx, "notification delivery failed",
			"alert_id", delivery.AlertID.String(),
			"recipient_id", delivery.RecipientID.String(),
			"channel", delivery.Channel.String(),
			"error", err,
		)
	}
	d.metrics.ObserveDelivery(delivery.Channel.String(), string(receipt.Status), start)
	return receipt
}

func payloadData(alert *alertmodels.Alert) map[string]any {
	data := make(map[string]any, len(alert.Data)+4)
	for k, v := range alert.Data {
		data[k] = v
	}
	data["alert_id"] = alert.ID.String()
	data["alert_type"] = alert.Type.String()
	data["severity"] = string(alert.Severity)
	data["user_id"] = alert.UserID.String()
	return data
}

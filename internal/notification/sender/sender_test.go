package sender

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	"shiftguard/internal/notification/models"
	id "shiftguard/pkg/domain"
	"shiftguard/pkg/platform/circuit"
)

type fakeProducer struct {
	mu      sync.Mutex
	records []*kgo.Record
	err     error
}

func (p *fakeProducer) ProduceSync(_ context.Context, rs ...*kgo.Record) kgo.ProduceResults {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make(kgo.ProduceResults, 0, len(rs))
	for _, r := range rs {
		p.records = append(p.records, r)
		out = append(out, kgo.ProduceResult{Record: r, Err: p.err})
	}
	return out
}

func delivery(ch models.Channel) models.Delivery {
	return models.Delivery{
		AlertID:     id.NewAlertID(),
		RecipientID: id.NewUserID(),
		Channel:     ch,
		Title:       "Outside work area",
		Body:        "body",
		Data:        map[string]any{"distance_meters": 120.5},
	}
}

func TestKafkaSender(t *testing.T) {
	topics := map[models.Channel]string{models.ChannelPush: "push-topic", models.ChannelEmail: "email-topic"}

	t.Run("publishes to the channel topic keyed by recipient", func(t *testing.T) {
		p := &fakeProducer{}
		s := NewKafkaSender(p, topics)
		s.clock = func() time.Time { return time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC) }
		d := delivery(models.ChannelEmail)

		require.NoError(t, s.Send(context.Background(), d))
		require.Len(t, p.records, 1)
		rec := p.records[0]
		assert.Equal(t, "email-topic", rec.Topic)
		assert.Equal(t, d.RecipientID.String(), string(rec.Key))

		var msg map[string]any
		require.NoError(t, json.Unmarshal(rec.Value, &msg))
		assert.Equal(t, d.AlertID.String(), msg["alert_id"])
		assert.Equal(t, "email", msg["channel"])
		assert.Equal(t, "2026-03-02T10:00:00Z", msg["sent_at"])
	})

	t.Run("produce failure is returned", func(t *testing.T) {
		p := &fakeProducer{err: errors.New("broker down")}
		err := NewKafkaSender(p, topics).Send(context.Background(), delivery(models.ChannelPush))
		assert.ErrorContains(t, err, "broker down")
	})

	t.Run("unknown channel", func(t *testing.T) {
		err := NewKafkaSender(&fakeProducer{}, topics).Send(context.Background(), delivery("sms"))
		assert.Error(t, err)
	})
}

type flakySender struct {
	mu    sync.Mutex
	err   error
	calls int
}

func (f *flakySender) Send(context.Context, models.Delivery) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.err
}

func TestBreakerSender(t *testing.T) {
	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	next := &flakySender{err: errors.New("timeout")}
	s := NewBreakerSender(next, nil, nil,
		circuit.WithFailureThreshold(2), circuit.WithSuccessThreshold(1),
		circuit.WithCooldown(time.Minute), circuit.WithClock(clock))
	ctx := context.Background()

	assert.Error(t, s.Send(ctx, delivery(models.ChannelPush)))
	assert.Error(t, s.Send(ctx, delivery(models.ChannelPush)))

	t.Run("open circuit fails fast", func(t *testing.T) {
		err := s.Send(ctx, delivery(models.ChannelPush))
		assert.ErrorIs(t, err, ErrCircuitOpen)
		assert.Equal(t, 2, next.calls)
	})

	t.Run("channels trip independently", func(t *testing.T) {
		err := s.Send(ctx, delivery(models.ChannelEmail))
		assert.NotErrorIs(t, err, ErrCircuitOpen)
	})

	t.Run("probe after cooldown closes on success", func(t *testing.T) {
		next.mu.Lock()
		next.err = nil
		next.mu.Unlock()
		now = now.Add(time.Minute)
		require.NoError(t, s.Send(ctx, delivery(models.ChannelPush)))
		require.NoError(t, s.Send(ctx, delivery(models.ChannelPush)))
	})
}

func TestLogSenderHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, NewLogSender(nil).Send(ctx, delivery(models.ChannelPush)), context.Canceled)
}

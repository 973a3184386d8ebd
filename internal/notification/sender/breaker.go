package sender

import (
	"context"
	"log/slog"
	"sync"

	"shiftguard/internal/notification/metrics"
	"shiftguard/internal/notification/models"
	"shiftguard/pkg/platform/circuit"
)

// BreakerSender trips a per-channel circuit after repeated transport
// failures and fails fast with ErrCircuitOpen until a probe succeeds.
type BreakerSender struct {
	next     Sender
	logger   *slog.Logger
	metrics  *metrics.Metrics
	opts     []circuit.Option
	mu       sync.Mutex
	breakers map[models.Channel]*circuit.Breaker
}

func NewBreakerSender(next Sender, logger *slog.Logger, m *metrics.Metrics, opts ...circuit.Option) *BreakerSender {
	if logger == nil {
		logger = slog.Default()
	}
	if m == nil {
		m = metrics.New(nil)
	}
	return &BreakerSender{
		next:     next,
		logger:   logger,
		metrics:  m,
		opts:     opts,
		breakers: make(map[models.Channel]*circuit.Breaker),
	}
}

func (s *BreakerSender) breaker(ch models.Channel) *circuit.Breaker {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.breakers[ch]
	if !ok {
		b = circuit.New("delivery-"+ch.String(), s.opts...)
		s.breakers[ch] = b
	}
	return b
}

func (s *BreakerSender) Send(ctx context.Context, d models.Delivery) error {
	b := s.breaker(d.Channel)
	if !b.Allow() {
		return ErrCircuitOpen
	}

	err := s.next.Send(ctx, d)
	if err != nil {
		if _, change := b.RecordFailure(); change.Opened {
			s.metrics.SetBreakerOpen(d.Channel.String(), true)
			s.logger.WarnContext(ctx, "delivery circuit opened", "channel", d.Channel.String(), "error", err)
		}
		return err
	}
	if _, change := b.RecordSuccess(); change.Closed {
		s.metrics.SetBreakerOpen(d.Channel.String(), false)
		s.logger.InfoContext(ctx, "delivery circuit closed", "channel", d.Channel.String())
	}
	return nil
}

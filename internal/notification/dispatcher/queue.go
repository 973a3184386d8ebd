package dispatcher

import (
	"context"
	"log/slog"
	"sync"

	alertmodels "shiftguard/internal/alert/models"
	"shiftguard/internal/notification/metrics"
	"shiftguard/internal/notification/models"
)

// AlertDispatcher is what queue workers drain into.
type AlertDispatcher interface {
	Dispatch(ctx context.Context, alert *alertmodels.Alert) ([]models.Receipt, error)
}

// Queue decouples alert creation from delivery. Enqueue never blocks; a full
// queue drops the alert, which stays persisted and visible to operators.
type Queue struct {
	dispatcher AlertDispatcher
	ch         chan *alertmodels.Alert
	workers    int
	logger     *slog.Logger
	metrics    *metrics.Metrics

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

func NewQueue(d AlertDispatcher, size, workers int, logger *slog.Logger, m *metrics.Metrics) *Queue {
	if size < 1 {
		size = 1
	}
	if workers < 1 {
		workers = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	if m == nil {
		m = metrics.New(nil)
	}
	return &Queue{
		dispatcher: d,
		ch:         make(chan *alertmodels.Alert, size),
		workers:    workers,
		logger:     logger,
		metrics:    m,
	}
}

// Start launches the workers. Deliveries keep running after ctx is cancelled
// until Close drains the queue.
func (q *Queue) Start(ctx context.Context) {
	workerCtx := context.WithoutCancel(ctx)
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go func() {
			defer q.wg.Done()
			for alert := range q.ch {
				q.metrics.SetQueueDepth(len(q.ch))
				q.dispatch(workerCtx, alert)
			}
		}()
	}
}

func (q *Queue) dispatch(ctx context.Context, alert *alertmodels.Alert) {
	receipts, err := q.dispatcher.Dispatch(ctx, alert)
	if err != nil {
		q.logger.ErrorContext(ctx, "dispatch failed", "alert_id", alert.ID.String(), "error", err)
		return
	}
	failed := 0
	for _, r := range receipts {
		if !r.Delivered() {
			failed++
		}
	}
	q.logger.DebugContext(ctx, "alert dispatched",
		"alert_id", alert.ID.String(),
		"deliveries", len(receipts),
		"failed", failed,
	)
}

// Enqueue schedules alert for delivery and reports whether it was accepted.
func (q *Queue) Enqueue(ctx context.Context, alert *alertmodels.Alert) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		q.logger.WarnContext(ctx, "dispatch queue closed, dropping alert", "alert_id", alert.ID.String())
		q.metrics.IncrementQueueDropped()
		return false
	}
	select {
	case q.ch <- alert:
		q.metrics.SetQueueDepth(len(q.ch))
		return true
	default:
		q.logger.WarnContext(ctx, "dispatch queue full, dropping alert",
			"alert_id", alert.ID.String(),
			"alert_type", alert.Type.String(),
		)
		q.metrics.IncrementQueueDropped()
		return false
	}
}

// Close stops accepting alerts and waits for queued ones to be delivered.
func (q *Queue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.ch)
	q.mu.Unlock()
	q.wg.Wait()
}

// Package sender hands delivery triples to transports.
package sender

import (
	"context"
	"errors"
	"log/slog"

	"shiftguard/internal/notification/models"
)

//go:generate mockgen -source=sender.go -destination=../mocks/sender_mock.go -package=mocks Sender

// Sender delivers one triple. Implementations must honor ctx cancellation.
type Sender interface {
	Send(ctx context.Context, delivery models.Delivery) error
}

// ErrCircuitOpen is returned while a channel's transport is tripped.
var ErrCircuitOpen = errors.New("delivery circuit open")

// LogSender writes deliveries to the structured log. It stands in for a
// transport when none is configured.
type LogSender struct {
	logger *slog.Logger
}

func NewLogSender(logger *slog.Logger) *LogSender {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(ctx context.Context, d models.Delivery) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "notification delivered to log",
		"alert_id", d.AlertID.String(),
		"recipient_id", d.RecipientID.String(),
		"channel", d.Channel.String(),
		"title", d.Title,
	)
	return nil
}

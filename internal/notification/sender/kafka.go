package sender

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"

	"shiftguard/internal/notification/models"
)

// Producer is the franz-go surface the Kafka sender needs; *kgo.Client
// satisfies it.
type Producer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
}

// message is the wire format consumed by the push and email gateways.
type message struct {
	AlertID     string         `json:"alert_id"`
	RecipientID string         `json:"recipient_id"`
	Channel     string         `json:"channel"`
	Title       string         `json:"title"`
	Body        string         `json:"body"`
	Data        map[string]any `json:"data,omitempty"`
	SentAt      time.Time      `json:"sent_at"`
}

// KafkaSender publishes each delivery to its channel's topic, keyed by
// recipient so a recipient's notifications stay ordered.
type KafkaSender struct {
	producer Producer
	topics   map[models.Channel]string
	clock    func() time.Time
}

func NewKafkaSender(producer Producer, topics map[models.Channel]string) *KafkaSender {
	return &KafkaSender{producer: producer, topics: topics, clock: time.Now}
}

func (s *KafkaSender) Send(ctx context.Context, d models.Delivery) error {
	topic, ok := s.topics[d.Channel]
	if !ok || topic == "" {
		return fmt.Errorf("no topic configured for channel %s", d.Channel)
	}
	payload, err := json.Marshal(message{
		AlertID:     d.AlertID.String(),
		RecipientID: d.RecipientID.String(),
		Channel:     d.Channel.String(),
		Title:       d.Title,
		Body:        d.Body,
		Data:        d.Data,
		SentAt:      s.clock().UTC(),
	})
	if err != nil {
		return fmt.Errorf("encode delivery: %w", err)
	}
	record := &kgo.Record{
		Topic: topic,
		Key:   []byte(d.RecipientID.String()),
		Value: payload,
		Headers: []kgo.RecordHeader{
			{Key: "alert_id", Value: []byte(d.AlertID.String())},
		},
	}
	if err := s.producer.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce to %s: %w", topic, err)
	}
	return nil
}

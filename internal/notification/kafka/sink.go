// Package kafka is a notification sink that publishes intents to a Kafka
// topic for external delivery channels (mail, push, hospital dashboards).
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	"organlink/internal/notification"
	id "organlink/pkg/domain"
)

// Sink publishes notification intents as JSON records keyed by hospital, so
// one hospital's notifications stay ordered within a partition.
type Sink struct {
	client *kgo.Client
	topic  string
	logger *slog.Logger
}

// NewSink connects to the brokers and ensures the topic exists.
func NewSink(ctx context.Context, brokers []string, topic string, logger *slog.Logger) (*Sink, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.ProduceRequestTimeout(10*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka client: %w", err)
	}

	adm := kadm.NewClient(client)
	resp, err := adm.CreateTopic(ctx, 1, 1, nil, topic)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("ensure topic %q: %w", topic, err)
	}
	if resp.Err != nil && !errors.Is(resp.Err, kerr.TopicAlreadyExists) {
		client.Close()
		return nil, fmt.Errorf("ensure topic %q: %w", topic, resp.Err)
	}

	return &Sink{client: client, topic: topic, logger: logger}, nil
}

type record struct {
	HospitalID string    `json:"hospital_id"`
	Type       string    `json:"type"`
	Title      string    `json:"title"`
	Message    string    `json:"message"`
	RelatedID  string    `json:"related_id"`
	EmittedAt  time.Time `json:"emitted_at"`
}

// Send produces the intent synchronously so callers inside a transaction see
// broker failures.
func (s *Sink) Send(ctx context.Context, intent notification.Intent) error {
	payload, err := json.Marshal(record{
		HospitalID: intent.Hospital.String(),
		Type:       string(intent.Type),
		Title:      intent.Title,
		Message:    intent.Message,
		RelatedID:  intent.RelatedID.String(),
		EmittedAt:  time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshal notification record: %w", err)
	}

	rec := &kgo.Record{
		Topic: s.topic,
		Key:   []byte(intent.Hospital.String()),
		Value: payload,
	}
	if err := s.client.ProduceSync(ctx, rec).FirstErr(); err != nil {
		return fmt.Errorf("produce notification: %w", err)
	}
	return nil
}

// MarkRead is a no-op: read tracking belongs to the inbox store, consumers of
// the topic manage their own offsets.
func (s *Sink) MarkRead(ctx context.Context, hospital id.HospitalID, related id.RequestID) error {
	s.logger.DebugContext(ctx, "kafka sink ignoring mark-read",
		"hospital_id", hospital.String(),
		"related_id", related.String(),
	)
	return nil
}

// Close flushes buffered records and releases the client.
func (s *Sink) Close() {
	if err := s.client.Flush(context.Background()); err != nil {
		s.logger.Warn("kafka flush on close failed", "error", err)
	}
	s.client.Close()
}

// Package kafka provides an audit store that produces events to a Kafka topic.
// It is write-only: reading audit history back is a consumer-side concern.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/twmb/franz-go/pkg/kgo"

	dErrors "turnstile/pkg/domain-errors"
	"turnstile/pkg/platform/audit"
)

const defaultTopic = "turnstile_audit"

// Store publishes audit events to Kafka. Events are keyed by identity so a
// single identity's trail stays ordered within a partition.
type Store struct {
	client *kgo.Client
	topic  string
}

type Option func(*Store)

// WithTopic overrides the destination topic.
func WithTopic(topic string) Option {
	return func(s *Store) {
		s.topic = topic
	}
}

// New connects a producer to the given brokers.
func New(brokers []string, opts ...Option) (*Store, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
		kgo.RequiredAcks(kgo.AllISRAcks()),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka client: %w", err)
	}

	s := &Store{client: client, topic: defaultTopic}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *Store) Append(ctx context.Context, event audit.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}

	record := &kgo.Record{
		Topic: s.topic,
		Key:   []byte(event.IdentityID),
		Value: payload,
	}
	if err := s.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce audit event: %w", err)
	}
	return nil
}

// ListByIdentity is not supported on the producer side.
func (s *Store) ListByIdentity(context.Context, string) ([]audit.Event, error) {
	return nil, dErrors.New(dErrors.CodeInvalidInput, "kafka audit store is write-only")
}

func (s *Store) Close() {
	s.client.Close()
}

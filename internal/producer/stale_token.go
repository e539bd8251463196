// Package producer publishes the stale-token signal. When the gateway
// reports a push destination as invalid, the owning profile subsystem is
// told so it can clear the token; this engine never mutates user profiles
// itself.
package producer

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

const writeTimeout = 10 * time.Second

// StaleTokenPublisher emits one message per invalidated push destination.
type StaleTokenPublisher interface {
	PublishStaleToken(ctx context.Context, userID, pushDestination, reason string) error
	Close() error
}

type staleTokenMessage struct {
	UserID          string    `json:"user_id"`
	PushDestination string    `json:"push_destination"`
	Reason          string    `json:"reason"`
	InvalidatedAt   time.Time `json:"invalidated_at"`
}

// KafkaPublisher writes stale-token messages to a Kafka topic, keyed by user
// ID so all signals for one user land on the same partition.
type KafkaPublisher struct {
	writer *kafka.Writer
	logger zerolog.Logger
}

func NewKafkaPublisher(brokers, topic string, logger zerolog.Logger) (*KafkaPublisher, error) {
	if strings.TrimSpace(brokers) == "" {
		return nil, errors.New("kafka brokers cannot be empty")
	}
	if strings.TrimSpace(topic) == "" {
		return nil, errors.New("kafka topic cannot be empty")
	}

	brokerList := strings.Split(brokers, ",")
	for i := range brokerList {
		brokerList[i] = strings.TrimSpace(brokerList[i])
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokerList...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		WriteTimeout: writeTimeout,
		RequiredAcks: kafka.RequireOne,
		Async:        false,
	}

	return &KafkaPublisher{
		writer: writer,
		logger: logger.With().Str("component", "stale_token_producer").Logger(),
	}, nil
}

func (p *KafkaPublisher) PublishStaleToken(ctx context.Context, userID, pushDestination, reason string) error {
	payload, err := json.Marshal(staleTokenMessage{
		UserID:          userID,
		PushDestination: pushDestination,
		Reason:          reason,
		InvalidatedAt:   time.Now().UTC(),
	})
	if err != nil {
		return errors.Wrap(err, "marshal stale token message")
	}

	msg := kafka.Message{
		Key:   []byte(userID),
		Value: payload,
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return errors.Wrap(err, "write stale token message")
	}

	p.logger.Info().
		Str("user_id", userID).
		Str("reason", reason).
		Msg("stale token signal published")
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// NopPublisher logs and drops stale-token signals. Used when Kafka is not
// configured so dispatch keeps working in smaller deployments.
type NopPublisher struct {
	logger zerolog.Logger
}

func NewNopPublisher(logger zerolog.Logger) *NopPublisher {
	return &NopPublisher{logger: logger.With().Str("component", "stale_token_producer").Logger()}
}

func (p *NopPublisher) PublishStaleToken(_ context.Context, userID, _, reason string) error {
	p.logger.Warn().
		Str("user_id", userID).
		Str("reason", reason).
		Msg("stale token detected but no broker configured, signal dropped")
	return nil
}

func (p *NopPublisher) Close() error { return nil }

package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/shiroonigami23-ui/predictive-risk-intelligence/internal/contracts"
)

func NewWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 250 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
		Async:        false,
	}
}

func NewReader(brokers []string, topic, groupID string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          topic,
		GroupID:        groupID,
		MinBytes:       1,
		MaxBytes:       10e6,
		CommitInterval: time.Second,
		MaxWait:        time.Second,
	})
}

func PublishJSON(ctx context.Context, writer *kafka.Writer, key string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	return writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(key),
		Value: body,
		Time:  time.Now().UTC(),
	})
}

func ParseMessageJSON[T any](msg kafka.Message) (T, error) {
	var payload T
	err := json.Unmarshal(msg.Value, &payload)
	return payload, err
}

// JSONPublisher adapts a kafka writer to the engine's publisher interface.
type JSONPublisher struct {
	Writer *kafka.Writer
}

func (p JSONPublisher) Publish(ctx context.Context, key string, payload any) error {
	return PublishJSON(ctx, p.Writer, key, payload)
}

// AlertPublisher wraps the alerts topic; an unreachable channel is a
// dispatch failure, which callers log without blocking persistence.
type AlertPublisher struct {
	Writer *kafka.Writer
}

func (p AlertPublisher) PublishAlert(ctx context.Context, event contracts.AlertEvent) error {
	if err := PublishJSON(ctx, p.Writer, event.MetricName, event); err != nil {
		return fmt.Errorf("publish alert for %s: %w: %v", event.MetricName, contracts.ErrDispatchFailure, err)
	}
	return nil
}

package push

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/twmb/franz-go/pkg/kgo"
)

// KafkaSender publishes push messages to a topic consumed by the FCM bridge.
// Produces are asynchronous; a failed produce is logged and dropped, matching
// the best-effort fan-out semantics of exposure delivery.
type KafkaSender struct {
	client *kgo.Client
	topic  string
	logger *slog.Logger
}

// NewKafkaSender connects a producer to the given brokers.
func NewKafkaSender(brokers []string, topic string, logger *slog.Logger) (*KafkaSender, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}
	return &KafkaSender{client: client, topic: topic, logger: logger}, nil
}

func (s *KafkaSender) Send(ctx context.Context, msg Message) (string, error) {
	payload, err := json.Marshal(msg)
	if err != nil {
		return "", fmt.Errorf("marshal push message: %w", err)
	}

	messageID := uuid.NewString()
	record := &kgo.Record{
		Topic: s.topic,
		// Keying by token keeps one device's messages ordered.
		Key:   []byte(msg.Token),
		Value: payload,
		Headers: []kgo.RecordHeader{
			{Key: "message_id", Value: []byte(messageID)},
			{Key: "type", Value: []byte(msg.Data["type"])},
		},
	}

	s.client.Produce(ctx, record, func(_ *kgo.Record, err error) {
		if err != nil {
			s.logger.Error("push produce failed",
				"error", err,
				"message_id", messageID,
				"type", msg.Data["type"],
			)
		}
	})
	return messageID, nil
}

// Close flushes pending produces and releases the client.
func (s *KafkaSender) Close(ctx context.Context) error {
	if err := s.client.Flush(ctx); err != nil {
		return fmt.Errorf("flush push producer: %w", err)
	}
	s.client.Close()
	return nil
}

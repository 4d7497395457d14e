package kafka

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	kafkago "github.com/segmentio/kafka-go"
)

// Handler processes one consumed message.
type Handler func(ctx context.Context, msg Message) error

// Consumer reads a single topic as part of cfg.ConsumerGroup. A message's
// offset is committed only after its handler returns nil.
type Consumer struct {
	reader *kafkago.Reader
	topic  string
	logger *slog.Logger
}

// NewConsumer creates a consumer for topic. Reading starts at the earliest
// offset when the group has no committed position.
func NewConsumer(cfg Config, topic string, logger *slog.Logger) (*Consumer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafka consumer: at least one broker is required")
	}

	readerCfg := kafkago.ReaderConfig{
		Brokers:     cfg.Brokers,
		Topic:       topic,
		GroupID:     cfg.ConsumerGroup,
		MinBytes:    1,
		MaxBytes:    1 << 20,
		StartOffset: kafkago.FirstOffset,
	}
	if cfg.TLS || cfg.SASLEnabled {
		dialer, err := cfg.dialer()
		if err != nil {
			return nil, fmt.Errorf("kafka consumer: %w", err)
		}
		readerCfg.Dialer = dialer
	}

	return &Consumer{reader: kafkago.NewReader(readerCfg), topic: topic, logger: logger}, nil
}

// Run feeds messages to handle until ctx is done, which returns nil. A handler
// error stops the loop uncommitted so the message is redelivered to the group.
func (c *Consumer) Run(ctx context.Context, handle Handler) error {
	for {
		m, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
				return nil
			}
			return fmt.Errorf("kafka fetch from %s: %w", c.topic, err)
		}

		if err := handle(ctx, fromKafkaMessage(m)); err != nil {
			return fmt.Errorf("handle %s/%d@%d: %w", m.Topic, m.Partition, m.Offset, err)
		}

		if err := c.reader.CommitMessages(ctx, m); err != nil {
			c.logger.Warn("kafka commit failed",
				"topic", m.Topic,
				"partition", m.Partition,
				"offset", m.Offset,
				"error", err,
			)
		}
	}
}

// Close releases the reader and leaves the group.
func (c *Consumer) Close() error {
	return c.reader.Close()
}

func fromKafkaMessage(m kafkago.Message) Message {
	headers := make(map[string]string, len(m.Headers))
	for _, h := range m.Headers {
		headers[h.Key] = string(h.Value)
	}
	return Message{Key: m.Key, Value: m.Value, Headers: headers}
}

package kafka

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/BearBump/DriverPortal/internal/broker/messages"
	"github.com/pkg/errors"
	"github.com/segmentio/kafka-go"
)

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Consumer struct {
	r messageReader
}

func NewConsumer(brokers []string, topic, groupID string) *Consumer {
	cfg := kafka.ReaderConfig{
		Brokers:           brokers,
		GroupID:           groupID,
		HeartbeatInterval: 3 * time.Second,
		SessionTimeout:    30 * time.Second,
	}
	if groupID != "" {
		cfg.GroupTopics = []string{topic}
	} else {
		cfg.Topic = topic
	}
	return &Consumer{
		r: kafka.NewReader(cfg),
	}
}

func newConsumerWithReader(r messageReader) *Consumer {
	return &Consumer{r: r}
}

func (c *Consumer) Close() error {
	return c.r.Close()
}

// Consume hands every message to handler and commits it only after the handler succeeded.
// The first handler error stops consumption; the message is redelivered on restart.
// Trip messages are keyed by trip id, so the key is logged as one.
func (c *Consumer) Consume(ctx context.Context, handler func(key, value []byte) error) error {
	for {
		msg, err := c.r.FetchMessage(ctx)
		if err != nil {
			return errors.Wrap(err, "fetch message")
		}
		if err := handler(msg.Key, msg.Value); err != nil {
			slog.Error("trip message handler failed",
				"topic", msg.Topic, "partition", msg.Partition, "offset", msg.Offset,
				"trip_id", string(msg.Key), "error", err.Error())
			return err
		}
		if err := c.r.CommitMessages(ctx, msg); err != nil {
			return errors.Wrapf(err, "commit %s@%d/%d", msg.Topic, msg.Partition, msg.Offset)
		}
		slog.Debug("trip message committed", "topic", msg.Topic, "offset", msg.Offset, "trip_id", string(msg.Key))
	}
}

// TripAssignedHandler decodes trip.assigned payloads for Consume. A payload that is
// not JSON is logged and committed since redelivery cannot fix it.
func TripAssignedHandler(apply func(m messages.TripAssigned) error) func(key, value []byte) error {
	return func(key, value []byte) error {
		var m messages.TripAssigned
		if err := json.Unmarshal(value, &m); err != nil {
			slog.Warn("skip malformed trip.assigned", "trip_id", string(key), "error", err.Error())
			return nil
		}
		return apply(m)
	}
}

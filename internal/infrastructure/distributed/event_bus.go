package distributed

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Message wraps one stream envelope as it travels between simulator
// instances.
type Message struct {
	InstanceID string          `json:"instance_id"`
	Timestamp  time.Time       `json:"timestamp"`
	Frame      json.RawMessage `json:"frame"`
}

// EventBus relays encoded envelopes over Redis pub/sub so that every
// simulator instance can serve every dashboard.
type EventBus struct {
	client     redis.UniversalClient
	instanceID string
	channel    string
	logger     *zap.SugaredLogger
}

func NewEventBus(
	client redis.UniversalClient,
	instanceID string,
	channel string,
	logger *zap.SugaredLogger,
) *EventBus {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &EventBus{
		client:     client,
		instanceID: instanceID,
		channel:    channel,
		logger:     logger,
	}
}

// Publish sends a frame to other instances.
func (eb *EventBus) Publish(ctx context.Context, frame []byte) error {
	msg := Message{
		InstanceID: eb.instanceID,
		Timestamp:  time.Now(),
		Frame:      frame,
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal relay message: %w", err)
	}

	if err := eb.client.Publish(ctx, eb.channel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish relay message: %w", err)
	}
	return nil
}

// Subscribe calls handler with frames published by other instances until ctx
// is done.
func (eb *EventBus) Subscribe(ctx context.Context, handler func(frame []byte) error) error {
	pubsub := eb.client.Subscribe(ctx, eb.channel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", eb.channel, err)
	}
	eb.logger.Infow("relay subscribed", "channel", eb.channel, "instance_id", eb.instanceID)

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return fmt.Errorf("relay channel closed")
			}
			frame, skip, err := eb.unwrap(msg.Payload)
			if err != nil {
				eb.logger.Warnw("failed to unmarshal relay message",
					"error", err,
					"payload", msg.Payload,
				)
				continue
			}
			if skip {
				continue
			}
			if err := handler(frame); err != nil {
				eb.logger.Warnw("error handling relay message", "error", err)
			}
		}
	}
}

// unwrap returns the frame, or skip=true for messages from this instance.
func (eb *EventBus) unwrap(payload string) ([]byte, bool, error) {
	var msg Message
	if err := json.Unmarshal([]byte(payload), &msg); err != nil {
		return nil, false, err
	}
	if msg.InstanceID == eb.instanceID {
		return nil, true, nil
	}
	if len(msg.Frame) == 0 {
		return nil, false, fmt.Errorf("empty frame")
	}
	return msg.Frame, false, nil
}

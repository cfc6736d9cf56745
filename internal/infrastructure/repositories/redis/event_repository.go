package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"floorview/internal/core/domain"
	"floorview/internal/core/ports"

	"github.com/redis/go-redis/v9"
)

// RedisEventRepository stores the event log as a capped list, newest at
// the head.
type RedisEventRepository struct {
	client   *redis.Client
	key      string
	capacity int64
}

func NewRedisEventRepository(client *redis.Client, capacity int) ports.EventRepository {
	return &RedisEventRepository{
		client:   client,
		key:      "floorview:events:log",
		capacity: int64(capacity),
	}
}

func (r *RedisEventRepository) Append(ctx context.Context, event domain.LineEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	pipe := r.client.TxPipeline()
	pipe.LPush(ctx, r.key, data)
	pipe.LTrim(ctx, r.key, 0, r.capacity-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to append event in Redis: %w", err)
	}
	return nil
}

func (r *RedisEventRepository) Recent(ctx context.Context, limit int) ([]domain.LineEvent, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit) - 1
	}
	values, err := r.client.LRange(ctx, r.key, 0, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read events: %w", err)
	}

	events := make([]domain.LineEvent, 0, len(values))
	for _, v := range values {
		var ev domain.LineEvent
		if err := json.Unmarshal([]byte(v), &ev); err != nil {
			continue
		}
		events = append(events, ev)
	}
	return events, nil
}

package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"floorview/internal/core/domain"
	"floorview/internal/core/ports"

	"github.com/redis/go-redis/v9"
)

type RedisPolicyRepository struct {
	client *redis.Client
	prefix string
}

func NewRedisPolicyRepository(client *redis.Client) ports.PolicyRepository {
	return &RedisPolicyRepository{
		client: client,
		prefix: "floorview:policy:",
	}
}

func (r *RedisPolicyRepository) policyKey(id string) string {
	return r.prefix + id
}

// indexKey is a sorted set of policy ids scored by creation time.
func (r *RedisPolicyRepository) indexKey() string {
	return r.prefix + "index"
}

func (r *RedisPolicyRepository) Save(ctx context.Context, policy *domain.Policy) error {
	data, err := json.Marshal(policy)
	if err != nil {
		return fmt.Errorf("failed to marshal policy: %w", err)
	}

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, r.policyKey(policy.PolicyID), data, 0)
	pipe.ZAdd(ctx, r.indexKey(), redis.Z{
		Score:  float64(policy.CreatedAt.UnixNano()),
		Member: policy.PolicyID,
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save policy in Redis: %w", err)
	}
	return nil
}

func (r *RedisPolicyRepository) GetByID(ctx context.Context, id string) (*domain.Policy, error) {
	data, err := r.client.Get(ctx, r.policyKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrPolicyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get policy from Redis: %w", err)
	}

	var policy domain.Policy
	if err := json.Unmarshal(data, &policy); err != nil {
		return nil, fmt.Errorf("failed to unmarshal policy: %w", err)
	}
	return &policy, nil
}

func (r *RedisPolicyRepository) List(ctx context.Context) ([]*domain.Policy, error) {
	ids, err := r.client.ZRevRange(ctx, r.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list policies: %w", err)
	}
	if len(ids) == 0 {
		return []*domain.Policy{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = r.policyKey(id)
	}
	values, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load policies: %w", err)
	}

	policies := make([]*domain.Policy, 0, len(values))
	for _, v := range values {
		s, ok := v.(string)
		if !ok {
			continue
		}
		var policy domain.Policy
		if err := json.Unmarshal([]byte(s), &policy); err != nil {
			continue
		}
		policies = append(policies, &policy)
	}
	return policies, nil
}

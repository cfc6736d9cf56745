package memory

import (
	"context"
	"sort"
	"sync"

	"floorview/internal/core/domain"
	"floorview/internal/core/ports"
)

type MemoryPolicyRepository struct {
	policies map[string]*domain.Policy
	mu       sync.RWMutex
}

func NewMemoryPolicyRepository() ports.PolicyRepository {
	return &MemoryPolicyRepository{
		policies: make(map[string]*domain.Policy),
	}
}

// Save inserts or replaces the policy. A copy is stored.
func (r *MemoryPolicyRepository) Save(ctx context.Context, policy *domain.Policy) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cp := *policy
	r.policies[policy.PolicyID] = &cp
	return nil
}

func (r *MemoryPolicyRepository) GetByID(ctx context.Context, id string) (*domain.Policy, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	policy, exists := r.policies[id]
	if !exists {
		return nil, domain.ErrPolicyNotFound
	}

	cp := *policy
	return &cp, nil
}

func (r *MemoryPolicyRepository) List(ctx context.Context) ([]*domain.Policy, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*domain.Policy, 0, len(r.policies))
	for _, p := range r.policies {
		cp := *p
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].PolicyID > out[j].PolicyID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

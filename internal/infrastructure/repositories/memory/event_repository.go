package memory

import (
	"context"
	"sync"

	"floorview/internal/core/domain"
	"floorview/internal/core/ports"
)

// DefaultEventCapacity bounds the in-memory event log.
const DefaultEventCapacity = 1000

// MemoryEventRepository keeps the most recent events in a ring.
type MemoryEventRepository struct {
	events []domain.LineEvent
	next   int
	full   bool
	mu     sync.RWMutex
}

func NewMemoryEventRepository(capacity int) ports.EventRepository {
	if capacity <= 0 {
		capacity = DefaultEventCapacity
	}
	return &MemoryEventRepository{
		events: make([]domain.LineEvent, capacity),
	}
}

func (r *MemoryEventRepository) Append(ctx context.Context, event domain.LineEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.events[r.next] = event
	r.next = (r.next + 1) % len(r.events)
	if r.next == 0 {
		r.full = true
	}
	return nil
}

func (r *MemoryEventRepository) Recent(ctx context.Context, limit int) ([]domain.LineEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	size := r.next
	if r.full {
		size = len(r.events)
	}
	if limit <= 0 || limit > size {
		limit = size
	}

	out := make([]domain.LineEvent, 0, limit)
	for i := 1; i <= limit; i++ {
		idx := (r.next - i + len(r.events)) % len(r.events)
		out = append(out, r.events[idx])
	}
	return out, nil
}

package ports

import (
	"context"

	"floorview/internal/core/domain"
)

type PolicyRepository interface {
	Save(ctx context.Context, policy *domain.Policy) error
	GetByID(ctx context.Context, id string) (*domain.Policy, error)
	// List returns policies newest first.
	List(ctx context.Context) ([]*domain.Policy, error)
}

type DocumentRepository interface {
	Save(ctx context.Context, doc *domain.Document) error
	GetByID(ctx context.Context, id string) (*domain.Document, error)
	List(ctx context.Context) ([]*domain.Document, error)
}

// EventRepository is a bounded append-only log.
type EventRepository interface {
	Append(ctx context.Context, event domain.LineEvent) error
	// Recent returns up to limit events, newest first.
	Recent(ctx context.Context, limit int) ([]domain.LineEvent, error)
}

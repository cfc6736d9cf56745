package memory

import (
	"context"
	"sync"

	"floorview/internal/core/domain"
	"floorview/internal/core/ports"
)

type MemoryDocumentRepository struct {
	documents map[string]*domain.Document
	order     []string
	mu        sync.RWMutex
}

func NewMemoryDocumentRepository() ports.DocumentRepository {
	return &MemoryDocumentRepository{
		documents: make(map[string]*domain.Document),
	}
}

func (r *MemoryDocumentRepository) Save(ctx context.Context, doc *domain.Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.documents[doc.DocumentID]; !exists {
		r.order = append(r.order, doc.DocumentID)
	}
	cp := *doc
	r.documents[doc.DocumentID] = &cp
	return nil
}

func (r *MemoryDocumentRepository) GetByID(ctx context.Context, id string) (*domain.Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	doc, exists := r.documents[id]
	if !exists {
		return nil, domain.ErrDocumentNotFound
	}
	cp := *doc
	return &cp, nil
}

// List returns documents in upload order.
func (r *MemoryDocumentRepository) List(ctx context.Context) ([]*domain.Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*domain.Document, 0, len(r.order))
	for _, id := range r.order {
		cp := *r.documents[id]
		out = append(out, &cp)
	}
	return out, nil
}

package memory

import (
	"context"
	"sync"
	"time"

	"doc-assistant-be/internal/entity"
	"doc-assistant-be/internal/repository/contract"

	"github.com/google/uuid"
)

// DocumentRepository is the single-node in-memory document store.
type DocumentRepository struct {
	mu   sync.RWMutex
	docs map[uuid.UUID]*entity.Document
}

func NewDocumentRepository() contract.DocumentRepository {
	return &DocumentRepository{
		docs: make(map[uuid.UUID]*entity.Document),
	}
}

func (r *DocumentRepository) Create(_ context.Context, doc *entity.Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.docs[doc.Id] = doc.Clone()
	return nil
}

func (r *DocumentRepository) Update(_ context.Context, doc *entity.Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.docs[doc.Id] = doc.Clone()
	return nil
}

func (r *DocumentRepository) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.docs, id)
	return nil
}

func (r *DocumentRepository) FindById(_ context.Context, id uuid.UUID) (*entity.Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if d, ok := r.docs[id]; ok {
		return d.Clone(), nil
	}
	return nil, nil
}

func (r *DocumentRepository) FindIdsCreatedBefore(_ context.Context, cutoff time.Time) ([]uuid.UUID, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var ids []uuid.UUID
	for id, d := range r.docs {
		if d.CreatedAt.Before(cutoff) {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (r *DocumentRepository) Count(_ context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.docs)), nil
}

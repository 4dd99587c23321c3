package contract

import (
	"context"
	"time"

	"doc-assistant-be/internal/entity"

	"github.com/google/uuid"
)

// DocumentRepository persists documents. FindById returns nil, nil when the
// document does not exist.
type DocumentRepository interface {
	Create(ctx context.Context, doc *entity.Document) error
	Update(ctx context.Context, doc *entity.Document) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindById(ctx context.Context, id uuid.UUID) (*entity.Document, error)
	FindIdsCreatedBefore(ctx context.Context, cutoff time.Time) ([]uuid.UUID, error)
	Count(ctx context.Context) (int64, error)
}

package contract

import (
	"context"

	"doc-assistant-be/pkg/store"
)

// SessionRepository persists user contexts keyed by user id.
// Load returns nil, nil when nothing is stored; Delete is idempotent.
type SessionRepository interface {
	Save(ctx context.Context, session *store.UserContext) error
	Load(ctx context.Context, userID string) (*store.UserContext, error)
	Delete(ctx context.Context, userID string) error
	ListUserIDs(ctx context.Context) ([]string, error)
}

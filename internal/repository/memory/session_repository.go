package memory

import (
	"context"

	"doc-assistant-be/internal/repository/contract"
	"doc-assistant-be/pkg/store"

	"github.com/patrickmn/go-cache"
)

// SessionRepository keeps user contexts in process memory.
// Expiry is owned by the lifecycle reaper, so entries never expire on their own.
type SessionRepository struct {
	cache *cache.Cache
}

func NewSessionRepository() contract.SessionRepository {
	return &SessionRepository{
		cache: cache.New(cache.NoExpiration, 0),
	}
}

func (r *SessionRepository) Save(_ context.Context, session *store.UserContext) error {
	r.cache.Set(session.UserID, session.Clone(), cache.NoExpiration)
	return nil
}

func (r *SessionRepository) Load(_ context.Context, userID string) (*store.UserContext, error) {
	if x, found := r.cache.Get(userID); found {
		return x.(*store.UserContext).Clone(), nil
	}
	return nil, nil
}

func (r *SessionRepository) Delete(_ context.Context, userID string) error {
	r.cache.Delete(userID)
	return nil
}

func (r *SessionRepository) ListUserIDs(_ context.Context) ([]string, error) {
	items := r.cache.Items()
	ids := make([]string, 0, len(items))
	for id := range items {
		ids = append(ids, id)
	}
	return ids, nil
}

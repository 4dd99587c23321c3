package redisrepo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"doc-assistant-be/internal/repository/contract"
	"doc-assistant-be/pkg/store"

	"github.com/redis/go-redis/v9"
)

const DefaultKeyPrefix = "docassist:session:"

// SessionRepository stores user contexts as JSON strings so several
// server instances can share conversational state.
type SessionRepository struct {
	rdb    *redis.Client
	prefix string
}

func NewSessionRepository(rdb *redis.Client, prefix string) contract.SessionRepository {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &SessionRepository{rdb: rdb, prefix: prefix}
}

func (r *SessionRepository) key(userID string) string {
	return r.prefix + userID
}

func (r *SessionRepository) Save(ctx context.Context, session *store.UserContext) error {
	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal session %s: %w", session.UserID, err)
	}
	// No TTL on the key: the lifecycle reaper decides when a session dies.
	return r.rdb.Set(ctx, r.key(session.UserID), payload, 0).Err()
}

func (r *SessionRepository) Load(ctx context.Context, userID string) (*store.UserContext, error) {
	raw, err := r.rdb.Get(ctx, r.key(userID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	var session store.UserContext
	if err := json.Unmarshal(raw, &session); err != nil {
		return nil, fmt.Errorf("unmarshal session %s: %w", userID, err)
	}
	if session.Fields == nil {
		session.Fields = make(map[string]string)
	}
	return &session, nil
}

func (r *SessionRepository) Delete(ctx context.Context, userID string) error {
	return r.rdb.Del(ctx, r.key(userID)).Err()
}

func (r *SessionRepository) ListUserIDs(ctx context.Context) ([]string, error) {
	var ids []string
	iter := r.rdb.Scan(ctx, 0, r.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		ids = append(ids, strings.TrimPrefix(iter.Val(), r.prefix))
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return ids, nil
}

package service

import (
	"context"
	"fmt"
	"time"

	"doc-assistant-be/internal/constant"
	"doc-assistant-be/internal/pkg/logger"
	"doc-assistant-be/internal/repository/contract"
	"doc-assistant-be/pkg/keylock"
	"doc-assistant-be/pkg/store"
)

// IContextService owns per-user conversational state. Every read returns a
// copy, and every mutation of one user is serialized.
type IContextService interface {
	// Load returns the stored context, or nil when the user has none.
	Load(ctx context.Context, userID string) (*store.UserContext, error)
	// Update runs fn on the user's context (created lazily), stamps
	// last_activity and persists the result.
	Update(ctx context.Context, userID string, fn func(sess *store.UserContext) error) (*store.UserContext, error)
	Save(ctx context.Context, session *store.UserContext) error
	Clear(ctx context.Context, userID string) error
	ReapExpired(ctx context.Context, ttl time.Duration) (int, error)
}

type contextService struct {
	repo   contract.SessionRepository
	locks  *keylock.KeyLock
	logger logger.ILogger
	now    func() time.Time
}

func NewContextService(repo contract.SessionRepository, log logger.ILogger) IContextService {
	return &contextService{
		repo:   repo,
		locks:  keylock.New(),
		logger: log,
		now:    time.Now,
	}
}

func (s *contextService) Load(ctx context.Context, userID string) (*store.UserContext, error) {
	sess, err := s.repo.Load(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: load session %s: %v", constant.ErrStorageIO, userID, err)
	}
	return sess, nil
}

func (s *contextService) Update(ctx context.Context, userID string, fn func(sess *store.UserContext) error) (*store.UserContext, error) {
	unlock := s.locks.Lock(userID)
	defer unlock()

	sess, err := s.Load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		sess = store.NewUserContext(userID, s.now())
	}

	if err := fn(sess); err != nil {
		return nil, err
	}

	sess.UserID = userID
	sess.LastActivity = s.now()
	if err := s.repo.Save(ctx, sess); err != nil {
		return nil, fmt.Errorf("%w: save session %s: %v", constant.ErrStorageIO, userID, err)
	}
	return sess.Clone(), nil
}

// Save replaces the stored context wholesale. last_activity is refreshed.
func (s *contextService) Save(ctx context.Context, session *store.UserContext) error {
	_, err := s.Update(ctx, session.UserID, func(sess *store.UserContext) error {
		*sess = *session.Clone()
		return nil
	})
	return err
}

func (s *contextService) Clear(ctx context.Context, userID string) error {
	unlock := s.locks.Lock(userID)
	defer unlock()

	if err := s.repo.Delete(ctx, userID); err != nil {
		return fmt.Errorf("%w: clear session %s: %v", constant.ErrStorageIO, userID, err)
	}
	return nil
}

// ReapExpired deletes every context idle for longer than ttl. A failure on
// one user is logged and the sweep moves on.
func (s *contextService) ReapExpired(ctx context.Context, ttl time.Duration) (int, error) {
	ids, err := s.repo.ListUserIDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: list sessions: %v", constant.ErrStorageIO, err)
	}

	reclaimed := 0
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return reclaimed, err
		}

		removed, err := s.reapOne(ctx, id, ttl)
		if err != nil {
			s.logger.Error("CONTEXT_STORE", "Failed to reap session", map[string]interface{}{
				"user_id": id,
				"error":   err.Error(),
			})
			continue
		}
		if removed {
			reclaimed++
		}
	}
	return reclaimed, nil
}

func (s *contextService) reapOne(ctx context.Context, userID string, ttl time.Duration) (bool, error) {
	unlock := s.locks.Lock(userID)
	defer unlock()

	// Re-check under the lock: the user may have written since the listing.
	sess, err := s.repo.Load(ctx, userID)
	if err != nil {
		return false, err
	}
	if sess == nil || !sess.IsExpired(s.now(), ttl) {
		return false, nil
	}
	if err := s.repo.Delete(ctx, userID); err != nil {
		return false, err
	}
	s.logger.Debug("CONTEXT_STORE", "Session expired", map[string]interface{}{"user_id": userID})
	return true, nil
}

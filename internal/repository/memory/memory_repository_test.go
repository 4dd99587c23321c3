package memory

import (
	"context"
	"sort"
	"testing"
	"time"

	"doc-assistant-be/internal/entity"
	"doc-assistant-be/pkg/store"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionRepositoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := NewSessionRepository()

	got, err := repo.Load(ctx, "missing")
	require.NoError(t, err)
	assert.Nil(t, got)

	sess := store.NewUserContext("628123", time.Now())
	sess.Set(store.FieldLastIntent, "help")
	require.NoError(t, repo.Save(ctx, sess))

	// Mutating the caller's copy must not leak into the store.
	sess.Set(store.FieldLastIntent, "changed")

	got, err = repo.Load(ctx, "628123")
	require.NoError(t, err)
	v, _ := got.Get(store.FieldLastIntent)
	assert.Equal(t, "help", v)

	require.NoError(t, repo.Save(ctx, store.NewUserContext("628999", time.Now())))
	ids, err := repo.ListUserIDs(ctx)
	require.NoError(t, err)
	sort.Strings(ids)
	assert.Equal(t, []string{"628123", "628999"}, ids)

	require.NoError(t, repo.Delete(ctx, "628123"))
	require.NoError(t, repo.Delete(ctx, "628123"))
	got, _ = repo.Load(ctx, "628123")
	assert.Nil(t, got)
}

func TestDocumentRepositoryLifecycle(t *testing.T) {
	ctx := context.Background()
	repo := NewDocumentRepository()
	now := time.Now()

	old := &entity.Document{Id: uuid.New(), Title: "lama", CreatedAt: now.Add(-48 * time.Hour)}
	fresh := &entity.Document{Id: uuid.New(), Title: "baru", CreatedAt: now}
	require.NoError(t, repo.Create(ctx, old))
	require.NoError(t, repo.Create(ctx, fresh))

	fresh.AppendText("body", "isi")
	require.NoError(t, repo.Update(ctx, fresh))

	got, err := repo.FindById(ctx, fresh.Id)
	require.NoError(t, err)
	require.Len(t, got.Sections, 1)

	ids, err := repo.FindIdsCreatedBefore(ctx, now.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{old.Id}, ids)

	count, _ := repo.Count(ctx)
	assert.Equal(t, int64(2), count)

	require.NoError(t, repo.Delete(ctx, old.Id))
	got, err = repo.FindById(ctx, old.Id)
	require.NoError(t, err)
	assert.Nil(t, got)
}

package implementation

import (
	"context"
	"log"
	"os"
	"testing"
	"time"

	"doc-assistant-be/internal/entity"
	"doc-assistant-be/internal/model"
	"doc-assistant-be/pkg/database"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocumentRepositoryAgainstPostgres(t *testing.T) {
	if err := godotenv.Load("../../../.env"); err != nil {
		log.Println("No .env file found, using system env")
	}

	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		t.Skip("Skipping integration test: DB_CONNECTION_STRING not set")
	}

	db, err := database.NewGormDBFromDSN(dsn, false)
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db, &model.Document{}, &model.DocumentSection{}))

	ctx := context.Background()
	repo := NewDocumentRepository(db)

	doc := &entity.Document{
		Id:        uuid.New(),
		Title:     "Integration Doc",
		Type:      "pdf",
		Metadata:  entity.DocumentMetadata{OwnerUserId: "it-user"},
		CreatedAt: time.Now().Add(-72 * time.Hour),
	}
	doc.AppendText("body", "baris satu")
	require.NoError(t, repo.Create(ctx, doc))
	t.Cleanup(func() { _ = repo.Delete(ctx, doc.Id) })

	t.Run("Update replaces sections", func(t *testing.T) {
		doc.AppendText("body", "baris dua")
		doc.AppendText("penutup", "terima kasih")
		require.NoError(t, repo.Update(ctx, doc))

		got, err := repo.FindById(ctx, doc.Id)
		require.NoError(t, err)
		require.NotNil(t, got)
		require.Len(t, got.Sections, 2)
		assert.Equal(t, "baris satu\nbaris dua", got.Sections[0].Content)
		assert.Equal(t, "penutup", got.Sections[1].Name)
		assert.Equal(t, "it-user", got.Metadata.OwnerUserId)
	})

	t.Run("Expired ids", func(t *testing.T) {
		ids, err := repo.FindIdsCreatedBefore(ctx, time.Now().Add(-48*time.Hour))
		require.NoError(t, err)
		assert.Contains(t, ids, doc.Id)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, repo.Delete(ctx, doc.Id))
		got, err := repo.FindById(ctx, doc.Id)
		require.NoError(t, err)
		assert.Nil(t, got)
	})
}

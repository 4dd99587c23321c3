package filesystem

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"doc-assistant-be/internal/constant"
	"doc-assistant-be/internal/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) (*FileStore, string) {
	t.Helper()
	root := t.TempDir()
	s, err := NewFileStore(root, 64, logger.NewNopLogger())
	require.NoError(t, err)
	return s, root
}

func writeInbox(t *testing.T, s *FileStore, name, body string) string {
	t.Helper()
	p := filepath.Join(s.InboxPath(), name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func TestFileStoreSaveAndRead(t *testing.T) {
	s, _ := newStore(t)
	src := writeInbox(t, s, "upload.tmp", "hello world")

	meta := &FileMetadata{OriginalFilename: "laporan.pdf", FileExtension: ".pdf", OwnerUserID: "628"}
	dest, err := s.SaveDocument("doc-1", src, meta)
	require.NoError(t, err)
	assert.Equal(t, "laporan.pdf", filepath.Base(dest))

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(data))

	got, err := s.GetDocumentMetadata("doc-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, int64(11), got.FileSize)
	assert.Equal(t, "doc-1", got.DocumentID)
	assert.False(t, got.CreatedAt.IsZero())

	p, err := s.GetDocumentPath("doc-1", "")
	require.NoError(t, err)
	assert.Equal(t, dest, p)

	p, err = s.GetDocumentPath("doc-1", "laporan.pdf")
	require.NoError(t, err)
	assert.Equal(t, dest, p)

	p, err = s.GetDocumentPath("doc-1", "missing.pdf")
	require.NoError(t, err)
	assert.Empty(t, p)
}

func TestFileStoreMissingDocument(t *testing.T) {
	s, _ := newStore(t)

	p, err := s.GetDocumentPath("nope", "")
	require.NoError(t, err)
	assert.Empty(t, p)

	meta, err := s.GetDocumentMetadata("nope")
	require.NoError(t, err)
	assert.Nil(t, meta)

	removed, err := s.DeleteDocument("nope")
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestFileStoreDeleteAndList(t *testing.T) {
	s, _ := newStore(t)
	src := writeInbox(t, s, "a.txt", "x")

	_, err := s.SaveDocument("doc-a", src, &FileMetadata{OriginalFilename: "a.txt"})
	require.NoError(t, err)
	_, err = s.SaveDocument("doc-b", src, nil)
	require.NoError(t, err)

	ids, err := s.ListDocumentIDs()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"doc-a", "doc-b"}, ids)

	removed, err := s.DeleteDocument("doc-a")
	require.NoError(t, err)
	assert.True(t, removed)

	ids, _ = s.ListDocumentIDs()
	assert.Equal(t, []string{"doc-b"}, ids)
}

func TestFileStoreCreatedAtFallsBackToMtime(t *testing.T) {
	s, _ := newStore(t)
	src := writeInbox(t, s, "b.txt", "y")

	created := time.Now().Add(-3 * time.Hour).UTC().Truncate(time.Second)
	_, err := s.SaveDocument("with-meta", src, &FileMetadata{OriginalFilename: "b.txt", CreatedAt: created})
	require.NoError(t, err)
	got, err := s.CreatedAt("with-meta")
	require.NoError(t, err)
	assert.True(t, created.Equal(got))

	_, err = s.SaveDocument("no-meta", src, nil)
	require.NoError(t, err)
	got, err = s.CreatedAt("no-meta")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now(), got, time.Minute)
}

func TestFileStoreCorruptMetadata(t *testing.T) {
	s, root := newStore(t)
	dir := filepath.Join(root, "documents", "bad")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, metadataFile), []byte("{"), 0o644))

	_, err := s.GetDocumentMetadata("bad")
	assert.ErrorIs(t, err, constant.ErrStorageIO)
}

func TestFileStoreRejectsSourcesOutsideInbox(t *testing.T) {
	s, root := newStore(t)

	outside := filepath.Join(t.TempDir(), "secret.txt")
	require.NoError(t, os.WriteFile(outside, []byte("rahasia"), 0o644))
	require.NoError(t, os.Symlink(outside, filepath.Join(s.InboxPath(), "link.txt")))
	require.NoError(t, os.Mkdir(filepath.Join(s.InboxPath(), "sub"), 0o755))

	cases := map[string]string{
		"absolute path":    "/etc/passwd",
		"device":           "/dev/zero",
		"other directory":  outside,
		"dot-dot escape":   "../documents",
		"symlink escape":   "link.txt",
		"directory":        "sub",
		"inbox itself":     s.InboxPath(),
		"traversal in abs": filepath.Join(s.InboxPath(), "..", "..", filepath.Base(root)),
	}
	for name, src := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := s.SaveDocument("doc-x", src, &FileMetadata{OriginalFilename: "x.txt"})
			assert.ErrorIs(t, err, constant.ErrAttachmentRejected)
		})
	}

	ids, err := s.ListDocumentIDs()
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestFileStoreEnforcesSizeLimit(t *testing.T) {
	s, _ := newStore(t)

	exact := writeInbox(t, s, "exact.bin", strings.Repeat("a", 64))
	_, err := s.SaveDocument("doc-ok", exact, nil)
	require.NoError(t, err)

	big := writeInbox(t, s, "big.bin", strings.Repeat("a", 65))
	_, err = s.SaveDocument("doc-big", big, nil)
	assert.ErrorIs(t, err, constant.ErrAttachmentRejected)

	ids, _ := s.ListDocumentIDs()
	assert.Equal(t, []string{"doc-ok"}, ids)
}

func TestCopyFileStopsAtLimit(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	require.NoError(t, os.WriteFile(src, []byte(strings.Repeat("z", 100)), 0o644))

	_, err := copyFile(src, filepath.Join(dir, "dest"), 10)
	assert.ErrorIs(t, err, errTooLarge)

	n, err := copyFile(src, filepath.Join(dir, "dest2"), 0)
	require.NoError(t, err)
	assert.Equal(t, int64(100), n)
}

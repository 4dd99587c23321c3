package filesystem

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"doc-assistant-be/internal/constant"
	"doc-assistant-be/internal/pkg/logger"
)

const metadataFile = "metadata.json"

// FileMetadata is written next to every stored file.
type FileMetadata struct {
	DocumentID       string    `json:"document_id"`
	OwnerUserID      string    `json:"owner_user_id,omitempty"`
	OriginalFilename string    `json:"original_filename"`
	FileExtension    string    `json:"file_extension"`
	FileSize         int64     `json:"file_size"`
	CreatedAt        time.Time `json:"created_at"`
}

// FileStore keeps uploaded files under <root>/documents/<id>/. Sources are
// only accepted from <root>/inbox, where the transport drops downloads.
type FileStore struct {
	documentsPath string
	inboxPath     string
	inboxAliases  []string
	maxFileSize   int64
	logger        logger.ILogger
}

func NewFileStore(root string, maxFileSize int64, log logger.ILogger) (*FileStore, error) {
	docs := filepath.Join(root, "documents")
	inbox := filepath.Join(root, "inbox")
	for _, dir := range []string{docs, inbox} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("%w: create %s: %v", constant.ErrStorageIO, dir, err)
		}
	}
	aliases := []string{filepath.Clean(inbox)}
	if abs, err := filepath.Abs(inbox); err == nil {
		aliases = append(aliases, abs)
	}
	// Symlinked roots (e.g. /tmp on macOS) are compared in resolved form.
	if resolved, err := filepath.EvalSymlinks(inbox); err == nil {
		inbox = resolved
	}
	log.Info("FILE_STORE", "File store initialised", map[string]interface{}{
		"path":          root,
		"max_file_size": maxFileSize,
	})
	return &FileStore{
		documentsPath: docs,
		inboxPath:     inbox,
		inboxAliases:  append(aliases, inbox),
		maxFileSize:   maxFileSize,
		logger:        log,
	}, nil
}

func (s *FileStore) inInbox(p string) bool {
	for _, dir := range s.inboxAliases {
		rel, err := filepath.Rel(dir, p)
		if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			continue
		}
		return true
	}
	return false
}

// InboxPath is the only directory SaveDocument copies from.
func (s *FileStore) InboxPath() string {
	return s.inboxPath
}

// resolveSource maps srcPath to a regular file inside the inbox. Relative
// paths are taken relative to the inbox.
func (s *FileStore) resolveSource(srcPath string) (string, error) {
	p := srcPath
	if !filepath.IsAbs(p) {
		p = filepath.Join(s.inboxPath, p)
	}
	p = filepath.Clean(p)
	if !s.inInbox(p) {
		return "", fmt.Errorf("%w: %s is outside the inbox", constant.ErrAttachmentRejected, srcPath)
	}

	resolved, err := filepath.EvalSymlinks(p)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", constant.ErrStorageIO, srcPath, err)
	}
	if !s.inInbox(resolved) {
		return "", fmt.Errorf("%w: %s links outside the inbox", constant.ErrAttachmentRejected, srcPath)
	}

	info, err := os.Stat(resolved)
	if err != nil {
		return "", fmt.Errorf("%w: %v", constant.ErrStorageIO, err)
	}
	if !info.Mode().IsRegular() {
		return "", fmt.Errorf("%w: %s is not a regular file", constant.ErrAttachmentRejected, srcPath)
	}
	if s.maxFileSize > 0 && info.Size() > s.maxFileSize {
		return "", fmt.Errorf("%w: %s exceeds %d bytes", constant.ErrAttachmentRejected, srcPath, s.maxFileSize)
	}
	return resolved, nil
}

func (s *FileStore) dir(docID string) string {
	return filepath.Join(s.documentsPath, filepath.Base(docID))
}

// SaveDocument copies srcPath, which must live in the inbox, into the
// document directory and writes meta. It returns the path of the stored copy.
func (s *FileStore) SaveDocument(docID, srcPath string, meta *FileMetadata) (string, error) {
	src, err := s.resolveSource(srcPath)
	if err != nil {
		return "", err
	}

	dir := s.dir(docID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("%w: %v", constant.ErrStorageIO, err)
	}

	name := filepath.Base(src)
	if meta != nil && meta.OriginalFilename != "" {
		name = filepath.Base(meta.OriginalFilename)
	}
	if name == metadataFile {
		name = "_" + name
	}
	dest := filepath.Join(dir, name)

	size, err := copyFile(src, dest, s.maxFileSize)
	if err != nil {
		_ = os.RemoveAll(dir)
		if errors.Is(err, errTooLarge) {
			return "", fmt.Errorf("%w: %s exceeds %d bytes", constant.ErrAttachmentRejected, srcPath, s.maxFileSize)
		}
		return "", fmt.Errorf("%w: copy %s: %v", constant.ErrStorageIO, srcPath, err)
	}

	if meta != nil {
		meta.DocumentID = docID
		meta.FileSize = size
		if meta.CreatedAt.IsZero() {
			meta.CreatedAt = time.Now()
		}
		raw, err := json.MarshalIndent(meta, "", "  ")
		if err != nil {
			return "", fmt.Errorf("%w: %v", constant.ErrStorageIO, err)
		}
		if err := os.WriteFile(filepath.Join(dir, metadataFile), raw, 0o644); err != nil {
			return "", fmt.Errorf("%w: write metadata: %v", constant.ErrStorageIO, err)
		}
	}

	s.logger.Info("FILE_STORE", "Document stored", map[string]interface{}{
		"document_id": docID,
		"path":        dest,
		"size":        size,
	})
	return dest, nil
}

// GetDocumentPath returns the stored file, or the first non-metadata file when
// filename is empty. Missing files yield "", nil.
func (s *FileStore) GetDocumentPath(docID, filename string) (string, error) {
	dir := s.dir(docID)

	if filename != "" {
		p := filepath.Join(dir, filepath.Base(filename))
		if _, err := os.Stat(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return "", nil
			}
			return "", fmt.Errorf("%w: %v", constant.ErrStorageIO, err)
		}
		return p, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("%w: %v", constant.ErrStorageIO, err)
	}
	for _, e := range entries {
		if !e.IsDir() && e.Name() != metadataFile {
			return filepath.Join(dir, e.Name()), nil
		}
	}
	return "", nil
}

// GetDocumentMetadata returns nil, nil when no metadata was recorded.
func (s *FileStore) GetDocumentMetadata(docID string) (*FileMetadata, error) {
	raw, err := os.ReadFile(filepath.Join(s.dir(docID), metadataFile))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %v", constant.ErrStorageIO, err)
	}

	var meta FileMetadata
	if err := json.Unmarshal(raw, &meta); err != nil {
		return nil, fmt.Errorf("%w: corrupt metadata for %s: %v", constant.ErrStorageIO, docID, err)
	}
	return &meta, nil
}

// DeleteDocument removes the document directory. Reports false if nothing was there.
func (s *FileStore) DeleteDocument(docID string) (bool, error) {
	dir := s.dir(docID)
	if _, err := os.Stat(dir); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("%w: %v", constant.ErrStorageIO, err)
	}
	if err := os.RemoveAll(dir); err != nil {
		return false, fmt.Errorf("%w: %v", constant.ErrStorageIO, err)
	}
	s.logger.Info("FILE_STORE", "Document files removed", map[string]interface{}{"document_id": docID})
	return true, nil
}

// ListDocumentIDs returns every directory under documents/, including
// orphans whose document record is already gone.
func (s *FileStore) ListDocumentIDs() ([]string, error) {
	entries, err := os.ReadDir(s.documentsPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", constant.ErrStorageIO, err)
	}
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			ids = append(ids, e.Name())
		}
	}
	return ids, nil
}

// CreatedAt reads created_at from metadata, falling back to the directory mtime.
func (s *FileStore) CreatedAt(docID string) (time.Time, error) {
	meta, err := s.GetDocumentMetadata(docID)
	if err == nil && meta != nil && !meta.CreatedAt.IsZero() {
		return meta.CreatedAt, nil
	}
	info, statErr := os.Stat(s.dir(docID))
	if statErr != nil {
		return time.Time{}, fmt.Errorf("%w: %v", constant.ErrStorageIO, statErr)
	}
	return info.ModTime(), nil
}

var errTooLarge = errors.New("file too large")

// copyFile copies at most limit bytes; a longer source fails with errTooLarge.
func copyFile(src, dest string, limit int64) (int64, error) {
	in, err := os.Open(src)
	if err != nil {
		return 0, err
	}
	defer in.Close()

	out, err := os.Create(dest)
	if err != nil {
		return 0, err
	}

	var r io.Reader = in
	if limit > 0 {
		r = io.LimitReader(in, limit+1)
	}
	n, err := io.Copy(out, r)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err == nil && limit > 0 && n > limit {
		err = errTooLarge
	}
	return n, err
}

package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"doc-assistant-be/internal/constant"
	"doc-assistant-be/internal/entity"
	"doc-assistant-be/internal/pkg/logger"
	"doc-assistant-be/internal/repository/contract"
	"doc-assistant-be/internal/repository/filesystem"
	"doc-assistant-be/pkg/events"
	"doc-assistant-be/pkg/keylock"
	"doc-assistant-be/pkg/render"

	"github.com/google/uuid"
)

type IDocumentService interface {
	CreateDocument(ctx context.Context, title, docType string, meta entity.DocumentMetadata) (*entity.Document, error)
	AddText(ctx context.Context, id uuid.UUID, section, content string) error
	EditText(ctx context.Context, id uuid.UUID, section, oldText, newText string) (bool, error)
	ExportDocument(ctx context.Context, id uuid.UUID, format string) (*render.Artifact, error)
	DeleteDocument(ctx context.Context, id uuid.UUID) error
	GetDocument(ctx context.Context, id uuid.UUID) (*entity.Document, error)
	GetMetadata(ctx context.Context, id uuid.UUID) (*entity.DocumentMetadata, error)
	GetDocumentPath(ctx context.Context, id uuid.UUID) (string, error)
	IngestFile(ctx context.Context, userID, localPath, originalFilename string) (*entity.Document, error)
	ReapExpired(ctx context.Context, ttl time.Duration) (int, error)
	ReapArtifacts(ctx context.Context, ttl time.Duration) (int, error)
}

type documentService struct {
	repo          contract.DocumentRepository
	files         *filesystem.FileStore
	renderer      render.Renderer
	events        events.Publisher
	logger        logger.ILogger
	locks         *keylock.KeyLock
	exportTimeout time.Duration
	now           func() time.Time
}

func NewDocumentService(
	repo contract.DocumentRepository,
	files *filesystem.FileStore,
	renderer render.Renderer,
	eventPublisher events.Publisher,
	log logger.ILogger,
	exportTimeout time.Duration,
) IDocumentService {
	return &documentService{
		repo:          repo,
		files:         files,
		renderer:      renderer,
		events:        eventPublisher,
		logger:        log,
		locks:         keylock.New(),
		exportTimeout: exportTimeout,
		now:           time.Now,
	}
}

const eventPublishTimeout = 2 * time.Second

func storageErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", constant.ErrStorageIO, op, err)
}

func (s *documentService) publish(ctx context.Context, eventType string, data map[string]interface{}) {
	if s.events == nil {
		return
	}
	// A bus outage must not fail or stall the command.
	ctx, cancel := context.WithTimeout(ctx, eventPublishTimeout)
	defer cancel()
	if err := s.events.Publish(ctx, events.New(eventType, data)); err != nil {
		s.logger.Warn("DOCUMENT", "Failed to publish event", map[string]interface{}{
			"type":  eventType,
			"error": err.Error(),
		})
	}
}

func (s *documentService) CreateDocument(ctx context.Context, title, docType string, meta entity.DocumentMetadata) (*entity.Document, error) {
	doc := &entity.Document{
		Id:        uuid.New(),
		Title:     title,
		Type:      docType,
		Sections:  []entity.Section{},
		Metadata:  meta,
		CreatedAt: s.now(),
	}
	if err := s.repo.Create(ctx, doc); err != nil {
		return nil, storageErr("create document", err)
	}

	s.logger.Info("DOCUMENT", "Document created", map[string]interface{}{
		"document_id": doc.Id.String(),
		"type":        docType,
		"owner":       meta.OwnerUserId,
	})
	s.publish(ctx, constant.EventDocumentCreated, map[string]interface{}{
		"document_id": doc.Id.String(),
		"title":       doc.Title,
		"type":        doc.Type,
		"user_id":     meta.OwnerUserId,
	})
	return doc.Clone(), nil
}

// mutate runs fn on the document under its lock and persists the result
// when fn reports a change.
func (s *documentService) mutate(ctx context.Context, id uuid.UUID, fn func(doc *entity.Document) bool) (bool, error) {
	unlock := s.locks.Lock(id.String())
	defer unlock()

	doc, err := s.repo.FindById(ctx, id)
	if err != nil {
		return false, storageErr("load document", err)
	}
	if doc == nil {
		return false, fmt.Errorf("%w: %s", constant.ErrDocumentNotFound, id)
	}

	if !fn(doc) {
		return false, nil
	}

	now := s.now()
	doc.UpdatedAt = &now
	if err := s.repo.Update(ctx, doc); err != nil {
		return false, storageErr("update document", err)
	}
	return true, nil
}

func (s *documentService) AddText(ctx context.Context, id uuid.UUID, section, content string) error {
	_, err := s.mutate(ctx, id, func(doc *entity.Document) bool {
		doc.AppendText(section, content)
		return true
	})
	return err
}

func (s *documentService) EditText(ctx context.Context, id uuid.UUID, section, oldText, newText string) (bool, error) {
	return s.mutate(ctx, id, func(doc *entity.Document) bool {
		return doc.ReplaceText(section, oldText, newText)
	})
}

type renderResult struct {
	artifact *render.Artifact
	err      error
}

// ExportDocument renders a snapshot of the document. The renderer gets at
// most exportTimeout; past that the export fails with ErrExport.
func (s *documentService) ExportDocument(ctx context.Context, id uuid.UUID, format string) (*render.Artifact, error) {
	doc, err := s.GetDocument(ctx, id)
	if err != nil {
		return nil, err
	}

	view := render.Document{ID: doc.Id, Title: doc.Title}
	for _, sec := range doc.Sections {
		view.Sections = append(view.Sections, render.Section{Name: sec.Name, Content: sec.Content})
	}

	renderCtx, cancel := context.WithTimeout(ctx, s.exportTimeout)
	defer cancel()

	done := make(chan renderResult, 1)
	go func() {
		a, err := s.renderer.Render(renderCtx, view, format)
		done <- renderResult{artifact: a, err: err}
	}()

	var res renderResult
	select {
	case res = <-done:
	case <-renderCtx.Done():
		res = renderResult{err: renderCtx.Err()}
	}

	if res.err == nil && res.artifact == nil {
		res.err = errors.New("renderer returned no artifact")
	}
	if res.err != nil {
		s.logger.Error("DOCUMENT", "Export failed", map[string]interface{}{
			"document_id": id.String(),
			"format":      format,
			"error":       res.err.Error(),
		})
		return nil, fmt.Errorf("%w: %v", constant.ErrExport, res.err)
	}

	s.publish(ctx, constant.EventDocumentExported, map[string]interface{}{
		"document_id": id.String(),
		"format":      res.artifact.Format,
		"user_id":     doc.Metadata.OwnerUserId,
	})
	return res.artifact, nil
}

// DeleteDocument removes the record and any stored files. Deleting a missing
// document is not an error.
func (s *documentService) DeleteDocument(ctx context.Context, id uuid.UUID) error {
	unlock := s.locks.Lock(id.String())
	defer unlock()
	return s.deleteLocked(ctx, id)
}

func (s *documentService) deleteLocked(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return storageErr("delete document", err)
	}
	if s.files != nil {
		if _, err := s.files.DeleteDocument(id.String()); err != nil {
			return err
		}
	}
	return nil
}

func (s *documentService) GetDocument(ctx context.Context, id uuid.UUID) (*entity.Document, error) {
	doc, err := s.repo.FindById(ctx, id)
	if err != nil {
		return nil, storageErr("load document", err)
	}
	if doc == nil {
		return nil, fmt.Errorf("%w: %s", constant.ErrDocumentNotFound, id)
	}
	return doc, nil
}

func (s *documentService) GetMetadata(ctx context.Context, id uuid.UUID) (*entity.DocumentMetadata, error) {
	doc, err := s.GetDocument(ctx, id)
	if err != nil {
		return nil, err
	}
	meta := doc.Metadata
	return &meta, nil
}

// GetDocumentPath returns the stored copy of an ingested file.
func (s *documentService) GetDocumentPath(ctx context.Context, id uuid.UUID) (string, error) {
	doc, err := s.GetDocument(ctx, id)
	if err != nil {
		return "", err
	}
	if doc.Metadata.FilePath != "" {
		if _, statErr := os.Stat(doc.Metadata.FilePath); statErr == nil {
			return doc.Metadata.FilePath, nil
		}
	}
	if s.files == nil {
		return "", fmt.Errorf("%w: %s has no stored file", constant.ErrDocumentNotFound, id)
	}
	path, err := s.files.GetDocumentPath(id.String(), "")
	if err != nil {
		return "", err
	}
	if path == "" {
		return "", fmt.Errorf("%w: %s has no stored file", constant.ErrDocumentNotFound, id)
	}
	return path, nil
}

// IngestFile stores an uploaded file and registers it as a document.
func (s *documentService) IngestFile(ctx context.Context, userID, localPath, originalFilename string) (*entity.Document, error) {
	if s.files == nil {
		return nil, fmt.Errorf("%w: file store not configured", constant.ErrStorageIO)
	}
	if originalFilename == "" {
		originalFilename = filepath.Base(localPath)
	}
	ext := strings.ToLower(filepath.Ext(originalFilename))

	id := uuid.New()
	fileMeta := &filesystem.FileMetadata{
		OwnerUserID:      userID,
		OriginalFilename: originalFilename,
		FileExtension:    ext,
		CreatedAt:        s.now(),
	}
	stored, err := s.files.SaveDocument(id.String(), localPath, fileMeta)
	if err != nil {
		return nil, err
	}

	docType := strings.TrimPrefix(ext, ".")
	if docType == "" {
		docType = "file"
	}
	doc := &entity.Document{
		Id:       id,
		Title:    strings.TrimSuffix(originalFilename, filepath.Ext(originalFilename)),
		Type:     docType,
		Sections: []entity.Section{},
		Metadata: entity.DocumentMetadata{
			OwnerUserId:      userID,
			OriginalFilename: originalFilename,
			FileExtension:    ext,
			FileSize:         fileMeta.FileSize,
			FilePath:         stored,
		},
		CreatedAt: fileMeta.CreatedAt,
	}
	if err := s.repo.Create(ctx, doc); err != nil {
		_, _ = s.files.DeleteDocument(id.String())
		return nil, storageErr("create document", err)
	}

	s.logger.Info("DOCUMENT", "Attachment ingested", map[string]interface{}{
		"document_id": id.String(),
		"filename":    originalFilename,
		"size":        fileMeta.FileSize,
		"owner":       userID,
	})
	s.publish(ctx, constant.EventDocumentIngested, map[string]interface{}{
		"document_id": id.String(),
		"filename":    originalFilename,
		"user_id":     userID,
	})
	return doc.Clone(), nil
}

// ReapExpired deletes documents older than ttl and returns how many records
// went. Stored file directories left without a record are removed too; they
// are logged but not counted.
func (s *documentService) ReapExpired(ctx context.Context, ttl time.Duration) (int, error) {
	now := s.now()
	ids, err := s.repo.FindIdsCreatedBefore(ctx, now.Add(-ttl))
	if err != nil {
		return 0, storageErr("list expired documents", err)
	}

	reclaimed := 0
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return reclaimed, err
		}
		removed, err := s.reapOne(ctx, id, ttl)
		if err != nil {
			s.logger.Error("DOCUMENT", "Failed to reap document", map[string]interface{}{
				"document_id": id.String(),
				"error":       err.Error(),
			})
			continue
		}
		if removed {
			reclaimed++
		}
	}

	if orphans := s.reapOrphanFiles(ctx, ttl); orphans > 0 {
		s.logger.Info("DOCUMENT", "Orphan file directories removed", map[string]interface{}{"count": orphans})
	}
	return reclaimed, nil
}

func (s *documentService) reapOne(ctx context.Context, id uuid.UUID, ttl time.Duration) (bool, error) {
	unlock := s.locks.Lock(id.String())
	defer unlock()

	doc, err := s.repo.FindById(ctx, id)
	if err != nil {
		return false, err
	}
	if doc == nil || !doc.IsExpired(s.now(), ttl) {
		return false, nil
	}
	if err := s.deleteLocked(ctx, id); err != nil {
		return false, err
	}
	s.logger.Debug("DOCUMENT", "Document expired", map[string]interface{}{"document_id": id.String()})
	return true, nil
}

func (s *documentService) reapOrphanFiles(ctx context.Context, ttl time.Duration) int {
	if s.files == nil {
		return 0
	}
	dirs, err := s.files.ListDocumentIDs()
	if err != nil {
		s.logger.Error("DOCUMENT", "Failed to list stored files", map[string]interface{}{"error": err.Error()})
		return 0
	}

	reclaimed := 0
	for _, dir := range dirs {
		if ctx.Err() != nil {
			break
		}
		created, err := s.files.CreatedAt(dir)
		if err != nil || s.now().Sub(created) <= ttl {
			continue
		}
		if id, parseErr := uuid.Parse(dir); parseErr == nil {
			// Records still present are handled by reapOne.
			doc, err := s.repo.FindById(ctx, id)
			if err != nil {
				s.logger.Warn("DOCUMENT", "Skipping file directory, record lookup failed", map[string]interface{}{
					"document_id": dir,
					"error":       err.Error(),
				})
				continue
			}
			if doc != nil {
				continue
			}
		}
		if removed, err := s.files.DeleteDocument(dir); err != nil {
			s.logger.Error("DOCUMENT", "Failed to remove orphan files", map[string]interface{}{
				"document_id": dir,
				"error":       err.Error(),
			})
		} else if removed {
			reclaimed++
		}
	}
	return reclaimed
}

// ReapArtifacts removes rendered exports older than ttl. Renderers that keep
// nothing on disk are skipped.
func (s *documentService) ReapArtifacts(ctx context.Context, ttl time.Duration) (int, error) {
	sweeper, ok := s.renderer.(render.Sweeper)
	if !ok {
		return 0, nil
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	removed, err := sweeper.RemoveBefore(s.now().Add(-ttl))
	if err != nil {
		s.logger.Error("DOCUMENT", "Some export artifacts could not be removed", map[string]interface{}{
			"removed": removed,
			"error":   err.Error(),
		})
	}
	if removed > 0 {
		s.logger.Debug("DOCUMENT", "Export artifacts expired", map[string]interface{}{"count": removed})
	}
	return removed, nil
}

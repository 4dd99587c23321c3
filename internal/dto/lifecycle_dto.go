package dto

import (
	"time"

	"github.com/google/uuid"
)

type DocumentRefResponse struct {
	Id   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

type UserSessionResponse struct {
	UserId            string               `json:"user_id"`
	CurrentDocumentId *uuid.UUID           `json:"current_document_id"`
	LastDocument      *DocumentRefResponse `json:"last_document"`
	Fields            map[string]string    `json:"fields"`
	LastActivity      time.Time            `json:"last_activity"`
}

type SaveUserSessionRequest struct {
	CurrentDocumentId *uuid.UUID           `json:"current_document_id"`
	LastDocument      *DocumentRefResponse `json:"last_document"`
	Fields            map[string]string    `json:"fields" validate:"omitempty,max=64"`
}

type DocumentMetadataResponse struct {
	Id               uuid.UUID  `json:"id"`
	Title            string     `json:"title"`
	Type             string     `json:"type"`
	OwnerUserId      string     `json:"owner_user_id,omitempty"`
	OriginalFilename string     `json:"original_filename,omitempty"`
	FileExtension    string     `json:"file_extension,omitempty"`
	FileSize         int64      `json:"file_size,omitempty"`
	SectionCount     int        `json:"section_count"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        *time.Time `json:"updated_at"`
}

type DocumentPathResponse struct {
	Id   uuid.UUID `json:"id"`
	Path string    `json:"path"`
}

type CleanupRequest struct {
	SessionTtlSeconds  *int `json:"session_ttl_seconds" validate:"omitempty,gt=0"`
	DocumentTtlSeconds *int `json:"document_ttl_seconds" validate:"omitempty,gt=0"`
}

type CleanupResponse struct {
	SessionsReclaimed  int `json:"sessions_reclaimed"`
	DocumentsReclaimed int `json:"documents_reclaimed"`
	ArtifactsReclaimed int `json:"artifacts_reclaimed"`
}

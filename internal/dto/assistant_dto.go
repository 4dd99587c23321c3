package dto

import (
	"doc-assistant-be/pkg/render"

	"github.com/google/uuid"
)

type SendMessageRequest struct {
	SenderId string `json:"sender_id" validate:"required,max=64"`
	Text     string `json:"text" validate:"required,max=4096"`
}

type SendAttachmentRequest struct {
	SenderId  string `json:"sender_id" validate:"required,max=64"`
	LocalPath string `json:"local_path" validate:"required"`
	Filename  string `json:"filename" validate:"required,max=255"`
}

type ArtifactResponse struct {
	Handle   string `json:"handle"`
	Format   string `json:"format"`
	Filename string `json:"filename"`
	Size     int64  `json:"size"`
}

type AssistantReplyResponse struct {
	Reply      string            `json:"reply"`
	Intent     string            `json:"intent"`
	Fallback   bool              `json:"fallback,omitempty"`
	DocumentId *uuid.UUID        `json:"document_id,omitempty"`
	Artifact   *ArtifactResponse `json:"artifact,omitempty"`
}

// ExportedArtifactMessage travels on the in-process bus to the delivery consumer.
type ExportedArtifactMessage struct {
	UserId     string          `json:"user_id"`
	DocumentId uuid.UUID       `json:"document_id"`
	Artifact   render.Artifact `json:"artifact"`
}

func NewArtifactResponse(a *render.Artifact) *ArtifactResponse {
	if a == nil {
		return nil
	}
	return &ArtifactResponse{
		Handle:   a.Handle,
		Format:   a.Format,
		Filename: a.Filename,
		Size:     a.Size,
	}
}

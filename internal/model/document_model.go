package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type Document struct {
	Id        uuid.UUID         `gorm:"type:uuid;primaryKey"`
	Title     string            `gorm:"type:varchar(255);not null"`
	Type      string            `gorm:"type:varchar(16);not null"`
	OwnerId   string            `gorm:"type:varchar(64);index"`
	Metadata  datatypes.JSONMap `gorm:"type:jsonb"`
	Sections  []DocumentSection `gorm:"foreignKey:DocumentId;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time         `gorm:"index"`
	UpdatedAt *time.Time
}

func (Document) TableName() string {
	return "documents"
}

type DocumentSection struct {
	Id         uint      `gorm:"primaryKey;autoIncrement"`
	DocumentId uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_document_section_name"`
	Name       string    `gorm:"type:varchar(255);not null;uniqueIndex:idx_document_section_name"`
	Position   int       `gorm:"not null"`
	Content    string    `gorm:"type:text"`
}

func (DocumentSection) TableName() string {
	return "document_sections"
}

package mapper

import (
	"sort"

	"doc-assistant-be/internal/entity"
	"doc-assistant-be/internal/model"

	"gorm.io/datatypes"
)

type DocumentMapper struct{}

func NewDocumentMapper() *DocumentMapper {
	return &DocumentMapper{}
}

func (m *DocumentMapper) ToEntity(d *model.Document) *entity.Document {
	if d == nil {
		return nil
	}

	sections := make([]model.DocumentSection, len(d.Sections))
	copy(sections, d.Sections)
	sort.SliceStable(sections, func(i, j int) bool {
		return sections[i].Position < sections[j].Position
	})

	out := &entity.Document{
		Id:        d.Id,
		Title:     d.Title,
		Type:      d.Type,
		Sections:  make([]entity.Section, 0, len(sections)),
		Metadata:  m.metadataFromJSON(d.Metadata),
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
	out.Metadata.OwnerUserId = d.OwnerId

	for _, s := range sections {
		out.Sections = append(out.Sections, entity.Section{Name: s.Name, Content: s.Content})
	}
	return out
}

func (m *DocumentMapper) ToModel(d *entity.Document) *model.Document {
	if d == nil {
		return nil
	}

	out := &model.Document{
		Id:        d.Id,
		Title:     d.Title,
		Type:      d.Type,
		OwnerId:   d.Metadata.OwnerUserId,
		Metadata:  m.metadataToJSON(d.Metadata),
		Sections:  make([]model.DocumentSection, 0, len(d.Sections)),
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
	for i, s := range d.Sections {
		out.Sections = append(out.Sections, model.DocumentSection{
			DocumentId: d.Id,
			Name:       s.Name,
			Position:   i,
			Content:    s.Content,
		})
	}
	return out
}

func (m *DocumentMapper) ToEntities(docs []*model.Document) []*entity.Document {
	entities := make([]*entity.Document, len(docs))
	for i, d := range docs {
		entities[i] = m.ToEntity(d)
	}
	return entities
}

func (m *DocumentMapper) metadataToJSON(meta entity.DocumentMetadata) datatypes.JSONMap {
	out := datatypes.JSONMap{}
	if meta.OriginalFilename != "" {
		out["original_filename"] = meta.OriginalFilename
	}
	if meta.FileExtension != "" {
		out["file_extension"] = meta.FileExtension
	}
	if meta.FilePath != "" {
		out["file_path"] = meta.FilePath
	}
	if meta.FileSize > 0 {
		out["file_size"] = meta.FileSize
	}
	return out
}

func (m *DocumentMapper) metadataFromJSON(raw datatypes.JSONMap) entity.DocumentMetadata {
	var meta entity.DocumentMetadata
	if raw == nil {
		return meta
	}
	meta.OriginalFilename, _ = raw["original_filename"].(string)
	meta.FileExtension, _ = raw["file_extension"].(string)
	meta.FilePath, _ = raw["file_path"].(string)

	// Numbers come back as float64 after a jsonb round trip.
	switch v := raw["file_size"].(type) {
	case float64:
		meta.FileSize = int64(v)
	case int64:
		meta.FileSize = v
	case int:
		meta.FileSize = int64(v)
	}
	return meta
}

package entity

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type Section struct {
	Name    string
	Content string
}

type DocumentMetadata struct {
	OwnerUserId      string
	OriginalFilename string
	FileExtension    string
	FileSize         int64
	FilePath         string // Stored copy of an ingested file, empty for chat-created documents
}

type Document struct {
	Id        uuid.UUID
	Title     string
	Type      string
	Sections  []Section
	Metadata  DocumentMetadata
	CreatedAt time.Time
	UpdatedAt *time.Time
}

func normalizeSectionName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Section returns the section with the given name (case-insensitive).
func (d *Document) Section(name string) (*Section, bool) {
	key := normalizeSectionName(name)
	for i := range d.Sections {
		if d.Sections[i].Name == key {
			return &d.Sections[i], true
		}
	}
	return nil, false
}

// AppendText adds content to a section, creating it at the end if missing.
// Existing content and new content are separated by a newline.
func (d *Document) AppendText(name, content string) {
	if s, ok := d.Section(name); ok {
		if s.Content == "" {
			s.Content = content
		} else {
			s.Content = s.Content + "\n" + content
		}
		return
	}
	d.Sections = append(d.Sections, Section{Name: normalizeSectionName(name), Content: content})
}

// ReplaceText swaps the first exact, case-sensitive occurrence of oldText.
// It reports false without touching the document when the section or text is missing.
func (d *Document) ReplaceText(name, oldText, newText string) bool {
	s, ok := d.Section(name)
	if !ok || oldText == "" {
		return false
	}
	if !strings.Contains(s.Content, oldText) {
		return false
	}
	s.Content = strings.Replace(s.Content, oldText, newText, 1)
	return true
}

func (d *Document) IsExpired(now time.Time, ttl time.Duration) bool {
	return now.Sub(d.CreatedAt) > ttl
}

// Clone deep-copies the document so stores never leak internal slices.
func (d *Document) Clone() *Document {
	if d == nil {
		return nil
	}
	out := *d
	out.Sections = make([]Section, len(d.Sections))
	copy(out.Sections, d.Sections)
	if d.UpdatedAt != nil {
		t := *d.UpdatedAt
		out.UpdatedAt = &t
	}
	return &out
}

// Package entity turns the captures of a classified utterance into the
// structured values a command needs.
package entity

import (
	"strings"

	"doc-assistant-be/pkg/nlp/intent"
)

// Entity names.
const (
	DocumentTitle = "document_title"
	DocumentType  = "document_type"
	Section       = "section"
	Content       = "content"
	OldText       = "old_text"
	NewText       = "new_text"
	Format        = "format"
)

const (
	FormatDocx = "docx"
	FormatPdf  = "pdf"

	DefaultTitle = "Untitled Document"
)

// SupportedFormats lists the export formats the renderer accepts.
var SupportedFormats = []string{FormatDocx, FormatPdf}

// Entities maps entity name to value.
type Entities map[string]string

// Get returns the value and whether it was set.
func (e Entities) Get(name string) (string, bool) {
	v, ok := e[name]
	return v, ok
}

// GetOr returns the value or fallback when missing or blank.
func (e Entities) GetOr(name, fallback string) string {
	if v, ok := e[name]; ok && v != "" {
		return v
	}
	return fallback
}

type Options struct {
	DefaultDocumentType string
	DefaultSection      string
}

type Extractor struct {
	defaultType    string
	defaultSection string
}

func NewExtractor(opts Options) *Extractor {
	e := &Extractor{
		defaultType:    strings.ToLower(strings.TrimSpace(opts.DefaultDocumentType)),
		defaultSection: strings.ToLower(strings.TrimSpace(opts.DefaultSection)),
	}
	if !IsSupportedFormat(e.defaultType) {
		e.defaultType = FormatDocx
	}
	if e.defaultSection == "" {
		e.defaultSection = "body"
	}
	return e
}

func (e *Extractor) DefaultSection() string {
	return e.defaultSection
}

func (e *Extractor) DefaultDocumentType() string {
	return e.defaultType
}

// Extract applies the per-intent rules. Help and Unknown never carry entities.
func (e *Extractor) Extract(res intent.Result, utterance string) Entities {
	entities := Entities{}

	switch res.Intent {
	case intent.CreateDocument:
		title := DefaultTitle
		if v, ok := res.Group(1); ok && strings.TrimSpace(v) != "" {
			title = strings.TrimSpace(v)
		}
		entities[DocumentTitle] = title

		entities[DocumentType] = e.defaultType
		if strings.Contains(strings.ToLower(utterance), FormatPdf) {
			entities[DocumentType] = FormatPdf
		}

	case intent.AddText:
		entities[Section] = e.sectionFrom(res, 1)
		entities[Content] = contentAfterColon(utterance)

	case intent.EditText:
		if v, ok := res.Group(1); ok && strings.TrimSpace(v) != "" {
			entities[OldText] = strings.TrimSpace(v)
		}
		if v, ok := res.Group(2); ok && strings.TrimSpace(v) != "" {
			entities[NewText] = strings.TrimSpace(v)
		}
		entities[Section] = e.sectionFrom(res, 3)

	case intent.ExportDocument:
		format := e.defaultType
		if v, ok := res.Group(1); ok {
			v = strings.ToLower(strings.TrimSpace(v))
			if IsSupportedFormat(v) {
				format = v
			}
		}
		entities[Format] = format
	}

	return entities
}

func (e *Extractor) sectionFrom(res intent.Result, group int) string {
	if v, ok := res.Group(group); ok {
		if s := NormalizeSection(v); s != "" {
			return s
		}
	}
	return e.defaultSection
}

// NormalizeSection is the canonical form of a section name.
func NormalizeSection(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func IsSupportedFormat(format string) bool {
	for _, f := range SupportedFormats {
		if f == format {
			return true
		}
	}
	return false
}

// contentAfterColon returns the text after the first colon, or the whole
// utterance when there is none.
func contentAfterColon(utterance string) string {
	if idx := strings.Index(utterance, ":"); idx >= 0 {
		return strings.TrimSpace(utterance[idx+1:])
	}
	return strings.TrimSpace(utterance)
}

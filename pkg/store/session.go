package store

import (
	"time"

	"github.com/google/uuid"
)

// DocumentRef is a weak pointer to a document plus its display name.
// The document may already be gone; readers must tolerate a miss.
type DocumentRef struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

// UserContext is the conversational state carried across a user's messages.
type UserContext struct {
	UserID string `json:"user_id"`

	// THE WORKBENCH (document currently being edited)
	CurrentDocumentID uuid.UUID `json:"current_document_id"`

	// Last document the user sent or created, for display.
	LastDocument *DocumentRef `json:"last_document,omitempty"`

	// Free-form fields written by the dispatcher (e.g. last_intent).
	Fields map[string]string `json:"fields,omitempty"`

	LastActivity time.Time `json:"last_activity"`
}

const (
	FieldLastIntent = "last_intent"
	FieldLastFormat = "last_export_format"
)

func NewUserContext(userID string, now time.Time) *UserContext {
	return &UserContext{
		UserID:       userID,
		Fields:       make(map[string]string),
		LastActivity: now,
	}
}

func (c *UserContext) HasActiveDocument() bool {
	return c != nil && c.CurrentDocumentID != uuid.Nil
}

// SetCurrentDocument makes id the active document and remembers its name.
func (c *UserContext) SetCurrentDocument(id uuid.UUID, name string) {
	c.CurrentDocumentID = id
	c.LastDocument = &DocumentRef{ID: id, Name: name}
}

func (c *UserContext) ClearCurrentDocument() {
	c.CurrentDocumentID = uuid.Nil
}

func (c *UserContext) Set(key, value string) {
	if c.Fields == nil {
		c.Fields = make(map[string]string)
	}
	c.Fields[key] = value
}

func (c *UserContext) Get(key string) (string, bool) {
	v, ok := c.Fields[key]
	return v, ok
}

// IsExpired reports whether the context has been idle for longer than ttl.
func (c *UserContext) IsExpired(now time.Time, ttl time.Duration) bool {
	return now.Sub(c.LastActivity) > ttl
}

// Clone returns a deep copy so callers never share state with the store.
func (c *UserContext) Clone() *UserContext {
	if c == nil {
		return nil
	}
	out := *c
	if c.LastDocument != nil {
		ref := *c.LastDocument
		out.LastDocument = &ref
	}
	out.Fields = make(map[string]string, len(c.Fields))
	for k, v := range c.Fields {
		out.Fields[k] = v
	}
	return &out
}

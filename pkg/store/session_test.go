package store

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserContextCurrentDocument(t *testing.T) {
	c := NewUserContext("628123", time.Now())
	assert.False(t, c.HasActiveDocument())

	id := uuid.New()
	c.SetCurrentDocument(id, "Laporan")
	assert.True(t, c.HasActiveDocument())
	require.NotNil(t, c.LastDocument)
	assert.Equal(t, "Laporan", c.LastDocument.Name)

	c.ClearCurrentDocument()
	assert.False(t, c.HasActiveDocument())
	assert.Equal(t, id, c.LastDocument.ID)

	var nilCtx *UserContext
	assert.False(t, nilCtx.HasActiveDocument())
}

func TestUserContextIsExpired(t *testing.T) {
	now := time.Now()
	ttl := time.Hour

	stale := &UserContext{LastActivity: now.Add(-ttl - time.Second)}
	fresh := &UserContext{LastActivity: now}
	edge := &UserContext{LastActivity: now.Add(-ttl)}

	assert.True(t, stale.IsExpired(now, ttl))
	assert.False(t, fresh.IsExpired(now, ttl))
	assert.False(t, edge.IsExpired(now, ttl))
}

func TestUserContextCloneIsDeep(t *testing.T) {
	c := NewUserContext("u", time.Now())
	c.Set(FieldLastIntent, "help")
	c.SetCurrentDocument(uuid.New(), "A")

	cp := c.Clone()
	cp.Set(FieldLastIntent, "add_text")
	cp.LastDocument.Name = "B"

	v, _ := c.Get(FieldLastIntent)
	assert.Equal(t, "help", v)
	assert.Equal(t, "A", c.LastDocument.Name)

	var nilCtx *UserContext
	assert.Nil(t, nilCtx.Clone())
}

package websocket

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"doc-assistant-be/internal/pkg/logger"
	"doc-assistant-be/pkg/render"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func startHub(t *testing.T) (*Hub, context.CancelFunc, <-chan struct{}) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub(nil, logger.NewNopLogger())
	stopped := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(stopped)
	}()
	return hub, cancel, stopped
}

func TestHubDeliversToEveryDevice(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())
	hub, cancel, stopped := startHub(t)

	phone := NewClient(hub, nil, "628")
	laptop := NewClient(hub, nil, "628")
	require.True(t, hub.Register(phone))
	require.True(t, hub.Register(laptop))
	require.Eventually(t, func() bool { return hub.Connected("628") == 2 }, time.Second, 5*time.Millisecond)

	artifact := render.Artifact{Handle: "/srv/exports/abc-laporan.pdf", Filename: "laporan.pdf", Format: "pdf", Size: 42}
	require.NoError(t, hub.Send(context.Background(), "628", artifact))
	for _, c := range []*Client{phone, laptop} {
		raw := <-c.Send
		var notice artifactNotice
		require.NoError(t, json.Unmarshal(raw, &notice))
		assert.Equal(t, "artifact", notice.Type)
		assert.Equal(t, artifactInfo{Filename: "laporan.pdf", Format: "pdf", Size: 42}, notice.Data)
		// Server paths never reach clients.
		assert.NotContains(t, string(raw), "/srv/exports")
		assert.NotContains(t, string(raw), "handle")
	}

	assert.ErrorIs(t, hub.Send(context.Background(), "nobody", render.Artifact{}), ErrNoRecipient)

	hub.Unregister(phone)
	require.Eventually(t, func() bool { return hub.Connected("628") == 1 }, time.Second, 5*time.Millisecond)
	_, open := <-phone.Send
	assert.False(t, open)

	cancel()
	<-stopped
	_, open = <-laptop.Send
	assert.False(t, open)
	assert.False(t, hub.Register(NewClient(hub, nil, "628")))
}

func TestHubDropsSlowClient(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())
	hub, cancel, stopped := startHub(t)
	defer func() {
		cancel()
		<-stopped
	}()

	slow := NewClient(hub, nil, "u1")
	require.True(t, hub.Register(slow))
	require.Eventually(t, func() bool { return hub.Connected("u1") == 1 }, time.Second, 5*time.Millisecond)

	for i := 0; i < cap(slow.Send); i++ {
		slow.Send <- []byte("{}")
	}
	assert.ErrorIs(t, hub.Send(context.Background(), "u1", render.Artifact{}), ErrNoRecipient)
	require.Eventually(t, func() bool { return hub.Connected("u1") == 0 }, time.Second, 5*time.Millisecond)
}

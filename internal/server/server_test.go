package server

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"doc-assistant-be/internal/bootstrap"
	"doc-assistant-be/internal/config"
	"doc-assistant-be/internal/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	cfg := &config.Config{
		App:     config.AppConfig{Port: "0", CorsAllowedOrigins: "*"},
		Storage: config.StorageConfig{Path: t.TempDir(), SessionStore: "memory", DocumentStore: "memory"},
		Lifecycle: config.LifecycleConfig{
			SessionTTL:      time.Hour,
			DocumentTTL:     time.Hour,
			CleanupInterval: time.Minute,
			ExportTimeout:   time.Second,
		},
	}
	c, err := bootstrap.NewContainer(cfg, bootstrap.Options{DisableNats: true, Logger: logger.NewNopLogger()})
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return New(cfg, c)
}

func TestRoutes(t *testing.T) {
	app := newTestServer(t).GetApp()

	cases := []struct {
		method string
		path   string
		want   int
	}{
		{http.MethodGet, "/api/health", http.StatusOK},
		// JWT_SECRET unset disables the admin API.
		{http.MethodGet, "/api/admin/v1/sessions/628", http.StatusServiceUnavailable},
		// Attachments share the token guard.
		{http.MethodPost, "/api/assistant/v1/attachments", http.StatusServiceUnavailable},
		// Websocket route only exists when the channel is enabled.
		{http.MethodGet, "/api/assistant/v1/ws", http.StatusNotFound},
		{http.MethodGet, "/uploads/x", http.StatusNotFound},
	}
	for _, tc := range cases {
		resp, err := app.Test(httptest.NewRequest(tc.method, tc.path, nil), -1)
		require.NoError(t, err)
		assert.Equal(t, tc.want, resp.StatusCode, tc.path)
	}
}

package service

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"doc-assistant-be/internal/pkg/logger"
	"doc-assistant-be/internal/repository/contract"
	"doc-assistant-be/internal/repository/filesystem"
	"doc-assistant-be/internal/repository/memory"
	"doc-assistant-be/pkg/events"
	"doc-assistant-be/pkg/render"

	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type recordingEvents struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recordingEvents) Publish(_ context.Context, e events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *recordingEvents) Types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = e.EventType()
	}
	return out
}

type renderFunc func(ctx context.Context, doc render.Document, format string) (*render.Artifact, error)

func (f renderFunc) Render(ctx context.Context, doc render.Document, format string) (*render.Artifact, error) {
	return f(ctx, doc, format)
}

type recordingPublisher struct {
	mu       sync.Mutex
	payloads [][]byte
	fail     error
}

func (p *recordingPublisher) Publish(_ context.Context, payload []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail != nil {
		return p.fail
	}
	p.payloads = append(p.payloads, payload)
	return nil
}

func (p *recordingPublisher) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.payloads)
}

type testStack struct {
	clock     *fakeClock
	sessions  contract.SessionRepository
	docRepo   contract.DocumentRepository
	files     *filesystem.FileStore
	events    *recordingEvents
	contexts  *contextService
	documents *documentService
}

func newTestStack(t *testing.T, renderer render.Renderer) *testStack {
	t.Helper()
	log := logger.NewNopLogger()
	root := t.TempDir()

	files, err := filesystem.NewFileStore(root, 1<<20, log)
	require.NoError(t, err)

	if renderer == nil {
		r, err := render.NewTextRenderer(t.TempDir(), "pdf", "docx")
		require.NoError(t, err)
		renderer = r
	}

	st := &testStack{
		clock:    newFakeClock(),
		sessions: memory.NewSessionRepository(),
		docRepo:  memory.NewDocumentRepository(),
		files:    files,
		events:   &recordingEvents{},
	}

	st.contexts = NewContextService(st.sessions, log).(*contextService)
	st.contexts.now = st.clock.Now

	st.documents = NewDocumentService(st.docRepo, files, renderer, st.events, log, 200*time.Millisecond).(*documentService)
	st.documents.now = st.clock.Now
	return st
}

// inboxFile drops a file into the file store inbox, where the transport
// would leave a download.
func inboxFile(t *testing.T, files *filesystem.FileStore, name, body string) string {
	t.Helper()
	p := filepath.Join(files.InboxPath(), name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"doc-assistant-be/internal/constant"
	"doc-assistant-be/internal/pkg/logger"
	"doc-assistant-be/pkg/events"

	"golang.org/x/sync/errgroup"
)

var ErrReaperRunning = errors.New("lifecycle reaper already running")

type SweepResult struct {
	SessionsReclaimed  int
	DocumentsReclaimed int
	ArtifactsReclaimed int
}

// IReaperService reclaims idle sessions, old documents and their exports.
type IReaperService interface {
	// Start sweeps once, then on every interval, until ctx is cancelled or
	// Stop is called. It blocks.
	Start(ctx context.Context) error
	// Stop ends a running Start and waits for an in-flight sweep.
	Stop()
	Sweep(ctx context.Context, sessionTTL, documentTTL time.Duration) (SweepResult, error)
}

type reaperService struct {
	contexts    IContextService
	documents   IDocumentService
	events      events.Publisher
	logger      logger.ILogger
	interval    time.Duration
	sessionTTL  time.Duration
	documentTTL time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewReaperService(
	contexts IContextService,
	documents IDocumentService,
	eventPublisher events.Publisher,
	log logger.ILogger,
	interval, sessionTTL, documentTTL time.Duration,
) IReaperService {
	return &reaperService{
		contexts:    contexts,
		documents:   documents,
		events:      eventPublisher,
		logger:      log,
		interval:    interval,
		sessionTTL:  sessionTTL,
		documentTTL: documentTTL,
	}
}

func (r *reaperService) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.cancel != nil {
		r.mu.Unlock()
		return ErrReaperRunning
	}
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	r.cancel, r.done = cancel, done
	r.mu.Unlock()

	defer func() {
		cancel()
		r.mu.Lock()
		r.cancel, r.done = nil, nil
		r.mu.Unlock()
		close(done)
	}()

	r.logger.Info("REAPER", "Lifecycle reaper started", map[string]interface{}{
		"interval":     r.interval.String(),
		"session_ttl":  r.sessionTTL.String(),
		"document_ttl": r.documentTTL.String(),
	})

	r.runSweep(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			r.logger.Info("REAPER", "Lifecycle reaper stopped", nil)
			return nil
		case <-ticker.C:
			r.runSweep(ctx)
		}
	}
}

func (r *reaperService) Stop() {
	r.mu.Lock()
	cancel, done := r.cancel, r.done
	r.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (r *reaperService) runSweep(ctx context.Context) {
	if _, err := r.Sweep(ctx, r.sessionTTL, r.documentTTL); err != nil && ctx.Err() == nil {
		r.logger.Error("REAPER", "Sweep failed", map[string]interface{}{"error": err.Error()})
	}
}

// Sweep runs the session, document and export artifact sweeps concurrently.
// One failing does not stop the others; counts reflect whatever was reclaimed.
// Artifacts share the document TTL.
func (r *reaperService) Sweep(ctx context.Context, sessionTTL, documentTTL time.Duration) (SweepResult, error) {
	var res SweepResult
	var g errgroup.Group

	g.Go(func() error {
		n, err := r.contexts.ReapExpired(ctx, sessionTTL)
		res.SessionsReclaimed = n
		return err
	})
	g.Go(func() error {
		n, err := r.documents.ReapExpired(ctx, documentTTL)
		res.DocumentsReclaimed = n
		return err
	})
	g.Go(func() error {
		n, err := r.documents.ReapArtifacts(ctx, documentTTL)
		res.ArtifactsReclaimed = n
		return err
	})
	err := g.Wait()

	r.logger.Info("REAPER", "Cleanup finished", map[string]interface{}{
		"sessions_reclaimed":  res.SessionsReclaimed,
		"documents_reclaimed": res.DocumentsReclaimed,
		"artifacts_reclaimed": res.ArtifactsReclaimed,
	})

	if r.events != nil && ctx.Err() == nil {
		evt := events.New(constant.EventLifecycleSwept, map[string]interface{}{
			"sessions_reclaimed":  res.SessionsReclaimed,
			"documents_reclaimed": res.DocumentsReclaimed,
			"artifacts_reclaimed": res.ArtifactsReclaimed,
		})
		pubCtx, cancel := context.WithTimeout(ctx, eventPublishTimeout)
		defer cancel()
		if pubErr := r.events.Publish(pubCtx, evt); pubErr != nil {
			r.logger.Warn("REAPER", "Failed to publish sweep event", map[string]interface{}{"error": pubErr.Error()})
		}
	}
	return res, err
}

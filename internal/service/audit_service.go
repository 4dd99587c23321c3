package service

import (
	"context"
	"sync"

	"doc-assistant-be/internal/pkg/logger"
	"doc-assistant-be/pkg/events"
	pktNats "doc-assistant-be/pkg/nats"
)

// EventSubscriber is satisfied by the NATS subscriber.
type EventSubscriber interface {
	Subscribe(ctx context.Context, eventType, durableName string, handler pktNats.EventHandler) error
}

// AuditService writes every lifecycle event to the audit log and keeps
// per-type counters.
type AuditService struct {
	subscriber EventSubscriber
	logger     logger.ILogger

	mu     sync.Mutex
	counts map[string]int
}

func NewAuditService(sub EventSubscriber, log logger.ILogger) *AuditService {
	return &AuditService{
		subscriber: sub,
		logger:     log,
		counts:     make(map[string]int),
	}
}

// Start subscribes to all lifecycle events with a durable consumer.
func (s *AuditService) Start(ctx context.Context) error {
	if err := s.subscriber.Subscribe(ctx, "*", "doc-assistant-audit", s.HandleEvent); err != nil {
		s.logger.Error("AUDIT", "Failed to start audit subscriber", map[string]interface{}{"error": err.Error()})
		return err
	}
	s.logger.Info("AUDIT", "Audit service started", nil)
	return nil
}

func (s *AuditService) HandleEvent(_ context.Context, event events.Event) error {
	s.mu.Lock()
	s.counts[event.EventType()]++
	s.mu.Unlock()

	s.logger.Info("AUDIT", event.EventType(), map[string]interface{}{
		"occurred_at": event.Timestamp(),
		"payload":     event.Payload(),
	})
	return nil
}

// Counts returns a snapshot of events seen per type.
func (s *AuditService) Counts() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]int, len(s.counts))
	for k, v := range s.counts {
		out[k] = v
	}
	return out
}

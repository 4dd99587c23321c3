package delivery

import (
	"context"
	"fmt"
	"os"
	"sync"

	"doc-assistant-be/internal/pkg/logger"
	"doc-assistant-be/pkg/render"
)

// Sender pushes an exported artifact back to the user over the messaging channel.
type Sender interface {
	Send(ctx context.Context, userID string, artifact render.Artifact) error
}

// LogSender records deliveries instead of calling a messaging API.
type LogSender struct {
	logger logger.ILogger
}

func NewLogSender(log logger.ILogger) *LogSender {
	return &LogSender{logger: log}
}

func (s *LogSender) Send(_ context.Context, userID string, artifact render.Artifact) error {
	info, err := os.Stat(artifact.Handle)
	if err != nil {
		return fmt.Errorf("artifact %s unavailable: %w", artifact.Handle, err)
	}
	s.logger.Info("DELIVERY", "Artifact delivered", map[string]interface{}{
		"user_id":  userID,
		"filename": artifact.Filename,
		"format":   artifact.Format,
		"size":     info.Size(),
	})
	return nil
}

type Delivery struct {
	UserID   string
	Artifact render.Artifact
}

// RecordingSender keeps every delivery in memory. Used by the simulator and tests.
type RecordingSender struct {
	mu   sync.Mutex
	sent []Delivery
}

func NewRecordingSender() *RecordingSender {
	return &RecordingSender{}
}

func (s *RecordingSender) Send(_ context.Context, userID string, artifact render.Artifact) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, Delivery{UserID: userID, Artifact: artifact})
	return nil
}

func (s *RecordingSender) Deliveries() []Delivery {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Delivery, len(s.sent))
	copy(out, s.sent)
	return out
}

package delivery

import (
	"context"
	"errors"
	"fmt"

	"doc-assistant-be/internal/pkg/logger"
	"doc-assistant-be/pkg/render"
)

// Channel names one configured delivery route.
type Channel struct {
	Name   string
	Sender Sender
}

// FanoutSender sends through every channel. It fails only when all of them
// fail, so a retry never duplicates a delivery that already succeeded somewhere.
type FanoutSender struct {
	channels []Channel
	logger   logger.ILogger
}

func NewFanoutSender(log logger.ILogger, channels ...Channel) *FanoutSender {
	return &FanoutSender{channels: channels, logger: log}
}

func (s *FanoutSender) Send(ctx context.Context, userID string, artifact render.Artifact) error {
	if len(s.channels) == 0 {
		return errors.New("no delivery channel configured")
	}

	var errs []error
	for _, ch := range s.channels {
		if err := ch.Sender.Send(ctx, userID, artifact); err != nil {
			s.logger.Warn("DELIVERY", "Channel failed", map[string]interface{}{
				"channel": ch.Name,
				"user_id": userID,
				"error":   err.Error(),
			})
			errs = append(errs, fmt.Errorf("%s: %w", ch.Name, err))
		}
	}
	if len(errs) == len(s.channels) {
		return errors.Join(errs...)
	}
	return nil
}

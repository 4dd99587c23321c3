package service

import (
	"context"
	"encoding/json"
	"time"

	"doc-assistant-be/internal/dto"
	"doc-assistant-be/internal/pkg/logger"
	"doc-assistant-be/pkg/delivery"

	"github.com/ThreeDotsLabs/watermill/message"
)

const maxDeliveryAttempts = 3

// IConsumerService hands exported artifacts to the messaging channel.
type IConsumerService interface {
	Consume(ctx context.Context) error
}

type consumerService struct {
	subscriber message.Subscriber
	topicName  string
	sender     delivery.Sender
	logger     logger.ILogger
	retryWait  time.Duration
}

func NewConsumerService(
	subscriber message.Subscriber,
	topicName string,
	sender delivery.Sender,
	log logger.ILogger,
) IConsumerService {
	return &consumerService{
		subscriber: subscriber,
		topicName:  topicName,
		sender:     sender,
		logger:     log,
		retryWait:  500 * time.Millisecond,
	}
}

// Consume subscribes and processes messages in the background until ctx ends.
func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.subscriber.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (cs *consumerService) processMessage(ctx context.Context, msg *message.Message) {
	var payload dto.ExportedArtifactMessage
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		cs.logger.Error("DELIVERY", "Failed to unmarshal export message", map[string]interface{}{"error": err.Error()})
		// Malformed payloads never succeed; ack so they are not redelivered.
		msg.Ack()
		return
	}

	var err error
	for attempt := 1; attempt <= maxDeliveryAttempts; attempt++ {
		if err = cs.sender.Send(ctx, payload.UserId, payload.Artifact); err == nil {
			break
		}
		cs.logger.Warn("DELIVERY", "Artifact delivery failed", map[string]interface{}{
			"user_id":  payload.UserId,
			"filename": payload.Artifact.Filename,
			"attempt":  attempt,
			"error":    err.Error(),
		})
		if attempt == maxDeliveryAttempts {
			break
		}
		select {
		case <-ctx.Done():
			msg.Nack()
			return
		case <-time.After(cs.retryWait):
		}
	}

	if err != nil {
		cs.logger.Error("DELIVERY", "Giving up on artifact delivery", map[string]interface{}{
			"user_id":     payload.UserId,
			"document_id": payload.DocumentId.String(),
		})
	}
	msg.Ack()
}

package service

import (
	"context"
	"encoding/json"
	"log"

	"service-resolver-be/internal/dto"
	"service-resolver-be/internal/pkg/logger"
	"service-resolver-be/pkg/events"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// EventForwarder pushes finished resolutions onto the external bus.
// *nats.Publisher satisfies it; nil disables forwarding.
type EventForwarder interface {
	Publish(ctx context.Context, event events.Event) error
}

type IConsumerService interface {
	Consume(ctx context.Context) error
}

type consumerService struct {
	pubSub      *gochannel.GoChannel
	topicName   string
	auditLogger logger.ILogger
	forwarder   EventForwarder
}

func NewConsumerService(
	pubSub *gochannel.GoChannel,
	topicName string,
	auditLogger logger.ILogger,
	forwarder EventForwarder,
) IConsumerService {
	return &consumerService{
		pubSub:      pubSub,
		topicName:   topicName,
		auditLogger: auditLogger,
		forwarder:   forwarder,
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.pubSub.Subscribe(ctx, cs.topicName)
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
	var payload dto.PublishResolutionMessage
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		log.Printf("[ERROR] Failed to unmarshal resolution message: %v", err)
		msg.Ack() // Ack invalid messages to prevent infinite retry
		return
	}

	if payload.Failed {
		cs.auditLogger.Error("resolution", "resolution failed", map[string]interface{}{
			"session_id": payload.SessionId,
			"query_text": payload.QueryText,
			"reason":     payload.Reason,
		})
		if cs.forwarder != nil {
			event := events.NewResolutionFailedEvent(payload.SessionId, payload.QueryText, payload.Reason)
			if err := cs.forwarder.Publish(ctx, event); err != nil {
				log.Printf("[WARN] Failed to forward failure event: %v", err)
			}
		}
		msg.Ack()
		return
	}

	// Audit trail goes to its own file so the main log stays readable.
	cs.auditLogger.Info("resolution", "resolution completed", map[string]interface{}{
		"session_id":   payload.SessionId,
		"query_text":   payload.QueryText,
		"outcome":      payload.Outcome,
		"service_name": payload.ServiceName,
		"duration_ms":  payload.DurationMs,
		"from_cache":   payload.FromCache,
	})

	if cs.forwarder != nil {
		event := events.NewResolutionCompletedEvent(
			payload.SessionId,
			payload.QueryText,
			payload.Outcome,
			payload.ServiceName,
			payload.DurationMs,
			payload.FromCache,
		)
		if err := cs.forwarder.Publish(ctx, event); err != nil {
			log.Printf("[WARN] Failed to forward resolution event: %v", err)
			// Audit log already has the record, do not retry.
		}
	}

	msg.Ack()
}

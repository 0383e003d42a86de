package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventResolutionCompleted = "RESOLUTION_COMPLETED"
	EventResolutionFailed    = "RESOLUTION_FAILED"
)

// NewResolutionCompletedEvent records the outcome of one resolution turn.
// The outcome string is one of the store.Outcome values.
func NewResolutionCompletedEvent(sessionID, queryText, outcome, serviceName string, durationMs int64, fromCache bool) Event {
	return BaseEvent{
		Type: EventResolutionCompleted,
		Data: map[string]interface{}{
			"event_id":     uuid.NewString(),
			"session_id":   sessionID,
			"query_text":   queryText,
			"outcome":      outcome,
			"service_name": serviceName,
			"duration_ms":  durationMs,
			"from_cache":   fromCache,
		},
		OccurredAt: time.Now(),
	}
}

// NewResolutionFailedEvent records a hard pipeline failure.
func NewResolutionFailedEvent(sessionID, queryText, reason string) Event {
	return BaseEvent{
		Type: EventResolutionFailed,
		Data: map[string]interface{}{
			"event_id":   uuid.NewString(),
			"session_id": sessionID,
			"query_text": queryText,
			"reason":     reason,
		},
		OccurredAt: time.Now(),
	}
}

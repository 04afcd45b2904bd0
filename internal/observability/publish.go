package observability

import "context"

// EventEnvelope wraps every event published on the bus. Payload shape is
// event-specific; the relay fills it with room and identity details.
type EventEnvelope struct {
	EventType string      `json:"event_type"`
	EventName string      `json:"event_name"`
	Payload   interface{} `json:"payload"`
}

// Publisher delivers envelopes to the event bus. The process-wide AMQP
// publisher from internal/rabbitmq satisfies it; the audit emitter shares
// the same broker connection.
type Publisher interface {
	PublishJSON(ctx context.Context, routingKey string, message interface{}, headers map[string]string) error
}

var defaultPublisher Publisher

// SetPublisher installs the process-wide event publisher. A nil publisher
// turns PublishEvent into a no-op.
func SetPublisher(publisher Publisher) {
	defaultPublisher = publisher
}

// PublishEvent sends an envelope through the configured publisher and
// counts failures. Callers treat publishing as fire-and-forget.
func PublishEvent(ctx context.Context, routingKey string, message interface{}, headers map[string]string) error {
	if defaultPublisher == nil {
		return nil
	}

	err := defaultPublisher.PublishJSON(ctx, routingKey, message, headers)
	if err != nil {
		IncAMQPPublishError()
	}
	return err
}

// BuildHeaders assembles correlation headers for published events.
func BuildHeaders(requestID, traceID string) map[string]string {
	headers := map[string]string{}
	if requestID != "" {
		headers["x-request-id"] = requestID
	}
	if traceID != "" {
		headers["trace_id"] = traceID
	}
	return headers
}

package infrastructure

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"dicewager/events"
)

// SourceService identifies this process in every envelope
const SourceService = "dicewager"

// EventEnvelope wraps a domain event for external consumers
type EventEnvelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	Timestamp     time.Time       `json:"timestamp"`
	SourceService string          `json:"source_service"`
	Payload       json.RawMessage `json:"payload"`
}

// NewEventEnvelope serializes event into a freshly identified envelope
func NewEventEnvelope(event events.Event, now time.Time) (*EventEnvelope, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event payload: %w", err)
	}
	return &EventEnvelope{
		EventID:       uuid.NewString(),
		EventType:     string(event.Type()),
		Timestamp:     now.UTC(),
		SourceService: SourceService,
		Payload:       payload,
	}, nil
}

// EventSubject maps a domain event to its NATS subject
func EventSubject(eventType events.EventType) string {
	switch eventType {
	case events.EventTypeBalanceChange:
		return "accounts.balance_changed"
	case events.EventTypeAccountRegistered:
		return "accounts.registered"
	case events.EventTypeWagerCreated:
		return "wagers.created"
	case events.EventTypeWagerJoined:
		return "wagers.joined"
	case events.EventTypeWagerSettled:
		return "wagers.settled"
	case events.EventTypeWagerCancelled:
		return "wagers.cancelled"
	case events.EventTypeTransferFinished:
		return "bridge.transfer_finished"
	default:
		return fmt.Sprintf("unknown.%s", eventType)
	}
}

// AllSubjects returns every subject this service publishes to
func AllSubjects() []string {
	subjects := make([]string, 0, len(events.AllEventTypes))
	for _, eventType := range events.AllEventTypes {
		subjects = append(subjects, EventSubject(eventType))
	}
	return subjects
}

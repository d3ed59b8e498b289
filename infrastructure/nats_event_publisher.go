package infrastructure

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"dicewager/events"
)

// subjectPublisher is the part of NATSClient the publisher needs
type subjectPublisher interface {
	Publish(ctx context.Context, subject string, data []byte) error
	Close() error
}

// NATSEventPublisher sends domain events to NATS subjects
type NATSEventPublisher struct {
	client subjectPublisher
	now    func() time.Time
}

// NewNATSEventPublisher creates a new NATS event publisher
func NewNATSEventPublisher(client subjectPublisher) *NATSEventPublisher {
	return &NATSEventPublisher{client: client, now: time.Now}
}

// Name implements EventSink
func (p *NATSEventPublisher) Name() string {
	return "nats"
}

// Send publishes event to its subject inside an envelope
func (p *NATSEventPublisher) Send(ctx context.Context, event events.Event) error {
	envelope, err := NewEventEnvelope(event, p.now())
	if err != nil {
		return err
	}

	data, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("failed to marshal event envelope: %w", err)
	}

	subject := EventSubject(event.Type())
	if err := p.client.Publish(ctx, subject, data); err != nil {
		return fmt.Errorf("failed to publish event to NATS: %w", err)
	}

	log.WithFields(log.Fields{
		"eventType": event.Type(),
		"eventId":   envelope.EventID,
		"subject":   subject,
	}).Debug("Published event to NATS")
	return nil
}

// Close closes the underlying connection
func (p *NATSEventPublisher) Close() error {
	return p.client.Close()
}

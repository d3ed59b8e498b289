package infrastructure

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"dicewager/config"
	"dicewager/events"
	"dicewager/metrics"
)

// EventSink delivers domain events outside the process
type EventSink interface {
	Name() string
	Send(ctx context.Context, event events.Event) error
	Close() error
}

// EventForwarder relays every committed domain event to an external sink
type EventForwarder struct {
	sink    EventSink
	metrics *metrics.Engine
	timeout time.Duration
}

// NewEventForwarder creates a forwarder for sink
func NewEventForwarder(sink EventSink, m *metrics.Engine) *EventForwarder {
	return &EventForwarder{
		sink:    sink,
		metrics: m,
		timeout: 5 * time.Second,
	}
}

// Register subscribes the forwarder to every event type on bus
func (f *EventForwarder) Register(bus *events.Bus) {
	bus.SubscribeAll(f.Handle)
	log.WithField("sink", f.sink.Name()).Info("Forwarding domain events")
}

// Handle sends one event. Failures are logged, never returned to the emitter.
func (f *EventForwarder) Handle(ctx context.Context, event events.Event) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	err := f.sink.Send(ctx, event)
	f.metrics.EventForwarded(f.sink.Name(), err)
	if err != nil {
		log.WithFields(log.Fields{
			"sink":      f.sink.Name(),
			"eventType": event.Type(),
			"error":     err,
		}).Warn("Failed to forward event")
	}
}

// Close closes the sink
func (f *EventForwarder) Close() error {
	return f.sink.Close()
}

// NewEventSink builds the sink selected by EVENT_SINK, or nil for "none"
func NewEventSink(ctx context.Context, cfg *config.Config) (EventSink, error) {
	switch cfg.EventSink {
	case "nats":
		client := NewNATSClient(cfg.NATSServers)
		if err := client.Connect(ctx); err != nil {
			return nil, err
		}
		if err := client.EnsureStream(AllSubjects()); err != nil {
			client.Close()
			return nil, err
		}
		return NewNATSEventPublisher(client), nil
	case "kafka":
		return NewKafkaEventPublisher(NewKafkaWriter(cfg.KafkaBrokers, cfg.KafkaTopic)), nil
	case "none", "":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown event sink %q", cfg.EventSink)
	}
}

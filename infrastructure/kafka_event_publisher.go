package infrastructure

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"

	"dicewager/events"
)

// messageWriter is the part of kafka.Writer the publisher needs
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// NewKafkaWriter creates a writer for a comma separated broker list
func NewKafkaWriter(brokers string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(strings.Split(brokers, ",")...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
	}
}

// KafkaEventPublisher writes domain events to one Kafka topic
type KafkaEventPublisher struct {
	writer messageWriter
	now    func() time.Time
}

// NewKafkaEventPublisher creates a new Kafka event publisher
func NewKafkaEventPublisher(writer messageWriter) *KafkaEventPublisher {
	return &KafkaEventPublisher{writer: writer, now: time.Now}
}

// Name implements EventSink
func (p *KafkaEventPublisher) Name() string {
	return "kafka"
}

// Send writes event keyed by its event type so one type stays ordered within a partition
func (p *KafkaEventPublisher) Send(ctx context.Context, event events.Event) error {
	envelope, err := NewEventEnvelope(event, p.now())
	if err != nil {
		return err
	}

	data, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("failed to marshal event envelope: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(envelope.EventType),
		Value: data,
		Time:  envelope.Timestamp,
		Headers: []kafka.Header{
			{Key: "event_id", Value: []byte(envelope.EventID)},
			{Key: "source_service", Value: []byte(SourceService)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write event to kafka: %w", err)
	}
	return nil
}

// Close flushes and closes the writer
func (p *KafkaEventPublisher) Close() error {
	return p.writer.Close()
}

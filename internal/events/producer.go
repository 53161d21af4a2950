package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/DeafMist/trend-press/backend/internal/models"
)

// HeaderType names the event kind on every produced message.
const HeaderType = "event_type"

// TypeReportPublished marks events describing a published report.
const TypeReportPublished = "report.published"

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer writes report events to a Kafka topic.
type Producer struct {
	w messageWriter
}

// NewProducer creates a producer for topic on the given brokers.
func NewProducer(brokers []string, topic string) *Producer {
	return &Producer{w: &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		MaxAttempts:            3,
		WriteTimeout:           10 * time.Second,
		AllowAutoTopicCreation: true,
	}}
}

// Publish writes evt as JSON keyed by its ID.
func (p *Producer) Publish(ctx context.Context, evt models.ReportEvent) error {
	value, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal report event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(evt.ID),
		Value: value,
		Headers: []kafka.Header{
			{Key: HeaderType, Value: []byte(TypeReportPublished)},
		},
		Time: evt.PublishedAt,
	}
	if err := p.w.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write report event: %w", err)
	}
	return nil
}

// Close flushes pending messages.
func (p *Producer) Close() error {
	return p.w.Close()
}

// Decode parses a report event produced by Publish.
func Decode(msg kafka.Message) (models.ReportEvent, error) {
	var evt models.ReportEvent
	if err := json.Unmarshal(msg.Value, &evt); err != nil {
		return evt, fmt.Errorf("decode report event: %w", err)
	}
	return evt, nil
}

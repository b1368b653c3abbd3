package infrastructure

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"earnify/events"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// EventEnvelope wraps every published event
type EventEnvelope struct {
	EventID       string          `json:"eventId"`
	EventType     string          `json:"eventType"`
	Timestamp     time.Time       `json:"timestamp"`
	SourceService string          `json:"sourceService"`
	Payload       json.RawMessage `json:"payload"`
}

// MessagePublisher is the transport the event publisher writes to
type MessagePublisher interface {
	Publish(ctx context.Context, subject, msgID string, data []byte) error
}

// PublishObserver is told about every event handed to the transport
type PublishObserver interface {
	RecordEventPublished(ctx context.Context, eventType string, err error)
}

// NATSEventPublisher publishes domain events to NATS and to in-process subscribers
type NATSEventPublisher struct {
	transport     MessagePublisher
	subjectMapper *EventSubjectMapper
	localBus      *events.Bus
	observer      PublishObserver
}

// NewNATSEventPublisher creates a new NATS event publisher. localBus and observer may be nil.
func NewNATSEventPublisher(transport MessagePublisher, subjectMapper *EventSubjectMapper, localBus *events.Bus, observer PublishObserver) *NATSEventPublisher {
	return &NATSEventPublisher{
		transport:     transport,
		subjectMapper: subjectMapper,
		localBus:      localBus,
		observer:      observer,
	}
}

// Publish wraps the event in an envelope and sends it to its subject
func (p *NATSEventPublisher) Publish(event events.Event) error {
	ctx := context.Background()

	if p.localBus != nil {
		p.localBus.Emit(ctx, event)
	}

	subject := p.subjectMapper.MapEventToSubject(event)

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event payload: %w", err)
	}

	envelope := EventEnvelope{
		EventID:       uuid.New().String(),
		EventType:     string(event.Type()),
		Timestamp:     time.Now().UTC(),
		SourceService: clientName,
		Payload:       payload,
	}
	data, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("failed to marshal event envelope: %w", err)
	}

	err = p.transport.Publish(ctx, subject, envelope.EventID, data)
	if p.observer != nil {
		p.observer.RecordEventPublished(ctx, envelope.EventType, err)
	}
	if err != nil {
		return fmt.Errorf("failed to publish event to NATS: %w", err)
	}

	log.WithFields(log.Fields{
		"eventType": event.Type(),
		"eventId":   envelope.EventID,
		"subject":   subject,
	}).Debug("Published event to NATS")
	return nil
}

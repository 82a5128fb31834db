// Package events publishes complaint lifecycle events to Kafka.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"pcrm/api/internal/intelligence"
)

const (
	TypeAnalyzed      = "complaint.analyzed"
	TypeStatusChanged = "complaint.status_changed"
)

// Envelope wraps every published payload.
type Envelope struct {
	ID          string    `json:"id"`
	Type        string    `json:"type"`
	ComplaintID string    `json:"complaintId"`
	TenantID    string    `json:"tenantId"`
	OccurredAt  time.Time `json:"occurredAt"`
	Payload     any       `json:"payload"`
}

type AnalysisEvent struct {
	ComplaintID string              `json:"-"`
	TenantID    string              `json:"-"`
	Result      intelligence.Result `json:"result"`
	Complete    bool                `json:"complete"`
}

type StatusEvent struct {
	ComplaintID string `json:"-"`
	TenantID    string `json:"-"`
	From        string `json:"from"`
	To          string `json:"to"`
	ActorID     string `json:"actorId"`
	ActorRole   string `json:"actorRole"`
	Note        string `json:"note,omitempty"`
}

// Publisher is what the lifecycle service needs from an event sink.
type Publisher interface {
	PublishAnalysis(ctx context.Context, ev AnalysisEvent) error
	PublishStatusChange(ctx context.Context, ev StatusEvent) error
	Close() error
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer sends events to one Kafka topic keyed by complaint ID, so a
// complaint's events stay ordered within a partition.
type Producer struct {
	writer messageWriter
	now    func() time.Time
}

func NewProducer(brokers []string, topic string) *Producer {
	return newProducer(&kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
	})
}

func newProducer(w messageWriter) *Producer {
	return &Producer{writer: w, now: time.Now}
}

func (p *Producer) PublishAnalysis(ctx context.Context, ev AnalysisEvent) error {
	ev.Complete = ev.Result.Complete()
	return p.send(ctx, TypeAnalyzed, ev.ComplaintID, ev.TenantID, ev)
}

func (p *Producer) PublishStatusChange(ctx context.Context, ev StatusEvent) error {
	return p.send(ctx, TypeStatusChanged, ev.ComplaintID, ev.TenantID, ev)
}

func (p *Producer) send(ctx context.Context, eventType, complaintID, tenantID string, payload any) error {
	env := Envelope{
		ID:          uuid.NewString(),
		Type:        eventType,
		ComplaintID: complaintID,
		TenantID:    tenantID,
		OccurredAt:  p.now().UTC(),
		Payload:     payload,
	}
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", eventType, err)
	}

	msg := kafka.Message{
		Key:     []byte(complaintID),
		Value:   data,
		Headers: []kafka.Header{{Key: "type", Value: []byte(eventType)}},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish %s event: %w", eventType, err)
	}

	log.Printf("events: sent %s for complaint %s", eventType, complaintID)
	return nil
}

func (p *Producer) Close() error {
	return p.writer.Close()
}

// Nop discards every event.
type Nop struct{}

func (Nop) PublishAnalysis(context.Context, AnalysisEvent) error  { return nil }
func (Nop) PublishStatusChange(context.Context, StatusEvent) error { return nil }
func (Nop) Close() error                                           { return nil }

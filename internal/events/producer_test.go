package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"pcrm/api/internal/intelligence"
)

type captureWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *captureWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *captureWriter) Close() error {
	w.closed = true
	return nil
}

func TestPublishStatusChangeEnvelope(t *testing.T) {
	w := &captureWriter{}
	p := newProducer(w)
	fixed := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return fixed }

	err := p.PublishStatusChange(context.Background(), StatusEvent{
		ComplaintID: "c1", TenantID: "t1", From: "OPEN", To: "ASSIGNED", ActorID: "u1", ActorRole: "DEPARTMENT_HEAD",
	})
	if err != nil {
		t.Fatalf("PublishStatusChange: %v", err)
	}
	if len(w.msgs) != 1 {
		t.Fatalf("messages = %d, want 1", len(w.msgs))
	}
	msg := w.msgs[0]
	if string(msg.Key) != "c1" {
		t.Fatalf("key = %q, want c1", msg.Key)
	}
	if len(msg.Headers) != 1 || string(msg.Headers[0].Value) != TypeStatusChanged {
		t.Fatalf("headers = %+v", msg.Headers)
	}

	var env struct {
		ID          string    `json:"id"`
		Type        string    `json:"type"`
		ComplaintID string    `json:"complaintId"`
		TenantID    string    `json:"tenantId"`
		OccurredAt  time.Time `json:"occurredAt"`
		Payload     struct {
			From string `json:"from"`
			To   string `json:"to"`
		} `json:"payload"`
	}
	if err := json.Unmarshal(msg.Value, &env); err != nil {
		t.Fatalf("unmarshal envelope: %v", err)
	}
	if _, err := uuid.Parse(env.ID); err != nil {
		t.Fatalf("envelope id %q is not a uuid: %v", env.ID, err)
	}
	if env.Type != TypeStatusChanged || env.ComplaintID != "c1" || env.TenantID != "t1" {
		t.Fatalf("envelope = %+v", env)
	}
	if !env.OccurredAt.Equal(fixed) {
		t.Fatalf("occurredAt = %v, want %v", env.OccurredAt, fixed)
	}
	if env.Payload.From != "OPEN" || env.Payload.To != "ASSIGNED" {
		t.Fatalf("payload = %+v", env.Payload)
	}
}

func TestPublishAnalysisMarksIncomplete(t *testing.T) {
	w := &captureWriter{}
	p := newProducer(w)

	if err := p.PublishAnalysis(context.Background(), AnalysisEvent{ComplaintID: "c1", Result: intelligence.Fallback()}); err != nil {
		t.Fatalf("PublishAnalysis: %v", err)
	}

	var env struct {
		Payload struct {
			Complete bool `json:"complete"`
			Result   struct {
				SuggestedPriority string   `json:"suggestedPriority"`
				SentimentScore    *float64 `json:"sentimentScore"`
			} `json:"result"`
		} `json:"payload"`
	}
	if err := json.Unmarshal(w.msgs[0].Value, &env); err != nil {
		t.Fatalf("unmarshal envelope: %v", err)
	}
	if env.Payload.Complete {
		t.Fatal("fallback analysis should be published as incomplete")
	}
	if env.Payload.Result.SuggestedPriority != "MEDIUM" || env.Payload.Result.SentimentScore != nil {
		t.Fatalf("result = %+v", env.Payload.Result)
	}
}

func TestPublishWrapsWriterError(t *testing.T) {
	boom := errors.New("broker down")
	p := newProducer(&captureWriter{err: boom})
	if err := p.PublishStatusChange(context.Background(), StatusEvent{ComplaintID: "c1"}); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want wrapped broker error", err)
	}
}

func TestCloseClosesWriter(t *testing.T) {
	w := &captureWriter{}
	if err := newProducer(w).Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !w.closed {
		t.Fatal("writer not closed")
	}
}

func TestNopPublisher(t *testing.T) {
	var p Publisher = Nop{}
	if err := p.PublishAnalysis(context.Background(), AnalysisEvent{}); err != nil {
		t.Fatalf("PublishAnalysis: %v", err)
	}
	if err := p.PublishStatusChange(context.Background(), StatusEvent{}); err != nil {
		t.Fatalf("PublishStatusChange: %v", err)
	}
}

// Package events publishes activity records (settled donations, moderation
// actions) for downstream consumers.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	kafka "github.com/segmentio/kafka-go"
)

// DefaultTopic is the activity topic.
const DefaultTopic = "easyhope-activity"

// Kind names an activity.
type Kind string

const (
	DonationSettled Kind = "donation.settled"
	DonationFailed  Kind = "donation.failed"
	ProjectCreated  Kind = "project.created"
	ProjectApproved Kind = "project.approved"
	ProjectRejected Kind = "project.rejected"
	ProjectDeleted  Kind = "project.deleted"
	UserDeleted     Kind = "user.deleted"
	CommentDeleted  Kind = "comment.deleted"
)

// Event is the JSON schema of a published activity.
//
//	{
//	  "id":      "550e8400-e29b-41d4-a716-446655440000",
//	  "kind":    "donation.settled",
//	  "subject": 42,
//	  "actor":   7,
//	  "amount":  250,
//	  "at":      "2025-01-02T15:04:05Z"
//	}
type Event struct {
	ID      string    `json:"id"`
	Kind    Kind      `json:"kind"`
	Subject int64     `json:"subject"`
	Actor   int64     `json:"actor,omitempty"`
	Amount  float64   `json:"amount,omitempty"`
	Note    string    `json:"note,omitempty"`
	At      time.Time `json:"at"`
}

// New stamps an event with an id and the current time.
func New(kind Kind, subject, actor int64) Event {
	return Event{ID: uuid.New().String(), Kind: kind, Subject: subject, Actor: actor, At: time.Now().UTC()}
}

// Publisher delivers events.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

// KafkaPublisher writes events to a Kafka topic keyed by kind.
type KafkaPublisher struct {
	writer *kafka.Writer
}

// NewKafkaPublisher creates a publisher for topic on brokers.
func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	if topic == "" {
		topic = DefaultTopic
	}
	return &KafkaPublisher{writer: &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 50 * time.Millisecond,
	}}
}

// Publish writes e synchronously.
func (p *KafkaPublisher) Publish(ctx context.Context, e Event) error {
	value, err := encode(e)
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, kafka.Message{Key: []byte(e.Kind), Value: value}); err != nil {
		return fmt.Errorf("publish %s: %w", e.Kind, err)
	}
	return nil
}

// Close flushes and closes the writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// LogPublisher records events in the service log. Used when no brokers are
// configured.
type LogPublisher struct {
	log zerolog.Logger
}

// NewLogPublisher creates a log-backed publisher.
func NewLogPublisher(log zerolog.Logger) *LogPublisher {
	return &LogPublisher{log: log.With().Str("component", "events").Logger()}
}

func (p *LogPublisher) Publish(_ context.Context, e Event) error {
	value, err := encode(e)
	if err != nil {
		return err
	}
	p.log.Info().Str("kind", string(e.Kind)).RawJSON("event", value).Msg("activity")
	return nil
}

func (p *LogPublisher) Close() error { return nil }

// Recorder publishes events and logs failures. Callers never
// see publishing errors.
type Recorder struct {
	pub     Publisher
	log     zerolog.Logger
	timeout time.Duration
}

// NewRecorder wraps pub.
func NewRecorder(pub Publisher, log zerolog.Logger) *Recorder {
	return &Recorder{pub: pub, log: log.With().Str("component", "events").Logger(), timeout: 5 * time.Second}
}

// Record publishes e detached from ctx's cancellation.
func (r *Recorder) Record(ctx context.Context, e Event) {
	if r == nil || r.pub == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
	defer cancel()
	if err := r.pub.Publish(ctx, e); err != nil {
		r.log.Warn().Err(err).Str("kind", string(e.Kind)).Int64("subject", e.Subject).Msg("publish event")
	}
}

// Close closes the underlying publisher.
func (r *Recorder) Close() error {
	if r == nil || r.pub == nil {
		return nil
	}
	return r.pub.Close()
}

func encode(e Event) ([]byte, error) {
	value, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("encode event: %w", err)
	}
	return value, nil
}

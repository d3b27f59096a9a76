package events

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

type memPublisher struct {
	events []Event
	err    error
}

func (m *memPublisher) Publish(_ context.Context, e Event) error {
	if m.err != nil {
		return m.err
	}
	m.events = append(m.events, e)
	return nil
}

func (m *memPublisher) Close() error { return nil }

func TestNew(t *testing.T) {
	e := New(ProjectRejected, 42, 1)
	if e.ID == "" || e.At.IsZero() {
		t.Errorf("event not stamped: %+v", e)
	}
	if e.Kind != ProjectRejected || e.Subject != 42 || e.Actor != 1 {
		t.Errorf("event = %+v", e)
	}
}

func TestLogPublisher(t *testing.T) {
	var buf bytes.Buffer
	p := NewLogPublisher(zerolog.New(&buf))
	e := New(DonationSettled, 3, 7)
	e.Amount = 250
	if err := p.Publish(context.Background(), e); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	var line struct {
		Kind  string `json:"kind"`
		Event Event  `json:"event"`
	}
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("decode log line %q: %v", buf.String(), err)
	}
	if line.Kind != "donation.settled" || line.Event.Amount != 250 || line.Event.ID != e.ID {
		t.Errorf("line = %+v", line)
	}
}

func TestRecorderSwallowsFailures(t *testing.T) {
	var buf bytes.Buffer
	mem := &memPublisher{err: errors.New("broker down")}
	r := NewRecorder(mem, zerolog.New(&buf))

	r.Record(context.Background(), New(ProjectDeleted, 9, 1))
	if !strings.Contains(buf.String(), "broker down") {
		t.Errorf("failure not logged: %q", buf.String())
	}

	mem.err = nil
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r.Record(ctx, New(ProjectApproved, 9, 1))
	if len(mem.events) != 1 {
		t.Errorf("cancelled request context dropped the event")
	}
}

func TestNilRecorder(t *testing.T) {
	var r *Recorder
	r.Record(context.Background(), New(UserDeleted, 1, 1))
	if err := r.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}

func TestNewKafkaPublisherDefaultsTopic(t *testing.T) {
	p := NewKafkaPublisher([]string{"localhost:9092"}, "")
	defer p.Close()
	if p.writer.Topic != DefaultTopic {
		t.Errorf("topic = %q, want %q", p.writer.Topic, DefaultTopic)
	}
}

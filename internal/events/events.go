package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

type Publisher interface {
	Publish(ctx context.Context, subject string, data any) error
	Close() error
}

const (
	CallDecided    = "portico.call.decided"
	SweepCompleted = "portico.sweep.completed"
)

type CallDecidedEvent struct {
	UserID      string `json:"user_id,omitempty"`
	Caller      string `json:"caller"`
	Outcome     string `json:"outcome"`
	CheckInID   string `json:"check_in_id,omitempty"`
	DecidedAtMs int64  `json:"decided_at_ms"`
}

type SweepCompletedEvent struct {
	Users        int   `json:"users"`
	Deleted      int   `json:"deleted"`
	Retained     int   `json:"retained"`
	Failures     int   `json:"failures"`
	FinishedAtMs int64 `json:"finished_at_ms"`
}

type NATSPublisher struct {
	conn   *nats.Conn
	logger zerolog.Logger
}

func NewNATSPublisher(url string, logger zerolog.Logger) (*NATSPublisher, error) {
	conn, err := nats.Connect(url, nats.Name("portico-server"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return &NATSPublisher{conn: conn, logger: logger}, nil
}

func (n *NATSPublisher) Publish(ctx context.Context, subject string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}
	n.logger.Debug().Str("subject", subject).RawJSON("data", payload).Msg("publishing event")
	return n.conn.Publish(subject, payload)
}

// Close flushes buffered messages before closing the connection.
func (n *NATSPublisher) Close() error {
	err := n.conn.Drain()
	if err != nil {
		n.conn.Close()
	}
	return err
}

// Nop discards every event.  Used when no broker is configured.
type Nop struct{}

func (Nop) Publish(context.Context, string, any) error { return nil }
func (Nop) Close() error                               { return nil }

// Recorder keeps published events in memory.  Test helper.
type Recorder struct {
	mu     sync.Mutex
	events []Recorded
}

type Recorded struct {
	Subject string
	Data    any
}

func NewRecorder() *Recorder { return &Recorder{} }

func (r *Recorder) Publish(_ context.Context, subject string, data any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, Recorded{Subject: subject, Data: data})
	return nil
}

func (r *Recorder) Close() error { return nil }

// Events returns a copy of the published events.
func (r *Recorder) Events() []Recorded {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Recorded, len(r.events))
	copy(out, r.events)
	return out
}

package events_test

import (
	"context"
	"testing"

	"github.com/BrandonDHaskell/Portico/internal/events"
)

func TestRecorder_KeepsOrder(t *testing.T) {
	r := events.NewRecorder()
	ctx := context.Background()

	_ = r.Publish(ctx, events.CallDecided, events.CallDecidedEvent{Caller: "1"})
	_ = r.Publish(ctx, events.SweepCompleted, events.SweepCompletedEvent{Users: 2})

	got := r.Events()
	if len(got) != 2 {
		t.Fatalf("expected 2 events, got %d", len(got))
	}
	if got[0].Subject != events.CallDecided || got[1].Subject != events.SweepCompleted {
		t.Errorf("unexpected subjects: %q, %q", got[0].Subject, got[1].Subject)
	}
}

func TestNop_DiscardsSilently(t *testing.T) {
	var p events.Publisher = events.Nop{}
	if err := p.Publish(context.Background(), events.CallDecided, nil); err != nil {
		t.Errorf("Nop.Publish: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Errorf("Nop.Close: %v", err)
	}
}

func TestNewNATSPublisher_BadURL(t *testing.T) {
	if _, err := events.NewNATSPublisher("nats://127.0.0.1:1", testLogger()); err == nil {
		t.Error("expected connect error for unreachable server")
	}
}

package authcore

import (
	"context"
	"testing"
	"time"

	"github.com/maximsenn/authcore/internal/audit"
)

func collectEvents(t *testing.T, sink *audit.ChannelSink, want int) []AuditEvent {
	t.Helper()

	events := make([]AuditEvent, 0, want)
	timeout := time.After(2 * time.Second)
	for len(events) < want {
		select {
		case e := <-sink.Events():
			events = append(events, e)
		case <-timeout:
			t.Fatalf("timed out waiting for %d events, got %d", want, len(events))
		}
	}
	return events
}

func TestAuditEventsEmitted(t *testing.T) {
	ctx := context.Background()

	cfg := testConfig()
	cfg.Audit = AuditConfig{Enabled: true, BufferSize: 32}
	sink := audit.NewChannelSink(32)
	e, _ := newTestEngineWithConfig(t, cfg, func(b *Builder) { b.WithAuditSink(sink) })

	registerUser(t, e, "alice@x.com", "pw12345678")
	if _, err := e.Login(ctx, "alice@x.com", "pw12345678"); err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if _, err := e.Login(ctx, "alice@x.com", "wrong-password"); err == nil {
		t.Fatal("expected login failure")
	}

	events := collectEvents(t, sink, 3)

	if events[0].EventType != AuditAccountCreated || !events[0].Success {
		t.Fatalf("unexpected first event: %+v", events[0])
	}
	if events[1].EventType != AuditLogin || !events[1].Success {
		t.Fatalf("unexpected second event: %+v", events[1])
	}
	if events[2].EventType != AuditLogin || events[2].Success || events[2].Error == "" {
		t.Fatalf("unexpected third event: %+v", events[2])
	}
}

func TestAuditClientIPPropagated(t *testing.T) {
	cfg := testConfig()
	cfg.Audit = AuditConfig{Enabled: true, BufferSize: 8}
	sink := audit.NewChannelSink(8)
	e, _ := newTestEngineWithConfig(t, cfg, func(b *Builder) { b.WithAuditSink(sink) })

	ctx := WithClientIP(context.Background(), "203.0.113.7")
	if _, err := e.Register(ctx, RegisterInput{Email: "alice@x.com", Password: "pw12345678"}); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	events := collectEvents(t, sink, 1)
	if events[0].IP != "203.0.113.7" {
		t.Fatalf("expected the client IP on the event, got %q", events[0].IP)
	}
}

func TestAuditDispatcherDropsUnderBackpressure(t *testing.T) {
	slow := &blockingSink{release: make(chan struct{})}
	d := newAuditDispatcher(AuditConfig{Enabled: true, BufferSize: 1, DropIfFull: true}, slow)
	defer func() {
		close(slow.release)
		d.Close()
	}()

	// First event occupies the worker, second fills the buffer, the rest
	// must drop without blocking.
	for i := 0; i < 5; i++ {
		d.Emit(context.Background(), AuditEvent{EventType: AuditLogin})
	}
	if d.Dropped() == 0 {
		t.Fatal("expected dropped events under backpressure")
	}
}

type blockingSink struct {
	release chan struct{}
}

func (s *blockingSink) Emit(_ context.Context, _ AuditEvent) {
	<-s.release
}

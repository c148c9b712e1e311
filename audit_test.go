package jam

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/MrEthical07/jam/errs"
	"github.com/MrEthical07/jam/session"
)

type countingSink struct {
	count atomic.Int64
}

func (s *countingSink) Emit(context.Context, AuditEvent) {
	s.count.Add(1)
}

func (s *countingSink) Count() int64 {
	return s.count.Load()
}

type captureSink struct {
	events chan AuditEvent
}

func newCaptureSink(buffer int) *captureSink {
	if buffer <= 0 {
		buffer = 1
	}
	return &captureSink{
		events: make(chan AuditEvent, buffer),
	}
}

func (s *captureSink) Emit(ctx context.Context, event AuditEvent) {
	select {
	case s.events <- event:
	case <-ctx.Done():
	}
}

type gateSink struct {
	gate chan struct{}
}

func newGateSink() *gateSink {
	return &gateSink{
		gate: make(chan struct{}),
	}
}

func (s *gateSink) Emit(context.Context, AuditEvent) {
	<-s.gate
}

func buildAuditTestInstance(t *testing.T, audit AuditConfig, sink AuditSink) *Instance {
	t.Helper()

	_, rdb := newTestRedis(t)
	inst, err := New().
		WithConfig(Config{
			JWT:     &JWTConfig{Alg: "HS256", Secret: "audit-secret"},
			Session: &SessionConfig{},
			Audit:   audit,
		}).
		WithRedis(rdb).
		WithAuditSink(sink).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(func() { _ = inst.Close() })
	return inst
}

func TestAuditDisabledNoSinkCalls(t *testing.T) {
	sink := &countingSink{}
	inst := buildAuditTestInstance(t, AuditConfig{Enabled: false}, sink)

	_, _ = inst.VerifyJWT(WithClientIP(context.Background(), "203.0.113.1"), "a.b.c", true, true)
	time.Sleep(30 * time.Millisecond)

	if sink.Count() != 0 {
		t.Fatalf("expected no audit sink calls when disabled, got %d", sink.Count())
	}
}

func TestAuditEnabledSinkReceivesEventWithFields(t *testing.T) {
	sink := newCaptureSink(8)
	inst := buildAuditTestInstance(t, AuditConfig{Enabled: true, BufferSize: 16, DropIfFull: true}, sink)

	token, err := inst.CreateJWT(map[string]any{"sub": "alice"})
	if err != nil {
		t.Fatalf("CreateJWT failed: %v", err)
	}
	b := []byte(token)
	if b[len(b)-5] == 'A' {
		b[len(b)-5] = 'B'
	} else {
		b[len(b)-5] = 'A'
	}
	forged := string(b)

	ctx := WithUserAgent(WithClientIP(context.Background(), "198.51.100.33"), "curl/8")
	_, _ = inst.VerifyJWT(ctx, forged, true, true)

	select {
	case ev := <-sink.events:
		if ev.EventType != AuditJWTVerify {
			t.Fatalf("expected %s, got %q", AuditJWTVerify, ev.EventType)
		}
		if ev.Success {
			t.Fatal("expected failed verification event")
		}
		if ev.IP != "198.51.100.33" || ev.UserAgent != "curl/8" {
			t.Fatalf("unexpected request fields %+v", ev)
		}
		if ev.Error != string(auditErrInvalidToken) {
			t.Fatalf("expected %s, got %q", auditErrInvalidToken, ev.Error)
		}
		if strings.Contains(ev.Error, forged) {
			t.Fatal("token leaked in error")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("expected audit event to be received")
	}
}

func TestAuditSessionEventsCarryNoPayload(t *testing.T) {
	sink := newCaptureSink(16)
	inst := buildAuditTestInstance(t, AuditConfig{Enabled: true, BufferSize: 16}, sink)

	ctx := context.Background()
	id, err := inst.SessionCreate(ctx, "u1", map[string]any{"secret": "hunter2"})
	if err != nil {
		t.Fatalf("SessionCreate failed: %v", err)
	}
	if err := inst.SessionDelete(ctx, id); err != nil {
		t.Fatalf("SessionDelete failed: %v", err)
	}
	if err := inst.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	var types []string
	for len(sink.events) > 0 {
		ev := <-sink.events
		types = append(types, ev.EventType)
		for k, v := range ev.Metadata {
			if strings.Contains(k+v, "hunter2") {
				t.Fatal("session data leaked in audit metadata")
			}
		}
	}
	if strings.Join(types, ",") != AuditSessionCreate+","+AuditSessionDelete {
		t.Fatalf("unexpected events %v", types)
	}
}

func TestAuditBufferFullDropIfFullTrueDoesNotBlock(t *testing.T) {
	sink := newGateSink()
	dispatcher := newAuditDispatcher(AuditConfig{
		Enabled:    true,
		BufferSize: 1,
		DropIfFull: true,
	}, sink, slog.New(slog.DiscardHandler))
	defer func() {
		close(sink.gate)
		dispatcher.Close()
	}()

	dispatcher.Emit(context.Background(), AuditEvent{EventType: "e1"})
	dispatcher.Emit(context.Background(), AuditEvent{EventType: "e2"})

	start := time.Now()
	dispatcher.Emit(context.Background(), AuditEvent{EventType: "e3"})
	if time.Since(start) > 100*time.Millisecond {
		t.Fatal("expected non-blocking emit when DropIfFull is true")
	}
	if dispatcher.Dropped() == 0 {
		t.Fatal("expected dropped counter to increment when queue is full")
	}
}

func TestAuditBufferFullDropIfFullFalseBlocksUntilSpace(t *testing.T) {
	sink := newGateSink()
	dispatcher := newAuditDispatcher(AuditConfig{
		Enabled:    true,
		BufferSize: 1,
		DropIfFull: false,
	}, sink, nil)
	defer func() {
		close(sink.gate)
		dispatcher.Close()
	}()

	dispatcher.Emit(context.Background(), AuditEvent{EventType: "e1"})
	dispatcher.Emit(context.Background(), AuditEvent{EventType: "e2"})

	done := make(chan struct{})
	go func() {
		dispatcher.Emit(context.Background(), AuditEvent{EventType: "e3"})
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("expected emit to block while buffer is full")
	case <-time.After(150 * time.Millisecond):
	}

	sink.gate <- struct{}{}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("expected blocked emit to proceed after space is available")
	}
}

func TestAuditDispatcherCloseIdempotentAndEmitAfterCloseSafe(t *testing.T) {
	sink := &countingSink{}
	dispatcher := newAuditDispatcher(AuditConfig{
		Enabled:    true,
		BufferSize: 4,
		DropIfFull: true,
	}, sink, nil)

	dispatcher.Emit(context.Background(), AuditEvent{EventType: "e1"})
	dispatcher.Close()
	dispatcher.Close()
	dispatcher.Emit(context.Background(), AuditEvent{EventType: "e2"})

	if sink.Count() != 1 {
		t.Fatalf("expected the buffered event to be flushed on Close, got %d", sink.Count())
	}
}

func TestAuditJSONWriterSinkWritesJSONLines(t *testing.T) {
	var buf syncBuffer
	sink := NewJSONWriterSink(&buf)
	sink.Emit(context.Background(), AuditEvent{
		Timestamp: time.Now().UTC(),
		EventType: AuditSessionCreate,
		Subject:   "u1",
		IP:        "127.0.0.1",
		Success:   true,
	})

	if !buf.Contains(`"event_type":"session_create"`) {
		t.Fatal("expected JSON log line to contain event type")
	}
	if !buf.Contains(`"subject":"u1"`) {
		t.Fatal("expected JSON log line to contain subject")
	}
	if !buf.Contains("\n") {
		t.Fatal("expected newline terminated record")
	}
}

func TestAuditSlogSinkLevels(t *testing.T) {
	var buf syncBuffer
	sink := NewSlogSink(slog.New(slog.NewTextHandler(&buf, nil)))
	sink.Emit(context.Background(), AuditEvent{EventType: AuditOTPVerify, Success: false, Error: "otp_invalid"})

	if !buf.Contains("level=WARN") || !buf.Contains("error=otp_invalid") {
		t.Fatal("expected failed event logged at warn with error code")
	}
}

func TestAuditErrorCodes(t *testing.T) {
	cases := []struct {
		err  error
		want AuditErrorCode
	}{
		{nil, ""},
		{errs.New(errs.ErrExpired, "jwt.expired", "x"), auditErrExpired},
		{errs.New(errs.ErrListed, "jwt.blacklisted", "x"), auditErrListed},
		{errs.New(errs.ErrVerification, "jwt.invalid_signature", "x"), auditErrInvalidToken},
		{errs.New(errs.ErrAlgorithmMismatch, "jwt.algorithm_mismatch", "x"), auditErrMismatch},
		{errs.Formatf("jwt.format", "x"), auditErrMalformed},
		{session.ErrNotFound, auditErrNotFound},
		{ErrOTPInvalid, auditErrOTPInvalid},
		{ErrOTPRateLimited, auditErrRateLimited},
		{errors.New("boom"), auditErrInternal},
	}
	for _, c := range cases {
		if got := auditErrorCode(c.err); got != c.want {
			t.Fatalf("auditErrorCode(%v) = %q, want %q", c.err, got, c.want)
		}
	}
}

type syncBuffer struct {
	mu  sync.Mutex
	buf []byte
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf = append(b.buf, p...)
	return len(p), nil
}

func (b *syncBuffer) Contains(v string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return strings.Contains(string(b.buf), v)
}

package jam

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/MrEthical07/jam/errs"
	"github.com/MrEthical07/jam/internal/limiter"
	"github.com/MrEthical07/jam/jwt/lists"
	"github.com/MrEthical07/jam/session"
)

// AuditEvent is one security-relevant outcome reported to an AuditSink.
type AuditEvent struct {
	Timestamp time.Time         `json:"timestamp"`
	EventType string            `json:"event_type"`
	Subject   string            `json:"subject,omitempty"`
	SessionID string            `json:"session_id,omitempty"`
	IP        string            `json:"ip,omitempty"`
	UserAgent string            `json:"user_agent,omitempty"`
	Success   bool              `json:"success"`
	Error     string            `json:"error,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

const (
	AuditJWTVerify       = "jwt_verify"
	AuditPASETOVerify    = "paseto_verify"
	AuditSessionCreate   = "session_create"
	AuditSessionGet      = "session_get"
	AuditSessionDelete   = "session_delete"
	AuditSessionRework   = "session_rework"
	AuditSessionClear    = "session_clear"
	AuditOTPVerify       = "otp_verify"
	AuditOAuth2Exchange  = "oauth2_exchange"
	AuditOAuth2Refresh   = "oauth2_refresh"
	AuditOAuth2ClientCrd = "oauth2_client_credentials"
)

// AuditErrorCode is the stable, non-sensitive error label stored in AuditEvent.Error.
type AuditErrorCode string

const (
	auditErrExpired       AuditErrorCode = "expired"
	auditErrListed        AuditErrorCode = "listed"
	auditErrInvalidToken  AuditErrorCode = "invalid_token"
	auditErrMismatch      AuditErrorCode = "algorithm_mismatch"
	auditErrMalformed     AuditErrorCode = "malformed"
	auditErrNotFound      AuditErrorCode = "session_not_found"
	auditErrUnavailable   AuditErrorCode = "backend_unavailable"
	auditErrConfiguration AuditErrorCode = "configuration"
	auditErrOTPInvalid    AuditErrorCode = "otp_invalid"
	auditErrRateLimited   AuditErrorCode = "rate_limited"
	auditErrExchange      AuditErrorCode = "exchange_failed"
	auditErrInternal      AuditErrorCode = "internal_error"
)

// AuditSink receives audit events. Emit must not block for long; the
// dispatcher calls it from a single goroutine.
type AuditSink interface {
	Emit(ctx context.Context, event AuditEvent)
}

// NoOpSink discards every event.
type NoOpSink struct{}

func (NoOpSink) Emit(context.Context, AuditEvent) {}

// ChannelSink forwards events to a buffered channel.
type ChannelSink struct {
	events chan AuditEvent
}

func NewChannelSink(buffer int) *ChannelSink {
	if buffer <= 0 {
		buffer = 1
	}
	return &ChannelSink{
		events: make(chan AuditEvent, buffer),
	}
}

func (s *ChannelSink) Emit(ctx context.Context, event AuditEvent) {
	select {
	case s.events <- event:
	case <-ctx.Done():
	}
}

func (s *ChannelSink) Events() <-chan AuditEvent {
	return s.events
}

// JSONWriterSink writes one JSON object per line.
type JSONWriterSink struct {
	writer io.Writer
	mu     sync.Mutex
}

func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return &JSONWriterSink{
		writer: w,
	}
}

func (s *JSONWriterSink) Emit(ctx context.Context, event AuditEvent) {
	if s == nil || s.writer == nil {
		return
	}
	data, err := json.Marshal(event)
	if err != nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, _ = s.writer.Write(data)
	_, _ = s.writer.Write([]byte("\n"))
}

// SlogSink logs events at Info for successes and Warn for failures.
type SlogSink struct {
	logger *slog.Logger
}

func NewSlogSink(l *slog.Logger) *SlogSink {
	return &SlogSink{logger: l}
}

func (s *SlogSink) Emit(ctx context.Context, event AuditEvent) {
	if s == nil || s.logger == nil {
		return
	}
	level := slog.LevelInfo
	if !event.Success {
		level = slog.LevelWarn
	}
	attrs := []slog.Attr{
		slog.String("event", event.EventType),
		slog.Bool("success", event.Success),
	}
	if event.Subject != "" {
		attrs = append(attrs, slog.String("subject", event.Subject))
	}
	if event.IP != "" {
		attrs = append(attrs, slog.String("ip", event.IP))
	}
	if event.Error != "" {
		attrs = append(attrs, slog.String("error", event.Error))
	}
	for k, v := range event.Metadata {
		attrs = append(attrs, slog.String(k, v))
	}
	s.logger.LogAttrs(ctx, level, "audit", attrs...)
}

func (i *Instance) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	subject string,
	sessionID string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if i == nil || i.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		Timestamp: i.now().UTC(),
		EventType: eventType,
		Subject:   subject,
		SessionID: sessionID,
		IP:        clientIPFromContext(ctx),
		UserAgent: userAgentFromContext(ctx),
		Success:   success,
		Metadata:  metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	i.audit.Emit(ctx, event)
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, errs.ErrExpired):
		return auditErrExpired
	case errors.Is(err, errs.ErrListed):
		if errors.Is(err, lists.ErrUnavailable) {
			return auditErrUnavailable
		}
		return auditErrListed
	case errors.Is(err, errs.ErrVerification):
		return auditErrInvalidToken
	case errors.Is(err, errs.ErrAlgorithmMismatch):
		return auditErrMismatch
	case errors.Is(err, errs.ErrFormat):
		return auditErrMalformed
	case errors.Is(err, session.ErrNotFound):
		return auditErrNotFound
	case errors.Is(err, session.ErrUnavailable):
		return auditErrUnavailable
	case errors.Is(err, errs.ErrConfiguration):
		return auditErrConfiguration
	case errors.Is(err, ErrOTPInvalid):
		return auditErrOTPInvalid
	case errors.Is(err, ErrOTPRateLimited):
		return auditErrRateLimited
	case errors.Is(err, limiter.ErrUnavailable):
		return auditErrUnavailable
	case errors.Is(err, ErrOAuth2Exchange):
		return auditErrExchange
	default:
		return auditErrInternal
	}
}

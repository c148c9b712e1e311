package jam

import (
	"encoding/json"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/MrEthical07/jam/internal/limiter"
	"github.com/MrEthical07/jam/jwt"
	"github.com/MrEthical07/jam/jwt/lists"
	"github.com/MrEthical07/jam/oauth2"
	"github.com/MrEthical07/jam/paseto"
	"github.com/MrEthical07/jam/serializer"
	"github.com/MrEthical07/jam/session"
)

// Instance bundles the configured token codecs, session store, OTP and OAuth2
// helpers behind one object. It is safe for concurrent use after Build.
type Instance struct {
	config     Config
	logger     *slog.Logger
	serializer serializer.Serializer
	now        func() time.Time
	metrics    *Metrics
	audit      *auditDispatcher

	// jwtListed runs the list hook; jwt does not. They are the same codec
	// when no list is configured.
	jwt          *jwt.Codec
	jwtListed    *jwt.Codec
	jwtVerifyKey any
	jwtList      lists.List

	paseto     paseto.Codec
	sessions   *session.Manager
	oauth2     map[string]*oauth2.Client
	otpLimiter *limiter.Limiter

	closers []func() error
}

// Config returns the effective configuration after defaults.
func (i *Instance) Config() Config { return cloneConfig(i.config) }

// Logger returns the logger shared by all modules.
func (i *Instance) Logger() *slog.Logger { return i.logger }

// JWTList returns the configured list, or nil.
func (i *Instance) JWTList() lists.List { return i.jwtList }

// Sessions returns the session store, or nil when sessions are not configured.
func (i *Instance) Sessions() session.Store {
	if i.sessions == nil {
		return nil
	}
	return i.sessions
}

// AuditDropped returns the number of audit events dropped on a full buffer.
func (i *Instance) AuditDropped() uint64 {
	if i == nil || i.audit == nil {
		return 0
	}
	return i.audit.Dropped()
}

// MetricsSnapshot returns a copy of all counters.
func (i *Instance) MetricsSnapshot() MetricsSnapshot {
	if i == nil || i.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return i.metrics.Snapshot()
}

func (i *Instance) metricInc(id MetricID) {
	if i == nil || i.metrics == nil {
		return
	}
	i.metrics.Inc(id)
}

func (i *Instance) observeLatency(start time.Time) {
	if i == nil || !i.metrics.LatencyEnabled() {
		return
	}
	i.metrics.Observe(MetricVerifyLatency, time.Since(start))
}

// MakePayload builds a claim set with iat, exp and jti, then copies data over
// it so callers can override any of them. A zero exp falls back to the JWT
// expire setting, then the PASETO one; when all are zero no exp claim is set.
func (i *Instance) MakePayload(exp time.Duration, data map[string]any) map[string]any {
	if exp == 0 {
		exp = i.defaultExpire()
	}
	now := i.now()
	out := make(map[string]any, len(data)+3)
	out["iat"] = now.Unix()
	if exp > 0 {
		out["exp"] = now.Add(exp).Unix()
	}
	out["jti"] = uuid.NewString()
	for k, v := range data {
		out[k] = v
	}
	return out
}

func (i *Instance) defaultExpire() time.Duration {
	if i.config.JWT != nil && i.config.JWT.Expire > 0 {
		return i.config.JWT.Expire
	}
	if i.config.PASETO != nil && i.config.PASETO.Expire > 0 {
		return i.config.PASETO.Expire
	}
	return 0
}

// expired reports whether payload carries an exp claim at or before now. A
// missing or null exp never expires; a non-numeric one counts as expired.
func (i *Instance) expired(payload map[string]any) bool {
	raw, ok := payload["exp"]
	if !ok || raw == nil {
		return false
	}
	exp, ok := numericClaim(raw)
	if !ok {
		return true
	}
	return float64(i.now().Unix()) >= exp
}

func numericClaim(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, !math.IsNaN(n)
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

func subjectOf(payload map[string]any) string {
	sub, _ := payload["sub"].(string)
	return sub
}

package jam

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/MrEthical07/jam/internal/b64"
	"github.com/MrEthical07/jam/jwt/lists"
	"github.com/MrEthical07/jam/session"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = rdb.Close()
		mr.Close()
	})
	return mr, rdb
}

func newTestInstance(t *testing.T, cfg Config) *Instance {
	t.Helper()

	_, rdb := newTestRedis(t)
	inst, err := New().WithConfig(cfg).WithRedis(rdb).Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(func() { _ = inst.Close() })
	return inst
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestBuildEmptyConfig(t *testing.T) {
	inst, err := New().Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer inst.Close()

	if _, err := inst.CreateJWT(map[string]any{}); !errors.Is(err, ErrModuleNotConfigured) {
		t.Fatalf("expected ErrModuleNotConfigured, got %v", err)
	}
	if _, _, err := inst.VerifyPASETO(context.Background(), "v4.local.x", true); !errors.Is(err, ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	if _, err := inst.SessionCreate(context.Background(), "u", nil); !errors.Is(err, ErrModuleNotConfigured) {
		t.Fatalf("expected ErrModuleNotConfigured, got %v", err)
	}
	if _, err := inst.OTPCode("JBSWY3DPEHPK3PXP", 0); !errors.Is(err, ErrModuleNotConfigured) {
		t.Fatalf("expected ErrModuleNotConfigured, got %v", err)
	}
	if _, err := inst.OAuth2("github"); !errors.Is(err, ErrModuleNotConfigured) {
		t.Fatalf("expected ErrModuleNotConfigured, got %v", err)
	}
}

func TestBuilderSingleUse(t *testing.T) {
	b := New()
	inst, err := b.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer inst.Close()

	if _, err := b.Build(); !errors.Is(err, ErrBuilderUsed) {
		t.Fatalf("expected ErrBuilderUsed, got %v", err)
	}
}

func TestBuildRejectsInvalidConfig(t *testing.T) {
	cases := map[string]Config{
		"jwt alg":        {JWT: &JWTConfig{Alg: "none", Secret: "s"}},
		"jwt key":        {JWT: &JWTConfig{Alg: "HS256"}},
		"paseto version": {PASETO: &PASETOConfig{Version: "v9", Purpose: "local", Key: "k"}},
		"session":        {Session: &SessionConfig{Backend: "memcached"}},
		"otp digest":     {OTP: &OTPConfig{Digest: "MD5"}},
		"list type":      {JWT: &JWTConfig{Alg: "HS256", Secret: "s", List: &JWTListConfig{Type: "grey"}}},
		"redis missing":  {Session: &SessionConfig{Backend: "redis"}},
		"paseto key":     {PASETO: &PASETOConfig{Version: "v4", Purpose: "local", Key: "short"}},
	}
	for name, cfg := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := New().WithConfig(cfg).Build()
			if !errors.Is(err, ErrConfiguration) {
				t.Fatalf("expected configuration error, got %v", err)
			}
		})
	}
}

func TestMakePayload(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	inst, err := New().
		WithConfig(Config{JWT: &JWTConfig{Alg: "HS256", Secret: "s", Expire: time.Hour}}).
		WithClock(fixedClock(now)).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer inst.Close()

	p := inst.MakePayload(0, map[string]any{"sub": "alice", "iat": int64(5)})
	if p["iat"] != int64(5) {
		t.Fatalf("data must override iat, got %v", p["iat"])
	}
	if p["exp"] != now.Add(time.Hour).Unix() {
		t.Fatalf("expected exp from config expire, got %v", p["exp"])
	}
	if jti, _ := p["jti"].(string); len(jti) != 36 {
		t.Fatalf("expected uuid jti, got %v", p["jti"])
	}

	p = inst.MakePayload(time.Minute, nil)
	if p["exp"] != now.Add(time.Minute).Unix() {
		t.Fatalf("expected explicit exp, got %v", p["exp"])
	}
	if p["jti"] == inst.MakePayload(time.Minute, nil)["jti"] {
		t.Fatal("jti must be unique per payload")
	}
}

func TestVerifyJWTExpiry(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	clock := now
	inst, err := New().
		WithConfig(Config{JWT: &JWTConfig{Alg: "HS512", Secret: "secret"}}).
		WithClock(func() time.Time { return clock }).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer inst.Close()

	token, err := inst.CreateJWT(inst.MakePayload(time.Minute, map[string]any{"sub": "bob"}))
	if err != nil {
		t.Fatalf("CreateJWT failed: %v", err)
	}
	payload, err := inst.VerifyJWT(context.Background(), token, true, true)
	if err != nil {
		t.Fatalf("VerifyJWT failed: %v", err)
	}
	if payload["sub"] != "bob" {
		t.Fatalf("unexpected payload %v", payload)
	}

	clock = now.Add(2 * time.Minute)
	if _, err := inst.VerifyJWT(context.Background(), token, true, false); !errors.Is(err, ErrExpired) {
		t.Fatalf("expected ErrExpired, got %v", err)
	}
	if _, err := inst.VerifyJWT(context.Background(), token, false, false); err != nil {
		t.Fatalf("expiry must be skipped when checkExp=false: %v", err)
	}

	noExp, err := inst.CreateJWT(map[string]any{"sub": "bob"})
	if err != nil {
		t.Fatalf("CreateJWT failed: %v", err)
	}
	if _, err := inst.VerifyJWT(context.Background(), noExp, true, false); err != nil {
		t.Fatalf("token without exp must not expire: %v", err)
	}
}

func TestVerifyJWTBlackList(t *testing.T) {
	mr, rdb := newTestRedis(t)
	inst, err := New().
		WithConfig(Config{JWT: &JWTConfig{
			Alg:    "HS256",
			Secret: "secret",
			List:   &JWTListConfig{Type: "black", Prefix: "bl"},
		}}).
		WithRedis(rdb).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer inst.Close()

	ctx := context.Background()
	token, err := inst.CreateJWT(inst.MakePayload(time.Minute, nil))
	if err != nil {
		t.Fatalf("CreateJWT failed: %v", err)
	}
	if _, err := inst.VerifyJWT(ctx, token, true, true); err != nil {
		t.Fatalf("unlisted token rejected: %v", err)
	}
	if err := inst.ListJWT(ctx, token); err != nil {
		t.Fatalf("ListJWT failed: %v", err)
	}
	if !mr.Exists("bl:black:" + token) {
		t.Fatal("expected list entry in redis")
	}
	if _, err := inst.VerifyJWT(ctx, token, true, true); !errors.Is(err, ErrListed) {
		t.Fatalf("expected ErrListed, got %v", err)
	}
	if _, err := inst.VerifyJWT(ctx, token, true, false); err != nil {
		t.Fatalf("checkList=false must skip the list: %v", err)
	}
	if err := inst.UnlistJWT(ctx, token); err != nil {
		t.Fatalf("UnlistJWT failed: %v", err)
	}
	if _, err := inst.VerifyJWT(ctx, token, true, true); err != nil {
		t.Fatalf("unlisted token rejected: %v", err)
	}
}

func TestVerifyJWTWhiteListInjected(t *testing.T) {
	list := lists.NewMemoryList(lists.White, 0)
	inst, err := New().
		WithConfig(Config{JWT: &JWTConfig{Alg: "HS384", Secret: "secret"}}).
		WithJWTList(list).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer inst.Close()

	ctx := context.Background()
	token, _ := inst.CreateJWT(map[string]any{"sub": "x"})
	if _, err := inst.VerifyJWT(ctx, token, true, true); !errors.Is(err, ErrListed) {
		t.Fatalf("expected ErrListed for non-whitelisted token, got %v", err)
	}
	if err := inst.ListJWT(ctx, token); err != nil {
		t.Fatalf("ListJWT failed: %v", err)
	}
	if _, err := inst.VerifyJWT(ctx, token, true, true); err != nil {
		t.Fatalf("whitelisted token rejected: %v", err)
	}
}

func TestPASETORoundTrip(t *testing.T) {
	key := b64.Encode(make([]byte, 32))
	inst := newTestInstance(t, Config{
		PASETO: &PASETOConfig{Version: "v4", Purpose: "local", Key: key, Expire: time.Minute},
	})

	token, err := inst.CreatePASETO(inst.MakePayload(0, map[string]any{"sub": "carol"}), "kid-1")
	if err != nil {
		t.Fatalf("CreatePASETO failed: %v", err)
	}
	if !strings.HasPrefix(token, "v4.local.") {
		t.Fatalf("unexpected token %q", token)
	}
	payload, footer, err := inst.VerifyPASETO(context.Background(), token, true)
	if err != nil {
		t.Fatalf("VerifyPASETO failed: %v", err)
	}
	if payload["sub"] != "carol" || footer != "kid-1" {
		t.Fatalf("unexpected payload %v footer %v", payload, footer)
	}
	if _, _, err := inst.VerifyPASETO(context.Background(), token[:len(token)-12]+"AAAAAAAAAAAA", true); err == nil {
		t.Fatal("tampered token accepted")
	}
}

func TestPASETOExpiry(t *testing.T) {
	clock := time.Unix(1_700_000_000, 0)
	inst, err := New().
		WithConfig(Config{PASETO: &PASETOConfig{Version: "v2", Purpose: "local", Key: b64.Encode(make([]byte, 32))}}).
		WithClock(func() time.Time { return clock }).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer inst.Close()

	token, err := inst.CreatePASETO(inst.MakePayload(time.Second, nil), nil)
	if err != nil {
		t.Fatalf("CreatePASETO failed: %v", err)
	}
	clock = clock.Add(time.Second)
	if _, _, err := inst.VerifyPASETO(context.Background(), token, true); !errors.Is(err, ErrExpired) {
		t.Fatalf("expected ErrExpired, got %v", err)
	}
}

func TestSessionWrappers(t *testing.T) {
	inst := newTestInstance(t, Config{
		Session: &SessionConfig{TTL: time.Minute},
		Metrics: MetricsConfig{Enabled: true},
	})
	ctx := context.Background()

	id, err := inst.SessionCreate(ctx, "user1", map[string]any{"role": "admin"})
	if err != nil {
		t.Fatalf("SessionCreate failed: %v", err)
	}
	data, err := inst.SessionGet(ctx, id)
	if err != nil || data["role"] != "admin" {
		t.Fatalf("SessionGet = %v, %v", data, err)
	}
	if err := inst.SessionUpdate(ctx, id, map[string]any{"role": "user"}); err != nil {
		t.Fatalf("SessionUpdate failed: %v", err)
	}
	next, err := inst.SessionRework(ctx, id)
	if err != nil {
		t.Fatalf("SessionRework failed: %v", err)
	}
	if _, err := inst.SessionGet(ctx, id); !errors.Is(err, session.ErrNotFound) {
		t.Fatalf("old id must be gone, got %v", err)
	}
	if err := inst.SessionClear(ctx, "user1"); err != nil {
		t.Fatalf("SessionClear failed: %v", err)
	}
	if _, err := inst.SessionGet(ctx, next); !errors.Is(err, session.ErrNotFound) {
		t.Fatalf("cleared session must be gone, got %v", err)
	}
	if err := inst.SessionDelete(ctx, next); err != nil {
		t.Fatalf("deleting a missing session must succeed: %v", err)
	}

	snap := inst.MetricsSnapshot()
	if snap.Counters[MetricSessionCreated] != 1 || snap.Counters[MetricSessionMiss] != 2 || snap.Counters[MetricSessionHit] != 1 || snap.Counters[MetricSessionReworked] != 1 {
		t.Fatalf("unexpected session counters %+v", snap.Counters)
	}
}

func TestSessionEncryptedJSONBackend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sessions.json")
	inst, err := New().WithConfig(Config{
		Session: &SessionConfig{
			Backend:       "json",
			Path:          path,
			EncryptionKey: b64.Encode([]byte("0123456789abcdef0123456789abcdef")),
		},
	}).Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer inst.Close()

	ctx := context.Background()
	id, err := inst.SessionCreate(ctx, "u", map[string]any{"a": "b"})
	if err != nil {
		t.Fatalf("SessionCreate failed: %v", err)
	}
	if !strings.HasPrefix(id, session.Marker) {
		t.Fatalf("expected sealed id, got %q", id)
	}
	if data, err := inst.SessionGet(ctx, id); err != nil || data["a"] != "b" {
		t.Fatalf("SessionGet = %v, %v", data, err)
	}
}

func TestOTPTOTP(t *testing.T) {
	const secret = "GEZDGNBVGY3TQOJQGEZDGNBVGY3TQOJQ"
	now := time.Unix(59, 0)
	inst, err := New().
		WithConfig(Config{OTP: &OTPConfig{Digits: 8, Window: 1, Issuer: "jam"}}).
		WithClock(fixedClock(now)).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer inst.Close()

	code, err := inst.OTPCode(secret, 0)
	if err != nil {
		t.Fatalf("OTPCode failed: %v", err)
	}
	if code != "94287082" {
		t.Fatalf("expected RFC 6238 code, got %s", code)
	}
	ctx := context.Background()
	if err := inst.OTPVerify(ctx, secret, code, 0); err != nil {
		t.Fatalf("OTPVerify failed: %v", err)
	}
	if err := inst.OTPVerify(ctx, secret, "00000000", 0); !errors.Is(err, ErrOTPInvalid) {
		t.Fatalf("expected ErrOTPInvalid, got %v", err)
	}
	uri, err := inst.OTPURI(secret, "alice")
	if err != nil {
		t.Fatalf("OTPURI failed: %v", err)
	}
	if !strings.HasPrefix(uri, "otpauth://totp/jam:alice?") {
		t.Fatalf("unexpected uri %q", uri)
	}
}

func TestOTPHOTP(t *testing.T) {
	inst := newTestInstance(t, Config{OTP: &OTPConfig{Type: "hotp", Window: 2}})

	secret, err := OTPSecret(0)
	if err != nil {
		t.Fatalf("OTPSecret failed: %v", err)
	}
	code, err := inst.OTPCode(secret, 7)
	if err != nil {
		t.Fatalf("OTPCode failed: %v", err)
	}
	if err := inst.OTPVerify(context.Background(), secret, code, 5); err != nil {
		t.Fatalf("look-ahead must accept counter 7 from 5: %v", err)
	}
	if err := inst.OTPVerify(context.Background(), secret, code, 8); !errors.Is(err, ErrOTPInvalid) {
		t.Fatalf("expected ErrOTPInvalid, got %v", err)
	}
}

func TestOTPVerifySubjectThrottles(t *testing.T) {
	mr, rdb := newTestRedis(t)
	inst, err := New().
		WithConfig(Config{OTP: &OTPConfig{Type: "hotp", MaxAttempts: 2, Cooldown: time.Minute, Prefix: "otp:"}}).
		WithRedis(rdb).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer inst.Close()

	ctx := context.Background()
	secret, _ := OTPSecret(0)
	code, err := inst.OTPCode(secret, 3)
	if err != nil {
		t.Fatalf("OTPCode failed: %v", err)
	}

	wrong := "000000"
	if code == wrong {
		wrong = "111111"
	}
	for i := 0; i < 2; i++ {
		if err := inst.OTPVerifySubject(ctx, "alice", secret, wrong, 3); !errors.Is(err, ErrOTPInvalid) {
			t.Fatalf("attempt %d: expected ErrOTPInvalid, got %v", i, err)
		}
	}
	if err := inst.OTPVerifySubject(ctx, "alice", secret, code, 3); !errors.Is(err, ErrOTPRateLimited) {
		t.Fatalf("expected ErrOTPRateLimited, got %v", err)
	}
	if err := inst.OTPVerifySubject(ctx, "bob", secret, code, 3); err != nil {
		t.Fatalf("other subjects must not be throttled: %v", err)
	}
	if err := inst.OTPVerify(ctx, secret, code, 3); err != nil {
		t.Fatalf("an empty subject must not be throttled: %v", err)
	}

	mr.FastForward(2 * time.Minute)
	if err := inst.OTPVerifySubject(ctx, "alice", secret, code, 3); err != nil {
		t.Fatalf("expected success after cooldown, got %v", err)
	}
	if mr.Exists("otp:alice") {
		t.Fatal("success must reset the attempt counter")
	}
}

func TestOTPThrottleNeedsRedis(t *testing.T) {
	_, err := New().WithConfig(Config{OTP: &OTPConfig{MaxAttempts: 3}}).Build()
	if !errors.Is(err, ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration without redis, got %v", err)
	}
}

func TestCloseReleasesOwnedRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}
	defer mr.Close()

	inst, err := New().WithConfig(Config{
		Session: &SessionConfig{RedisURL: "redis://" + mr.Addr() + "/0"},
	}).Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if _, err := inst.SessionCreate(context.Background(), "u", nil); err != nil {
		t.Fatalf("SessionCreate failed: %v", err)
	}
	if err := inst.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if _, err := inst.SessionCreate(context.Background(), "u", nil); err == nil {
		t.Fatal("expected error after Close")
	}
}

package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/MrEthical07/jam"
	"github.com/MrEthical07/jam/internal/b64"
)

func newInstance(t *testing.T, cfg jam.Config) *jam.Instance {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	inst, err := jam.New().WithConfig(cfg).WithRedis(rdb).Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(func() {
		_ = inst.Close()
		_ = rdb.Close()
		mr.Close()
	})
	return inst
}

func payloadEcho(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := PayloadFromContext(r.Context())
		if !ok {
			t.Error("payload missing from context")
		}
		sub, _ := p["sub"].(string)
		_, _ = w.Write([]byte(sub))
	})
}

func TestJWTGuardBearerAndCookie(t *testing.T) {
	inst := newInstance(t, jam.Config{JWT: &jam.JWTConfig{Alg: "HS256", Secret: "mw-secret"}})
	token, err := inst.CreateJWT(inst.MakePayload(time.Minute, map[string]any{"sub": "alice"}))
	if err != nil {
		t.Fatalf("CreateJWT failed: %v", err)
	}
	h := JWT(inst)(payloadEcho(t))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || rec.Body.String() != "alice" {
		t.Fatalf("bearer: got %d %q", rec.Code, rec.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: DefaultTokenCookie, Value: token})
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || rec.Body.String() != "alice" {
		t.Fatalf("cookie: got %d %q", rec.Code, rec.Body.String())
	}
}

func TestJWTGuardRejects(t *testing.T) {
	inst := newInstance(t, jam.Config{JWT: &jam.JWTConfig{Alg: "HS256", Secret: "mw-secret"}})
	expired, err := inst.CreateJWT(map[string]any{"sub": "bob", "exp": time.Now().Add(-time.Minute).Unix()})
	if err != nil {
		t.Fatalf("CreateJWT failed: %v", err)
	}
	h := JWT(inst)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Error("handler must not run")
	}))

	cases := map[string]string{
		"missing":     "",
		"no bearer":   expired,
		"garbage":     "Bearer not.a.jwt",
		"expired":     "Bearer " + expired,
		"empty token": "Bearer ",
	}
	for name, header := range cases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if header != "" {
				req.Header.Set("Authorization", header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("expected 401, got %d", rec.Code)
			}
		})
	}
}

func TestJWTGuardWithoutExpiryAndErrorHandler(t *testing.T) {
	inst := newInstance(t, jam.Config{JWT: &jam.JWTConfig{Alg: "HS256", Secret: "mw-secret"}})
	expired, _ := inst.CreateJWT(map[string]any{"sub": "bob", "exp": 1})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+expired)
	JWT(inst, WithoutExpiry())(payloadEcho(t)).ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 with expiry disabled, got %d", rec.Code)
	}

	var got error
	rec = httptest.NewRecorder()
	JWT(inst, WithErrorHandler(func(w http.ResponseWriter, _ *http.Request, err error) {
		got = err
		w.WriteHeader(http.StatusForbidden)
	}))(payloadEcho(t)).ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden || !errors.Is(got, jam.ErrExpired) {
		t.Fatalf("expected custom handler with ErrExpired, got %d %v", rec.Code, got)
	}
}

func TestJWTGuardListCheck(t *testing.T) {
	inst := newInstance(t, jam.Config{JWT: &jam.JWTConfig{
		Alg:    "HS256",
		Secret: "mw-secret",
		List:   &jam.JWTListConfig{Type: "black", Backend: "memory"},
	}})
	token, _ := inst.CreateJWT(map[string]any{"sub": "eve"})
	if err := inst.ListJWT(context.Background(), token); err != nil {
		t.Fatalf("ListJWT failed: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	rec := httptest.NewRecorder()
	JWT(inst)(payloadEcho(t)).ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("list must be skipped by default, got %d", rec.Code)
	}
	rec = httptest.NewRecorder()
	JWT(inst, WithListCheck())(payloadEcho(t)).ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for blacklisted token, got %d", rec.Code)
	}
}

func TestGuardSelectsPASETO(t *testing.T) {
	inst := newInstance(t, jam.Config{
		AuthType: jam.AuthPASETO,
		PASETO:   &jam.PASETOConfig{Version: "v4", Purpose: "local", Key: b64.Encode(make([]byte, 32))},
	})
	token, err := inst.CreatePASETO(map[string]any{"sub": "pat"}, nil)
	if err != nil {
		t.Fatalf("CreatePASETO failed: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	Guard(inst)(payloadEcho(t)).ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || rec.Body.String() != "pat" {
		t.Fatalf("got %d %q", rec.Code, rec.Body.String())
	}
}

func TestSessionGuard(t *testing.T) {
	inst := newInstance(t, jam.Config{Session: &jam.SessionConfig{}})
	id, err := inst.SessionCreate(context.Background(), "user9", map[string]any{"cart": "3"})
	if err != nil {
		t.Fatalf("SessionCreate failed: %v", err)
	}

	h := Session(inst)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s, ok := SessionFromContext(r.Context())
		if !ok || s.ID != id {
			t.Errorf("unexpected session %+v", s)
			return
		}
		_, _ = w.Write([]byte(s.Data["cart"].(string)))
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(DefaultSessionHeader, id)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || rec.Body.String() != "3" {
		t.Fatalf("header: got %d %q", rec.Code, rec.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: DefaultSessionCookie, Value: id})
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("cookie: got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(DefaultSessionHeader, "user9:unknown")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("unknown session: expected 401, got %d", rec.Code)
	}
}

func TestInjectAndNilInstance(t *testing.T) {
	inst := newInstance(t, jam.Config{})
	rec := httptest.NewRecorder()
	Inject(inst)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got, ok := InstanceFromContext(r.Context()); !ok || got != inst {
			t.Error("instance missing from context")
		}
	})).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	rec = httptest.NewRecorder()
	JWT(nil)(payloadEcho(t)).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("nil instance: expected 401, got %d", rec.Code)
	}
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.10:4321"
	if got := clientIP(req); got != "192.0.2.10" {
		t.Fatalf("got %q", got)
	}
	req.RemoteAddr = "bad"
	if got := clientIP(req); got != "bad" {
		t.Fatalf("got %q", got)
	}
}

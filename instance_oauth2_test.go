package jam

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"testing"

	"github.com/MrEthical07/jam/oauth2"
)

func newTokenServer(t *testing.T) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if r.Form.Get("grant_type") == "authorization_code" && r.Form.Get("code") == "bad" {
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "invalid_grant"})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token":  "at-" + r.Form.Get("grant_type"),
			"token_type":    "bearer",
			"refresh_token": "rt",
			"expires_in":    3600,
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestOAuth2Helpers(t *testing.T) {
	srv := newTokenServer(t)
	cfg := Config{
		OAuth2: map[string]oauth2.ProviderConfig{
			"acme": {
				ClientID:     "client",
				ClientSecret: "secret",
				RedirectURL:  "https://app.example/callback",
				AuthURL:      srv.URL + "/auth",
				TokenURL:     srv.URL + "/token",
			},
		},
		Metrics: MetricsConfig{Enabled: true},
	}
	inst, err := New().WithConfig(cfg).WithHTTPClient(srv.Client()).Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer inst.Close()

	ctx := context.Background()

	if got := inst.OAuth2Providers(); !slices.Equal(got, []string{"acme"}) {
		t.Fatalf("unexpected providers %v", got)
	}

	u, err := inst.OAuth2AuthURL("acme", "xyz", nil)
	if err != nil {
		t.Fatalf("OAuth2AuthURL failed: %v", err)
	}
	if !strings.HasPrefix(u, srv.URL+"/auth?") || !strings.Contains(u, "state=xyz") || !strings.Contains(u, "client_id=client") {
		t.Fatalf("unexpected auth url %q", u)
	}

	tok, err := inst.OAuth2Exchange(ctx, "acme", "good")
	if err != nil {
		t.Fatalf("OAuth2Exchange failed: %v", err)
	}
	if tok.AccessToken != "at-authorization_code" {
		t.Fatalf("unexpected access token %q", tok.AccessToken)
	}

	if _, err := inst.OAuth2Exchange(ctx, "acme", "bad"); !errors.Is(err, ErrOAuth2Exchange) {
		t.Fatalf("expected ErrOAuth2Exchange, got %v", err)
	}

	if tok, err := inst.OAuth2Refresh(ctx, "acme", "rt"); err != nil || tok.AccessToken != "at-refresh_token" {
		t.Fatalf("OAuth2Refresh = %v, %v", tok, err)
	}
	if tok, err := inst.OAuth2ClientCredentials(ctx, "acme", "read"); err != nil || tok.AccessToken != "at-client_credentials" {
		t.Fatalf("OAuth2ClientCredentials = %v, %v", tok, err)
	}

	_, err = inst.OAuth2("nope")
	if !errors.Is(err, ErrProviderNotConfigured) || !errors.Is(err, ErrConfiguration) {
		t.Fatalf("expected ErrProviderNotConfigured, got %v", err)
	}

	if got := inst.metrics.Value(MetricOAuth2Success); got != 3 {
		t.Fatalf("expected 3 successes, got %d", got)
	}
	if got := inst.metrics.Value(MetricOAuth2Failure); got != 1 {
		t.Fatalf("expected 1 failure, got %d", got)
	}
}

// Package oauth2 wraps golang.org/x/oauth2 with a registry of builtin
// providers and client-credentials support.
package oauth2

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sort"

	xoauth2 "golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/oauth2/endpoints"

	"github.com/MrEthical07/jam/errs"
)

var (
	// ErrExchange wraps token endpoint failures.
	ErrExchange = errors.New("oauth2 token request failed")
	// ErrEmptyToken is returned when the token endpoint answers without an access token.
	ErrEmptyToken = errors.New("empty response from token endpoint")
)

// Token is the token type returned by every Client call.
type Token = xoauth2.Token

// ProviderConfig holds per-provider client settings. AuthURL and TokenURL
// override the builtin endpoint and are required for custom providers.
type ProviderConfig struct {
	ClientID     string   `yaml:"client_id"`
	ClientSecret string   `yaml:"client_secret"`
	RedirectURL  string   `yaml:"redirect_url"`
	Scopes       []string `yaml:"scopes"`
	AuthURL      string   `yaml:"auth_url"`
	TokenURL     string   `yaml:"token_url"`
}

var builtin = map[string]xoauth2.Endpoint{
	"github": endpoints.GitHub,
	"gitlab": endpoints.GitLab,
	"google": endpoints.Google,
	"yandex": endpoints.Yandex,
}

// Providers lists the builtin provider names.
func Providers() []string {
	names := make([]string, 0, len(builtin))
	for name := range builtin {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the client used for token requests.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.http = c }
}

// WithLogger sets the debug logger.
func WithLogger(l *slog.Logger) Option {
	return func(cl *Client) { cl.logger = l }
}

// Client performs the authorization code and client credentials flows for one
// provider.
type Client struct {
	name   string
	conf   *xoauth2.Config
	http   *http.Client
	logger *slog.Logger
}

// New builds a Client for a builtin provider. Endpoint URLs in cfg override
// the builtin ones.
func New(provider string, cfg ProviderConfig, opts ...Option) (*Client, error) {
	endpoint, ok := builtin[provider]
	if !ok {
		return nil, errs.Configf("oauth2.provider", "unknown oauth2 provider %q", provider)
	}
	if cfg.AuthURL != "" {
		endpoint.AuthURL = cfg.AuthURL
	}
	if cfg.TokenURL != "" {
		endpoint.TokenURL = cfg.TokenURL
	}
	return build(provider, endpoint, cfg, opts)
}

// Custom builds a Client for a provider outside the builtin registry.
func Custom(name string, cfg ProviderConfig, opts ...Option) (*Client, error) {
	if cfg.AuthURL == "" || cfg.TokenURL == "" {
		return nil, errs.Configf("oauth2.endpoint", "custom provider %q needs auth_url and token_url", name)
	}
	return build(name, xoauth2.Endpoint{AuthURL: cfg.AuthURL, TokenURL: cfg.TokenURL}, cfg, opts)
}

// NewClients builds one Client per configured provider. Names outside the
// builtin registry are treated as custom providers.
func NewClients(providers map[string]ProviderConfig, opts ...Option) (map[string]*Client, error) {
	out := make(map[string]*Client, len(providers))
	for name, cfg := range providers {
		var (
			c   *Client
			err error
		)
		if _, ok := builtin[name]; ok {
			c, err = New(name, cfg, opts...)
		} else {
			c, err = Custom(name, cfg, opts...)
		}
		if err != nil {
			return nil, err
		}
		out[name] = c
	}
	return out, nil
}

func build(name string, endpoint xoauth2.Endpoint, cfg ProviderConfig, opts []Option) (*Client, error) {
	if cfg.ClientID == "" {
		return nil, errs.Configf("oauth2.client_id", "provider %q needs a client_id", name)
	}
	c := &Client{
		name: name,
		conf: &xoauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       cfg.Scopes,
			Endpoint:     endpoint,
		},
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Name returns the provider name.
func (c *Client) Name() string { return c.name }

// Config returns a copy of the underlying x/oauth2 configuration.
func (c *Client) Config() xoauth2.Config { return *c.conf }

// AuthorizationURL returns the URL to redirect the user to. extra holds
// additional query parameters as key/value pairs.
func (c *Client) AuthorizationURL(state string, extra map[string]string) string {
	opts := make([]xoauth2.AuthCodeOption, 0, len(extra))
	for k, v := range extra {
		opts = append(opts, xoauth2.SetAuthURLParam(k, v))
	}
	return c.conf.AuthCodeURL(state, opts...)
}

// AuthorizationURLWithPKCE returns an authorization URL carrying an S256 code
// challenge, plus the verifier to pass to FetchTokenWithVerifier.
func (c *Client) AuthorizationURLWithPKCE(state string) (string, string) {
	verifier := xoauth2.GenerateVerifier()
	return c.conf.AuthCodeURL(state, xoauth2.S256ChallengeOption(verifier)), verifier
}

// FetchToken exchanges an authorization code for a token.
func (c *Client) FetchToken(ctx context.Context, code string) (*Token, error) {
	return c.exchange(ctx, code)
}

// FetchTokenWithVerifier exchanges an authorization code obtained with PKCE.
func (c *Client) FetchTokenWithVerifier(ctx context.Context, code, verifier string) (*Token, error) {
	return c.exchange(ctx, code, xoauth2.VerifierOption(verifier))
}

func (c *Client) exchange(ctx context.Context, code string, opts ...xoauth2.AuthCodeOption) (*Token, error) {
	tok, err := c.conf.Exchange(c.context(ctx), code, opts...)
	if err != nil {
		c.logger.Debug("oauth2 code exchange failed", "provider", c.name, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrExchange, err)
	}
	return checkToken(tok)
}

// RefreshToken trades a refresh token for a new access token.
func (c *Client) RefreshToken(ctx context.Context, refreshToken string) (*Token, error) {
	if refreshToken == "" {
		return nil, errs.Configf("oauth2.refresh_token", "refresh token is empty")
	}
	tok, err := c.conf.TokenSource(c.context(ctx), &xoauth2.Token{RefreshToken: refreshToken}).Token()
	if err != nil {
		c.logger.Debug("oauth2 refresh failed", "provider", c.name, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrExchange, err)
	}
	return checkToken(tok)
}

// ClientCredentials runs the client credentials grant. Empty scopes fall back
// to the configured ones.
func (c *Client) ClientCredentials(ctx context.Context, scopes ...string) (*Token, error) {
	if len(scopes) == 0 {
		scopes = c.conf.Scopes
	}
	cc := clientcredentials.Config{
		ClientID:     c.conf.ClientID,
		ClientSecret: c.conf.ClientSecret,
		TokenURL:     c.conf.Endpoint.TokenURL,
		Scopes:       scopes,
		AuthStyle:    c.conf.Endpoint.AuthStyle,
	}
	tok, err := cc.Token(c.context(ctx))
	if err != nil {
		c.logger.Debug("oauth2 client credentials failed", "provider", c.name, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrExchange, err)
	}
	return checkToken(tok)
}

func (c *Client) context(ctx context.Context) context.Context {
	if c.http == nil {
		return ctx
	}
	return context.WithValue(ctx, xoauth2.HTTPClient, c.http)
}

func checkToken(tok *Token) (*Token, error) {
	if tok == nil || tok.AccessToken == "" {
		return nil, ErrEmptyToken
	}
	return tok, nil
}

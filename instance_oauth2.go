package jam

import (
	"context"
	"maps"
	"slices"

	"github.com/MrEthical07/jam/errs"
	"github.com/MrEthical07/jam/oauth2"
)

// OAuth2 returns the client configured for provider.
func (i *Instance) OAuth2(provider string) (*oauth2.Client, error) {
	if len(i.oauth2) == 0 {
		return nil, errModule("oauth2")
	}
	c, ok := i.oauth2[provider]
	if !ok {
		return nil, errs.Wrap(errs.ErrConfiguration, "jam.oauth2_provider", ErrProviderNotConfigured).
			WithDetails("provider", provider)
	}
	return c, nil
}

// OAuth2Providers lists the configured provider names.
func (i *Instance) OAuth2Providers() []string {
	return slices.Sorted(maps.Keys(i.oauth2))
}

// OAuth2AuthURL returns the authorization URL of provider for state.
func (i *Instance) OAuth2AuthURL(provider, state string, extra map[string]string) (string, error) {
	c, err := i.OAuth2(provider)
	if err != nil {
		return "", err
	}
	return c.AuthorizationURL(state, extra), nil
}

// OAuth2Exchange trades an authorization code for a token.
func (i *Instance) OAuth2Exchange(ctx context.Context, provider, code string) (*oauth2.Token, error) {
	c, err := i.OAuth2(provider)
	if err != nil {
		return nil, err
	}
	tok, err := c.FetchToken(ctx, code)
	i.recordOAuth2(ctx, AuditOAuth2Exchange, provider, err)
	return tok, err
}

// OAuth2Refresh trades a refresh token for a new token.
func (i *Instance) OAuth2Refresh(ctx context.Context, provider, refreshToken string) (*oauth2.Token, error) {
	c, err := i.OAuth2(provider)
	if err != nil {
		return nil, err
	}
	tok, err := c.RefreshToken(ctx, refreshToken)
	i.recordOAuth2(ctx, AuditOAuth2Refresh, provider, err)
	return tok, err
}

// OAuth2ClientCredentials runs the client credentials grant for provider.
func (i *Instance) OAuth2ClientCredentials(ctx context.Context, provider string, scopes ...string) (*oauth2.Token, error) {
	c, err := i.OAuth2(provider)
	if err != nil {
		return nil, err
	}
	tok, err := c.ClientCredentials(ctx, scopes...)
	i.recordOAuth2(ctx, AuditOAuth2ClientCrd, provider, err)
	return tok, err
}

func (i *Instance) recordOAuth2(ctx context.Context, event, provider string, err error) {
	if err != nil {
		i.metricInc(MetricOAuth2Failure)
	} else {
		i.metricInc(MetricOAuth2Success)
	}
	i.emitAudit(ctx, event, err == nil, "", "", err, func() map[string]string {
		return map[string]string{"provider": provider}
	})
}

// Package oidc implements a generic discovery-based OpenID Connect
// provider. It verifies the id_token instead of calling a userinfo
// endpoint, so no admission policy applies here.
package oidc

import (
	"context"
	"errors"
	"fmt"

	gooidc "github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"

	"github.com/ttys3/gitea-sso/internal/auth"
	"github.com/ttys3/gitea-sso/internal/auth/pipeline"
	"github.com/ttys3/gitea-sso/internal/logger"
)

const providerName = "oidc"

type Provider struct {
	issuer      string
	oauthConfig *oauth2.Config
	verifier    *gooidc.IDTokenVerifier
}

// New initializes the provider using OIDC discovery on the issuer.
func New(
	ctx context.Context,
	issuer string,
	clientID string,
	clientSecret string,
	redirectURL string,
) (*Provider, error) {

	if issuer == "" || clientID == "" || redirectURL == "" {
		return nil, errors.New("oidc provider config missing required fields")
	}

	oidcProvider, err := gooidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("failed to init oidc provider: %w", err)
	}

	verifier := oidcProvider.Verifier(&gooidc.Config{
		ClientID: clientID,
	})

	oauthCfg := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		Endpoint:     oidcProvider.Endpoint(),
		Scopes: []string{
			gooidc.ScopeOpenID,
			"profile",
			"email",
		},
	}

	return &Provider{
		issuer:      issuer,
		oauthConfig: oauthCfg,
		verifier:    verifier,
	}, nil
}

// Name returns the provider identifier used by the registry.
func (p *Provider) Name() string {
	return providerName
}

// AuthCodeURL builds the OAuth authorization URL.
func (p *Provider) AuthCodeURL(state string) string {
	return p.oauthConfig.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

// Pipeline returns the callback stages. The userinfo facts come from
// the verified id_token claims, so fetch and exchange collapse into
// one stage.
func (p *Provider) Pipeline() []pipeline.Stage {
	return []pipeline.Stage{
		p.exchangeAndVerify,
		p.buildIdentity,
	}
}

const errInvalidResponse = "Unable to verify your identity with the OIDC provider. Please check the log."

func (p *Provider) exchangeAndVerify(ctx context.Context, st *pipeline.State) pipeline.Result {
	token, err := p.oauthConfig.Exchange(ctx, st.Code)
	if err != nil {
		logger.Error("oidc token exchange failed", map[string]any{
			"error": err.Error(),
		})
		return pipeline.Fail(errInvalidResponse)
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		logger.Error("oidc provider did not return id_token", nil)
		return pipeline.Fail(errInvalidResponse)
	}

	idToken, err := p.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		logger.Error("oidc id_token verification failed", map[string]any{
			"error": err.Error(),
		})
		return pipeline.Fail(errInvalidResponse)
	}

	var claims struct {
		Subject           string `json:"sub"`
		Email             string `json:"email"`
		EmailVerified     bool   `json:"email_verified"`
		Name              string `json:"name"`
		PreferredUsername string `json:"preferred_username"`
	}
	if err := idToken.Claims(&claims); err != nil {
		logger.Error("oidc id_token claims parse failed", map[string]any{
			"error": err.Error(),
		})
		return pipeline.Fail(errInvalidResponse)
	}

	if claims.Subject == "" || claims.Email == "" {
		logger.Error("oidc id_token missing required claims", map[string]any{
			"subject_present": claims.Subject != "",
			"email_present":   claims.Email != "",
		})
		return pipeline.Fail(errInvalidResponse)
	}

	st.Token = token
	st.User = &pipeline.UserInfo{
		Sub:               claims.Subject,
		Email:             claims.Email,
		Name:              claims.Name,
		PreferredUsername: claims.PreferredUsername,
	}
	// EmailVerified from the claim is intentionally not forwarded to
	// the identity; see buildIdentity.
	return pipeline.Continue()
}

func (p *Provider) buildIdentity(_ context.Context, st *pipeline.State) pipeline.Result {
	user := st.User

	nickname := user.Name
	if nickname == "" {
		nickname = user.PreferredUsername
	}
	if nickname == "" {
		nickname = user.Email
	}

	st.Identity = &auth.Identity{
		Provider:      providerName,
		ID:            user.Sub,
		LegacyID:      user.Email,
		Email:         user.Email,
		Name:          nickname,
		EmailVerified: false,
		Data: auth.TokenData{
			AccessToken:  st.Token.AccessToken,
			RefreshToken: st.Token.RefreshToken,
			TokenType:    st.Token.TokenType,
			Expiry:       st.Token.Expiry,
		},
	}
	return pipeline.Continue()
}

// PublicConfig exposes the issuer for the providers listing.
func (p *Provider) PublicConfig() map[string]any {
	return map[string]any{
		"issuer": p.issuer,
	}
}

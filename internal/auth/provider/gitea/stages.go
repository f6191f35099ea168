package gitea

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"golang.org/x/oauth2"

	"github.com/ttys3/gitea-sso/internal/auth"
	"github.com/ttys3/gitea-sso/internal/auth/admission"
	"github.com/ttys3/gitea-sso/internal/auth/pipeline"
	"github.com/ttys3/gitea-sso/internal/logger"
)

// exchange trades the authorization code for an access token and
// binds it into the pipeline state.
func (p *Provider) exchange(ctx context.Context, st *pipeline.State) pipeline.Result {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.http)

	token, err := p.oauthConfig().Exchange(ctx, st.Code)
	if err != nil {
		logger.Error("gitea token exchange failed", map[string]any{
			"error": err.Error(),
		})
		return pipeline.Fail(errInvalidResponse)
	}

	st.Token = token
	return pipeline.Continue()
}

// fetchUser performs the authenticated userinfo request, validates
// the payload shape and runs the admission policy. Payload contents
// are logged only on failure and only server-side.
func (p *Provider) fetchUser(ctx context.Context, st *pipeline.State) pipeline.Result {
	userinfoURL := p.baseURL() + UserInfoEndpoint

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, userinfoURL, nil)
	if err != nil {
		logger.Error("unable to build userinfo request", map[string]any{
			"url":   userinfoURL,
			"error": err.Error(),
		})
		return pipeline.Fail(errInvalidResponse)
	}
	req.Header.Set("Authorization", "token "+st.Token.AccessToken)

	resp, err := p.http.Do(req)
	if err != nil {
		// Connection, timeout and TLS failures all land here; the
		// user sees the generic message either way.
		logger.Error("unable to fetch user info", map[string]any{
			"url":   userinfoURL,
			"error": err.Error(),
		})
		return pipeline.Fail(errInvalidResponse)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		logger.Error("unable to fetch user info, invalid status code", map[string]any{
			"url":    userinfoURL,
			"status": resp.StatusCode,
		})
		return pipeline.Fail(errInvalidResponse)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		logger.Error("unable to read userinfo response", map[string]any{
			"error": err.Error(),
		})
		return pipeline.Fail(errInvalidResponse)
	}

	var payload pipeline.UserInfo
	if err := json.Unmarshal(body, &payload); err != nil {
		logger.Error("unable to decode userinfo payload", map[string]any{
			"error": err.Error(),
		})
		return pipeline.Fail(errInvalidResponse)
	}

	if missing := payload.MissingFields(p.requireUsername()); len(missing) > 0 {
		logger.Error("userinfo payload missing required fields", map[string]any{
			"missing": missing,
			"payload": string(body),
		})
		return pipeline.Fail(errInvalidResponse)
	}

	if err := p.admissionPolicy().Admit(payload.Email, payload.Groups); err != nil {
		var denied *admission.DeniedError
		if errors.As(err, &denied) {
			logger.Warn("user rejected by admission policy", map[string]any{
				"email":  payload.Email,
				"groups": payload.Groups,
			})
			return pipeline.Fail(fmt.Sprintf(errInvalidOrganization, denied.Detail()))
		}
		logger.Error("admission policy failed", map[string]any{
			"error": err.Error(),
		})
		return pipeline.Fail(errInvalidResponse)
	}

	st.User = &payload
	return pipeline.Continue()
}

// buildIdentity maps the validated payload onto the canonical
// identity. Pure: no I/O, no clock.
func (p *Provider) buildIdentity(_ context.Context, st *pipeline.State) pipeline.Result {
	st.Identity = BuildIdentity(st.User, st.Token)
	return pipeline.Continue()
}

// BuildIdentity constructs the canonical identity from a validated
// userinfo payload and the raw token material. The nickname falls
// back name -> preferred_username -> email, first non-empty wins.
// The email is kept as legacy id so accounts created before the
// subject id existed can be upgraded in place by the resolver.
// Gitea's userinfo response carries no verification flag, so
// EmailVerified is always false.
func BuildIdentity(user *pipeline.UserInfo, token *oauth2.Token) *auth.Identity {
	nickname := user.Name
	if nickname == "" {
		nickname = user.PreferredUsername
	}
	if nickname == "" {
		nickname = user.Email
	}

	return &auth.Identity{
		Provider:      providerName,
		ID:            user.Sub,
		LegacyID:      user.Email,
		Email:         user.Email,
		Name:          nickname,
		EmailVerified: false,
		Data: auth.TokenData{
			AccessToken:  token.AccessToken,
			RefreshToken: token.RefreshToken,
			TokenType:    token.TokenType,
			Expiry:       token.Expiry,
		},
	}
}

// Package gitea authenticates users against a Gitea instance via its
// OAuth2 provider endpoints. Unlike discovery-based providers it
// reads its userinfo from the plain HTTP endpoint with a token
// Authorization header, then applies the configured admission policy
// before any identity is built.
package gitea

import (
	"crypto/tls"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/ttys3/gitea-sso/internal/auth/admission"
	"github.com/ttys3/gitea-sso/internal/auth/pipeline"
	"github.com/ttys3/gitea-sso/internal/config"
)

const providerName = "gitea"

type Provider struct {
	opts        config.Options
	redirectURL string
	http        *http.Client
}

// New builds the Gitea provider. opts is consulted on every request,
// so base URL, client credentials and the admission configuration can
// change without a restart.
func New(opts config.Options, redirectURL string) *Provider {
	return &Provider{
		opts:        opts,
		redirectURL: redirectURL,
		http:        newHTTPClient(),
	}
}

func newHTTPClient() *http.Client {
	c := &http.Client{Timeout: 10 * time.Second}
	if v := os.Getenv(EnvSkipTLSVerify); v == "1" || strings.EqualFold(v, "true") {
		c.Transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true}, // #nosec G402 operator escape hatch
		}
	}
	return c
}

// Name returns the provider identifier used by the registry.
func (p *Provider) Name() string {
	return providerName
}

func (p *Provider) baseURL() string {
	return strings.TrimRight(p.opts.Get(OptionBaseURL), "/")
}

func (p *Provider) oauthConfig() *oauth2.Config {
	base := p.baseURL()
	return &oauth2.Config{
		ClientID:     p.opts.Get(OptionClientID),
		ClientSecret: p.opts.Get(OptionClientSecret),
		RedirectURL:  p.redirectURL,
		Scopes:       []string{Scope},
		Endpoint: oauth2.Endpoint{
			AuthURL:  base + AuthorizeEndpoint,
			TokenURL: base + AccessTokenEndpoint,
		},
	}
}

// AuthCodeURL builds the authorization URL. approval_prompt=force
// makes Gitea re-display the consent screen on every login so a
// fresh refresh token is issued, and access_type=offline requests a
// long-lived refresh token.
func (p *Provider) AuthCodeURL(state string) string {
	return p.oauthConfig().AuthCodeURL(
		state,
		oauth2.SetAuthURLParam("approval_prompt", "force"),
		oauth2.AccessTypeOffline,
	)
}

// Pipeline returns the callback stages in their fixed order.
func (p *Provider) Pipeline() []pipeline.Stage {
	return []pipeline.Stage{
		p.exchange,
		p.fetchUser,
		p.buildIdentity,
	}
}

func (p *Provider) requireUsername() bool {
	v := p.opts.Get(OptionRequireUsername)
	return !(v == "false" || v == "0")
}

func (p *Provider) admissionPolicy() admission.Policy {
	if p.opts.Get(OptionAdmissionPolicy) == "domain" {
		return admission.NewDomainBlocklist(
			admission.SplitList(p.opts.Get(OptionBlockedDomains)),
		)
	}
	return admission.NewOrganizationAllowlist(p.allowedOrganizations())
}

func (p *Provider) allowedOrganizations() []string {
	return admission.SplitList(p.opts.Get(OptionAllowedOrganizations))
}

// PublicConfig is rendered by the providers listing and the config
// diagnostic endpoint. Empty allowlists show an explicit sentinel so
// an operator can tell "open on purpose" from "forgot to configure".
func (p *Provider) PublicConfig() map[string]any {
	orgs := p.allowedOrganizations()
	var allowed any = orgs
	if len(orgs) == 0 {
		allowed = "allow any organization (allowlist is empty)"
	}
	return map[string]any{
		"base_url":              p.baseURL(),
		"admission_policy":      p.admissionPolicyName(),
		"allowed_organizations": allowed,
		"version":               DataVersion,
	}
}

func (p *Provider) admissionPolicyName() string {
	if p.opts.Get(OptionAdmissionPolicy) == "domain" {
		return "domain"
	}
	return "organization"
}

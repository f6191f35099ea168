package provider

import (
	"github.com/ttys3/gitea-sso/internal/auth/pipeline"
)

// OAuthProvider defines the contract every external auth provider
// must implement. Implementations produce identity facts only and
// must not perform user creation, linking, or session management.
type OAuthProvider interface {
	// Name returns the provider identifier (e.g. "gitea", "oidc").
	Name() string

	// AuthCodeURL returns the full OAuth authorization URL for the
	// given anti-forgery state token.
	AuthCodeURL(state string) string

	// Pipeline returns the ordered stages run on callback. The last
	// stage binds State.Identity.
	Pipeline() []pipeline.Stage

	// PublicConfig returns the provider's operator-visible
	// configuration for the providers listing and the config
	// diagnostic endpoint. Secrets must never appear here.
	PublicConfig() map[string]any
}

package config

import (
	"os"
	"strings"
)

// Config holds the process-level settings resolved once at startup.
// Provider settings that must support live reconfiguration are not
// here; those go through Options instead.
type Config struct {
	AppPort string

	// PublicBaseURL is the externally visible URL prefix of this
	// service, e.g. https://sso.example.com. Used to build OAuth
	// redirect URLs and shown on the config diagnostic endpoint.
	PublicBaseURL string

	RedisAddr     string
	RedisPassword string

	DatabaseDSN string

	// Optional generic OIDC provider. Registered only when
	// OIDCIssuer is non-empty.
	OIDCIssuer       string
	OIDCClientID     string
	OIDCClientSecret string
}

func Load() Config {
	cfg := Config{
		AppPort:       os.Getenv("APP_PORT"),
		PublicBaseURL: strings.TrimRight(os.Getenv("PUBLIC_BASE_URL"), "/"),

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),

		DatabaseDSN: os.Getenv("DATABASE_DSN"),

		OIDCIssuer:       os.Getenv("OIDC_ISSUER"),
		OIDCClientID:     os.Getenv("OIDC_CLIENT_ID"),
		OIDCClientSecret: os.Getenv("OIDC_CLIENT_SECRET"),
	}

	if cfg.AppPort == "" {
		cfg.AppPort = "8080"
	}

	return cfg
}

// RedirectURL builds the callback URL for the named provider.
func (c Config) RedirectURL(provider string) string {
	return c.PublicBaseURL + "/oauth/callback/" + provider
}

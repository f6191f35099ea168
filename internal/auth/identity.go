package auth

import "time"

// Identity represents a normalized external authentication identity
// returned by an OAuth provider. It contains facts only, no decisions.
type Identity struct {
	Provider string // e.g. "gitea", "oidc"

	// ID is the provider-stable subject identifier ("sub").
	ID string

	// LegacyID is the identifier accounts created by an earlier
	// generation of this integration were keyed by (the email
	// address). The resolver matches on it once and rewrites the
	// stored identifier to ID.
	LegacyID string

	Email string

	// Name is the resolved nickname: display name, else
	// preferred_username, else email.
	Name string

	// EmailVerified is whether the provider asserts email ownership.
	// Providers whose userinfo response carries no verification flag
	// must report false here.
	EmailVerified bool

	// Data opaquely carries the OAuth token material for later
	// refresh use. The pipeline never inspects it after binding.
	Data TokenData
}

// TokenData is the serializable OAuth token blob attached to an
// identity.
type TokenData struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	TokenType    string    `json:"token_type,omitempty"`
	Expiry       time.Time `json:"expiry,omitempty"`
}

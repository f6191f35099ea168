package session

import (
	"context"
	"time"
)

// Session represents an authenticated user session. It stores only
// identity pointers, not auth state.
type Session struct {
	SessionID string    `json:"session_id"`
	UserID    string    `json:"user_id"`
	Provider  string    `json:"provider,omitempty"` // which provider authenticated this session
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Store defines how sessions are stored and retrieved.
// Implementations must remain stateless and opaque.
type Store interface {
	Create(ctx context.Context, s Session) error
	Get(ctx context.Context, sessionID string) (*Session, error)
	Delete(ctx context.Context, sessionID string) error
}

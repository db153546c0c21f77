package session

import (
	"context"
	"time"
)

// Session represents an authenticated user session. A session only ever
// exists for users who resolved to a real account profile; awaiting
// users never receive one.
type Session struct {
	SessionID string    // unique session identifier
	UserID    string    // references users.id
	Role      string    // profile role at sign-in time
	CreatedAt time.Time // when the session was opened
	ExpiresAt time.Time // absolute expiry time
}

// Store defines how sessions are stored and retrieved.
// Implementations (e.g., Redis) must remain stateless and opaque.
type Store interface {
	Create(ctx context.Context, s Session) error
	Get(ctx context.Context, sessionID string) (*Session, error)
	Update(ctx context.Context, s Session) error
	Delete(ctx context.Context, sessionID string) error
}

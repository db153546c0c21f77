package resolver

import (
	"context"
	"time"

	"access-service/internal/account"
	"access-service/internal/auth"
)

// State is the terminal outcome of resolving one sign-in attempt.
type State string

const (
	// StateSignedIn means an account profile exists (or was just
	// promoted) and the caller may open a session.
	StateSignedIn State = "signed_in"

	// StateAwaitingApproval means the identity is parked behind an
	// unresolved access request. Not an error; the caller must not open
	// a session.
	StateAwaitingApproval State = "awaiting_approval"
)

// Outcome carries the state plus its payload: the profile when signed
// in, the original request time when awaiting approval.
type Outcome struct {
	State       State
	Profile     *account.Profile
	RequestedAt time.Time
}

// Resolver decides, per sign-in attempt, whether an external identity
// holds an account, is pre-approved, or must wait for review. It is the
// ONLY place where that decision lives.
type Resolver interface {
	Resolve(
		ctx context.Context,
		identity *auth.Identity,
	) (*Outcome, error)
}

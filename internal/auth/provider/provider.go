package provider

import (
	"context"
	"errors"

	"access-service/internal/auth"
)

var (
	// ErrProviderUnavailable marks a network or configuration failure at
	// the external provider. Fatal to the attempt; never retried
	// automatically.
	ErrProviderUnavailable = errors.New("identity provider unavailable")

	// ErrUserCancelled marks a sign-in the user abandoned at the consent
	// screen. Not an error to the caller; surfaced as a no-op.
	ErrUserCancelled = errors.New("sign-in cancelled by user")
)

// OAuthProvider defines the contract every external auth provider
// must implement. Implementations return identity facts only and
// must not perform profile creation, approval, or session management.
type OAuthProvider interface {
	// Name returns the provider identifier (e.g. "google").
	Name() string

	// AuthCodeURL returns the OAuth authorization URL that begins a
	// sign-in. State and PKCE parameters are provided by the caller.
	AuthCodeURL(state string, codeChallenge string) string

	// ExchangeCode exchanges the authorization code for provider
	// credentials and returns a normalized identity.
	ExchangeCode(
		ctx context.Context,
		code string,
		codeVerifier string,
	) (*auth.Identity, error)
}

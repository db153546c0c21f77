package auth

// Identity represents a normalized external authentication identity
// returned by a sign-in provider. It contains facts only, no decisions,
// and is never persisted directly.
type Identity struct {
	Provider       string // e.g. "google", "password"
	ProviderUserID string // provider-scoped unique user identifier (sub)
	Email          string // verified email returned by provider
	DisplayName    string // human-readable name, may be empty
	EmailVerified  bool   // whether provider asserts email ownership
}

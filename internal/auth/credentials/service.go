// Package credentials implements the password sign-in provider. It
// stores bcrypt credentials only; whether the owner actually gets
// access is decided by the resolver, exactly as for OAuth identities.
package credentials

import (
	"context"
	"errors"
	"time"

	"access-service/internal/account"
	"access-service/internal/auth"

	"github.com/google/uuid"
)

const providerName = "password"

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAlreadyRegistered  = errors.New("credentials already exist")
)

type Service struct {
	store account.Store
	now   func() time.Time
}

func NewService(store account.Store) *Service {
	return &Service{
		store: store,
		now:   time.Now,
	}
}

// Register stores a new password credential and returns the identity to
// feed the resolver. Registration never creates a profile by itself: the
// first resolve lands in awaiting-approval.
func (s *Service) Register(
	ctx context.Context,
	email string,
	password string,
	displayName string,
) (*auth.Identity, error) {

	hash, version, err := HashPassword(password)
	if err != nil {
		return nil, err
	}

	cred := account.Credential{
		ID:           uuid.NewString(),
		Email:        account.NormalizeEmail(email),
		DisplayName:  displayName,
		PasswordHash: hash,
		HashVersion:  version,
		CreatedAt:    s.now(),
	}

	err = s.store.CreateCredential(ctx, cred)
	if errors.Is(err, account.ErrCredentialExists) {
		return nil, ErrAlreadyRegistered
	}
	if err != nil {
		return nil, err
	}

	return s.identity(cred), nil
}

// Authenticate verifies the password and returns the identity to feed
// the resolver. It hides whether the email is registered at all.
func (s *Service) Authenticate(
	ctx context.Context,
	email string,
	password string,
) (*auth.Identity, error) {

	cred, err := s.store.CredentialByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if cred == nil {
		return nil, ErrInvalidCredentials
	}

	if err := VerifyPassword(cred.PasswordHash, password); err != nil {
		return nil, ErrInvalidCredentials
	}

	return s.identity(*cred), nil
}

// identity maps a stored credential onto the provider contract. The
// credential id doubles as the provider subject, so password users flow
// through the resolver identically to OAuth users.
func (s *Service) identity(cred account.Credential) *auth.Identity {
	return &auth.Identity{
		Provider:       providerName,
		ProviderUserID: cred.ID,
		Email:          cred.Email,
		DisplayName:    cred.DisplayName,
		EmailVerified:  false,
	}
}

package credentials

import (
	"context"
	"testing"

	"access-service/internal/account"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterAndAuthenticate(t *testing.T) {
	ctx := context.Background()
	store := account.NewMemoryStore()
	svc := NewService(store)

	identity, err := svc.Register(ctx, "User@X.com", "correct horse", "User")
	require.NoError(t, err)
	assert.Equal(t, "password", identity.Provider)
	assert.Equal(t, "user@x.com", identity.Email)
	assert.NotEmpty(t, identity.ProviderUserID)

	// Registration stores no profile; only the credential exists.
	profile, err := store.ProfileByEmail(ctx, "user@x.com")
	require.NoError(t, err)
	assert.Nil(t, profile)

	// Authenticate yields the same stable subject.
	again, err := svc.Authenticate(ctx, "user@x.com", "correct horse")
	require.NoError(t, err)
	assert.Equal(t, identity.ProviderUserID, again.ProviderUserID)
}

func TestRegister_Duplicate(t *testing.T) {
	ctx := context.Background()
	svc := NewService(account.NewMemoryStore())

	_, err := svc.Register(ctx, "user@x.com", "correct horse", "User")
	require.NoError(t, err)

	_, err = svc.Register(ctx, "USER@x.com", "other password", "User")
	assert.ErrorIs(t, err, ErrAlreadyRegistered)
}

func TestRegister_ShortPassword(t *testing.T) {
	svc := NewService(account.NewMemoryStore())
	_, err := svc.Register(context.Background(), "user@x.com", "short", "User")
	assert.Error(t, err)
}

func TestAuthenticate_Failures(t *testing.T) {
	ctx := context.Background()
	svc := NewService(account.NewMemoryStore())

	// Unknown email and wrong password are indistinguishable.
	_, err := svc.Authenticate(ctx, "nobody@x.com", "whatever1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Register(ctx, "user@x.com", "correct horse", "User")
	require.NoError(t, err)

	_, err = svc.Authenticate(ctx, "user@x.com", "wrong password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

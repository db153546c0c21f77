package resolver

import (
	"context"
	"sync"
	"testing"
	"time"

	"access-service/internal/account"
	"access-service/internal/auth"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func googleIdentity(email, sub string) *auth.Identity {
	return &auth.Identity{
		Provider:       "google",
		ProviderUserID: sub,
		Email:          email,
		DisplayName:    "Test User",
		EmailVerified:  true,
	}
}

func newTestResolver(store account.Store) *StoreResolver {
	r := NewStoreResolver(store)
	r.now = func() time.Time {
		return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	}
	return r
}

func TestResolve_FirstContactFilesRequest(t *testing.T) {
	ctx := context.Background()
	store := account.NewMemoryStore()
	r := newTestResolver(store)

	outcome, err := r.Resolve(ctx, googleIdentity("a@x.com", "sub-1"))
	require.NoError(t, err)
	assert.Equal(t, StateAwaitingApproval, outcome.State)
	assert.Nil(t, outcome.Profile)

	pending, err := store.ListPending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "a@x.com", pending[0].Email)
	assert.Equal(t, account.RoleStaff, pending[0].RequestedRole)
	assert.Equal(t, account.ProviderGoogle, pending[0].AuthProvider)
}

func TestResolve_ExistingPendingIsNotDuplicated(t *testing.T) {
	ctx := context.Background()
	store := account.NewMemoryStore()
	r := newTestResolver(store)

	requestedAt := time.Date(2025, 5, 20, 8, 0, 0, 0, time.UTC)
	require.NoError(t, store.CreatePending(ctx, account.PendingRequest{
		ID:            "req-1",
		Email:         "a@x.com",
		RequestedRole: account.RoleStaff,
		AuthProvider:  account.ProviderGoogle,
		Status:        account.StatusPending,
		RequestedAt:   requestedAt,
	}))

	outcome, err := r.Resolve(ctx, googleIdentity("a@x.com", "sub-1"))
	require.NoError(t, err)
	assert.Equal(t, StateAwaitingApproval, outcome.State)
	assert.Equal(t, requestedAt, outcome.RequestedAt)

	pending, err := store.ListPending(ctx)
	require.NoError(t, err)
	assert.Len(t, pending, 1)
}

func TestResolve_ConcurrentSameEmailFilesOneRequest(t *testing.T) {
	ctx := context.Background()
	store := account.NewMemoryStore()
	r := newTestResolver(store)

	const attempts = 8
	var wg sync.WaitGroup
	errs := make([]error, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = r.Resolve(ctx, googleIdentity("a@x.com", "sub-1"))
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}

	pending, err := store.ListPending(ctx)
	require.NoError(t, err)
	assert.Len(t, pending, 1)
}

func TestResolve_ExistingProfileSignsIn(t *testing.T) {
	ctx := context.Background()
	store := account.NewMemoryStore()
	r := newTestResolver(store)

	created := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, store.CreateProfile(ctx, account.Profile{
		ID:          "sub-1",
		Email:       "a@x.com",
		Role:        account.RoleStaff,
		CreatedAt:   created,
		LastLoginAt: created,
	}))

	outcome, err := r.Resolve(ctx, googleIdentity("a@x.com", "sub-1"))
	require.NoError(t, err)
	require.Equal(t, StateSignedIn, outcome.State)
	require.NotNil(t, outcome.Profile)
	assert.Equal(t, "sub-1", outcome.Profile.ID)

	// last login is touched
	stored, err := store.ProfileByID(ctx, "sub-1")
	require.NoError(t, err)
	assert.True(t, stored.LastLoginAt.After(created))
}

func TestResolve_ProfileLinkedByEmail(t *testing.T) {
	ctx := context.Background()
	store := account.NewMemoryStore()
	r := newTestResolver(store)

	// Admin-created profile with a minted id, not the provider subject.
	require.NoError(t, store.CreateProfile(ctx, account.Profile{
		ID:    "minted-uuid",
		Email: "a@x.com",
		Role:  account.RoleAdmin,
	}))

	outcome, err := r.Resolve(ctx, googleIdentity("A@X.com", "sub-1"))
	require.NoError(t, err)
	require.Equal(t, StateSignedIn, outcome.State)
	assert.Equal(t, "minted-uuid", outcome.Profile.ID)
}

func TestResolve_PreApprovalPromotes(t *testing.T) {
	ctx := context.Background()
	store := account.NewMemoryStore()
	r := newTestResolver(store)

	approvedAt := time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)
	require.NoError(t, store.CreatePreApproval(ctx, account.PreApproval{
		Email:         "e@x.com",
		RequestedRole: account.RoleAdmin,
		ApprovedBy:    "admin-1",
		ApprovedAt:    approvedAt,
		ProvisionalID: "prov-1",
	}))

	outcome, err := r.Resolve(ctx, googleIdentity("e@x.com", "real-sub"))
	require.NoError(t, err)
	require.Equal(t, StateSignedIn, outcome.State)

	// Profile carries the real subject id and the pre-approved role.
	assert.Equal(t, "real-sub", outcome.Profile.ID)
	assert.Equal(t, account.RoleAdmin, outcome.Profile.Role)
	assert.Equal(t, "admin-1", outcome.Profile.ApprovedBy)
	assert.Equal(t, approvedAt, outcome.Profile.ApprovedAt)

	// The pre-approval is consumed.
	pre, err := store.PreApprovalByEmail(ctx, "e@x.com")
	require.NoError(t, err)
	assert.Nil(t, pre)
}

// racingStore simulates the promotion race: the profile a concurrent
// sign-in created only becomes visible after this resolver's promote
// attempt has failed.
type racingStore struct {
	*account.MemoryStore
	mu           sync.Mutex
	promoteTried bool
}

func (s *racingStore) tried() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.promoteTried
}

func (s *racingStore) ProfileByID(ctx context.Context, id string) (*account.Profile, error) {
	if !s.tried() {
		return nil, nil
	}
	return s.MemoryStore.ProfileByID(ctx, id)
}

func (s *racingStore) ProfileByEmail(ctx context.Context, email string) (*account.Profile, error) {
	if !s.tried() {
		return nil, nil
	}
	return s.MemoryStore.ProfileByEmail(ctx, email)
}

func (s *racingStore) PromotePreApproval(ctx context.Context, pre account.PreApproval, p account.Profile) error {
	s.mu.Lock()
	s.promoteTried = true
	s.mu.Unlock()
	return s.MemoryStore.PromotePreApproval(ctx, pre, p)
}

func TestResolve_PromotionConflictFallsThroughToProfile(t *testing.T) {
	ctx := context.Background()
	inner := account.NewMemoryStore()
	store := &racingStore{MemoryStore: inner}
	r := newTestResolver(store)

	// The concurrent winner's profile and the not-yet-consumed
	// pre-approval both exist when this attempt starts.
	require.NoError(t, inner.CreateProfile(ctx, account.Profile{
		ID:    "real-sub",
		Email: "e@x.com",
		Role:  account.RoleAdmin,
	}))
	require.NoError(t, inner.CreatePreApproval(ctx, account.PreApproval{
		Email:         "e@x.com",
		RequestedRole: account.RoleAdmin,
	}))

	outcome, err := r.Resolve(ctx, googleIdentity("e@x.com", "real-sub"))
	require.NoError(t, err)
	require.Equal(t, StateSignedIn, outcome.State)
	assert.Equal(t, "real-sub", outcome.Profile.ID)
	assert.Equal(t, account.RoleAdmin, outcome.Profile.Role)
}

func TestResolve_RejectedRequestAllowsNewRequest(t *testing.T) {
	ctx := context.Background()
	store := account.NewMemoryStore()
	r := newTestResolver(store)

	require.NoError(t, store.CreatePending(ctx, account.PendingRequest{
		ID:          "req-1",
		Email:       "a@x.com",
		Status:      account.StatusPending,
		RequestedAt: time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC),
	}))
	require.NoError(t, store.ResolvePending(ctx, "req-1",
		account.StatusRejected, "admin-1", time.Now()))

	// The rejected row is audit history, not a block: a fresh sign-in
	// files a fresh request.
	outcome, err := r.Resolve(ctx, googleIdentity("a@x.com", "sub-1"))
	require.NoError(t, err)
	assert.Equal(t, StateAwaitingApproval, outcome.State)

	pending, err := store.ListPending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.NotEqual(t, "req-1", pending[0].ID)
}

func TestResolve_NilIdentity(t *testing.T) {
	r := newTestResolver(account.NewMemoryStore())
	_, err := r.Resolve(context.Background(), nil)
	assert.Error(t, err)
}

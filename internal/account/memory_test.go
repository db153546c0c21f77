package account

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_CreateProfileIsConditional(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	p := Profile{ID: "id-1", Email: "a@x.com", Role: RoleStaff}
	require.NoError(t, s.CreateProfile(ctx, p))

	// Same id.
	assert.ErrorIs(t, s.CreateProfile(ctx, p), ErrProfileExists)

	// Same email, different id and case.
	assert.ErrorIs(t, s.CreateProfile(ctx, Profile{
		ID: "id-2", Email: "A@X.com", Role: RoleStaff,
	}), ErrProfileExists)
}

func TestMemoryStore_PendingUniquenessPerEmail(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, s.CreatePending(ctx, PendingRequest{
		ID: "r1", Email: "a@x.com", Status: StatusPending, RequestedAt: time.Now(),
	}))
	assert.ErrorIs(t, s.CreatePending(ctx, PendingRequest{
		ID: "r2", Email: "A@x.com", Status: StatusPending, RequestedAt: time.Now(),
	}), ErrDuplicatePending)

	// A resolved request stops blocking new ones.
	require.NoError(t, s.ResolvePending(ctx, "r1", StatusRejected, "admin", time.Now()))
	assert.NoError(t, s.CreatePending(ctx, PendingRequest{
		ID: "r3", Email: "a@x.com", Status: StatusPending, RequestedAt: time.Now(),
	}))
}

func TestMemoryStore_ListPendingNewestFirst(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	base := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, s.CreatePending(ctx, PendingRequest{
		ID: "old", Email: "a@x.com", Status: StatusPending, RequestedAt: base,
	}))
	require.NoError(t, s.CreatePending(ctx, PendingRequest{
		ID: "new", Email: "b@x.com", Status: StatusPending, RequestedAt: base.Add(time.Hour),
	}))

	list, err := s.ListPending(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "new", list[0].ID)
	assert.Equal(t, "old", list[1].ID)
}

func TestMemoryStore_PromoteConsumesPreApproval(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	pre := PreApproval{Email: "a@x.com", RequestedRole: RoleAdmin}
	require.NoError(t, s.CreatePreApproval(ctx, pre))

	p := Profile{ID: "sub-1", Email: "a@x.com", Role: RoleAdmin}
	require.NoError(t, s.PromotePreApproval(ctx, pre, p))

	got, err := s.PreApprovalByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Nil(t, got)

	stored, err := s.ProfileByID(ctx, "sub-1")
	require.NoError(t, err)
	require.NotNil(t, stored)
}

func TestMemoryStore_PromoteConflictLeavesPreApproval(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, s.CreateProfile(ctx, Profile{ID: "sub-1", Email: "a@x.com"}))

	pre := PreApproval{Email: "a@x.com", RequestedRole: RoleAdmin}
	require.NoError(t, s.CreatePreApproval(ctx, pre))

	err := s.PromotePreApproval(ctx, pre, Profile{ID: "sub-1", Email: "a@x.com"})
	assert.ErrorIs(t, err, ErrProfileExists)

	// Atomicity: the failed promote must not have consumed the record.
	got, lookupErr := s.PreApprovalByEmail(ctx, "a@x.com")
	require.NoError(t, lookupErr)
	assert.NotNil(t, got)
}

func TestMemoryStore_ApprovePendingWritesPreApproval(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, s.CreatePending(ctx, PendingRequest{
		ID: "r1", Email: "a@x.com", Status: StatusPending, RequestedAt: time.Now(),
	}))

	pre := PreApproval{Email: "a@x.com", RequestedRole: RoleStaff, ApprovedBy: "admin"}
	require.NoError(t, s.ApprovePending(ctx, "r1", pre, "admin", time.Now()))

	request, err := s.PendingByID(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, request.Status)

	got, err := s.PreApprovalByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "admin", got.ApprovedBy)

	// Approving again fails and must not re-write the pre-approval.
	err = s.ApprovePending(ctx, "r1", PreApproval{Email: "a@x.com", ApprovedBy: "other"}, "other", time.Now())
	assert.ErrorIs(t, err, ErrNotFound)
	got, _ = s.PreApprovalByEmail(ctx, "a@x.com")
	assert.Equal(t, "admin", got.ApprovedBy)
}

func TestMemoryStore_Credentials(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	c := Credential{ID: "c1", Email: "a@x.com", PasswordHash: "h"}
	require.NoError(t, s.CreateCredential(ctx, c))
	assert.ErrorIs(t, s.CreateCredential(ctx, c), ErrCredentialExists)

	got, err := s.CredentialByEmail(ctx, "A@X.com")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "c1", got.ID)
}

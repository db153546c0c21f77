package resolver

import (
	"context"
	"errors"
	"time"

	"access-service/internal/account"
	"access-service/internal/auth"
	"access-service/internal/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// StoreResolver resolves identities against the account store.
//
// The four outcomes are evaluated in strict order, because the
// categories overlap in storage and only precedence separates them:
//
//  1. profile exists (by subject id, then by linked email)
//  2. pre-approval exists -> promote into a profile
//  3. pending request exists -> wait, no duplicate
//  4. nothing exists -> file a new pending request and wait
type StoreResolver struct {
	store account.Store
	now   func() time.Time
}

func NewStoreResolver(store account.Store) *StoreResolver {
	return &StoreResolver{
		store: store,
		now:   time.Now,
	}
}

func (r *StoreResolver) Resolve(
	ctx context.Context,
	identity *auth.Identity,
) (*Outcome, error) {

	if identity == nil {
		return nil, errors.New("identity is nil")
	}

	email := account.NormalizeEmail(identity.Email)
	now := r.now()

	// 1. Existing profile.
	profile, err := r.lookupProfile(ctx, identity, email)
	if err != nil {
		return nil, err
	}
	if profile != nil {
		return r.signIn(ctx, profile, now)
	}

	// 2. Pre-approval: promote using the real provider subject id,
	// consuming the pre-approval in the same transaction.
	pre, err := r.store.PreApprovalByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if pre != nil {
		return r.promote(ctx, identity, email, pre, now)
	}

	// 3. Already waiting: no duplicate request.
	existing, err := r.store.PendingByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return &Outcome{
			State:       StateAwaitingApproval,
			RequestedAt: existing.RequestedAt,
		}, nil
	}

	// 4. First contact: file a new request. A concurrent duplicate
	// collapses onto the row that won.
	request := account.PendingRequest{
		ID:            uuid.NewString(),
		Email:         email,
		DisplayName:   identity.DisplayName,
		RequestedRole: account.RoleStaff,
		AuthProvider:  account.AuthProvider(identity.Provider),
		Status:        account.StatusPending,
		RequestedAt:   now,
	}

	err = r.store.CreatePending(ctx, request)
	if errors.Is(err, account.ErrDuplicatePending) {
		winner, lookupErr := r.store.PendingByEmail(ctx, email)
		if lookupErr != nil {
			return nil, lookupErr
		}
		if winner != nil {
			return &Outcome{
				State:       StateAwaitingApproval,
				RequestedAt: winner.RequestedAt,
			}, nil
		}
		return &Outcome{State: StateAwaitingApproval, RequestedAt: now}, nil
	}
	if err != nil {
		return nil, err
	}

	logger.Info("access request filed",
		zap.String("email", email),
		zap.String("provider", identity.Provider),
	)

	return &Outcome{
		State:       StateAwaitingApproval,
		RequestedAt: now,
	}, nil
}

// lookupProfile tries the provider subject id first, then the email the
// identity may have been linked by.
func (r *StoreResolver) lookupProfile(
	ctx context.Context,
	identity *auth.Identity,
	email string,
) (*account.Profile, error) {

	profile, err := r.store.ProfileByID(ctx, identity.ProviderUserID)
	if err != nil {
		return nil, err
	}
	if profile != nil {
		return profile, nil
	}
	return r.store.ProfileByEmail(ctx, email)
}

func (r *StoreResolver) signIn(
	ctx context.Context,
	profile *account.Profile,
	now time.Time,
) (*Outcome, error) {

	if err := r.store.TouchLogin(ctx, profile.ID, now); err != nil {
		return nil, err
	}
	profile.LastLoginAt = now

	return &Outcome{
		State:   StateSignedIn,
		Profile: profile,
	}, nil
}

func (r *StoreResolver) promote(
	ctx context.Context,
	identity *auth.Identity,
	email string,
	pre *account.PreApproval,
	now time.Time,
) (*Outcome, error) {

	profile := account.Profile{
		ID:          identity.ProviderUserID,
		Email:       email,
		Role:        pre.RequestedRole,
		DisplayName: identity.DisplayName,
		CreatedAt:   now,
		LastLoginAt: now,
		ApprovedBy:  pre.ApprovedBy,
		ApprovedAt:  pre.ApprovedAt,
	}

	err := r.store.PromotePreApproval(ctx, *pre, profile)
	if errors.Is(err, account.ErrProfileExists) {
		// Promotion conflict: a concurrent sign-in created the profile
		// first. Discard this attempt and take the profile path.
		existing, lookupErr := r.lookupProfile(ctx, identity, email)
		if lookupErr != nil {
			return nil, lookupErr
		}
		if existing == nil {
			return nil, err
		}
		return r.signIn(ctx, existing, now)
	}
	if err != nil {
		return nil, err
	}

	logger.Info("pre-approval promoted",
		zap.String("email", email),
		zap.String("role", string(profile.Role)),
	)

	return &Outcome{
		State:   StateSignedIn,
		Profile: &profile,
	}, nil
}

// Package admin implements the review surface: listing pending access
// requests, approving or rejecting them, and direct profile
// administration. All operations require an admin or super_admin caller.
package admin

import (
	"context"
	"errors"
	"time"

	"access-service/internal/account"
	"access-service/internal/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	// ErrInsufficientPrivilege rejects callers below the required role.
	ErrInsufficientPrivilege = errors.New("insufficient privilege")

	// ErrImmutableRole guards super_admin profiles: once assigned, the
	// role is frozen for every caller.
	ErrImmutableRole = errors.New("super_admin role is immutable")

	// ErrLastSuperAdmin guards the invariant that at least one
	// super_admin profile always exists.
	ErrLastSuperAdmin = errors.New("cannot remove the last super_admin")

	// ErrNotFound targets a request or profile that does not exist or is
	// no longer pending.
	ErrNotFound = errors.New("not found")
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

func requireReviewer(caller *account.Profile) error {
	if caller == nil || !caller.Role.CanReview() {
		return ErrInsufficientPrivilege
	}
	return nil
}

// ListPending returns unresolved access requests, most recent first.
func (s *Service) ListPending(ctx context.Context, caller *account.Profile) ([]account.PendingRequest, error) {
	if err := requireReviewer(caller); err != nil {
		return nil, err
	}
	return s.store.ListPending(ctx)
}

// Approve resolves a pending request and records a pre-approval for its
// email. The profile itself is created on the user's next sign-in, so
// its id is always a real provider-issued subject; until then the
// pre-approval carries a provisional id.
func (s *Service) Approve(
	ctx context.Context,
	caller *account.Profile,
	requestID string,
	assignedRole account.Role,
) (*account.PreApproval, error) {

	if err := requireReviewer(caller); err != nil {
		return nil, err
	}
	if _, err := account.ParseRole(string(assignedRole)); err != nil {
		return nil, err
	}
	if assignedRole == account.RoleSuperAdmin && caller.Role != account.RoleSuperAdmin {
		return nil, ErrInsufficientPrivilege
	}

	request, err := s.store.PendingByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if request == nil || request.Status != account.StatusPending {
		return nil, ErrNotFound
	}

	now := s.now()
	pre := account.PreApproval{
		Email:         request.Email,
		RequestedRole: assignedRole,
		ApprovedBy:    caller.ID,
		ApprovedAt:    now,
		ProvisionalID: uuid.NewString(),
	}

	err = s.store.ApprovePending(ctx, requestID, pre, caller.ID, now)
	if errors.Is(err, account.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	logger.Info("access request approved",
		zap.String("email", request.Email),
		zap.String("role", string(assignedRole)),
		zap.String("approved_by", caller.ID),
	)

	return &pre, nil
}

// Reject resolves a pending request as rejected. The row is retained as
// an audit record.
func (s *Service) Reject(ctx context.Context, caller *account.Profile, requestID string) error {
	if err := requireReviewer(caller); err != nil {
		return err
	}

	err := s.store.ResolvePending(ctx, requestID, account.StatusRejected, caller.ID, s.now())
	if errors.Is(err, account.ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}

	logger.Info("access request rejected",
		zap.String("request_id", requestID),
		zap.String("rejected_by", caller.ID),
	)
	return nil
}

// CreateProfile creates an account directly, bypassing the request
// queue. The id is minted here rather than provider-issued.
func (s *Service) CreateProfile(
	ctx context.Context,
	caller *account.Profile,
	email string,
	displayName string,
	role account.Role,
) (*account.Profile, error) {

	if err := requireReviewer(caller); err != nil {
		return nil, err
	}
	if _, err := account.ParseRole(string(role)); err != nil {
		return nil, err
	}
	if role == account.RoleSuperAdmin && caller.Role != account.RoleSuperAdmin {
		return nil, ErrInsufficientPrivilege
	}

	now := s.now()
	profile := account.Profile{
		ID:          uuid.NewString(),
		Email:       account.NormalizeEmail(email),
		Role:        role,
		DisplayName: displayName,
		CreatedAt:   now,
		LastLoginAt: now,
		ApprovedBy:  caller.ID,
		ApprovedAt:  now,
	}

	if err := s.store.CreateProfile(ctx, profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

// DeleteProfile removes an account. Deleting the last super_admin is
// refused no matter who asks.
func (s *Service) DeleteProfile(ctx context.Context, caller *account.Profile, id string) error {
	if err := requireReviewer(caller); err != nil {
		return err
	}

	target, err := s.store.ProfileByID(ctx, id)
	if err != nil {
		return err
	}
	if target == nil {
		return ErrNotFound
	}

	if target.Role == account.RoleSuperAdmin {
		n, err := s.store.CountByRole(ctx, account.RoleSuperAdmin)
		if err != nil {
			return err
		}
		if n <= 1 {
			return ErrLastSuperAdmin
		}
	}

	if err := s.store.DeleteProfile(ctx, id); err != nil {
		if errors.Is(err, account.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}

	logger.Info("profile deleted",
		zap.String("profile_id", id),
		zap.String("deleted_by", caller.ID),
	)
	return nil
}

// ChangeRole updates a profile's role. super_admin profiles are frozen;
// granting super_admin requires a super_admin caller.
func (s *Service) ChangeRole(
	ctx context.Context,
	caller *account.Profile,
	id string,
	role account.Role,
) (*account.Profile, error) {

	if err := requireReviewer(caller); err != nil {
		return nil, err
	}
	if _, err := account.ParseRole(string(role)); err != nil {
		return nil, err
	}

	target, err := s.store.ProfileByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if target == nil {
		return nil, ErrNotFound
	}

	if target.Role == account.RoleSuperAdmin {
		return nil, ErrImmutableRole
	}
	if role == account.RoleSuperAdmin && caller.Role != account.RoleSuperAdmin {
		return nil, ErrInsufficientPrivilege
	}

	if err := s.store.UpdateRole(ctx, id, role); err != nil {
		if errors.Is(err, account.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	target.Role = role
	return target, nil
}

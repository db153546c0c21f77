package account

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrStorageUnavailable wraps all store-level I/O failures. The core
	// never retries; callers may.
	ErrStorageUnavailable = errors.New("account storage unavailable")

	// ErrProfileExists is returned by conditional profile writes when a
	// profile already holds the id or email.
	ErrProfileExists = errors.New("profile already exists")

	// ErrDuplicatePending is returned when a pending request already
	// exists for the email.
	ErrDuplicatePending = errors.New("pending request already exists")

	// ErrCredentialExists is returned when a credential already exists
	// for the email.
	ErrCredentialExists = errors.New("credential already exists")

	// ErrNotFound is returned by mutations targeting a missing record.
	// Lookups return nil, nil instead.
	ErrNotFound = errors.New("record not found")
)

// Store is the document-store boundary for access-control entities.
// Lookups return (nil, nil) when no record matches.
type Store interface {
	// Profiles.
	ProfileByID(ctx context.Context, id string) (*Profile, error)
	ProfileByEmail(ctx context.Context, email string) (*Profile, error)
	// CreateProfile is a conditional write keyed on id and email; it
	// fails with ErrProfileExists rather than overwriting.
	CreateProfile(ctx context.Context, p Profile) error
	TouchLogin(ctx context.Context, id string, at time.Time) error
	UpdateRole(ctx context.Context, id string, role Role) error
	DeleteProfile(ctx context.Context, id string) error
	CountByRole(ctx context.Context, role Role) (int, error)

	// Pending requests. PendingByEmail only matches status=pending.
	PendingByID(ctx context.Context, id string) (*PendingRequest, error)
	PendingByEmail(ctx context.Context, email string) (*PendingRequest, error)
	CreatePending(ctx context.Context, r PendingRequest) error
	ListPending(ctx context.Context) ([]PendingRequest, error)
	ResolvePending(ctx context.Context, id string, status RequestStatus, by string, at time.Time) error

	// Pre-approvals, keyed by email.
	PreApprovalByEmail(ctx context.Context, email string) (*PreApproval, error)
	CreatePreApproval(ctx context.Context, p PreApproval) error
	DeletePreApproval(ctx context.Context, email string) error

	// PromotePreApproval atomically creates the profile and consumes the
	// pre-approval. A concurrent sign-in that already created the profile
	// surfaces as ErrProfileExists with no writes applied.
	PromotePreApproval(ctx context.Context, pre PreApproval, p Profile) error

	// ApprovePending atomically marks the request approved and records
	// the pre-approval the next sign-in will promote.
	ApprovePending(ctx context.Context, requestID string, pre PreApproval, by string, at time.Time) error

	// Password credentials.
	CredentialByEmail(ctx context.Context, email string) (*Credential, error)
	CreateCredential(ctx context.Context, c Credential) error
}

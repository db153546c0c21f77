// Package account holds the persisted access-control entities and the
// store they live in. All normalization of raw store documents happens
// here, at the storage boundary; consuming code only ever sees these
// typed entities.
package account

import (
	"fmt"
	"strings"
	"time"
)

// Role is the closed set of access levels a profile can hold.
type Role string

const (
	RoleStaff      Role = "staff"
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "super_admin"
)

// ParseRole validates a raw role string.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleStaff, RoleAdmin, RoleSuperAdmin:
		return Role(s), nil
	}
	return "", fmt.Errorf("unknown role: %q", s)
}

// CanReview reports whether the role may operate the review surface.
func (r Role) CanReview() bool {
	return r == RoleAdmin || r == RoleSuperAdmin
}

// AuthProvider identifies how an access request authenticated.
type AuthProvider string

const (
	ProviderPassword AuthProvider = "password"
	ProviderGoogle   AuthProvider = "google"
)

// RequestStatus is the lifecycle state of a pending request.
// approved and rejected are terminal; rejected rows are audit records.
type RequestStatus string

const (
	StatusPending  RequestStatus = "pending"
	StatusApproved RequestStatus = "approved"
	StatusRejected RequestStatus = "rejected"
)

// Profile is the persisted record granting a user access.
// ID is the provider-issued subject for sign-in-created profiles, or a
// minted uuid for admin-created ones.
type Profile struct {
	ID          string
	Email       string
	Role        Role
	DisplayName string
	CreatedAt   time.Time
	LastLoginAt time.Time
	ApprovedBy  string
	ApprovedAt  time.Time
}

// PendingRequest is an unresolved access request awaiting an
// administrator decision.
type PendingRequest struct {
	ID            string
	Email         string
	DisplayName   string
	RequestedRole Role
	AuthProvider  AuthProvider
	Status        RequestStatus
	RequestedAt   time.Time
	ResolvedBy    string
	ResolvedAt    time.Time
}

// PreApproval is an administrator's advance authorization for an email
// that has not signed in yet. It is consumed on first sign-in, when the
// provisional subject id is replaced by the provider-issued one.
type PreApproval struct {
	Email         string
	RequestedRole Role
	ApprovedBy    string
	ApprovedAt    time.Time
	ProvisionalID string
}

// Credential is a stored password credential for the password provider.
type Credential struct {
	ID           string
	Email        string
	DisplayName  string
	PasswordHash string
	HashVersion  string
	CreatedAt    time.Time
}

// NormalizeEmail canonicalizes an email for use as a lookup key.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

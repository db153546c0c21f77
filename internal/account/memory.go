package account

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore is an in-memory Store used by tests and local development.
// It enforces the same conditional-write semantics as the Postgres store,
// including the one-pending-request-per-email invariant.
type MemoryStore struct {
	mu           sync.Mutex
	profiles     map[string]Profile        // by id
	pending      map[string]PendingRequest // by id
	preApprovals map[string]PreApproval    // by normalized email
	credentials  map[string]Credential     // by normalized email
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		profiles:     make(map[string]Profile),
		pending:      make(map[string]PendingRequest),
		preApprovals: make(map[string]PreApproval),
		credentials:  make(map[string]Credential),
	}
}

func (s *MemoryStore) ProfileByID(_ context.Context, id string) (*Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p, ok := s.profiles[id]; ok {
		return &p, nil
	}
	return nil, nil
}

func (s *MemoryStore) ProfileByEmail(_ context.Context, email string) (*Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.profileByEmailLocked(email), nil
}

func (s *MemoryStore) profileByEmailLocked(email string) *Profile {
	email = NormalizeEmail(email)
	for _, p := range s.profiles {
		if p.Email == email {
			p := p
			return &p
		}
	}
	return nil
}

func (s *MemoryStore) CreateProfile(_ context.Context, p Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createProfileLocked(p)
}

func (s *MemoryStore) createProfileLocked(p Profile) error {
	if _, ok := s.profiles[p.ID]; ok {
		return ErrProfileExists
	}
	p.Email = NormalizeEmail(p.Email)
	if s.profileByEmailLocked(p.Email) != nil {
		return ErrProfileExists
	}
	s.profiles[p.ID] = p
	return nil
}

func (s *MemoryStore) TouchLogin(_ context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.profiles[id]
	if !ok {
		return ErrNotFound
	}
	p.LastLoginAt = at
	s.profiles[id] = p
	return nil
}

func (s *MemoryStore) UpdateRole(_ context.Context, id string, role Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.profiles[id]
	if !ok {
		return ErrNotFound
	}
	p.Role = role
	s.profiles[id] = p
	return nil
}

func (s *MemoryStore) DeleteProfile(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.profiles[id]; !ok {
		return ErrNotFound
	}
	delete(s.profiles, id)
	return nil
}

func (s *MemoryStore) CountByRole(_ context.Context, role Role) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, p := range s.profiles {
		if p.Role == role {
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) PendingByID(_ context.Context, id string) (*PendingRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r, ok := s.pending[id]; ok {
		return &r, nil
	}
	return nil, nil
}

func (s *MemoryStore) PendingByEmail(_ context.Context, email string) (*PendingRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r := s.pendingByEmailLocked(email); r != nil {
		return r, nil
	}
	return nil, nil
}

func (s *MemoryStore) pendingByEmailLocked(email string) *PendingRequest {
	email = NormalizeEmail(email)
	for _, r := range s.pending {
		if r.Email == email && r.Status == StatusPending {
			r := r
			return &r
		}
	}
	return nil
}

func (s *MemoryStore) CreatePending(_ context.Context, r PendingRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r.Email = NormalizeEmail(r.Email)
	if s.pendingByEmailLocked(r.Email) != nil {
		return ErrDuplicatePending
	}
	s.pending[r.ID] = r
	return nil
}

func (s *MemoryStore) ListPending(_ context.Context) ([]PendingRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []PendingRequest
	for _, r := range s.pending {
		if r.Status == StatusPending {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].RequestedAt.After(out[j].RequestedAt)
	})
	return out, nil
}

func (s *MemoryStore) ResolvePending(_ context.Context, id string, status RequestStatus, by string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resolvePendingLocked(id, status, by, at)
}

func (s *MemoryStore) resolvePendingLocked(id string, status RequestStatus, by string, at time.Time) error {
	r, ok := s.pending[id]
	if !ok || r.Status != StatusPending {
		return ErrNotFound
	}
	r.Status = status
	r.ResolvedBy = by
	r.ResolvedAt = at
	s.pending[id] = r
	return nil
}

func (s *MemoryStore) PreApprovalByEmail(_ context.Context, email string) (*PreApproval, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p, ok := s.preApprovals[NormalizeEmail(email)]; ok {
		return &p, nil
	}
	return nil, nil
}

func (s *MemoryStore) CreatePreApproval(_ context.Context, p PreApproval) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p.Email = NormalizeEmail(p.Email)
	s.preApprovals[p.Email] = p
	return nil
}

func (s *MemoryStore) DeletePreApproval(_ context.Context, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.preApprovals, NormalizeEmail(email))
	return nil
}

func (s *MemoryStore) PromotePreApproval(_ context.Context, pre PreApproval, p Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.createProfileLocked(p); err != nil {
		return err
	}
	delete(s.preApprovals, NormalizeEmail(pre.Email))
	return nil
}

func (s *MemoryStore) ApprovePending(_ context.Context, requestID string, pre PreApproval, by string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.resolvePendingLocked(requestID, StatusApproved, by, at); err != nil {
		return err
	}
	pre.Email = NormalizeEmail(pre.Email)
	s.preApprovals[pre.Email] = pre
	return nil
}

func (s *MemoryStore) CredentialByEmail(_ context.Context, email string) (*Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c, ok := s.credentials[NormalizeEmail(email)]; ok {
		return &c, nil
	}
	return nil, nil
}

func (s *MemoryStore) CreateCredential(_ context.Context, c Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c.Email = NormalizeEmail(c.Email)
	if _, ok := s.credentials[c.Email]; ok {
		return ErrCredentialExists
	}
	s.credentials[c.Email] = c
	return nil
}

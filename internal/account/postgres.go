package account

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"access-service/internal/db"

	"github.com/lib/pq"
)

// PostgresStore is the canonical store implementation.
type PostgresStore struct {
	db *db.DB
}

func NewPostgresStore(db *db.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const uniqueViolation = "23505"

// execer is satisfied by both *sql.DB and *sql.Tx, so the conditional
// writes can run standalone or inside a transaction.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

func storageErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrStorageUnavailable, op, err)
}

// scanProfile normalizes a raw profile row into the typed entity.
func scanProfile(row *sql.Row) (*Profile, error) {
	var p Profile
	err := row.Scan(
		&p.ID,
		&p.Email,
		&p.Role,
		&p.DisplayName,
		&p.CreatedAt,
		&p.LastLoginAt,
		&p.ApprovedBy,
		&p.ApprovedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, storageErr("scan profile", err)
	}
	p.Email = NormalizeEmail(p.Email)
	return &p, nil
}

const profileColumns = `
	id, email, role, display_name,
	created_at, last_login_at, approved_by, approved_at
`

func (s *PostgresStore) ProfileByID(ctx context.Context, id string) (*Profile, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+profileColumns+`
		FROM users
		WHERE id = $1
	`, id)
	return scanProfile(row)
}

func (s *PostgresStore) ProfileByEmail(ctx context.Context, email string) (*Profile, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+profileColumns+`
		FROM users
		WHERE LOWER(email) = LOWER($1)
	`, email)
	return scanProfile(row)
}

func (s *PostgresStore) CreateProfile(ctx context.Context, p Profile) error {
	return insertProfile(ctx, s.db.DB, p)
}

func insertProfile(ctx context.Context, q execer, p Profile) error {
	res, err := q.ExecContext(ctx, `
		INSERT INTO users (
			id, email, role, display_name,
			created_at, last_login_at, approved_by, approved_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO NOTHING
	`,
		p.ID,
		NormalizeEmail(p.Email),
		p.Role,
		p.DisplayName,
		p.CreatedAt,
		p.LastLoginAt,
		p.ApprovedBy,
		p.ApprovedAt,
	)
	if isUniqueViolation(err) {
		// The users_email_lower_unique index fired.
		return ErrProfileExists
	}
	if err != nil {
		return storageErr("create profile", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return storageErr("create profile", err)
	}
	if n == 0 {
		return ErrProfileExists
	}
	return nil
}

func (s *PostgresStore) TouchLogin(ctx context.Context, id string, at time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE users SET last_login_at = $2 WHERE id = $1
	`, id, at)
	if err != nil {
		return storageErr("touch login", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) UpdateRole(ctx context.Context, id string, role Role) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE users SET role = $2 WHERE id = $1
	`, id, role)
	if err != nil {
		return storageErr("update role", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) DeleteProfile(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM users WHERE id = $1
	`, id)
	if err != nil {
		return storageErr("delete profile", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) CountByRole(ctx context.Context, role Role) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM users WHERE role = $1
	`, role).Scan(&n)
	if err != nil {
		return 0, storageErr("count by role", err)
	}
	return n, nil
}

const pendingColumns = `
	id, email, display_name, requested_role, auth_provider,
	status, requested_at, resolved_by, resolved_at
`

type rowScanner interface {
	Scan(dest ...any) error
}

// scanPending normalizes a raw pending_users row. resolved_by and
// resolved_at are NULL until the request leaves the pending state.
func scanPending(row rowScanner) (*PendingRequest, error) {
	var (
		r          PendingRequest
		resolvedBy sql.NullString
		resolvedAt sql.NullTime
	)
	err := row.Scan(
		&r.ID,
		&r.Email,
		&r.DisplayName,
		&r.RequestedRole,
		&r.AuthProvider,
		&r.Status,
		&r.RequestedAt,
		&resolvedBy,
		&resolvedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, storageErr("scan pending request", err)
	}
	r.Email = NormalizeEmail(r.Email)
	r.ResolvedBy = resolvedBy.String
	r.ResolvedAt = resolvedAt.Time
	return &r, nil
}

func (s *PostgresStore) PendingByID(ctx context.Context, id string) (*PendingRequest, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+pendingColumns+`
		FROM pending_users
		WHERE id = $1
	`, id)
	return scanPending(row)
}

func (s *PostgresStore) PendingByEmail(ctx context.Context, email string) (*PendingRequest, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+pendingColumns+`
		FROM pending_users
		WHERE LOWER(email) = LOWER($1)
		  AND status = 'pending'
	`, email)
	return scanPending(row)
}

func (s *PostgresStore) CreatePending(ctx context.Context, r PendingRequest) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO pending_users (
			id, email, display_name, requested_role,
			auth_provider, status, requested_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`,
		r.ID,
		NormalizeEmail(r.Email),
		r.DisplayName,
		r.RequestedRole,
		r.AuthProvider,
		r.Status,
		r.RequestedAt,
	)
	if isUniqueViolation(err) {
		return ErrDuplicatePending
	}
	if err != nil {
		return storageErr("create pending request", err)
	}
	return nil
}

func (s *PostgresStore) ListPending(ctx context.Context) ([]PendingRequest, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+pendingColumns+`
		FROM pending_users
		WHERE status = 'pending'
		ORDER BY requested_at DESC
	`)
	if err != nil {
		return nil, storageErr("list pending requests", err)
	}
	defer rows.Close()

	var out []PendingRequest
	for rows.Next() {
		r, err := scanPending(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("list pending requests", err)
	}
	return out, nil
}

func (s *PostgresStore) ResolvePending(ctx context.Context, id string, status RequestStatus, by string, at time.Time) error {
	return resolvePending(ctx, s.db.DB, id, status, by, at)
}

func resolvePending(ctx context.Context, q execer, id string, status RequestStatus, by string, at time.Time) error {
	res, err := q.ExecContext(ctx, `
		UPDATE pending_users
		SET status = $2, resolved_by = $3, resolved_at = $4
		WHERE id = $1
		  AND status = 'pending'
	`, id, status, by, at)
	if err != nil {
		return storageErr("resolve pending request", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) PreApprovalByEmail(ctx context.Context, email string) (*PreApproval, error) {
	var p PreApproval
	err := s.db.QueryRowContext(ctx, `
		SELECT email, requested_role, approved_by, approved_at, provisional_subject_id
		FROM approved_google_users
		WHERE email = LOWER($1)
	`, email).Scan(
		&p.Email,
		&p.RequestedRole,
		&p.ApprovedBy,
		&p.ApprovedAt,
		&p.ProvisionalID,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, storageErr("load pre-approval", err)
	}
	return &p, nil
}

func (s *PostgresStore) CreatePreApproval(ctx context.Context, p PreApproval) error {
	return insertPreApproval(ctx, s.db.DB, p)
}

// insertPreApproval upserts: re-approving an email overwrites the
// earlier pre-approval rather than stacking a second one.
func insertPreApproval(ctx context.Context, q execer, p PreApproval) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO approved_google_users (
			email, requested_role, approved_by, approved_at, provisional_subject_id
		)
		VALUES (LOWER($1), $2, $3, $4, $5)
		ON CONFLICT (email) DO UPDATE SET
			requested_role = EXCLUDED.requested_role,
			approved_by = EXCLUDED.approved_by,
			approved_at = EXCLUDED.approved_at,
			provisional_subject_id = EXCLUDED.provisional_subject_id
	`,
		p.Email,
		p.RequestedRole,
		p.ApprovedBy,
		p.ApprovedAt,
		p.ProvisionalID,
	)
	if err != nil {
		return storageErr("create pre-approval", err)
	}
	return nil
}

func (s *PostgresStore) DeletePreApproval(ctx context.Context, email string) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM approved_google_users WHERE email = LOWER($1)
	`, email)
	if err != nil {
		return storageErr("delete pre-approval", err)
	}
	return nil
}

func (s *PostgresStore) PromotePreApproval(ctx context.Context, pre PreApproval, p Profile) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storageErr("begin promote", err)
	}
	defer tx.Rollback()

	if err := insertProfile(ctx, tx, p); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `
		DELETE FROM approved_google_users WHERE email = LOWER($1)
	`, pre.Email); err != nil {
		return storageErr("consume pre-approval", err)
	}

	if err := tx.Commit(); err != nil {
		return storageErr("commit promote", err)
	}
	return nil
}

func (s *PostgresStore) ApprovePending(ctx context.Context, requestID string, pre PreApproval, by string, at time.Time) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storageErr("begin approve", err)
	}
	defer tx.Rollback()

	if err := resolvePending(ctx, tx, requestID, StatusApproved, by, at); err != nil {
		return err
	}

	if err := insertPreApproval(ctx, tx, pre); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return storageErr("commit approve", err)
	}
	return nil
}

func (s *PostgresStore) CredentialByEmail(ctx context.Context, email string) (*Credential, error) {
	var c Credential
	err := s.db.QueryRowContext(ctx, `
		SELECT id, email, display_name, password_hash, hash_version, created_at
		FROM credentials
		WHERE LOWER(email) = LOWER($1)
	`, email).Scan(
		&c.ID,
		&c.Email,
		&c.DisplayName,
		&c.PasswordHash,
		&c.HashVersion,
		&c.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, storageErr("load credential", err)
	}
	c.Email = NormalizeEmail(c.Email)
	return &c, nil
}

func (s *PostgresStore) CreateCredential(ctx context.Context, c Credential) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO credentials (
			id, email, display_name, password_hash, hash_version, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6)
	`,
		c.ID,
		NormalizeEmail(c.Email),
		c.DisplayName,
		c.PasswordHash,
		c.HashVersion,
		c.CreatedAt,
	)
	if isUniqueViolation(err) {
		return ErrCredentialExists
	}
	if err != nil {
		return storageErr("create credential", err)
	}
	return nil
}

package db

import (
	"context"
	"database/sql"
)

// schemaMigration creates the access-control collections. The partial
// unique index on pending_users is the invariant that makes sign-in
// resolution idempotent: at most one pending request per email.
const schemaMigration = `
CREATE EXTENSION IF NOT EXISTS "pgcrypto";

CREATE TABLE IF NOT EXISTS users (
    id text PRIMARY KEY,
    email text NOT NULL,
    role text NOT NULL,
    display_name text NOT NULL DEFAULT '',
    created_at timestamptz NOT NULL DEFAULT NOW(),
    last_login_at timestamptz NOT NULL DEFAULT NOW(),
    approved_by text NOT NULL DEFAULT '',
    approved_at timestamptz NOT NULL DEFAULT NOW()
);

CREATE UNIQUE INDEX IF NOT EXISTS users_email_lower_unique
ON users (LOWER(email));

CREATE TABLE IF NOT EXISTS pending_users (
    id uuid PRIMARY KEY DEFAULT gen_random_uuid(),
    email text NOT NULL,
    display_name text NOT NULL DEFAULT '',
    requested_role text NOT NULL,
    auth_provider text NOT NULL,
    status text NOT NULL DEFAULT 'pending',
    requested_at timestamptz NOT NULL DEFAULT NOW(),
    resolved_by text,
    resolved_at timestamptz
);

CREATE UNIQUE INDEX IF NOT EXISTS pending_users_email_pending_unique
ON pending_users (LOWER(email))
WHERE status = 'pending';

CREATE INDEX IF NOT EXISTS pending_users_requested_at_idx
ON pending_users (requested_at DESC);

CREATE TABLE IF NOT EXISTS approved_google_users (
    email text PRIMARY KEY,
    requested_role text NOT NULL,
    approved_by text NOT NULL,
    approved_at timestamptz NOT NULL DEFAULT NOW(),
    provisional_subject_id text NOT NULL
);

CREATE TABLE IF NOT EXISTS credentials (
    id uuid PRIMARY KEY,
    email text NOT NULL,
    display_name text NOT NULL DEFAULT '',
    password_hash text NOT NULL,
    hash_version text NOT NULL,
    created_at timestamptz NOT NULL DEFAULT NOW()
);

CREATE UNIQUE INDEX IF NOT EXISTS credentials_email_lower_unique
ON credentials (LOWER(email));
`

func RunMigration(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, schemaMigration)
	return err
}

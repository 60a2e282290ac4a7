package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jkalnina/authgate/internal/common"
	"github.com/jkalnina/authgate/internal/dbx"
)

const userColumns = `id, external_id, email, credential_hash, display_name, photo_url, auth_provider, email_verified, active, created_at, updated_at`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) scanUser(row *sql.Row) (*User, error) {
	user := &User{}
	var credentialHash, displayName, photoURL sql.NullString
	err := row.Scan(&user.ID, &user.ExternalID, &user.Email, &credentialHash, &displayName,
		&photoURL, &user.AuthProvider, &user.EmailVerified, &user.Active, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	user.CredentialHash = credentialHash.String
	user.DisplayName = displayName.String
	user.PhotoURL = photoURL.String
	return user, nil
}

func (r *PostgresRepository) FindByEmail(ctx context.Context, email string) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return r.scanUser(r.db.QueryRowContext(ctx, query, email))
}

func (r *PostgresRepository) FindByExternalID(ctx context.Context, externalID string) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE external_id = $1`
	return r.scanUser(r.db.QueryRowContext(ctx, query, externalID))
}

// UpsertByEmail implements the merge-on-conflict registration policy:
// a second registration for an existing email overwrites external_id,
// display_name and credential_hash on the same row. email_verified never
// regresses. Last committer wins under concurrency.
func (r *PostgresRepository) UpsertByEmail(ctx context.Context, user *User) (*User, error) {
	query :=
		`INSERT INTO users (id, external_id, email, credential_hash, display_name, photo_url, auth_provider, email_verified, active)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, TRUE)
		 ON CONFLICT (email) DO UPDATE SET
		   external_id = EXCLUDED.external_id,
		   display_name = EXCLUDED.display_name,
		   credential_hash = EXCLUDED.credential_hash,
		   email_verified = users.email_verified OR EXCLUDED.email_verified,
		   updated_at = now()
		 RETURNING ` + userColumns

	return r.scanUser(r.db.QueryRowContext(ctx, query,
		user.ID, user.ExternalID, user.Email, nullable(user.CredentialHash),
		nullable(user.DisplayName), nullable(user.PhotoURL), user.AuthProvider, user.EmailVerified))
}

// UpsertByExternalID re-syncs provider-sourced fields on repeated federated
// logins. credential_hash is deliberately not listed in the update set.
func (r *PostgresRepository) UpsertByExternalID(ctx context.Context, user *User) (*User, error) {
	query :=
		`INSERT INTO users (id, external_id, email, credential_hash, display_name, photo_url, auth_provider, email_verified, active)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, TRUE)
		 ON CONFLICT (external_id) DO UPDATE SET
		   email = EXCLUDED.email,
		   display_name = EXCLUDED.display_name,
		   photo_url = EXCLUDED.photo_url,
		   email_verified = users.email_verified OR EXCLUDED.email_verified,
		   updated_at = now()
		 RETURNING ` + userColumns

	return r.scanUser(r.db.QueryRowContext(ctx, query,
		user.ID, user.ExternalID, user.Email, nullable(user.CredentialHash),
		nullable(user.DisplayName), nullable(user.PhotoURL), user.AuthProvider, user.EmailVerified))
}

func (r *PostgresRepository) UpdateCredential(ctx context.Context, email, credentialHash string) (*User, error) {
	query :=
		`UPDATE users SET credential_hash = $2, updated_at = now()
		 WHERE email = $1
		 RETURNING ` + userColumns

	return r.scanUser(r.db.QueryRowContext(ctx, query, email, credentialHash))
}

func (r *PostgresRepository) MarkVerified(ctx context.Context, externalID string) error {
	query :=
		`UPDATE users SET email_verified = TRUE, updated_at = now()
		 WHERE external_id = $1 AND email_verified = FALSE`

	if _, err := r.db.ExecContext(ctx, query, externalID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

package users

import "context"

// Repository persists local user records. Uniqueness of email and
// external_id is enforced by the backing store; the upsert methods resolve
// conflicts in a single statement so concurrent calls stay idempotent at
// the row level.
type Repository interface {
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByExternalID(ctx context.Context, externalID string) (*User, error)

	// UpsertByEmail inserts the record or, when the email is already
	// taken, overwrites external_id, display_name and credential_hash on
	// the existing row. email_verified only advances false->true.
	UpsertByEmail(ctx context.Context, user *User) (*User, error)

	// UpsertByExternalID inserts the record or re-syncs email,
	// display_name and photo_url on the existing row. email_verified only
	// advances; credential_hash is left untouched.
	UpsertByExternalID(ctx context.Context, user *User) (*User, error)

	UpdateCredential(ctx context.Context, email, credentialHash string) (*User, error)
	MarkVerified(ctx context.Context, externalID string) error
}

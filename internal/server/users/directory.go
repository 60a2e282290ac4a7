// Package users owns the local shadow records of provider identities: the
// persisted model, its repository, and the Directory service that
// reconciles records between the registration and federated-login paths.
package users

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/jkalnina/authgate/internal/common"
)

// Directory is the single source of truth for "does this local account
// exist". All mutations of user records go through it.
type Directory struct {
	repo Repository
}

func NewDirectory(repo Repository) *Directory {
	return &Directory{repo: repo}
}

func (d *Directory) FindByEmail(ctx context.Context, email string) (*User, error) {
	return d.repo.FindByEmail(ctx, normalizeEmail(email))
}

func (d *Directory) FindByExternalID(ctx context.Context, externalID string) (*User, error) {
	return d.repo.FindByExternalID(ctx, externalID)
}

// CreateFromRegistration records an email-path account. When a record for
// the email already exists the registration is treated as re-registration
// and merged onto the existing row (external_id, display_name and
// credential_hash are overwritten); the local id is preserved.
func (d *Directory) CreateFromRegistration(ctx context.Context, externalID, email, credentialHash, displayName string, verified bool) (*User, error) {
	if externalID == "" || email == "" {
		return nil, common.ErrInvalidInput
	}

	user := &User{
		ID:             uuid.NewString(),
		ExternalID:     externalID,
		Email:          normalizeEmail(email),
		CredentialHash: credentialHash,
		DisplayName:    displayName,
		AuthProvider:   ProviderEmail,
		EmailVerified:  verified,
	}

	created, err := d.repo.UpsertByEmail(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("error creating user from registration: %w", err)
	}
	return created, nil
}

// GetOrCreateFromFederated returns the record for the external id,
// re-syncing provider-sourced fields, or creates a new federated record.
// The operation is idempotent: repeated calls with identical inputs yield
// the same local id and no extra side effects beyond the timestamp bump.
func (d *Directory) GetOrCreateFromFederated(ctx context.Context, externalID, email, displayName, photoURL string, verified bool) (*User, error) {
	if externalID == "" || email == "" {
		return nil, common.ErrInvalidInput
	}

	user := &User{
		ID:            uuid.NewString(),
		ExternalID:    externalID,
		Email:         normalizeEmail(email),
		DisplayName:   displayName,
		PhotoURL:      photoURL,
		AuthProvider:  ProviderFederated,
		EmailVerified: verified,
	}

	synced, err := d.repo.UpsertByExternalID(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("error syncing federated user: %w", err)
	}
	return synced, nil
}

// UpdateCredential re-hashes the local credential after a provider-side
// password reset. common.ErrNotFound when the email has no shadow record.
func (d *Directory) UpdateCredential(ctx context.Context, email, credentialHash string) (*User, error) {
	return d.repo.UpdateCredential(ctx, normalizeEmail(email), credentialHash)
}

// MarkVerified advances email_verified to true; no-op when already set.
func (d *Directory) MarkVerified(ctx context.Context, externalID string) error {
	return d.repo.MarkVerified(ctx, externalID)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

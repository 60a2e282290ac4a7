// Package identity abstracts the external identity authority. The provider
// owns primary credential verification, federated sign-in tokens and
// action-link generation; this service keeps only a local shadow of it.
package identity

import "context"

// GoogleProviderID is the linked-provider id the federated login flow
// requires on an identity.
const GoogleProviderID = "google.com"

// Identity is the provider's view of an account.
type Identity struct {
	ExternalID    string
	Email         string
	DisplayName   string
	PhotoURL      string
	EmailVerified bool
	// Providers lists the sign-in providers linked to the account,
	// e.g. "password", "google.com".
	Providers []string
}

// HasProvider reports whether the identity is linked to the given
// sign-in provider.
func (i *Identity) HasProvider(providerID string) bool {
	for _, p := range i.Providers {
		if p == providerID {
			return true
		}
	}
	return false
}

// Provider is the client for the external identity authority. All calls
// are remote and may fail transiently; transient failures surface as
// common.ErrProviderUnavailable, provider-declared business errors keep
// their distinct kinds (already-exists, not-found, invalid token).
type Provider interface {
	// CreateAccount creates an unverified account at the provider.
	CreateAccount(ctx context.Context, email, password, displayName string) (*Identity, error)

	// VerifyToken validates a federated ID token and resolves its identity.
	VerifyToken(ctx context.Context, idToken string) (*Identity, error)

	// GetIdentity fetches the live provider state for an external id.
	GetIdentity(ctx context.Context, externalID string) (*Identity, error)

	// VerificationLink returns a provider-generated, time-limited,
	// single-use email verification link.
	VerificationLink(ctx context.Context, email string) (string, error)

	// PasswordResetLink returns a provider-generated password reset link.
	PasswordResetLink(ctx context.Context, email string) (string, error)

	// ConfirmPasswordReset redeems a reset code at the provider and
	// returns the email the code belongs to.
	ConfirmPasswordReset(ctx context.Context, code, newPassword string) (string, error)
}

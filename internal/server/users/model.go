package users

import "time"

// AuthProvider identifies which path created a local account. It does not
// restrict later re-sync of verification status from the provider.
type AuthProvider string

const (
	ProviderEmail     AuthProvider = "email"
	ProviderFederated AuthProvider = "google"
)

// User is the local shadow record of an identity owned by the external
// provider. ID and ExternalID are immutable once set; Email is kept in
// lowercase. CredentialHash is empty for provider-only accounts.
type User struct {
	ID             string
	ExternalID     string
	Email          string
	CredentialHash string
	DisplayName    string
	PhotoURL       string
	AuthProvider   AuthProvider
	EmailVerified  bool
	Active         bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

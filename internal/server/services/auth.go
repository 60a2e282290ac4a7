// Package services contains the gateway's business logic. This file
// implements the authentication service: the state machine that
// reconciles the external identity provider with the local user
// directory and issues session tokens.
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jkalnina/authgate/internal/common"
	"github.com/jkalnina/authgate/internal/logging"
	"github.com/jkalnina/authgate/internal/server/auth"
	"github.com/jkalnina/authgate/internal/server/config"
	"github.com/jkalnina/authgate/internal/server/identity"
	"github.com/jkalnina/authgate/internal/server/mailer"
	"github.com/jkalnina/authgate/internal/server/users"
)

// EmailChecker validates that an address is deliverable before an account
// is created for it.
type EmailChecker interface {
	Validate(ctx context.Context, email string) error
}

// UserSummary is the caller-facing projection of a user record.
type UserSummary struct {
	Email         string             `json:"email"`
	DisplayName   string             `json:"display_name,omitempty"`
	PhotoURL      string             `json:"photo_url,omitempty"`
	AuthProvider  users.AuthProvider `json:"auth_provider"`
	EmailVerified bool               `json:"email_verified"`
}

// TokenResult bundles a freshly issued session token with the user it
// belongs to.
type TokenResult struct {
	Token string      `json:"access_token"`
	User  UserSummary `json:"user"`
}

// AuthService orchestrates the identity provider, the user directory, the
// token issuer and the notification sender into the user-facing flows.
type AuthService struct {
	directory *users.Directory
	provider  identity.Provider
	sender    mailer.Sender
	checker   EmailChecker
	logger    logging.Logger
	jwtSecret []byte
	tokenTTL  time.Duration
}

func NewAuthService(d *users.Directory, p identity.Provider, s mailer.Sender, c EmailChecker, l logging.Logger, cfg *config.Config) *AuthService {
	return &AuthService{
		directory: d,
		provider:  p,
		sender:    s,
		checker:   c,
		logger:    l.With("module", "auth_service"),
		jwtSecret: []byte(cfg.SecretKey),
		tokenTTL:  cfg.SessionTokenTTL,
	}
}

func summarize(u *users.User) UserSummary {
	return UserSummary{
		Email:         u.Email,
		DisplayName:   u.DisplayName,
		PhotoURL:      u.PhotoURL,
		AuthProvider:  u.AuthProvider,
		EmailVerified: u.EmailVerified,
	}
}

func (s *AuthService) issueToken(u *users.User) (*TokenResult, error) {
	token, err := auth.GenerateToken(u.ExternalID, u.ID, s.jwtSecret, s.tokenTTL)
	if err != nil {
		return nil, common.ErrInternal
	}
	return &TokenResult{Token: token, User: summarize(u)}, nil
}

// Register creates an account at the provider, shadows it locally and
// issues a session token. The account starts unverified; login is gated on
// verification, not registration. If the local write fails after the
// provider account was created, the provider account remains — there is no
// compensating rollback.
func (s *AuthService) Register(ctx context.Context, email, password, displayName string) (*TokenResult, error) {
	if password == "" {
		return nil, fmt.Errorf("%w: empty password", common.ErrInvalidInput)
	}
	if err := s.checker.Validate(ctx, email); err != nil {
		return nil, err
	}

	ident, err := s.provider.CreateAccount(ctx, email, password, displayName)
	if err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}

	user, err := s.directory.CreateFromRegistration(ctx, ident.ExternalID, email, hash, displayName, ident.EmailVerified)
	if err != nil {
		return nil, err
	}

	// The identity now exists at both sources of truth; a failed
	// verification mail must not fail the registration.
	s.sendVerificationMail(ctx, user.Email, user.DisplayName)

	return s.issueToken(user)
}

// Login authenticates the email path. The verification gate is enforced
// here: the provider's live verification state is re-synced (upward only)
// before the check.
func (s *AuthService) Login(ctx context.Context, email, password string) (*TokenResult, error) {
	user, err := s.directory.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrInvalidCredentials
		}
		return nil, err
	}

	if user.CredentialHash == "" {
		// provider-only account, not set up for password login
		return nil, common.ErrInvalidCredentials
	}
	if !auth.CheckPassword(password, user.CredentialHash) {
		return nil, common.ErrInvalidCredentials
	}

	ident, err := s.provider.GetIdentity(ctx, user.ExternalID)
	if err != nil {
		return nil, err
	}

	if ident.EmailVerified && !user.EmailVerified {
		if err := s.directory.MarkVerified(ctx, user.ExternalID); err != nil {
			return nil, err
		}
		user.EmailVerified = true
	}

	if !user.EmailVerified {
		return nil, common.ErrEmailNotVerified
	}

	return s.issueToken(user)
}

// FederatedLogin authenticates via a provider-issued ID token. Federated
// identities are pre-verified by construction, so the token is issued
// unconditionally once the identity checks out.
func (s *AuthService) FederatedLogin(ctx context.Context, idToken string) (*TokenResult, error) {
	verified, err := s.provider.VerifyToken(ctx, idToken)
	if err != nil {
		return nil, err
	}

	ident, err := s.provider.GetIdentity(ctx, verified.ExternalID)
	if err != nil {
		return nil, err
	}

	if !ident.HasProvider(identity.GoogleProviderID) {
		return nil, common.ErrWrongFlow
	}

	user, err := s.directory.GetOrCreateFromFederated(ctx, ident.ExternalID, ident.Email, ident.DisplayName, ident.PhotoURL, ident.EmailVerified)
	if err != nil {
		return nil, err
	}

	return s.issueToken(user)
}

// ResendVerification re-sends the verification link. Unlike registration,
// the send is the whole operation here, so a delivery failure is terminal.
func (s *AuthService) ResendVerification(ctx context.Context, email string) error {
	user, err := s.directory.FindByEmail(ctx, email)
	if err != nil {
		return err
	}
	if user.EmailVerified {
		return common.ErrAlreadyVerified
	}

	link, err := s.provider.VerificationLink(ctx, user.Email)
	if err != nil {
		return err
	}

	msg := mailer.VerificationMessage(user.DisplayName, link)
	if err := s.sender.Send(ctx, user.Email, msg.Subject, msg.Body); err != nil {
		return fmt.Errorf("%w: %v", common.ErrNotificationFailed, err)
	}
	return nil
}

// RequestPasswordReset triggers a provider-generated reset link. No local
// state changes and outstanding session tokens stay valid.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) error {
	user, err := s.directory.FindByEmail(ctx, email)
	if err != nil {
		return err
	}

	link, err := s.provider.PasswordResetLink(ctx, user.Email)
	if err != nil {
		return err
	}

	msg := mailer.PasswordResetMessage(user.DisplayName, link)
	if err := s.sender.Send(ctx, user.Email, msg.Subject, msg.Body); err != nil {
		return fmt.Errorf("%w: %v", common.ErrNotificationFailed, err)
	}
	return nil
}

// ConfirmPasswordReset redeems the reset code at the provider, then
// re-hashes the local credential for the email the code belongs to.
// common.ErrNotFound when the account exists only at the provider.
func (s *AuthService) ConfirmPasswordReset(ctx context.Context, code, newPassword string) error {
	email, err := s.provider.ConfirmPasswordReset(ctx, code, newPassword)
	if err != nil {
		return err
	}

	hash, err := auth.HashPassword(newPassword)
	if err != nil {
		return err
	}

	if _, err := s.directory.UpdateCredential(ctx, email, hash); err != nil {
		return err
	}
	return nil
}

// Authenticate resolves a bearer session token to an active local user.
// Used by every protected operation outside the auth flows.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*users.User, error) {
	externalID, _, err := auth.ParseToken(token, s.jwtSecret)
	if err != nil {
		return nil, err
	}

	user, err := s.directory.FindByExternalID(ctx, externalID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrUnauthorized
		}
		return nil, err
	}
	if !user.Active {
		return nil, common.ErrUnauthorized
	}

	return user, nil
}

func (s *AuthService) sendVerificationMail(ctx context.Context, email, displayName string) {
	link, err := s.provider.VerificationLink(ctx, email)
	if err != nil {
		s.logger.Warn(ctx, "could not generate verification link", "email", email, "error", err)
		return
	}

	msg := mailer.VerificationMessage(displayName, link)
	if err := s.sender.Send(ctx, email, msg.Subject, msg.Body); err != nil {
		s.logger.Warn(ctx, "verification mail delivery failed", "email", email, "error", err)
	}
}

package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jkalnina/authgate/internal/common"
	"github.com/jkalnina/authgate/internal/logging"
	"github.com/jkalnina/authgate/internal/server/config"
	"github.com/jkalnina/authgate/internal/server/identity"
	"github.com/jkalnina/authgate/internal/server/users"
)

// --- fakes ---

type nopLogger struct{}

func (nopLogger) Debug(ctx context.Context, msg string, args ...any) {}
func (nopLogger) Info(ctx context.Context, msg string, args ...any)  {}
func (nopLogger) Warn(ctx context.Context, msg string, args ...any)  {}
func (nopLogger) Error(ctx context.Context, msg string, args ...any) {}
func (nopLogger) With(args ...any) logging.Logger                    { return nopLogger{} }

type okChecker struct{}

func (okChecker) Validate(ctx context.Context, email string) error { return nil }

type failChecker struct{}

func (failChecker) Validate(ctx context.Context, email string) error {
	return fmt.Errorf("%w: invalid email domain", common.ErrInvalidInput)
}

// memRepo emulates the store's unique-constraint upsert semantics.
type memRepo struct {
	byEmail map[string]*users.User
	byExt   map[string]*users.User
}

func newMemRepo() *memRepo {
	return &memRepo{byEmail: map[string]*users.User{}, byExt: map[string]*users.User{}}
}

func (m *memRepo) FindByEmail(ctx context.Context, email string) (*users.User, error) {
	if u, ok := m.byEmail[email]; ok {
		return u, nil
	}
	return nil, common.ErrNotFound
}

func (m *memRepo) FindByExternalID(ctx context.Context, externalID string) (*users.User, error) {
	if u, ok := m.byExt[externalID]; ok {
		return u, nil
	}
	return nil, common.ErrNotFound
}

func (m *memRepo) UpsertByEmail(ctx context.Context, user *users.User) (*users.User, error) {
	if existing, ok := m.byEmail[user.Email]; ok {
		delete(m.byExt, existing.ExternalID)
		existing.ExternalID = user.ExternalID
		existing.DisplayName = user.DisplayName
		existing.CredentialHash = user.CredentialHash
		existing.EmailVerified = existing.EmailVerified || user.EmailVerified
		existing.UpdatedAt = time.Now()
		m.byExt[existing.ExternalID] = existing
		return existing, nil
	}
	u := *user
	u.Active = true
	m.byEmail[u.Email] = &u
	m.byExt[u.ExternalID] = &u
	return &u, nil
}

func (m *memRepo) UpsertByExternalID(ctx context.Context, user *users.User) (*users.User, error) {
	if existing, ok := m.byExt[user.ExternalID]; ok {
		delete(m.byEmail, existing.Email)
		existing.Email = user.Email
		existing.DisplayName = user.DisplayName
		existing.PhotoURL = user.PhotoURL
		existing.EmailVerified = existing.EmailVerified || user.EmailVerified
		existing.UpdatedAt = time.Now()
		m.byEmail[existing.Email] = existing
		return existing, nil
	}
	u := *user
	u.Active = true
	m.byEmail[u.Email] = &u
	m.byExt[u.ExternalID] = &u
	return &u, nil
}

func (m *memRepo) UpdateCredential(ctx context.Context, email, credentialHash string) (*users.User, error) {
	u, ok := m.byEmail[email]
	if !ok {
		return nil, common.ErrNotFound
	}
	u.CredentialHash = credentialHash
	return u, nil
}

func (m *memRepo) MarkVerified(ctx context.Context, externalID string) error {
	if u, ok := m.byExt[externalID]; ok {
		u.EmailVerified = true
	}
	return nil
}

// fakeProvider simulates the external identity authority.
type fakeProvider struct {
	identities map[string]*identity.Identity // keyed by external id
	tokens     map[string]string             // federated id token -> external id
	resetCodes map[string]string             // oobCode -> email
	nextID     int

	createErr error
	linkErr   error
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		identities: map[string]*identity.Identity{},
		tokens:     map[string]string{},
		resetCodes: map[string]string{},
	}
}

func (p *fakeProvider) CreateAccount(ctx context.Context, email, password, displayName string) (*identity.Identity, error) {
	if p.createErr != nil {
		return nil, p.createErr
	}
	for _, id := range p.identities {
		if id.Email == email {
			return nil, common.ErrAlreadyExists
		}
	}
	p.nextID++
	id := &identity.Identity{
		ExternalID:  fmt.Sprintf("ext-%d", p.nextID),
		Email:       email,
		DisplayName: displayName,
		Providers:   []string{"password"},
	}
	p.identities[id.ExternalID] = id
	return id, nil
}

func (p *fakeProvider) VerifyToken(ctx context.Context, idToken string) (*identity.Identity, error) {
	extID, ok := p.tokens[idToken]
	if !ok {
		return nil, common.ErrInvalidToken
	}
	return &identity.Identity{ExternalID: extID}, nil
}

func (p *fakeProvider) GetIdentity(ctx context.Context, externalID string) (*identity.Identity, error) {
	id, ok := p.identities[externalID]
	if !ok {
		return nil, common.ErrNotFound
	}
	return id, nil
}

func (p *fakeProvider) VerificationLink(ctx context.Context, email string) (string, error) {
	if p.linkErr != nil {
		return "", p.linkErr
	}
	return "https://provider.test/verify?email=" + email, nil
}

func (p *fakeProvider) PasswordResetLink(ctx context.Context, email string) (string, error) {
	if p.linkErr != nil {
		return "", p.linkErr
	}
	return "https://provider.test/reset?email=" + email, nil
}

func (p *fakeProvider) ConfirmPasswordReset(ctx context.Context, code, newPassword string) (string, error) {
	email, ok := p.resetCodes[code]
	if !ok {
		return "", common.ErrInvalidToken
	}
	return email, nil
}

type sentMail struct {
	to      string
	subject string
}

type fakeSender struct {
	sent    []sentMail
	sendErr error
}

func (s *fakeSender) Send(ctx context.Context, to, subject, htmlBody string) error {
	if s.sendErr != nil {
		return s.sendErr
	}
	s.sent = append(s.sent, sentMail{to: to, subject: subject})
	return nil
}

type fixture struct {
	service  *AuthService
	provider *fakeProvider
	sender   *fakeSender
	repo     *memRepo
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	provider := newFakeProvider()
	sender := &fakeSender{}
	repo := newMemRepo()
	cfg := &config.Config{SecretKey: "test-secret", SessionTokenTTL: time.Hour}
	service := NewAuthService(users.NewDirectory(repo), provider, sender, okChecker{}, nopLogger{}, cfg)
	return &fixture{service: service, provider: provider, sender: sender, repo: repo}
}

// --- register ---

func TestRegister_Success(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	result, err := f.service.Register(ctx, "a@x.com", "pw1", "Ann")
	require.NoError(t, err)
	require.NotEmpty(t, result.Token)
	assert.Equal(t, "a@x.com", result.User.Email)
	assert.Equal(t, users.ProviderEmail, result.User.AuthProvider)
	assert.False(t, result.User.EmailVerified)

	// verification mail was triggered
	require.Len(t, f.sender.sent, 1)
	assert.Equal(t, "a@x.com", f.sender.sent[0].to)
}

func TestRegister_EmptyPassword(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.Register(context.Background(), "a@x.com", "", "Ann")
	require.ErrorIs(t, err, common.ErrInvalidInput)
	assert.Empty(t, f.provider.identities, "no provider account may be created for invalid input")
}

func TestRegister_UndeliverableEmail(t *testing.T) {
	f := newFixture(t)
	cfg := &config.Config{SecretKey: "test-secret", SessionTokenTTL: time.Hour}
	service := NewAuthService(users.NewDirectory(f.repo), f.provider, f.sender, failChecker{}, nopLogger{}, cfg)

	_, err := service.Register(context.Background(), "a@bad.test", "pw1", "Ann")
	require.ErrorIs(t, err, common.ErrInvalidInput)
	assert.Empty(t, f.provider.identities)
}

func TestRegister_ProviderAlreadyExists(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.service.Register(ctx, "a@x.com", "pw1", "Ann")
	require.NoError(t, err)

	f.provider.createErr = common.ErrAlreadyExists
	_, err = f.service.Register(ctx, "a@x.com", "pw2", "Ann")
	require.ErrorIs(t, err, common.ErrAlreadyExists)
}

func TestRegister_ProviderUnavailable(t *testing.T) {
	f := newFixture(t)
	f.provider.createErr = common.ErrProviderUnavailable

	_, err := f.service.Register(context.Background(), "a@x.com", "pw1", "Ann")
	require.ErrorIs(t, err, common.ErrProviderUnavailable)
}

func TestRegister_MailFailureIsNonFatal(t *testing.T) {
	f := newFixture(t)
	f.sender.sendErr = common.ErrNotificationFailed

	result, err := f.service.Register(context.Background(), "a@x.com", "pw1", "Ann")
	require.NoError(t, err, "a failed verification mail must not fail registration")
	require.NotEmpty(t, result.Token)
}

func TestRegister_MergeOnDuplicateEmail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.service.Register(ctx, "a@x.com", "pw1", "Ann")
	require.NoError(t, err)

	// provider account is recreated out of band; local record gets merged
	delete(f.provider.identities, "ext-1")
	second, err := f.service.Register(ctx, "a@x.com", "pw2", "Ann Again")
	require.NoError(t, err)

	u, err := f.repo.FindByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, "Ann Again", u.DisplayName)
	assert.NotEqual(t, first.User.DisplayName, second.User.DisplayName)
	assert.Len(t, f.repo.byEmail, 1, "re-registration must not create a second record")
}

// --- login (email path) ---

func TestLogin_UnknownEmail(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.Login(context.Background(), "ghost@x.com", "pw")
	require.ErrorIs(t, err, common.ErrInvalidCredentials)
}

func TestLogin_WrongPassword(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.service.Register(ctx, "a@x.com", "pw1", "Ann")
	require.NoError(t, err)

	_, err = f.service.Login(ctx, "a@x.com", "wrong")
	require.ErrorIs(t, err, common.ErrInvalidCredentials)
}

func TestLogin_ProviderOnlyAccount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.provider.identities["ext-g"] = &identity.Identity{
		ExternalID: "ext-g", Email: "g@x.com", EmailVerified: true,
		Providers: []string{identity.GoogleProviderID},
	}
	f.provider.tokens["good-token"] = "ext-g"
	_, err := f.service.FederatedLogin(ctx, "good-token")
	require.NoError(t, err)

	_, err = f.service.Login(ctx, "g@x.com", "whatever")
	require.ErrorIs(t, err, common.ErrInvalidCredentials, "accounts without a credential hash cannot use password login")
}

func TestLogin_VerificationGateAndResync(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.service.Register(ctx, "a@x.com", "pw1", "Ann")
	require.NoError(t, err)

	// still unverified at the provider
	_, err = f.service.Login(ctx, "a@x.com", "pw1")
	require.ErrorIs(t, err, common.ErrEmailNotVerified)

	// user clicks the link; provider flips the flag, local copy lags
	f.provider.identities["ext-1"].EmailVerified = true

	result, err := f.service.Login(ctx, "a@x.com", "pw1")
	require.NoError(t, err)
	require.NotEmpty(t, result.Token)
	assert.True(t, result.User.EmailVerified, "login must re-sync verification from the provider")

	u, err := f.repo.FindByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	assert.True(t, u.EmailVerified, "re-sync must persist")
}

func TestLogin_ProviderUnavailable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.service.Register(ctx, "a@x.com", "pw1", "Ann")
	require.NoError(t, err)

	// identity vanished at the provider
	delete(f.provider.identities, "ext-1")
	_, err = f.service.Login(ctx, "a@x.com", "pw1")
	require.ErrorIs(t, err, common.ErrNotFound)
}

// --- federated login ---

func TestFederatedLogin_Success(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.provider.identities["ext-g"] = &identity.Identity{
		ExternalID: "ext-g", Email: "bob@x.com", DisplayName: "Bob",
		PhotoURL: "https://img/p.png", EmailVerified: true,
		Providers: []string{identity.GoogleProviderID},
	}
	f.provider.tokens["good-token"] = "ext-g"

	result, err := f.service.FederatedLogin(ctx, "good-token")
	require.NoError(t, err)
	require.NotEmpty(t, result.Token)
	assert.Equal(t, users.ProviderFederated, result.User.AuthProvider)
	assert.True(t, result.User.EmailVerified)

	// idempotent: second login yields the same local record
	u1, err := f.repo.FindByExternalID(ctx, "ext-g")
	require.NoError(t, err)
	_, err = f.service.FederatedLogin(ctx, "good-token")
	require.NoError(t, err)
	u2, err := f.repo.FindByExternalID(ctx, "ext-g")
	require.NoError(t, err)
	assert.Equal(t, u1.ID, u2.ID)
	assert.Len(t, f.repo.byExt, 1)
}

func TestFederatedLogin_InvalidToken(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.FederatedLogin(context.Background(), "bad-token")
	require.ErrorIs(t, err, common.ErrInvalidToken)
}

func TestFederatedLogin_WrongFlow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// identity exists but is password-only
	f.provider.identities["ext-p"] = &identity.Identity{
		ExternalID: "ext-p", Email: "p@x.com", Providers: []string{"password"},
	}
	f.provider.tokens["pw-token"] = "ext-p"

	_, err := f.service.FederatedLogin(ctx, "pw-token")
	require.ErrorIs(t, err, common.ErrWrongFlow)
	assert.Empty(t, f.repo.byExt, "wrong-flow login must not create or mutate local records")
}

// --- verification & reset lifecycle ---

func TestResendVerification(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	err := f.service.ResendVerification(ctx, "ghost@x.com")
	require.ErrorIs(t, err, common.ErrNotFound)

	_, err = f.service.Register(ctx, "a@x.com", "pw1", "Ann")
	require.NoError(t, err)
	f.sender.sent = nil

	require.NoError(t, f.service.ResendVerification(ctx, "a@x.com"))
	require.Len(t, f.sender.sent, 1)

	// verified accounts are rejected
	f.provider.identities["ext-1"].EmailVerified = true
	_, err = f.service.Login(ctx, "a@x.com", "pw1")
	require.NoError(t, err)
	err = f.service.ResendVerification(ctx, "a@x.com")
	require.ErrorIs(t, err, common.ErrAlreadyVerified)
}

func TestResendVerification_SendFailureIsTerminal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.service.Register(ctx, "a@x.com", "pw1", "Ann")
	require.NoError(t, err)

	f.sender.sendErr = fmt.Errorf("smtp down")
	err = f.service.ResendVerification(ctx, "a@x.com")
	require.ErrorIs(t, err, common.ErrNotificationFailed)
}

func TestRequestPasswordReset(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	err := f.service.RequestPasswordReset(ctx, "ghost@x.com")
	require.ErrorIs(t, err, common.ErrNotFound)

	_, err = f.service.Register(ctx, "a@x.com", "pw1", "Ann")
	require.NoError(t, err)
	f.sender.sent = nil

	require.NoError(t, f.service.RequestPasswordReset(ctx, "a@x.com"))
	require.Len(t, f.sender.sent, 1)

	// no local state change
	u, err := f.repo.FindByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	assert.NotEmpty(t, u.CredentialHash)
}

func TestConfirmPasswordReset_Success(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.service.Register(ctx, "a@x.com", "pw1", "Ann")
	require.NoError(t, err)
	f.provider.identities["ext-1"].EmailVerified = true
	f.provider.resetCodes["code-1"] = "a@x.com"

	require.NoError(t, f.service.ConfirmPasswordReset(ctx, "code-1", "pw2"))

	// old password no longer matches the local shadow, new one does
	_, err = f.service.Login(ctx, "a@x.com", "pw1")
	require.ErrorIs(t, err, common.ErrInvalidCredentials)
	_, err = f.service.Login(ctx, "a@x.com", "pw2")
	require.NoError(t, err)
}

func TestConfirmPasswordReset_InvalidCode(t *testing.T) {
	f := newFixture(t)

	err := f.service.ConfirmPasswordReset(context.Background(), "bogus", "pw2")
	require.ErrorIs(t, err, common.ErrInvalidToken)
}

func TestConfirmPasswordReset_OrphanEmail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// the code belongs to an account that exists only at the provider
	f.provider.resetCodes["code-b"] = "b@y.com"

	err := f.service.ConfirmPasswordReset(ctx, "code-b", "pw2")
	require.ErrorIs(t, err, common.ErrNotFound)
	_, err = f.repo.FindByEmail(ctx, "b@y.com")
	require.ErrorIs(t, err, common.ErrNotFound, "no record may be created for an orphan reset")
}

// --- token validation ---

func TestAuthenticate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	result, err := f.service.Register(ctx, "a@x.com", "pw1", "Ann")
	require.NoError(t, err)

	user, err := f.service.Authenticate(ctx, result.Token)
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", user.Email)

	_, err = f.service.Authenticate(ctx, "garbage")
	require.ErrorIs(t, err, common.ErrInvalidToken)
}

func TestAuthenticate_Expired(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cfg := &config.Config{SecretKey: "test-secret", SessionTokenTTL: -time.Second}
	service := NewAuthService(users.NewDirectory(f.repo), f.provider, f.sender, okChecker{}, nopLogger{}, cfg)

	result, err := service.Register(ctx, "a@x.com", "pw1", "Ann")
	require.NoError(t, err)

	_, err = service.Authenticate(ctx, result.Token)
	require.ErrorIs(t, err, common.ErrTokenExpired)
}

func TestAuthenticate_OrphanAndInactive(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	result, err := f.service.Register(ctx, "a@x.com", "pw1", "Ann")
	require.NoError(t, err)

	u, err := f.repo.FindByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	u.Active = false
	_, err = f.service.Authenticate(ctx, result.Token)
	require.ErrorIs(t, err, common.ErrUnauthorized)

	delete(f.repo.byExt, u.ExternalID)
	_, err = f.service.Authenticate(ctx, result.Token)
	require.ErrorIs(t, err, common.ErrUnauthorized)
}

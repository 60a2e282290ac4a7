package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	firebase "firebase.google.com/go/v4"
	fbauth "firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"

	"github.com/jkalnina/authgate/internal/common"
)

const defaultResetEndpoint = "https://identitytoolkit.googleapis.com/v1/accounts:resetPassword"

// FirebaseProvider implements Provider on the Firebase Admin SDK. The one
// exception is ConfirmPasswordReset: the Admin SDK cannot redeem oobCodes,
// so that call goes straight to the Identity Toolkit REST endpoint using
// the web API key.
type FirebaseProvider struct {
	auth          *fbauth.Client
	apiKey        string
	httpClient    *http.Client
	resetEndpoint string
}

// NewFirebaseProvider initializes the Admin SDK once from a service
// account file; the returned client is passed by reference to the
// authentication service.
func NewFirebaseProvider(ctx context.Context, credentialsFile, apiKey string) (*FirebaseProvider, error) {
	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(credentialsFile))
	if err != nil {
		return nil, fmt.Errorf("firebase app init error: %w", err)
	}

	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("firebase auth client init error: %w", err)
	}

	return &FirebaseProvider{
		auth:          client,
		apiKey:        apiKey,
		httpClient:    &http.Client{Timeout: 10 * time.Second},
		resetEndpoint: defaultResetEndpoint,
	}, nil
}

func identityFromRecord(u *fbauth.UserRecord) *Identity {
	id := &Identity{
		ExternalID:    u.UID,
		Email:         u.Email,
		DisplayName:   u.DisplayName,
		PhotoURL:      u.PhotoURL,
		EmailVerified: u.EmailVerified,
	}
	for _, p := range u.ProviderUserInfo {
		id.Providers = append(id.Providers, p.ProviderID)
	}
	return id
}

func (p *FirebaseProvider) CreateAccount(ctx context.Context, email, password, displayName string) (*Identity, error) {
	params := (&fbauth.UserToCreate{}).
		Email(email).
		Password(password).
		EmailVerified(false)
	if displayName != "" {
		params = params.DisplayName(displayName)
	}

	record, err := p.auth.CreateUser(ctx, params)
	if err != nil {
		if fbauth.IsEmailAlreadyExists(err) {
			return nil, common.ErrAlreadyExists
		}
		return nil, fmt.Errorf("%w: create account: %v", common.ErrProviderUnavailable, err)
	}

	return identityFromRecord(record), nil
}

func (p *FirebaseProvider) VerifyToken(ctx context.Context, idToken string) (*Identity, error) {
	token, err := p.auth.VerifyIDToken(ctx, idToken)
	if err != nil {
		if fbauth.IsIDTokenExpired(err) {
			return nil, common.ErrTokenExpired
		}
		if fbauth.IsIDTokenInvalid(err) {
			return nil, common.ErrInvalidToken
		}
		return nil, fmt.Errorf("%w: verify token: %v", common.ErrProviderUnavailable, err)
	}

	return &Identity{ExternalID: token.UID}, nil
}

func (p *FirebaseProvider) GetIdentity(ctx context.Context, externalID string) (*Identity, error) {
	record, err := p.auth.GetUser(ctx, externalID)
	if err != nil {
		if fbauth.IsUserNotFound(err) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("%w: get identity: %v", common.ErrProviderUnavailable, err)
	}

	return identityFromRecord(record), nil
}

func (p *FirebaseProvider) VerificationLink(ctx context.Context, email string) (string, error) {
	link, err := p.auth.EmailVerificationLink(ctx, email)
	if err != nil {
		return "", fmt.Errorf("%w: verification link: %v", common.ErrProviderUnavailable, err)
	}
	return link, nil
}

func (p *FirebaseProvider) PasswordResetLink(ctx context.Context, email string) (string, error) {
	link, err := p.auth.PasswordResetLink(ctx, email)
	if err != nil {
		return "", fmt.Errorf("%w: password reset link: %v", common.ErrProviderUnavailable, err)
	}
	return link, nil
}

type resetRequest struct {
	OOBCode     string `json:"oobCode"`
	NewPassword string `json:"newPassword"`
}

type resetResponse struct {
	Email string `json:"email"`
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// ConfirmPasswordReset redeems the oobCode against the Identity Toolkit
// REST API and returns the email the code belongs to, so the caller can
// re-hash the local credential in sync with the provider-side update.
func (p *FirebaseProvider) ConfirmPasswordReset(ctx context.Context, code, newPassword string) (string, error) {
	if code == "" || newPassword == "" {
		return "", common.ErrInvalidInput
	}

	body, err := json.Marshal(resetRequest{OOBCode: code, NewPassword: newPassword})
	if err != nil {
		return "", err
	}

	url := p.resetEndpoint + "?key=" + p.apiKey
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: confirm password reset: %v", common.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	var parsed resetResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("%w: confirm password reset: malformed response", common.ErrProviderUnavailable)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		return parsed.Email, nil
	case resp.StatusCode >= 500:
		return "", fmt.Errorf("%w: confirm password reset: status %d", common.ErrProviderUnavailable, resp.StatusCode)
	case strings.HasPrefix(parsed.Error.Message, "EXPIRED_OOB_CODE"):
		return "", common.ErrTokenExpired
	case strings.HasPrefix(parsed.Error.Message, "WEAK_PASSWORD"):
		return "", fmt.Errorf("%w: %s", common.ErrInvalidInput, parsed.Error.Message)
	default:
		// INVALID_OOB_CODE and anything else the provider rejects
		return "", common.ErrInvalidToken
	}
}

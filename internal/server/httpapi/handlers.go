// Package httpapi is the thin HTTP dispatch layer over the authentication
// service: request decoding, error-to-status mapping and the bearer-token
// middleware. No business logic lives here.
package httpapi

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/jkalnina/authgate/internal/common"
	"github.com/jkalnina/authgate/internal/logging"
	"github.com/jkalnina/authgate/internal/server/services"
	"github.com/jkalnina/authgate/internal/server/users"
)

// AuthService is the surface of the authentication service the handlers
// dispatch to.
type AuthService interface {
	Register(ctx context.Context, email, password, displayName string) (*services.TokenResult, error)
	Login(ctx context.Context, email, password string) (*services.TokenResult, error)
	FederatedLogin(ctx context.Context, idToken string) (*services.TokenResult, error)
	ResendVerification(ctx context.Context, email string) error
	RequestPasswordReset(ctx context.Context, email string) error
	ConfirmPasswordReset(ctx context.Context, code, newPassword string) error
	Authenticate(ctx context.Context, token string) (*users.User, error)
}

type Handler struct {
	auth   AuthService
	logger logging.Logger
}

func NewHandler(auth AuthService, logger logging.Logger) *Handler {
	return &Handler{auth: auth, logger: logger.With("module", "httpapi")}
}

func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return common.ErrInvalidInput
	}
	return nil
}

type registerRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.auth.Register(r.Context(), req.Email, req.Password, req.DisplayName)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type federatedLoginRequest struct {
	IDToken string `json:"id_token"`
}

func (h *Handler) FederatedLogin(w http.ResponseWriter, r *http.Request) {
	var req federatedLoginRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.auth.FederatedLogin(r.Context(), req.IDToken)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type emailRequest struct {
	Email string `json:"email"`
}

func (h *Handler) ResendVerification(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.auth.ResendVerification(r.Context(), req.Email); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, statusBody{Message: "verification email sent"})
}

func (h *Handler) RequestPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.auth.RequestPasswordReset(r.Context(), req.Email); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, statusBody{Message: "password reset email sent"})
}

type confirmResetRequest struct {
	OOBCode     string `json:"oob_code"`
	NewPassword string `json:"new_password"`
}

func (h *Handler) ConfirmPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req confirmResetRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.auth.ConfirmPasswordReset(r.Context(), req.OOBCode, req.NewPassword); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, statusBody{Message: "password has been reset"})
}

// Me returns the authenticated user's summary; it exercises the token
// validation path used by everything behind the gateway.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	writeJSON(w, http.StatusOK, services.UserSummary{
		Email:         user.Email,
		DisplayName:   user.DisplayName,
		PhotoURL:      user.PhotoURL,
		AuthProvider:  user.AuthProvider,
		EmailVerified: user.EmailVerified,
	})
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, statusBody{Message: "ok"})
}

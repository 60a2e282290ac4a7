package httpapi

import (
	"context"
	"net/http"
	"strings"

	"github.com/jkalnina/authgate/internal/server/users"
)

type ctxKey string

const userKey ctxKey = "user"

func userFromContext(ctx context.Context) (*users.User, bool) {
	user, ok := ctx.Value(userKey).(*users.User)
	return user, ok
}

// RequireAuth resolves the bearer token to an active local user and puts
// the user on the request context. Missing, malformed, expired and
// orphaned tokens all end the request with 401.
func (h *Handler) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}

		user, err := h.auth.Authenticate(r.Context(), token)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		ctx := context.WithValue(r.Context(), userKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

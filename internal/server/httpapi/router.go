package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/redis/go-redis/v9"
)

// NewRouter builds the gateway's route table. rdb may be nil, in which
// case the auth routes run without rate limiting.
func NewRouter(h *Handler, rdb *redis.Client) chi.Router {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/healthz", h.Health)

	r.Route("/api/auth", func(r chi.Router) {
		if rdb != nil {
			r.Use(RateLimit(rdb, 10, 30*time.Second, "auth"))
		}
		r.Post("/email-register", h.Register)
		r.Post("/email-login", h.Login)
		r.Post("/login-google", h.FederatedLogin)
		r.Post("/resend-verification", h.ResendVerification)
		r.Post("/password-reset", h.RequestPasswordReset)
		r.Post("/set-new-password", h.ConfirmPasswordReset)
	})

	r.Group(func(r chi.Router) {
		r.Use(h.RequireAuth)
		r.Get("/api/me", h.Me)
	})

	return r
}

// NewServer wraps the router in an http.Server with sane timeouts.
func NewServer(addr string, router chi.Router) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
	}
}

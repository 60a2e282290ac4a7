// Package server wires the authentication gateway together: configuration,
// storage, the identity provider client, the notification sender and the
// HTTP endpoint, plus graceful shutdown on OS signals.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jkalnina/authgate/internal/emailx"
	"github.com/jkalnina/authgate/internal/logging"
	"github.com/jkalnina/authgate/internal/server/config"
	"github.com/jkalnina/authgate/internal/server/db"
	"github.com/jkalnina/authgate/internal/server/httpapi"
	"github.com/jkalnina/authgate/internal/server/identity"
	"github.com/jkalnina/authgate/internal/server/mailer"
	"github.com/jkalnina/authgate/internal/server/services"
	"github.com/jkalnina/authgate/internal/server/users"
)

const httpShutdownTimeout = 10 * time.Second

type App struct {
	config  *config.Config
	logger  logging.Logger
	manager db.RepositoryManager
	auth    *services.AuthService
	rdb     *redis.Client
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	manager, err := db.NewPostgresRepositoryManager(ctx, cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	provider, err := identity.NewFirebaseProvider(ctx, cfg.FirebaseCredentialsFile, cfg.FirebaseAPIKey)
	if err != nil {
		return nil, fmt.Errorf("identity provider init error: %w", err)
	}

	sender := mailer.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword, cfg.MailFrom)
	directory := users.NewDirectory(manager.Users())

	auth := services.NewAuthService(directory, provider, sender, emailx.NewValidator(), logger, cfg)

	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	}

	return &App{config: cfg, logger: logger, manager: manager, auth: auth, rdb: rdb}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	handler := httpapi.NewHandler(app.auth, app.logger)
	srv := httpapi.NewServer(app.config.EndpointAddrHTTP, httpapi.NewRouter(handler, app.rdb))

	go func() {
		<-ctx.Done()
		app.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), httpShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			app.logger.Error(ctx, "shutdown error", "error", err)
		}
	}()

	app.logger.Info(ctx, "Starting HTTP server", "address", app.config.EndpointAddrHTTP)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Wait()

	if err := app.manager.Close(); err != nil {
		app.logger.Error(ctx, "db close error", "error", err)
	}
}

package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/daybookhq/daybook/internal/calendar"
	"github.com/daybookhq/daybook/internal/email"
	"github.com/daybookhq/daybook/internal/federated"
	httpapi "github.com/daybookhq/daybook/internal/http"
	"github.com/daybookhq/daybook/internal/service"
	"github.com/daybookhq/daybook/internal/store"
	redisstore "github.com/daybookhq/daybook/internal/store/drivers/redis"
	"github.com/daybookhq/daybook/internal/store/drivers/sqlite"
	"github.com/daybookhq/daybook/pkg/cryptox"
	"github.com/daybookhq/daybook/pkg/jwtx"
	"github.com/daybookhq/daybook/pkg/slogx"
)

const (
	// BuildVersion should be set at build time via ldflags. Later problem
	BuildVersion = "v0.1.0"
)

// Application encapsulates the service with all its dependencies.
type Application struct {
	cfg    Config
	logger *slog.Logger

	// Core dependencies
	db    store.Store
	redis *goredis.Client // nil unless RedisAddr is configured

	// Services
	authService         *service.AuthService
	federatedService    *service.FederatedService
	todoService         *service.TodoService
	housekeepingService *service.HousekeepingService

	// HTTP server
	server *http.Server
	router *httpapi.Router
}

// New creates a new Application instance with all dependencies initialized.
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "daybook",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	// Set pepper path for password hashing
	cryptox.SetPepperPath(app.cfg.PepperFile)

	if err := app.initDatabase(); err != nil {
		return nil, err
	}

	if err := app.initServices(); err != nil {
		_ = app.db.Close()
		return nil, err
	}
	if err := app.initHTTP(); err != nil {
		_ = app.db.Close()
		return nil, err
	}

	return app, nil
}

// Run starts the application and blocks until shutdown is requested.
func (app *Application) Run() error {
	app.housekeepingService.Start()

	app.logger.Info("daybook starting", "port", app.cfg.Port, "version", BuildVersion)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)

		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown gracefully shuts down the application.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down daybook...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	app.housekeepingService.Stop()

	if app.redis != nil {
		if err := app.redis.Close(); err != nil {
			app.logger.Error("error closing redis client", "error", err)
		}
	}

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("daybook stopped")
	return nil
}

// initDatabase initializes the database and applies migrations.
func (app *Application) initDatabase() error {
	host := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", app.cfg.DatabaseFile)
	db, err := sqlite.NewStore(host)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied successfully")
	return nil
}

// initServices initializes all business logic services.
func (app *Application) initServices() error {
	signer, err := jwtx.NewSignerHS256([]byte(app.cfg.SessionSecret))
	if err != nil {
		return fmt.Errorf("failed to create session signer: %w", err)
	}

	sessions := &service.SessionService{
		Signer: signer,
		Issuer: app.cfg.Issuer,
		TTL:    app.cfg.SessionTTL,
	}

	codes := &service.EmailCodeService{
		Codes:  app.initCodeStore(),
		Sender: app.initEmailSender(),
		TTL:    app.cfg.CodeTTL,
	}

	app.authService = &service.AuthService{
		Store:    app.db,
		Codes:    codes,
		TOTP:     &service.TOTPService{Issuer: app.cfg.Issuer},
		Sessions: sessions,
	}

	provider := federated.NewProvider(federated.Config{
		ClientID:     app.cfg.GoogleClientID,
		ClientSecret: app.cfg.GoogleClientSecret,
		RedirectURL:  app.cfg.GoogleRedirectURL,
	})

	app.federatedService = &service.FederatedService{
		Store:    app.db,
		Provider: provider,
		Sessions: sessions,
		StateTTL: app.cfg.StateTTL,
	}

	app.todoService = &service.TodoService{
		Store:    app.db,
		Calendar: calendar.NewGoogleClient(provider),
		Logger:   app.logger,
	}

	app.housekeepingService = service.NewHousekeepingService(
		app.db,
		app.logger,
		app.cfg.HousekeepingInterval,
	)

	return nil
}

// initCodeStore picks the backing store for one-time codes: Redis when an
// address is configured, the sqlite table otherwise.
func (app *Application) initCodeStore() store.EmailCodes {
	if app.cfg.RedisAddr == "" {
		return app.db.EmailCodes()
	}

	app.redis = goredis.NewClient(&goredis.Options{Addr: app.cfg.RedisAddr})
	app.logger.Info("using redis for one-time codes", "addr", app.cfg.RedisAddr)
	return redisstore.NewEmailCodes(app.redis)
}

// initEmailSender picks Postmark when credentials are present, otherwise the
// log-only dev sender.
func (app *Application) initEmailSender() email.Sender {
	if app.cfg.PostmarkServerToken == "" || app.cfg.PostmarkAccountToken == "" {
		app.logger.Warn("postmark not configured, using dev email sender")
		return email.NewDevSender(app.logger)
	}

	sender, err := email.NewPostmarkSender(email.PostmarkConfig{
		ServerToken:  app.cfg.PostmarkServerToken,
		AccountToken: app.cfg.PostmarkAccountToken,
		From:         app.cfg.EmailFrom,
	})
	if err != nil {
		app.logger.Warn("postmark misconfigured, using dev email sender", "error", err)
		return email.NewDevSender(app.logger)
	}
	return sender
}

// initHTTP initializes the HTTP router and server.
func (app *Application) initHTTP() error {
	verifier, err := jwtx.NewVerifierHS256([]byte(app.cfg.SessionSecret), app.cfg.Issuer)
	if err != nil {
		return fmt.Errorf("failed to create session verifier: %w", err)
	}

	router := httpapi.NewRouter(
		verifier,
		BuildVersion,
		app.db,
		app.logger,
	)

	router.AuthService = app.authService
	router.FederatedService = app.federatedService
	router.TodoService = app.todoService
	router.ClientURL = app.cfg.ClientURL
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}

	return nil
}

package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpapi "github.com/aussiebroadwan/bartab-idp/internal/idp/http"
	"github.com/aussiebroadwan/bartab-idp/internal/idp/metrics"
	"github.com/aussiebroadwan/bartab-idp/internal/idp/service"
	"github.com/aussiebroadwan/bartab-idp/internal/idp/store"
	"github.com/aussiebroadwan/bartab-idp/internal/idp/store/drivers/redis"
	"github.com/aussiebroadwan/bartab-idp/internal/idp/store/drivers/sqlite"
	"github.com/aussiebroadwan/bartab-idp/pkg/authsdk"
	"github.com/aussiebroadwan/bartab-idp/pkg/cryptox"
	"github.com/aussiebroadwan/bartab-idp/pkg/jwtx"
	"github.com/aussiebroadwan/bartab-idp/pkg/slogx"
	"github.com/gorilla/sessions"
	"golang.org/x/sync/errgroup"
)

// BuildVersion is overridden at build time via -ldflags.
var BuildVersion = "v0.1.0"

// Application wires the identity provider together.
type Application struct {
	cfg    Config
	logger *slog.Logger

	db        *sqlite.Store
	keys      *jwtx.KeyManager
	metrics   *metrics.Metrics
	blacklist *redis.Blacklist // nil unless REDIS_URL is set

	housekeeping *service.HousekeepingService
	running      bool
	router       *httpapi.Router
	server       *http.Server
}

// Option adjusts an Application before it is wired.
type Option func(*Application)

// WithLogger replaces the logger built from the config.
func WithLogger(l *slog.Logger) Option {
	return func(a *Application) { a.logger = l }
}

// New opens the database, loads the signing keys and wires every service
// behind the HTTP router.
func New(ctx context.Context, cfg Config, opts ...Option) (*Application, error) {
	app := &Application{cfg: cfg}
	for _, opt := range opts {
		opt(app)
	}
	if app.logger == nil {
		app.logger = slogx.New(slogx.Config{
			Service: "bartab-idp",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		})
	}

	cryptox.SetPepperPath(cfg.PepperFile)

	db, err := OpenDatabase(cfg.DatabaseFile)
	if err != nil {
		return nil, err
	}
	app.db = db
	app.logger.Info("database migrations applied", "file", cfg.DatabaseFile)

	app.keys, err = InitSigningKeys(ctx, cfg, db, app.logger)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize signing keys: %w", err)
	}

	if cfg.RedisURL != "" {
		app.blacklist, err = redis.NewBlacklist(ctx, cfg.RedisURL)
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		app.logger.Info("token blacklist stored in redis")
	}

	app.metrics = metrics.New()
	if err := app.initHTTP(ctx); err != nil {
		_ = app.closeStores()
		return nil, err
	}

	return app, nil
}

// OpenDatabase opens the SQLite file and brings its schema up to date.
func OpenDatabase(file string) (*sqlite.Store, error) {
	dsn := file
	if file != ":memory:" {
		dsn = sqlite.FileDSN(file)
	}

	db, err := sqlite.NewStore(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply database migrations: %w", err)
	}
	return db, nil
}

func (app *Application) initHTTP(ctx context.Context) error {
	var blacklist store.BlacklistedTokens
	if app.blacklist != nil {
		blacklist = app.blacklist
	}

	issuer := &service.TokenIssuer{Keys: app.keys, Issuer: app.cfg.Issuer}
	grants := service.GrantService{Store: app.db}
	revocation := &service.RevocationService{
		Store:     app.db,
		Keys:      app.keys,
		Issuer:    app.cfg.Issuer,
		Blacklist: blacklist,
		Metrics:   app.metrics,
	}

	app.housekeeping = service.NewHousekeepingService(app.db, app.logger, app.cfg.HousekeepingInterval)
	app.housekeeping.Blacklist = blacklist
	app.housekeeping.Metrics = app.metrics

	router := httpapi.NewRouter(app.keys, app.cfg.Issuer, BuildVersion, app.db, app.metrics, app.logger)
	router.AuthorizationService = &service.AuthorizationService{
		Store:            app.db,
		Tokens:           issuer,
		Grants:           grants,
		DeviceSuccessURL: app.cfg.DeviceSuccessURL,
		Metrics:          app.metrics,
	}
	router.TokenService = &service.TokenService{
		Store:   app.db,
		Tokens:  issuer,
		Grants:  grants,
		Metrics: app.metrics,
	}
	router.EndSessionService = &service.EndSessionService{
		Store:           app.db,
		Keys:            app.keys,
		VerifySignature: app.cfg.VerifyIDTokenHint,
		Metrics:         app.metrics,
	}
	router.DeviceService = &service.DeviceService{
		Store:           app.db,
		VerificationURI: app.cfg.DeviceVerificationURI,
		AuthorizeURL:    app.cfg.Issuer + authsdk.PathAuthorize,
		Metrics:         app.metrics,
	}
	router.RevocationService = revocation
	router.UserInfoService = &service.UserInfoService{Store: app.db, Revocation: revocation}
	if app.blacklist != nil {
		router.Blacklist = app.blacklist
	}

	if app.cfg.Upstream.Enabled() {
		fed, err := service.NewFederationService(ctx, app.db, []service.UpstreamProvider{{
			Name:         app.cfg.Upstream.Name,
			Issuer:       app.cfg.Upstream.Issuer,
			ClientID:     app.cfg.Upstream.ClientID,
			ClientSecret: app.cfg.Upstream.ClientSecret,
			RedirectURL:  app.cfg.UpstreamRedirectURL(),
			Scopes:       app.cfg.Upstream.Scopes,
		}})
		if err != nil {
			return fmt.Errorf("failed to initialize federation: %w", err)
		}

		cookies := sessions.NewCookieStore([]byte(app.cfg.SessionKey))
		cookies.Options.HttpOnly = true
		cookies.Options.Secure = app.cfg.Env != "dev"
		cookies.Options.SameSite = http.SameSiteLaxMode

		router.FederationService = fed
		router.Sessions = cookies
		app.logger.Info("federation enabled", "provider", app.cfg.Upstream.Name)
	}

	router.ApplyRoutes()
	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
	return nil
}

// Handler exposes the router, mostly for in-process tests.
func (app *Application) Handler() http.Handler { return app.router }

// Store exposes the database for administrative wiring such as seeding.
func (app *Application) Store() store.Store { return app.db }

// Run serves until ctx is cancelled or SIGINT/SIGTERM arrives, then shuts
// down gracefully.
func (app *Application) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	ln, err := net.Listen("tcp", app.server.Addr)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	app.housekeeping.Start()
	app.running = true
	app.logger.Info("identity provider starting",
		"addr", ln.Addr().String(),
		"issuer", app.cfg.Issuer,
		"version", BuildVersion,
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := app.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		app.logger.Info("shutdown requested", "cause", context.Cause(gctx))
		return app.Shutdown()
	})

	return g.Wait()
}

// Shutdown drains in-flight requests, stops housekeeping and closes the
// stores.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down identity provider")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	if app.running {
		app.housekeeping.Stop()
		app.running = false
	}

	if err := app.closeStores(); err != nil {
		return err
	}

	app.logger.Info("identity provider stopped")
	return nil
}

func (app *Application) closeStores() error {
	var errs []error
	if app.blacklist != nil {
		if err := app.blacklist.Close(); err != nil {
			app.logger.Error("error closing redis", "error", err)
			errs = append(errs, err)
		}
	}
	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

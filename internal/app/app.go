package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/simp-lee/logger"
	"gorm.io/gorm"

	"github.com/simp-lee/mailsync/internal/config"
	"github.com/simp-lee/mailsync/internal/domain"
	"github.com/simp-lee/mailsync/internal/middleware"
	"github.com/simp-lee/mailsync/internal/module/auth"
	"github.com/simp-lee/mailsync/internal/module/resource"
)

const (
	defaultRequestTimeout = 30 * time.Second
	healthPath            = "/health"
	apiPrefix             = "/api/v1"
)

// App holds the core application dependencies and the HTTP server.
type App struct {
	engine *Engine
	db     *gorm.DB
	logger *logger.Logger
	cfg    *config.Config
}

type httpServer interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
}

var newHTTPServer = func(addr string, handler http.Handler, timeout time.Duration) httpServer {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       timeout,
		WriteTimeout:      timeout + 5*time.Second,
		IdleTimeout:       120 * time.Second,
	}
}

var notifyContext = func(parent context.Context, signals ...os.Signal) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, signals...)
}

// Options tweak New.
type Options struct {
	// Migrate forces schema migration outside debug and test mode.
	Migrate bool
}

// New creates and wires a fully configured App from the given Config: logger,
// database, modules, middleware and routes.
func New(cfg *config.Config, opts ...Options) (*App, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	var opt Options
	if len(opts) > 0 {
		opt = opts[0]
	}

	success := false

	// 1. Setup logger.
	log, err := config.SetupLogger(&cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("setup logger: %w", err)
	}
	defer func() {
		if success {
			return
		}
		if err := log.Close(); err != nil {
			slog.Error("logger close error", slog.Any("error", err))
		}
	}()

	if cfg.Server.Mode == gin.DebugMode && cfg.Server.Host == "0.0.0.0" {
		log.Warn("insecure server config: debug mode on 0.0.0.0 may expose debug behavior and permissive CORS")
	}

	// 2. Setup database. Release deployments migrate only when asked to.
	var models []any
	if cfg.Server.Mode != gin.ReleaseMode || opt.Migrate {
		models = domain.AllModels()
	}
	db, err := config.SetupDatabase(&cfg.Database, log.Logger, models...)
	if err != nil {
		return nil, fmt.Errorf("setup database: %w", err)
	}
	defer func() {
		if success {
			return
		}
		closeDB(db)
	}()
	if len(models) > 0 {
		log.Info("auto migration completed", slog.Int("models", len(models)))
	}

	// 3. Build the engine.
	engine, err := NewEngine(cfg, db, log.Logger)
	if err != nil {
		return nil, err
	}

	success = true
	return &App{
		engine: engine,
		db:     db,
		logger: log,
		cfg:    cfg,
	}, nil
}

// Engine is the gin engine serving the JSON API together with the token
// service behind its auth routes.
type Engine struct {
	*gin.Engine
	tokens *auth.TokenIssuer
}

// Close stops the background work of the engine. It is safe to call on a nil
// Engine and more than once.
func (e *Engine) Close() {
	if e != nil && e.tokens != nil {
		e.tokens.Close()
	}
}

// NewEngine wires every module over db and returns the engine serving the
// JSON API. It does not touch the process logger or own db; the caller closes
// the engine.
func NewEngine(cfg *config.Config, db *gorm.DB, log *slog.Logger) (*Engine, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	if db == nil {
		return nil, errors.New("database is nil")
	}
	if log == nil {
		log = slog.Default()
	}
	if err := validateGinMode(cfg.Server.Mode); err != nil {
		return nil, err
	}
	gin.SetMode(cfg.Server.Mode)

	timeout, err := requestTimeout(cfg.Server.Timeout)
	if err != nil {
		return nil, err
	}

	// Manual dependency injection: repository -> service -> handler.
	modules := []Module{resource.NewModule(db, log)}
	var (
		verifier middleware.TokenVerifier
		tokens   *auth.TokenIssuer
	)
	if cfg.Auth.Enabled {
		tokens, err = newTokenIssuer(&cfg.Auth)
		if err != nil {
			return nil, fmt.Errorf("setup auth: %w", err)
		}
		svc := auth.NewService(tokens, auth.NewAccountRepository(db), log)
		modules = append([]Module{auth.NewModule(auth.NewHandler(svc))}, modules...)
		verifier = tokens
	} else {
		log.Warn("authentication is disabled; every API route is public")
	}

	engine := gin.New()
	engine.Use(
		middleware.Recovery(log),
		middleware.RequestIDWithConfig(middleware.RequestIDConfig{TrustUpstream: true}),
		middleware.Logger(log, healthPath),
		middleware.CORSWithConfig(resolveCORSConfig(cfg.Server.Mode, &cfg.Server.CORS)),
	)
	if cfg.Server.RateLimit.Enabled {
		engine.Use(middleware.RateLimit(middleware.RateLimitConfig{
			RPS:   cfg.Server.RateLimit.RPS,
			Burst: cfg.Server.RateLimit.Burst,
		}))
	}
	engine.Use(middleware.Timeout(timeout))

	var apiMiddleware []gin.HandlerFunc
	if verifier != nil {
		apiMiddleware = append(apiMiddleware, middleware.Auth(verifier, cfg.Auth.PublicPaths...))
	}

	if err := RegisterRoutes(engine, &RouteDeps{
		Modules:       modules,
		DB:            db,
		APIMiddleware: apiMiddleware,
	}); err != nil {
		if tokens != nil {
			tokens.Close()
		}
		return nil, fmt.Errorf("register routes: %w", err)
	}
	return &Engine{Engine: engine, tokens: tokens}, nil
}

// Handler returns the HTTP handler serving the API.
func (a *App) Handler() http.Handler {
	return a.engine
}

func newTokenIssuer(cfg *config.AuthConfig) (*auth.TokenIssuer, error) {
	access, err := time.ParseDuration(cfg.TokenExpiry)
	if err != nil {
		return nil, fmt.Errorf("invalid auth.token_expiry %q: %w", cfg.TokenExpiry, err)
	}
	refresh := 30 * 24 * time.Hour
	if cfg.RefreshExpiry != "" {
		if refresh, err = time.ParseDuration(cfg.RefreshExpiry); err != nil {
			return nil, fmt.Errorf("invalid auth.refresh_expiry %q: %w", cfg.RefreshExpiry, err)
		}
	}
	return auth.NewTokenIssuer(cfg.JWTSecret, access, refresh)
}

func requestTimeout(s string) (time.Duration, error) {
	if s == "" {
		return defaultRequestTimeout, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid server.timeout %q: %w", s, err)
	}
	return d, nil
}

// resolveCORSConfig maps the configured CORS section onto middleware settings.
// Unset lists keep the permissive defaults, except that release mode without
// an origin allowlist denies cross-origin requests.
func resolveCORSConfig(mode string, cfg *config.CORSConfig) middleware.CORSConfig {
	corsConfig := middleware.DefaultCORSConfig()
	if cfg == nil {
		return corsConfig
	}

	switch {
	case len(cfg.AllowOrigins) > 0:
		corsConfig.AllowOrigins = cfg.AllowOrigins
	case mode == gin.ReleaseMode:
		corsConfig.AllowOrigins = []string{}
	}
	if len(cfg.AllowMethods) > 0 {
		corsConfig.AllowMethods = cfg.AllowMethods
	}
	if len(cfg.AllowHeaders) > 0 {
		corsConfig.AllowHeaders = cfg.AllowHeaders
	}
	corsConfig.AllowCredentials = cfg.AllowCredentials
	if d, err := time.ParseDuration(cfg.MaxAge); err == nil && d > 0 {
		corsConfig.MaxAge = strconv.Itoa(int(d.Seconds()))
	}

	return corsConfig
}

func validateGinMode(mode string) error {
	switch mode {
	case gin.DebugMode, gin.ReleaseMode, gin.TestMode:
		return nil
	default:
		return fmt.Errorf("invalid server.mode %q: must be one of %q, %q, %q", mode, gin.DebugMode, gin.ReleaseMode, gin.TestMode)
	}
}

func closeDB(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Run starts the HTTP server and blocks until a shutdown signal is received.
// It performs graceful shutdown with a 5-second timeout and closes the database
// connection and the logger.
func (a *App) Run() error {
	if a == nil {
		return errors.New("app is nil")
	}
	if a.cfg == nil {
		return errors.New("app config is nil")
	}
	if a.engine == nil {
		return errors.New("app engine is nil")
	}

	log := slog.Default()
	if a.logger != nil {
		log = a.logger.Logger
	}

	timeout, err := requestTimeout(a.cfg.Server.Timeout)
	if err != nil {
		return err
	}
	addr := fmt.Sprintf("%s:%d", a.cfg.Server.Host, a.cfg.Server.Port)
	srv := newHTTPServer(addr, a.engine, timeout)

	// Listen for SIGINT / SIGTERM.
	ctx, stop := notifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info("server started", slog.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-errCh:
		runErr = fmt.Errorf("server error: %w", err)
	}

	if runErr == nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("server shutdown error", slog.Any("error", err))
		}
	}

	a.engine.Close()
	if a.db != nil {
		if err := closeDB(a.db); err != nil {
			log.Error("database close error", slog.Any("error", err))
		} else {
			log.Info("database connection closed")
		}
	}

	log.Info("server stopped")
	if a.logger != nil {
		if err := a.logger.Close(); err != nil {
			slog.Error("logger close error", slog.Any("error", err))
		}
	}

	return runErr
}

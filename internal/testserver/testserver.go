// Package testserver runs the real API over an in-memory database for tests
// of code that talks to it.
package testserver

import (
	"fmt"
	"log/slog"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/simp-lee/mailsync/internal/app"
	"github.com/simp-lee/mailsync/internal/config"
	"github.com/simp-lee/mailsync/internal/domain"
)

// Password is the password of accounts created by Account.
const Password = "correct-horse-battery"

const jwtSecret = "testserver-secret-0123456789-abcdefghij"

var accounts atomic.Int64

// Server is a running API.
type Server struct {
	*httptest.Server
	DB  *gorm.DB
	cfg *config.Config
	t   testing.TB
}

// Option adjusts the server config before the engine is built.
type Option func(*config.Config)

// WithoutAuth serves every route without a bearer token.
func WithoutAuth() Option {
	return func(c *config.Config) { c.Auth.Enabled = false }
}

// WithRequestTimeout sets server.timeout.
func WithRequestTimeout(d string) Option {
	return func(c *config.Config) { c.Server.Timeout = d }
}

// New starts a server and stops it when the test ends.
func New(t testing.TB, opts ...Option) *Server {
	t.Helper()

	cfg := &config.Config{
		Server: config.ServerConfig{Mode: gin.TestMode},
		Database: config.DatabaseConfig{
			Driver: "sqlite",
			SQLite: config.SQLiteConfig{Path: ":memory:"},
		},
		Auth: config.AuthConfig{
			Enabled:       true,
			JWTSecret:     jwtSecret,
			TokenExpiry:   "1h",
			RefreshExpiry: "24h",
			PublicPaths:   []string{"/api/v1/auth/login", "/api/v1/auth/register", "/api/v1/auth/refresh"},
		},
	}
	for _, opt := range opts {
		opt(cfg)
	}

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	// Every connection to :memory: is a separate database.
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(domain.AllModels()...); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	engine, err := app.NewEngine(cfg, db, slog.New(slog.DiscardHandler))
	if err != nil {
		t.Fatalf("build engine: %v", err)
	}

	srv := httptest.NewServer(engine)
	t.Cleanup(func() {
		srv.Close()
		engine.Close()
		_ = sqlDB.Close()
	})
	return &Server{Server: srv, DB: db, cfg: cfg, t: t}
}

// APIURL is the root of the JSON API.
func (s *Server) APIURL() string {
	return s.URL + "/api/v1"
}

// ClientConfig returns a client config aimed at the server, with its cookie
// file in a temporary directory and fast retries.
func (s *Server) ClientConfig() config.ClientConfig {
	return config.ClientConfig{
		BaseURL:    s.APIURL(),
		CookiePath: filepath.Join(s.t.TempDir(), "cookies.json"),
		Retry:      config.RetryConfig{Attempts: 1, Backoff: "1ms"},
	}
}

// Account returns fresh credentials; register them with the API to use them.
func (s *Server) Account() (name, email, password string) {
	n := accounts.Add(1)
	return fmt.Sprintf("Tester %d", n), fmt.Sprintf("tester%d@example.com", n), Password
}

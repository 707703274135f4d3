package config

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/gin-gonic/gin"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config is the top-level application configuration.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Log      LogConfig      `koanf:"log"`
	Auth     AuthConfig     `koanf:"auth"`
	Client   ClientConfig   `koanf:"client"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host      string          `koanf:"host"`
	Port      int             `koanf:"port"`
	Mode      string          `koanf:"mode"`
	Timeout   string          `koanf:"timeout"`
	CORS      CORSConfig      `koanf:"cors"`
	RateLimit RateLimitConfig `koanf:"rate_limit"`
}

// CORSConfig holds CORS middleware settings.
type CORSConfig struct {
	AllowOrigins     []string `koanf:"allow_origins"`
	AllowMethods     []string `koanf:"allow_methods"`
	AllowHeaders     []string `koanf:"allow_headers"`
	AllowCredentials bool     `koanf:"allow_credentials"`
	MaxAge           string   `koanf:"max_age"`
}

// RateLimitConfig holds rate limiting settings.
type RateLimitConfig struct {
	Enabled bool    `koanf:"enabled"`
	RPS     float64 `koanf:"rps"`
	Burst   int     `koanf:"burst"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	Driver   string         `koanf:"driver"`
	SQLite   SQLiteConfig   `koanf:"sqlite"`
	Postgres PostgresConfig `koanf:"postgres"`
	Pool     PoolConfig     `koanf:"pool"`
}

// SQLiteConfig holds SQLite-specific settings.
type SQLiteConfig struct {
	Path string `koanf:"path"`
}

// PostgresConfig holds PostgreSQL-specific settings.
type PostgresConfig struct {
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	User     string `koanf:"user"`
	Password string `koanf:"password"`
	DBName   string `koanf:"dbname"`
	SSLMode  string `koanf:"sslmode"`
}

// PoolConfig holds database connection pool settings.
type PoolConfig struct {
	MaxIdleConns    int    `koanf:"max_idle_conns"`
	MaxOpenConns    int    `koanf:"max_open_conns"`
	ConnMaxLifetime string `koanf:"conn_max_lifetime"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level           string `koanf:"level"`
	Format          string `koanf:"format"`
	Color           *bool  `koanf:"color"`
	FilePath        string `koanf:"file_path"`
	MaxSizeMB       int    `koanf:"max_size_mb"`
	RetentionDays   int    `koanf:"retention_days"`
	MaxBackups      int    `koanf:"max_backups"`
	CompressRotated *bool  `koanf:"compress_rotated"`
}

// AuthConfig holds authentication settings.
type AuthConfig struct {
	Enabled       bool     `koanf:"enabled"`
	JWTSecret     string   `koanf:"jwt_secret"`
	TokenExpiry   string   `koanf:"token_expiry"`
	RefreshExpiry string   `koanf:"refresh_expiry"`
	PublicPaths   []string `koanf:"public_paths"`
}

// Load reads configuration from a YAML file and overlays environment variables.
// Environment variables use the prefix "APP__" and double-underscore as the
// hierarchy separator. Single underscores are preserved as part of the key name.
// For example, APP__SERVER__PORT=9090 overrides server.port and
// APP__DATABASE__POOL__MAX_IDLE_CONNS=20 overrides database.pool.max_idle_conns.
func Load(configPath string) (*Config, error) {
	cfg, err := load(configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadClient reads the same sources as Load but only validates the log and
// client sections, so a CLI can share the server's config file or use its own.
func LoadClient(configPath string) (*Config, error) {
	cfg, err := load(configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.validateLog(); err != nil {
		return nil, err
	}
	if err := cfg.Client.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func load(configPath string) (*Config, error) {
	k := koanf.New(".")

	// Load YAML config file.
	if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
	}

	// Overlay environment variables with prefix APP__.
	// APP__SERVER__PORT -> server.port
	// APP__DATABASE__POOL__MAX_IDLE_CONNS -> database.pool.max_idle_conns
	if err := k.Load(env.Provider("APP__", ".", func(s string) string {
		key := strings.TrimPrefix(s, "APP__")
		key = strings.ToLower(key)
		key = strings.ReplaceAll(key, "__", ".")
		return key
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// Validate checks cross-field constraints and supported values. It also
// normalizes what it checks, trimming whitespace and filling defaults.
func (c *Config) Validate() error {
	for _, check := range []func() error{
		c.validateServer,
		c.validateDatabase,
		c.validateAuth,
		c.validateLog,
		c.Client.Validate,
	} {
		if err := check(); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) validateServer() error {
	s := &c.Server
	s.Mode = strings.TrimSpace(s.Mode)
	switch s.Mode {
	case gin.DebugMode, gin.ReleaseMode, gin.TestMode:
	default:
		return fmt.Errorf("invalid server.mode %q: must be one of %q, %q, %q", s.Mode, gin.DebugMode, gin.ReleaseMode, gin.TestMode)
	}
	if s.Port < 1 || s.Port > 65535 {
		return fmt.Errorf("invalid server.port %d: must be between 1 and 65535", s.Port)
	}
	if s.Host = strings.TrimSpace(s.Host); s.Host == "" {
		return fmt.Errorf("server.host is required")
	}

	if err := optionalDuration("server.timeout", &s.Timeout); err != nil {
		return err
	}
	if err := optionalDuration("server.cors.max_age", &s.CORS.MaxAge); err != nil {
		return err
	}

	if rl := s.RateLimit; rl.Enabled {
		if rl.RPS <= 0 {
			return fmt.Errorf("invalid server.rate_limit.rps %v: must be positive when rate limiting is enabled", rl.RPS)
		}
		if rl.Burst <= 0 {
			return fmt.Errorf("invalid server.rate_limit.burst %d: must be positive when rate limiting is enabled", rl.Burst)
		}
	}
	return nil
}

var (
	sslModes       = []string{"disable", "allow", "prefer", "require", "verify-ca", "verify-full"}
	secureSSLModes = []string{"require", "verify-ca", "verify-full"}
)

func (c *Config) validateDatabase() error {
	db := &c.Database
	switch db.Driver {
	case "sqlite":
		if db.SQLite.Path = strings.TrimSpace(db.SQLite.Path); db.SQLite.Path == "" {
			return fmt.Errorf("database.sqlite.path is required when driver is sqlite")
		}
	case "postgres":
		if err := db.Postgres.validate(c.Server.Mode); err != nil {
			return err
		}
	default:
		return fmt.Errorf("invalid database.driver %q: must be one of %q, %q", db.Driver, "sqlite", "postgres")
	}
	return optionalDuration("database.pool.conn_max_lifetime", &db.Pool.ConnMaxLifetime)
}

func (p *PostgresConfig) validate(mode string) error {
	for _, f := range []struct {
		name  string
		value *string
	}{
		{"host", &p.Host},
		{"user", &p.User},
		{"dbname", &p.DBName},
	} {
		if *f.value = strings.TrimSpace(*f.value); *f.value == "" {
			return fmt.Errorf("database.postgres.%s is required when driver is postgres", f.name)
		}
	}
	if p.Port < 1 || p.Port > 65535 {
		return fmt.Errorf("invalid database.postgres.port %d: must be between 1 and 65535", p.Port)
	}

	p.SSLMode = strings.TrimSpace(p.SSLMode)
	if !slices.Contains(sslModes, p.SSLMode) {
		return fmt.Errorf("invalid database.postgres.sslmode %q: must be one of %s", p.SSLMode, quoted(sslModes))
	}
	if mode == gin.ReleaseMode && !slices.Contains(secureSSLModes, p.SSLMode) {
		return fmt.Errorf("invalid database.postgres.sslmode %q for server.mode %q: must be one of %s", p.SSLMode, gin.ReleaseMode, quoted(secureSSLModes))
	}
	return nil
}

const defaultRefreshExpiry = "720h"

// requiredPublicPaths are the token-issuing routes.
var requiredPublicPaths = []string{"/api/v1/auth/login", "/api/v1/auth/register", "/api/v1/auth/refresh"}

func (c *Config) validateAuth() error {
	a := &c.Auth
	if !a.Enabled {
		return nil
	}

	if a.JWTSecret = strings.TrimSpace(a.JWTSecret); a.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required when auth is enabled")
	}
	if len(a.JWTSecret) < 32 {
		return fmt.Errorf("invalid auth.jwt_secret: must be at least 32 characters")
	}
	if c.Server.Mode == gin.ReleaseMode && CountSecretClasses(a.JWTSecret) < 3 {
		return fmt.Errorf("auth.jwt_secret must include at least 3 character classes (lowercase, uppercase, digit, symbol) in release mode")
	}

	if err := normalizeDuration("auth.token_expiry", &a.TokenExpiry, ""); err != nil {
		return err
	}
	if err := normalizeDuration("auth.refresh_expiry", &a.RefreshExpiry, defaultRefreshExpiry); err != nil {
		return err
	}
	access, _ := time.ParseDuration(a.TokenExpiry)
	refresh, _ := time.ParseDuration(a.RefreshExpiry)
	if refresh <= access {
		return fmt.Errorf("invalid auth.refresh_expiry %q: must be longer than auth.token_expiry", a.RefreshExpiry)
	}

	paths := make([]string, 0, len(a.PublicPaths))
	for i, p := range a.PublicPaths {
		p = strings.TrimSpace(p)
		switch {
		case p == "":
			return fmt.Errorf("auth.public_paths[%d] cannot be empty when auth is enabled", i)
		case !strings.HasPrefix(p, "/"):
			return fmt.Errorf("invalid auth.public_paths[%d] %q: must start with '/'", i, a.PublicPaths[i])
		case !slices.Contains(paths, p):
			paths = append(paths, p)
		}
	}
	if len(paths) == 0 {
		return fmt.Errorf("auth.public_paths is required when auth is enabled")
	}
	for _, required := range requiredPublicPaths {
		if !slices.Contains(paths, required) {
			return fmt.Errorf("auth.public_paths must include %q when auth is enabled", required)
		}
	}
	a.PublicPaths = paths
	return nil
}

// optionalDuration trims *value; a blank value stays unset, anything else
// must be a positive duration.
func optionalDuration(name string, value *string) error {
	if *value = strings.TrimSpace(*value); *value == "" {
		return nil
	}
	return normalizeDuration(name, value, "")
}

func quoted(values []string) string {
	q := make([]string, len(values))
	for i, v := range values {
		q[i] = strconv.Quote(v)
	}
	return strings.Join(q, ", ")
}

// validateLog normalizes and checks the log section.
func (c *Config) validateLog() error {
	// Validate log.level.
	level := strings.ToLower(strings.TrimSpace(c.Log.Level))
	switch level {
	case "debug", "info", "warn", "error":
		c.Log.Level = level
	default:
		return fmt.Errorf("invalid log.level %q: must be one of %q, %q, %q, %q", c.Log.Level, "debug", "info", "warn", "error")
	}

	// Validate log.format.
	format := strings.ToLower(strings.TrimSpace(c.Log.Format))
	switch format {
	case "text", "json":
		c.Log.Format = format
	default:
		return fmt.Errorf("invalid log.format %q: must be one of %q, %q", c.Log.Format, "text", "json")
	}

	return nil
}

// CountSecretClasses counts how many character classes (lowercase, uppercase,
// digit, symbol) are present in the given secret string.
func CountSecretClasses(secret string) int {
	var seen [4]bool
	for _, r := range secret {
		switch {
		case unicode.IsLower(r):
			seen[0] = true
		case unicode.IsUpper(r):
			seen[1] = true
		case unicode.IsDigit(r):
			seen[2] = true
		default:
			seen[3] = true
		}
	}
	n := 0
	for _, ok := range seen {
		if ok {
			n++
		}
	}
	return n
}

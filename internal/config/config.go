// Package config provides centralized configuration for the POS back office.
// Settings come from environment variables (optionally seeded from a .env file)
// and are validated on startup so misconfiguration fails fast.
package config

import (
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Import   ImportConfig
	Backup   BackupConfig
	Session  SessionConfig
	Rate     RateLimitConfig
	Security SecurityConfig
	Logging  LoggingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 127.0.0.1)
	Host string `env:"SERVER_HOST" default:"127.0.0.1"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	ReadTimeout     time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"60s"`
	IdleTimeout     time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for requests (default: 60s)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"60s"`
}

// DatabaseConfig holds catalog storage settings.
type DatabaseConfig struct {
	// URL selects the catalog backend. A postgres:// or postgresql:// URL opens
	// a pgx pool; anything else is treated as a SQLite file path.
	URL string `env:"DATABASE_URL" envAlt:"DB_URL" default:"pos_database.db"`

	// MaxConns is the maximum number of pooled connections (default: 10)
	MaxConns int `env:"DB_MAX_CONNS" default:"10"`

	// MinConns is the minimum number of connections to keep open (default: 1)
	MinConns int `env:"DB_MIN_CONNS" default:"1"`

	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`
}

// IsPostgres reports whether the URL points at a PostgreSQL server.
func (c *DatabaseConfig) IsPostgres() bool {
	u := strings.ToLower(c.URL)
	return strings.HasPrefix(u, "postgres://") || strings.HasPrefix(u, "postgresql://")
}

// ImportConfig holds product import settings.
type ImportConfig struct {
	// MaxFileSize is the maximum accepted upload in bytes (default: 20MB)
	MaxFileSize int64 `env:"IMPORT_MAX_FILE_SIZE" default:"20971520"`

	// PreviewRows caps how many candidates a preview returns (default: 10)
	PreviewRows int `env:"IMPORT_PREVIEW_ROWS" default:"10"`

	// Encoding is the default source encoding: utf-8, windows-1252 or iso-8859-1
	Encoding string `env:"IMPORT_ENCODING" default:"utf-8"`

	// DialectsFile is an optional YAML file with extra header dialects
	DialectsFile string `env:"IMPORT_DIALECTS_FILE"`

	// MaxConcurrent is how many commits may run at once (default: 1)
	MaxConcurrent int `env:"IMPORT_MAX_CONCURRENT" default:"1"`

	// MaxWaitTime is how long a commit waits for a free slot (default: 30s)
	MaxWaitTime time.Duration `env:"IMPORT_MAX_WAIT_TIME" default:"30s"`

	// Timeout bounds a single commit (default: 10m)
	Timeout time.Duration `env:"IMPORT_TIMEOUT" default:"10m"`
}

// BackupConfig holds database backup settings.
type BackupConfig struct {
	// Dir is where backup archives are written (default: backups)
	Dir string `env:"BACKUP_DIR" default:"backups"`

	// SettingsFile is the YAML file holding schedule and retention settings
	SettingsFile string `env:"BACKUP_SETTINGS_FILE" default:"config/backup_settings.yaml"`

	// CheckInterval is how often the scheduler checks for a due backup (default: 1m)
	CheckInterval time.Duration `env:"BACKUP_CHECK_INTERVAL" default:"1m"`

	// S3Bucket turns on offsite copies of every backup when set
	S3Bucket   string `env:"BACKUP_S3_BUCKET"`
	S3Prefix   string `env:"BACKUP_S3_PREFIX"`
	S3Region   string `env:"BACKUP_S3_REGION" envAlt:"AWS_REGION"`
	S3Endpoint string `env:"BACKUP_S3_ENDPOINT" envAlt:"AWS_ENDPOINT"`
}

// SessionConfig holds cash-drawer session settings.
type SessionConfig struct {
	File       string `env:"SESSION_FILE" default:"pos_session.json"`
	LogoutFlag string `env:"SESSION_LOGOUT_FLAG" default:"logout_flag.txt"`
}

// RateLimitConfig holds per-IP rate limiting settings.
type RateLimitConfig struct {
	// Enabled controls whether rate limiting is active (default: true)
	Enabled bool `env:"RATE_LIMIT_ENABLED" default:"true"`

	// RequestsPerMinute is the default rate limit per IP (default: 120)
	RequestsPerMinute int `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"120"`

	// ImportLimit is requests per minute for import endpoints (default: 10)
	ImportLimit int `env:"RATE_LIMIT_IMPORT" default:"10"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	// EnableCSP enables Content-Security-Policy headers (default: true)
	EnableCSP bool `env:"SECURITY_ENABLE_CSP" default:"true"`

	// RequireAPIKey guards the write endpoints (import, restore, session)
	// with an X-API-Key header (default: false)
	RequireAPIKey bool `env:"REQUIRE_API_KEY" default:"false"`

	// APIKeys is a comma-separated list of accepted keys
	APIKeys []string `env:"API_KEYS"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}

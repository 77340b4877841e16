// Package config provides centralized configuration management for the
// import service. It loads settings from environment variables with
// sensible defaults and validates everything on startup to fail fast on
// misconfiguration.
package config

import (
	"fmt"
	"time"
)

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Upload   UploadConfig
	Portal   PortalConfig
	Logging  LoggingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	// ReadTimeout is the maximum duration for reading request body (default: 15s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`

	// WriteTimeout is the maximum duration for writing response (default: 0 for SSE)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"0s"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string (required)
	// Supports both DATABASE_URL and DB_URL env vars for compatibility
	URL string `env:"DATABASE_URL" envAlt:"DB_URL" required:"true"`

	// MaxConns is the maximum number of connections in the pool (default: 20)
	MaxConns int `env:"DB_MAX_CONNS" default:"20"`

	// MinConns is the minimum number of connections to keep open (default: 4)
	MinConns int `env:"DB_MIN_CONNS" default:"4"`

	// MaxConnLifetime is the maximum lifetime of a connection (default: 1h)
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`

	// MaxConnIdleTime is the maximum idle time before a connection is closed (default: 30m)
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`
}

// UploadConfig holds import upload settings.
type UploadConfig struct {
	// MaxFileSize is the maximum allowed upload size in bytes (default: 25MB)
	MaxFileSize int64 `env:"UPLOAD_MAX_FILE_SIZE" default:"26214400"`

	// SessionTTL is how long an unconfirmed import session is kept (default: 1h)
	SessionTTL time.Duration `env:"UPLOAD_SESSION_TTL" default:"1h"`

	// PreviewRows is the default page size for preview requests (default: 50)
	PreviewRows int `env:"UPLOAD_PREVIEW_ROWS" default:"50"`
}

// PortalConfig holds customer-portal notification settings.
type PortalConfig struct {
	// Enabled controls whether portal invites are sent after client
	// imports (default: false)
	Enabled bool `env:"PORTAL_INVITES_ENABLED" default:"false"`

	// BaseURL is the portal service endpoint (required when Enabled)
	BaseURL string `env:"PORTAL_BASE_URL"`

	// Timeout bounds a single invite call (default: 5s)
	Timeout time.Duration `env:"PORTAL_TIMEOUT" default:"5s"`
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
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

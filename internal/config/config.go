// Package config provides centralized configuration management for the
// application. It loads configuration from environment variables with
// sensible defaults and validates all settings on startup to fail fast on
// misconfiguration.
package config

import (
	"fmt"
	"time"
)

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Server  ServerConfig
	Woo     WooConfig
	Upload  UploadConfig
	Cache   CacheConfig
	Export  ExportConfig
	History HistoryConfig
	Logging LoggingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 5001)
	Port int `env:"SERVER_PORT" default:"5001"`

	// ReadTimeout is the maximum duration for reading the request body (default: 30s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"30s"`

	// WriteTimeout is the maximum duration for writing a response (default: 0,
	// disabled so long sync runs and export downloads are not cut off)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"0s"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`
}

// WooConfig holds WooCommerce REST API credentials.
//
// All three credential values must be set for the sync, cache-refresh and
// backup surfaces to be available. The transform surface works without them.
type WooConfig struct {
	// URL is the store base URL, e.g. https://shop.example.com
	URL string `env:"WOOCOMMERCE_URL"`

	// ConsumerKey is the REST API consumer key (ck_...)
	ConsumerKey string `env:"WOOCOMMERCE_CONSUMER_KEY"`

	// ConsumerSecret is the REST API consumer secret (cs_...)
	ConsumerSecret string `env:"WOOCOMMERCE_CONSUMER_SECRET"`

	// Timeout is the per-request timeout for API calls (default: 30s)
	Timeout time.Duration `env:"WOOCOMMERCE_TIMEOUT" default:"30s"`
}

// Configured reports whether all required API credentials are present.
func (c *WooConfig) Configured() bool {
	return c.URL != "" && c.ConsumerKey != "" && c.ConsumerSecret != ""
}

// UploadConfig holds file upload settings.
type UploadConfig struct {
	// MaxFileSize is the maximum allowed upload size in bytes (default: 16MB)
	MaxFileSize int64 `env:"UPLOAD_MAX_FILE_SIZE" default:"16777216"`

	// DefaultMappingPath is the mapping file used when the client does not
	// upload one (default: mapping.yaml)
	DefaultMappingPath string `env:"DEFAULT_MAPPING_PATH" default:"mapping.yaml"`
}

// CacheConfig holds taxonomy name-cache settings.
type CacheConfig struct {
	// Dir is the directory holding the category/tag snapshot files (default: .cache)
	Dir string `env:"CACHE_DIR" default:".cache"`
}

// ExportConfig holds catalog backup settings.
type ExportConfig struct {
	// Dir is the directory finished catalog exports are written to (default: exports)
	Dir string `env:"EXPORT_DIR" default:"exports"`
}

// HistoryConfig holds run-history settings.
type HistoryConfig struct {
	// Path is the SQLite database file recording transform/sync/backup runs (default: woosync.db)
	Path string `env:"HISTORY_DB_PATH" default:"woosync.db"`
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

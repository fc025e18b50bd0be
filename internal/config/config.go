// Package config provides centralized configuration for tsvingest.
// Settings come from environment variables (a .env file is loaded by the command
// before Load runs), get defaults from struct tags, and are validated up front.
package config

import (
	"net"
	"strconv"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server  ServerConfig
	Store   StoreConfig
	Ingest  IngestConfig
	Logging LoggingConfig
}

// ServerConfig holds HTTP API settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	ReadTimeout  time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"0s"`
	IdleTimeout  time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout bounds graceful shutdown, including a running pass (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for non-ingest requests (default: 60s)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"60s"`

	// TrustedProxies is a comma-separated list of proxy CIDRs whose X-Real-IP and
	// X-Forwarded-For headers are honored.
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	// RequireAPIKey guards /api routes with the X-API-Key header (default: false)
	RequireAPIKey bool `env:"REQUIRE_API_KEY" default:"false"`

	// APIKeys is a comma-separated list of accepted keys.
	APIKeys []string `env:"API_KEYS"`
}

// StoreConfig selects the artifact store backend.
type StoreConfig struct {
	// Backend is one of memory, postgres, badger (default: memory)
	Backend string `env:"STORE_BACKEND" default:"memory"`

	// DatabaseURL is required for the postgres backend.
	DatabaseURL string `env:"DATABASE_URL" envAlt:"DB_URL"`

	MaxConns        int           `env:"DB_MAX_CONNS" default:"10"`
	MinConns        int           `env:"DB_MIN_CONNS" default:"1"`
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`

	// BadgerDir is where the badger backend keeps its files (default: ./data/badger)
	BadgerDir string `env:"BADGER_DIR" default:"./data/badger"`

	// TypeCacheSize bounds the resolved-type LRU caches (default: 512)
	TypeCacheSize int `env:"STORE_TYPE_CACHE_SIZE" default:"512"`
}

// IngestConfig holds ingestion pass settings.
type IngestConfig struct {
	// MappingFile is an XML or YAML mapping document. Empty uses the bundled mapping.
	MappingFile string `env:"INGEST_MAPPING_FILE"`

	// ModuleName is recorded as the source of every attribute (default: LEAPP)
	ModuleName string `env:"INGEST_MODULE_NAME" default:"LEAPP"`

	// FileExtension selects candidate files in the output directory (default: .tsv)
	FileExtension string `env:"INGEST_FILE_EXTENSION" default:".tsv"`

	// MaxBatchRecords posts early once the batch reaches this size; 0 posts once per pass.
	MaxBatchRecords int `env:"INGEST_MAX_BATCH_RECORDS" default:"0"`

	// EnforceRequired rejects rows whose required column is absent (default: false)
	EnforceRequired bool `env:"INGEST_ENFORCE_REQUIRED" default:"false"`

	// ContextCheckInterval is the number of rows between cancellation checks (default: 100)
	ContextCheckInterval int `env:"INGEST_CONTEXT_CHECK_INTERVAL" default:"100"`

	// Timeout bounds one pass started over HTTP (default: 30m)
	Timeout time.Duration `env:"INGEST_TIMEOUT" default:"30m"`

	// MaxPending bounds ingest requests that are running or queued (default: 4)
	MaxPending int `env:"INGEST_MAX_PENDING" default:"4"`

	// QueueWait is how long a request waits for a slot before 429 (default: 30s)
	QueueWait time.Duration `env:"INGEST_QUEUE_WAIT" default:"30s"`
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
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

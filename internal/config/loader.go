package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// LookupFunc returns the value of a variable and whether it is set.
type LookupFunc func(key string) (string, bool)

// Load reads configuration from the process environment.
func Load() (*Config, error) {
	return LoadFrom(os.LookupEnv)
}

// LoadFrom reads configuration through lookup, applies defaults and validates the
// result. Every malformed variable is reported, not just the first.
func LoadFrom(lookup LookupFunc) (*Config, error) {
	cfg := &Config{}

	if err := loadStruct(reflect.ValueOf(cfg).Elem(), lookup); err != nil {
		return nil, fmt.Errorf("config load: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// loadStruct recursively populates struct fields through lookup.
func loadStruct(v reflect.Value, lookup LookupFunc) error {
	var errs []error
	t := v.Type()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		fieldVal := v.Field(i)

		if !fieldVal.CanSet() {
			continue
		}

		if field.Type.Kind() == reflect.Struct && field.Type != reflect.TypeOf(time.Time{}) {
			if err := loadStruct(fieldVal, lookup); err != nil {
				errs = append(errs, err)
			}
			continue
		}

		envName := field.Tag.Get("env")
		if envName == "" {
			continue
		}

		value, ok := lookup(envName)
		if (!ok || value == "") && field.Tag.Get("envAlt") != "" {
			value, ok = lookup(field.Tag.Get("envAlt"))
		}
		if !ok || value == "" {
			if field.Tag.Get("required") == "true" {
				errs = append(errs, fmt.Errorf("required environment variable %s is not set", envName))
				continue
			}
			value = field.Tag.Get("default")
		}
		if value == "" {
			continue
		}

		if err := setField(fieldVal, value); err != nil {
			errs = append(errs, fmt.Errorf("invalid value for %s=%q: %w", envName, value, err))
		}
	}

	return errors.Join(errs...)
}

var durationType = reflect.TypeOf(time.Duration(0))

// setField sets a reflect.Value from a string based on its type.
func setField(field reflect.Value, value string) error {
	switch field.Kind() {
	case reflect.String:
		field.SetString(strings.TrimSpace(value))

	case reflect.Int, reflect.Int64:
		if field.Type() == durationType {
			d, err := time.ParseDuration(value)
			if err != nil {
				return fmt.Errorf("invalid duration: %w", err)
			}
			field.SetInt(int64(d))
			return nil
		}
		i, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
		if err != nil {
			return fmt.Errorf("invalid integer: %w", err)
		}
		field.SetInt(i)

	case reflect.Bool:
		b, err := strconv.ParseBool(strings.TrimSpace(value))
		if err != nil {
			return fmt.Errorf("invalid boolean: %w", err)
		}
		field.SetBool(b)

	case reflect.Slice:
		if field.Type().Elem().Kind() != reflect.String {
			return fmt.Errorf("unsupported slice type: %s", field.Type().Elem().Kind())
		}
		var items []string
		for _, part := range strings.Split(value, ",") {
			if part = strings.TrimSpace(part); part != "" {
				items = append(items, part)
			}
		}
		field.Set(reflect.ValueOf(items))

	default:
		return fmt.Errorf("unsupported field type: %s", field.Kind())
	}

	return nil
}

// Validate checks that the configuration is usable.
// Returns an error describing all validation failures.
func (c *Config) Validate() error {
	var errs []string

	switch strings.ToLower(c.Store.Backend) {
	case "memory":
	case "postgres":
		if c.Store.DatabaseURL == "" {
			errs = append(errs, "DATABASE_URL is required when STORE_BACKEND=postgres")
		}
		if c.Store.MaxConns <= 0 {
			errs = append(errs, "DB_MAX_CONNS must be positive")
		}
		if c.Store.MinConns < 0 {
			errs = append(errs, "DB_MIN_CONNS must be non-negative")
		}
		if c.Store.MaxConns < c.Store.MinConns {
			errs = append(errs, fmt.Sprintf("DB_MAX_CONNS (%d) must be >= DB_MIN_CONNS (%d)",
				c.Store.MaxConns, c.Store.MinConns))
		}
	case "badger":
		if c.Store.BadgerDir == "" {
			errs = append(errs, "BADGER_DIR is required when STORE_BACKEND=badger")
		}
	default:
		errs = append(errs, fmt.Sprintf("STORE_BACKEND (%q) must be one of: memory, postgres, badger", c.Store.Backend))
	}
	if c.Store.TypeCacheSize <= 0 {
		errs = append(errs, "STORE_TYPE_CACHE_SIZE must be positive")
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("SERVER_PORT (%d) must be 1-65535", c.Server.Port))
	}
	if c.Server.ReadTimeout < 0 {
		errs = append(errs, "SERVER_READ_TIMEOUT must be non-negative")
	}
	if c.Server.ShutdownTimeout <= 0 {
		errs = append(errs, "SERVER_SHUTDOWN_TIMEOUT must be positive")
	}
	if c.Server.RequireAPIKey && len(c.Server.APIKeys) == 0 {
		errs = append(errs, "REQUIRE_API_KEY is true but API_KEYS is empty; configure at least one API key or disable auth")
	}

	if c.Ingest.ModuleName == "" {
		errs = append(errs, "INGEST_MODULE_NAME must not be empty")
	}
	if !strings.HasPrefix(c.Ingest.FileExtension, ".") {
		errs = append(errs, fmt.Sprintf("INGEST_FILE_EXTENSION (%q) must start with a dot", c.Ingest.FileExtension))
	}
	if c.Ingest.MaxBatchRecords < 0 {
		errs = append(errs, "INGEST_MAX_BATCH_RECORDS must be non-negative")
	}
	if c.Ingest.ContextCheckInterval <= 0 {
		errs = append(errs, "INGEST_CONTEXT_CHECK_INTERVAL must be positive")
	}
	if c.Ingest.Timeout <= 0 {
		errs = append(errs, "INGEST_TIMEOUT must be positive")
	}
	if c.Ingest.MaxPending < 1 {
		errs = append(errs, fmt.Sprintf("INGEST_MAX_PENDING (%d) must be at least 1", c.Ingest.MaxPending))
	}
	if c.Ingest.QueueWait <= 0 {
		errs = append(errs, "INGEST_QUEUE_WAIT must be positive")
	}
	if c.Ingest.MappingFile != "" {
		ext := strings.ToLower(c.Ingest.MappingFile)
		if !strings.HasSuffix(ext, ".xml") && !strings.HasSuffix(ext, ".yaml") && !strings.HasSuffix(ext, ".yml") {
			errs = append(errs, fmt.Sprintf("INGEST_MAPPING_FILE (%q) must be .xml, .yaml or .yml", c.Ingest.MappingFile))
		}
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, fmt.Sprintf("LOG_LEVEL (%q) must be one of: debug, info, warn, error", c.Logging.Level))
	}

	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[strings.ToLower(c.Logging.Format)] {
		errs = append(errs, fmt.Sprintf("LOG_FORMAT (%q) must be one of: text, json", c.Logging.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

// String returns a safe representation for logging; the database URL is masked.
func (c *Config) String() string {
	dbURL := ""
	if c.Store.DatabaseURL != "" {
		dbURL = "[MASKED]"
	}
	return fmt.Sprintf(
		"Config{Server: {Addr: %q}, Store: {Backend: %q, DatabaseURL: %q, BadgerDir: %q}, "+
			"Ingest: {MappingFile: %q, ModuleName: %q, MaxBatchRecords: %d, EnforceRequired: %v}, "+
			"Logging: {Level: %q, Format: %q}}",
		c.Server.Addr(), c.Store.Backend, dbURL, c.Store.BadgerDir,
		c.Ingest.MappingFile, c.Ingest.ModuleName, c.Ingest.MaxBatchRecords, c.Ingest.EnforceRequired,
		c.Logging.Level, c.Logging.Format,
	)
}

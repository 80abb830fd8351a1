// Package config reads process configuration from the environment.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"
)

const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

type Config struct {
	// HTTP Server
	Port               string
	RateLimitPerMinute int

	// Backend selection
	DataBackend  string
	SQLiteDBPath string
	DatabaseURL  string
	// SeedFile preloads demo data for SeedUserEmail in the memory backend.
	SeedFile      string
	SeedUserEmail string

	// Ledger
	LedgerTimezone string
	ExportPrefix   string

	// Sessions
	SessionTTL           time.Duration
	SessionPurgeInterval time.Duration

	// AMQP; an empty URL disables event publishing
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets mirror (worker only)
	GoogleSpreadsheetID      string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string
	MirrorUserID             string
	SheetPrefix              string
	// MirrorResyncInterval rebuilds the current year periodically to catch
	// missed events; zero disables it.
	MirrorResyncInterval time.Duration

	LogLevel string
}

func Load() *Config {
	return &Config{
		Port:               getEnv("PORT", "8081"),
		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 60),

		DataBackend:   getEnv("DATA_BACKEND", BackendMemory),
		SQLiteDBPath:  getEnv("SQLITE_DB_PATH", "./data/finanzas.db"),
		DatabaseURL:   getEnv("DATABASE_URL", ""),
		SeedFile:      getEnv("SEED_FILE", ""),
		SeedUserEmail: getEnv("SEED_USER_EMAIL", ""),

		LedgerTimezone: getEnv("LEDGER_TIMEZONE", "Local"),
		ExportPrefix:   getEnv("EXPORT_PREFIX", "Finanzas"),

		SessionTTL:           getEnvDuration("SESSION_TTL", 24*time.Hour),
		SessionPurgeInterval: getEnvDuration("SESSION_PURGE_INTERVAL", 15*time.Minute),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "finanzas"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "ledger_events"),

		GoogleSpreadsheetID:      getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleServiceAccountJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
		GoogleServiceAccountFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", ""),
		MirrorUserID:             getEnv("MIRROR_USER_ID", ""),
		SheetPrefix:              os.Getenv("SHEET_PREFIX"),
		MirrorResyncInterval:     getEnvDuration("MIRROR_RESYNC_INTERVAL", time.Hour),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
}

// Location resolves LedgerTimezone. Callers should Validate first.
func (c *Config) Location() *time.Location {
	loc, err := loadLocation(c.LedgerTimezone)
	if err != nil {
		return time.Local
	}
	return loc
}

func loadLocation(name string) (*time.Location, error) {
	if name == "" || strings.EqualFold(name, "local") {
		return time.Local, nil
	}
	return time.LoadLocation(name)
}

// Validate checks the settings shared by every process and returns all
// problems at once.
func (c *Config) Validate() error {
	var errs []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errs = append(errs, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errs = append(errs, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	validBackends := []string{BackendMemory, BackendSQLite, BackendPostgres}
	if !slices.Contains(validBackends, c.DataBackend) {
		errs = append(errs, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	if c.DataBackend == BackendSQLite {
		if c.SQLiteDBPath == "" {
			errs = append(errs, "SQLite database path cannot be empty when using sqlite backend")
		} else if dir := filepath.Dir(c.SQLiteDBPath); dir != "." && dir != "" {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				if err := os.MkdirAll(dir, 0o755); err != nil {
					errs = append(errs, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
				}
			}
		}
	}

	if c.DataBackend == BackendPostgres {
		if c.DatabaseURL == "" {
			errs = append(errs, "DATABASE_URL is required when using postgres backend")
		} else if u, err := url.Parse(c.DatabaseURL); err != nil {
			errs = append(errs, fmt.Sprintf("invalid DATABASE_URL: %v", err))
		} else if u.Scheme != "postgres" && u.Scheme != "postgresql" {
			errs = append(errs, fmt.Sprintf("invalid DATABASE_URL scheme '%s': must be 'postgres' or 'postgresql'", u.Scheme))
		}
	}

	if c.SeedFile != "" && c.SeedUserEmail == "" {
		errs = append(errs, "SEED_USER_EMAIL is required when SEED_FILE is set")
	}

	if _, err := loadLocation(c.LedgerTimezone); err != nil {
		errs = append(errs, fmt.Sprintf("invalid ledger timezone '%s': %v", c.LedgerTimezone, err))
	}

	if c.SessionTTL < time.Minute {
		errs = append(errs, fmt.Sprintf("invalid session TTL %v: must be at least 1 minute", c.SessionTTL))
	}
	if c.SessionPurgeInterval < time.Second {
		errs = append(errs, fmt.Sprintf("invalid session purge interval %v: must be at least 1 second", c.SessionPurgeInterval))
	}

	if c.RateLimitPerMinute < 1 {
		errs = append(errs, fmt.Sprintf("invalid rate limit %d: must be at least 1 request per minute", c.RateLimitPerMinute))
	}

	if c.AMQPURL != "" {
		if u, err := url.Parse(c.AMQPURL); err != nil {
			errs = append(errs, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if u.Scheme != "amqp" && u.Scheme != "amqps" {
			errs = append(errs, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", u.Scheme))
		}
		if c.AMQPExchange == "" {
			errs = append(errs, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errs = append(errs, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, fmt.Sprintf("invalid log level '%s': must be debug, info, warn or error", c.LogLevel))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errs, "\n- "))
	}
	return nil
}

// ValidateWorker adds the requirements of the mirror worker.
func (c *Config) ValidateWorker() error {
	var errs []string
	if err := c.Validate(); err != nil {
		errs = append(errs, strings.TrimPrefix(err.Error(), "configuration validation failed:\n- "))
	}
	if c.DataBackend == BackendMemory {
		errs = append(errs, "worker requires DATA_BACKEND=sqlite or postgres to read the ledger")
	}
	if c.AMQPURL == "" {
		errs = append(errs, "AMQP_URL is required for the worker")
	}
	if c.GoogleSpreadsheetID == "" {
		errs = append(errs, "GOOGLE_SPREADSHEET_ID is required for the worker")
	}
	if c.GoogleServiceAccountJSON == "" && c.GoogleServiceAccountFile == "" && os.Getenv("GOOGLE_APPLICATION_CREDENTIALS") == "" {
		errs = append(errs, "either GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE must be provided for the worker")
	}
	if c.MirrorResyncInterval < 0 {
		errs = append(errs, fmt.Sprintf("invalid mirror resync interval %v: must not be negative", c.MirrorResyncInterval))
	}
	if c.GoogleServiceAccountFile != "" {
		if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
			errs = append(errs, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errs, "\n- "))
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

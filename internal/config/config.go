package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"finanze/internal/spreadsheet"
)

type Config struct {
	// HTTP Server
	Port           string
	MaxUploadBytes int64

	// Database
	SQLiteDBPath string

	// AMQP (optional; import events are not published when empty)
	AMQPURL        string
	AMQPExchange   string
	AMQPRoutingKey string

	// Import previews
	PreviewTTL          time.Duration
	PreviewCacheSize    int
	DefaultImportFormat string

	// Google Sheets workbook source (optional)
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string

	LogLevel string
}

func Load() *Config {
	return &Config{
		Port:           getEnv("PORT", "8081"),
		MaxUploadBytes: getEnvInt64("MAX_UPLOAD_BYTES", 10<<20),

		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/finanze.db"),

		AMQPURL:        getEnv("AMQP_URL", ""),
		AMQPExchange:   getEnv("AMQP_EXCHANGE", "finanze"),
		AMQPRoutingKey: getEnv("AMQP_ROUTING_KEY", "import.completed"),

		PreviewTTL:          getEnvDuration("PREVIEW_TTL", 15*time.Minute),
		PreviewCacheSize:    getEnvInt("PREVIEW_CACHE_SIZE", 100),
		DefaultImportFormat: getEnv("DEFAULT_IMPORT_FORMAT", string(spreadsheet.FormatStandard)),

		GoogleServiceAccountJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
		GoogleServiceAccountFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", ""),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
}

// Validate checks every setting and reports all problems at once.
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.SQLiteDBPath == "" {
		errors = append(errors, "SQLite database path cannot be empty")
	} else {
		dir := filepath.Dir(c.SQLiteDBPath)
		if dir != "." && dir != "" {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				if err := os.MkdirAll(dir, 0755); err != nil {
					errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
				}
			}
		}
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPRoutingKey == "" {
			errors = append(errors, "AMQP routing key cannot be empty when AMQP URL is provided")
		}
	}

	if c.MaxUploadBytes < 1024 {
		errors = append(errors, fmt.Sprintf("invalid max upload size %d: must be at least 1024 bytes", c.MaxUploadBytes))
	} else if c.MaxUploadBytes > 100<<20 {
		errors = append(errors, fmt.Sprintf("invalid max upload size %d: must be at most 100 MiB", c.MaxUploadBytes))
	}

	if c.PreviewTTL < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid preview TTL %v: must be at least 1 minute", c.PreviewTTL))
	} else if c.PreviewTTL > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid preview TTL %v: must be at most 24 hours", c.PreviewTTL))
	}

	if c.PreviewCacheSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid preview cache size %d: must be at least 1", c.PreviewCacheSize))
	}

	if _, err := spreadsheet.ParseFormat(c.DefaultImportFormat); err != nil {
		errors = append(errors, fmt.Sprintf("invalid default import format '%s': must be one of %v", c.DefaultImportFormat, spreadsheet.FormatNames()))
	}

	if _, err := c.SlogLevel(); err != nil {
		errors = append(errors, err.Error())
	}

	if c.GoogleServiceAccountFile != "" {
		if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
			errors = append(errors, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// SlogLevel maps LogLevel to a slog level.
func (c *Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level '%s': must be debug, info, warn or error", c.LogLevel)
	}
	return level, nil
}

// HasGoogleCredentials reports whether a Google Sheets source can be built.
func (c *Config) HasGoogleCredentials() bool {
	return c.GoogleServiceAccountJSON != "" || c.GoogleServiceAccountFile != ""
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

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.ParseInt(value, 10, 64); err == nil {
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

package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// HTTP server
	Port string

	// Database
	SQLiteDBPath string

	// AMQP (optional; empty disables the async export queue)
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Export rendering
	ExportDir         string
	PhotoProxyBase    string
	PhotoFetchTimeout time.Duration

	// Uploads
	UploadDir  string
	UploadTTL  time.Duration
	SweepEvery time.Duration
}

func Load() *Config {
	return &Config{
		Port:         getEnv("PORT", "8081"),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/maon.db"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "maon"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "export_jobs"),

		ExportDir:         getEnv("EXPORT_DIR", "./data/exports"),
		PhotoProxyBase:    getEnv("PHOTO_PROXY_BASE", ""),
		PhotoFetchTimeout: getEnvDuration("PHOTO_FETCH_TIMEOUT", 30*time.Second),

		UploadDir:  getEnv("UPLOAD_DIR", "./data/uploads"),
		UploadTTL:  getEnvDuration("UPLOAD_TTL", 15*time.Minute),
		SweepEvery: getEnvDuration("UPLOAD_SWEEP_INTERVAL", time.Minute),
	}
}

// Validate checks the configuration, collecting all problems into one
// error.
func (c *Config) Validate() error {
	var errs []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errs = append(errs, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errs = append(errs, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.SQLiteDBPath == "" {
		errs = append(errs, "SQLite database path cannot be empty")
	} else if dir := filepath.Dir(c.SQLiteDBPath); dir != "." && dir != "" {
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			if err := os.MkdirAll(dir, 0755); err != nil {
				errs = append(errs, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
			}
		}
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errs = append(errs, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errs = append(errs, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errs = append(errs, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errs = append(errs, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.ExportDir == "" {
		errs = append(errs, "export directory cannot be empty")
	}
	if c.UploadDir == "" {
		errs = append(errs, "upload directory cannot be empty")
	}

	if c.PhotoProxyBase != "" {
		if _, err := url.Parse(c.PhotoProxyBase); err != nil {
			errs = append(errs, fmt.Sprintf("invalid photo proxy base '%s': %v", c.PhotoProxyBase, err))
		}
	}
	if c.PhotoFetchTimeout < time.Second {
		errs = append(errs, fmt.Sprintf("invalid photo fetch timeout %v: must be at least 1 second", c.PhotoFetchTimeout))
	} else if c.PhotoFetchTimeout > 5*time.Minute {
		errs = append(errs, fmt.Sprintf("invalid photo fetch timeout %v: must be at most 5 minutes", c.PhotoFetchTimeout))
	}

	if c.UploadTTL < time.Minute {
		errs = append(errs, fmt.Sprintf("invalid upload TTL %v: must be at least 1 minute", c.UploadTTL))
	}
	if c.SweepEvery < time.Second {
		errs = append(errs, fmt.Sprintf("invalid upload sweep interval %v: must be at least 1 second", c.SweepEvery))
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

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

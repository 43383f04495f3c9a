// Package config reads process configuration from the environment once at
// startup. A .env file, when present, is loaded by the entrypoint before
// Load runs.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	// HTTP server
	Port          string
	AllowedOrigin string

	// Database
	DBPath string

	// Runtime
	Env           string
	ShutdownGrace time.Duration
}

func Load() *Config {
	return &Config{
		Port:          getEnv("PORT", "3000"),
		AllowedOrigin: getEnv("ALLOWED_ORIGIN", "http://localhost:5173"),
		DBPath:        getEnv("SPENDLOG_DB_PATH", "./data/spendlog.db"),
		Env:           getEnv("APP_ENV", EnvDevelopment),
		ShutdownGrace: getEnvDuration("SHUTDOWN_GRACE", 10*time.Second),
	}
}

// Validate checks the configuration and reports every problem at once.
func (c *Config) Validate() error {
	var errs []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errs = append(errs, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errs = append(errs, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.Env != EnvDevelopment && c.Env != EnvProduction {
		errs = append(errs, fmt.Sprintf("invalid environment '%s': must be %s or %s",
			c.Env, EnvDevelopment, EnvProduction))
	}

	if c.DBPath == "" {
		errs = append(errs, "database path cannot be empty")
	} else if dir := filepath.Dir(c.DBPath); dir != "." && dir != "" {
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				errs = append(errs, fmt.Sprintf("cannot create database directory '%s': %v", dir, err))
			}
		}
	}

	if c.AllowedOrigin == "" {
		errs = append(errs, "allowed origin cannot be empty")
	}

	if c.ShutdownGrace < time.Second {
		errs = append(errs, fmt.Sprintf("invalid shutdown grace %v: must be at least 1 second", c.ShutdownGrace))
	} else if c.ShutdownGrace > time.Minute {
		errs = append(errs, fmt.Sprintf("invalid shutdown grace %v: must be at most 1 minute", c.ShutdownGrace))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errs, "\n- "))
	}
	return nil
}

// IsDevelopment reports whether responses may carry debug detail such as
// stack traces.
func (c *Config) IsDevelopment() bool {
	return c.Env == EnvDevelopment
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

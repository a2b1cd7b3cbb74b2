// Package config provides application configuration management with support for environment variables, command-line flags, and .env files.
package config

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/listenupapp/memopack/internal/validation"
)

// Config holds the application configuration.
type Config struct {
	App     AppConfig
	Logger  LoggerConfig
	Server  ServerConfig
	Upload  UploadConfig
	Session SessionConfig
	Export  ExportConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string `validate:"required,oneof=development staging production"`
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level string `validate:"required,loglevel"`
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	Port           string        `validate:"required,numeric"` // Server port (default: 8080)
	ReadTimeout    time.Duration `validate:"gt=0s"`            // HTTP read timeout (default: 15s)
	WriteTimeout   time.Duration `validate:"gt=0s"`            // HTTP write timeout (default: 60s)
	IdleTimeout    time.Duration `validate:"gt=0s"`            // HTTP idle timeout (default: 60s)
	AllowedOrigins []string      // CORS origins; empty disables CORS
}

// UploadConfig limits attachment uploads.
type UploadConfig struct {
	MaxBytes int64 `validate:"gt=0"` // Per request (default: 64 MiB)
	MaxFiles int   `validate:"gt=0"` // Per request (default: 200)
}

// SessionConfig controls how long drafts are held.
type SessionConfig struct {
	IdleTTL       time.Duration `validate:"gt=0s"` // default: 2h
	SweepInterval time.Duration `validate:"gt=0s"` // default: 5m
}

// ExportConfig controls archive creation.
type ExportConfig struct {
	// Locale picks the category name when the browser sends no usable
	// Accept-Language header (default: ja).
	Locale        string `validate:"required,locale"`
	RatePerMinute int    `validate:"gt=0"` // Exports per client per minute (default: 30)
	Burst         int    `validate:"gt=0"` // default: 10
}

// LoadConfig loads configuration from multiple sources with precedence:
// 1. Command-line flags (highest priority).
// 2. Environment variables.
// 3. .env file.
// 4. Default values (lowest priority).
//
// args are the command-line arguments without the program name.
func LoadConfig(args []string) (*Config, error) {
	fs := flag.NewFlagSet("memopack-server", flag.ContinueOnError)

	env := fs.String("env", "", "Environment (development, staging, production)")
	logLevel := fs.String("log-level", "", "Log level (debug, info, warn, error)")

	// Server flags
	serverPort := fs.String("port", "", "Server port (default: 8080)")
	readTimeout := fs.String("read-timeout", "", "HTTP read timeout (default: 15s)")
	writeTimeout := fs.String("write-timeout", "", "HTTP write timeout (default: 60s)")
	idleTimeout := fs.String("idle-timeout", "", "HTTP idle timeout (default: 60s)")
	allowedOrigins := fs.String("allowed-origins", "", "Comma separated CORS origins")

	// Upload flags
	uploadMaxBytes := fs.String("upload-max-bytes", "", "Maximum upload size per request in bytes (default: 67108864)")
	uploadMaxFiles := fs.String("upload-max-files", "", "Maximum files per upload request (default: 200)")

	// Session flags
	sessionIdleTTL := fs.String("session-idle-ttl", "", "Drop sessions idle for this long (default: 2h)")
	sessionSweepInterval := fs.String("session-sweep-interval", "", "How often idle sessions are dropped (default: 5m)")

	// Export flags
	exportLocale := fs.String("export-locale", "", "Fallback language for category names (default: ja)")
	exportRate := fs.String("export-rate", "", "Exports per client per minute (default: 30)")
	exportBurst := fs.String("export-burst", "", "Export burst size (default: 10)")

	envFile := fs.String("env-file", ".env", "Path to .env file")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	// Load .env file if it exists (silently ignore if not found).
	_ = loadEnvFile(*envFile)

	cfg := &Config{
		App: AppConfig{
			Environment: getConfigValue(*env, "ENV", "development"),
		},
		Logger: LoggerConfig{
			Level: getConfigValue(*logLevel, "LOG_LEVEL", "info"),
		},
		Server: ServerConfig{
			Port:           getConfigValue(*serverPort, "SERVER_PORT", "8080"),
			AllowedOrigins: splitList(getConfigValue(*allowedOrigins, "ALLOWED_ORIGINS", "")),
		},
		Upload: UploadConfig{
			MaxFiles: getIntConfigValue(*uploadMaxFiles, "UPLOAD_MAX_FILES", 200),
		},
		Export: ExportConfig{
			Locale:        getConfigValue(*exportLocale, "EXPORT_LOCALE", "ja"),
			RatePerMinute: getIntConfigValue(*exportRate, "EXPORT_RATE_PER_MINUTE", 30),
			Burst:         getIntConfigValue(*exportBurst, "EXPORT_BURST", 10),
		},
	}

	maxBytesStr := getConfigValue(*uploadMaxBytes, "UPLOAD_MAX_BYTES", "67108864")
	maxBytes, err := strconv.ParseInt(maxBytesStr, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid upload max bytes %q: %w", maxBytesStr, err)
	}
	cfg.Upload.MaxBytes = maxBytes

	durations := []struct {
		flagValue, envKey, defaultValue, name string
		dest                                  *time.Duration
	}{
		{*readTimeout, "SERVER_READ_TIMEOUT", "15s", "read timeout", &cfg.Server.ReadTimeout},
		{*writeTimeout, "SERVER_WRITE_TIMEOUT", "60s", "write timeout", &cfg.Server.WriteTimeout},
		{*idleTimeout, "SERVER_IDLE_TIMEOUT", "60s", "idle timeout", &cfg.Server.IdleTimeout},
		{*sessionIdleTTL, "SESSION_IDLE_TTL", "2h", "session idle ttl", &cfg.Session.IdleTTL},
		{*sessionSweepInterval, "SESSION_SWEEP_INTERVAL", "5m", "session sweep interval", &cfg.Session.SweepInterval},
	}
	for _, d := range durations {
		value := getConfigValue(d.flagValue, d.envKey, d.defaultValue)
		parsed, err := time.ParseDuration(value)
		if err != nil {
			return nil, fmt.Errorf("invalid %s %q: %w", d.name, value, err)
		}
		*d.dest = parsed
	}

	// Validate configuration.
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required config values are present and valid.
func (c *Config) Validate() error {
	return validation.New().Validate(c)
}

// IsProduction reports whether the app runs in production.
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// getConfigValue returns the first non-empty value from flag, env var, or default.
func getConfigValue(flagValue, envKey, defaultValue string) string {
	// Priority 1: Command-line flag.
	if flagValue != "" {
		return flagValue
	}

	// Priority 2: Environment variable.
	if envValue := os.Getenv(envKey); envValue != "" {
		return envValue
	}

	// Priority 3: Default value.
	return defaultValue
}

// getIntConfigValue returns an int from flag, env var, or default.
func getIntConfigValue(flagValue, envKey string, defaultValue int) int {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	result, err := strconv.Atoi(strValue)
	if err != nil {
		return defaultValue
	}
	return result
}

// splitList splits a comma separated value, dropping blanks.
func splitList(s string) []string {
	var out []string
	for part := range strings.SplitSeq(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// loadEnvFile loads environment variables from a .env file.
// Format: KEY=value (one per line, # for comments).
func loadEnvFile(path string) error {
	file, err := os.Open(path) //#nosec G304 -- Config file path from user input is expected
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments.
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Parse KEY=value.
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return fmt.Errorf("invalid format at line %d: %s", lineNum, line)
		}

		key = strings.TrimSpace(key)
		value = strings.Trim(strings.TrimSpace(value), `"'`)

		// Only set if not already set (env vars take precedence over .env file).
		if os.Getenv(key) == "" {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("failed to set env var %s: %w", key, err)
			}
		}
	}

	return scanner.Err()
}

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"
	"strconv"
	"strings"

	"kart-admin/internal/orderstatus"

	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Logger   LoggerConfig
	Auth     AuthConfig
	S3       S3Config
	Uploads  UploadsConfig
	Policies PoliciesConfig
}

// ServerConfig holds server-related configuration.
type ServerConfig struct {
	Host        string
	Port        int
	CORSOrigins []string
}

// DatabaseConfig holds database-related configuration.
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	Database        string
	MaxConnections  int
	MinConnections  int
	MaxConnLifetime int // seconds
	AutoMigrate     bool
}

// LoggerConfig holds logger-related configuration.
type LoggerConfig struct {
	Level  string
	Format string // "json" or "console"
}

// AuthConfig holds authentication configuration.
type AuthConfig struct {
	APIKey string
}

// S3Config holds AWS S3 configuration for uploaded images.
type S3Config struct {
	Enabled       bool
	Bucket        string
	Region        string
	Prefix        string // Key prefix within bucket (e.g., "images/")
	PublicBaseURL string // CDN or bucket URL; empty uses the bucket URL
}

// UploadsConfig holds the local image store, used when S3 is disabled or
// unavailable.
type UploadsConfig struct {
	Dir     string
	BaseURL string
}

// PoliciesConfig switches on optional submit checks. All are off by default.
type PoliciesConfig struct {
	// OrderTransitions is a table such as
	// "pending:completed|cancelled|failed;completed:refunded". Empty allows
	// every status change.
	OrderTransitions     string
	EnforceOrderTotals   bool
	RejectCategoryCycles bool
}

// Load loads configuration from environment variables. A .env file (or the
// file named by ENV_FILE) is read first when present; variables already set
// in the environment win.
func Load() (*Config, error) {
	if err := loadDotEnv(getEnv("ENV_FILE", ".env")); err != nil {
		return nil, err
	}

	port := getEnvAsInt("SERVER_PORT", 8080)
	cfg := &Config{
		Server: ServerConfig{
			Host:        getEnv("SERVER_HOST", "0.0.0.0"),
			Port:        port,
			CORSOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"*"}),
		},
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnvAsInt("DB_PORT", 5432),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", ""),
			Database:        getEnv("DB_NAME", "kartadmin"),
			MaxConnections:  getEnvAsInt("DB_MAX_CONNECTIONS", 25),
			MinConnections:  getEnvAsInt("DB_MIN_CONNECTIONS", 5),
			MaxConnLifetime: getEnvAsInt("DB_MAX_CONN_LIFETIME", 300),
			AutoMigrate:     getEnvAsBool("DB_AUTO_MIGRATE", true),
		},
		Logger: LoggerConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Auth: AuthConfig{
			APIKey: getEnv("API_KEY", ""),
		},
		S3: S3Config{
			Enabled:       getEnvAsBool("S3_ENABLED", false),
			Bucket:        getEnv("S3_BUCKET", ""),
			Region:        getEnv("S3_REGION", "us-east-1"),
			Prefix:        getEnv("S3_PREFIX", "images/"),
			PublicBaseURL: getEnv("S3_PUBLIC_BASE_URL", ""),
		},
		Uploads: UploadsConfig{
			Dir:     getEnv("UPLOAD_DIR", "./data/uploads"),
			BaseURL: getEnv("UPLOAD_BASE_URL", fmt.Sprintf("http://localhost:%d/uploads", port)),
		},
		Policies: PoliciesConfig{
			OrderTransitions:     getEnv("ORDER_TRANSITIONS", ""),
			EnforceOrderTotals:   getEnvAsBool("ENFORCE_ORDER_TOTALS", false),
			RejectCategoryCycles: getEnvAsBool("REJECT_CATEGORY_CYCLES", false),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate reports every configuration problem at once.
func (c *Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	check(validPort(c.Server.Port), "invalid server port: %d", c.Server.Port)

	db := c.Database
	check(db.Host != "", "database host is required")
	check(validPort(db.Port), "invalid database port: %d", db.Port)
	check(db.User != "", "database user is required")
	check(db.Database != "", "database name is required")
	check(db.MaxConnections >= 1, "database max connections must be at least 1")
	check(db.MinConnections >= 1, "database min connections must be at least 1")
	check(db.MinConnections <= db.MaxConnections, "database min connections cannot exceed max connections")

	check(c.Auth.APIKey != "", "API key is required")

	check(slices.Contains(logLevels, c.Logger.Level),
		"invalid log level: %s (must be %s)", c.Logger.Level, strings.Join(logLevels, ", "))
	check(c.Logger.Format == "json" || c.Logger.Format == "console",
		"invalid log format: %s (must be json or console)", c.Logger.Format)

	if c.S3.Enabled {
		check(c.S3.Bucket != "", "S3 bucket is required when S3 is enabled")
		check(c.S3.Region != "", "S3 region is required when S3 is enabled")
	}
	check(c.Uploads.Dir != "", "upload directory is required")

	if _, err := c.Policies.Transitions(); err != nil {
		errs = append(errs, fmt.Errorf("invalid ORDER_TRANSITIONS: %w", err))
	}

	return errors.Join(errs...)
}

var logLevels = []string{"debug", "info", "warn", "error"}

func validPort(p int) bool { return p >= 1 && p <= 65535 }

// Transitions parses the configured order transition table.
func (p PoliciesConfig) Transitions() (orderstatus.Transitions, error) {
	return orderstatus.ParseTransitions(p.OrderTransitions)
}

// ConnectionString returns the PostgreSQL connection string.
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.User,
		c.Password,
		c.Host,
		c.Port,
		c.Database,
	)
}

// Address returns the server address.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// loadDotEnv reads path into the environment. A missing file is not an error.
func loadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// getEnv retrieves an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value.
func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value.
func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getEnvAsList retrieves a comma-separated environment variable.
func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, v := range strings.Split(value, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

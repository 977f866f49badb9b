package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

type Config struct {
	Environment     string        `yaml:"environment"`
	ListenAddr      string        `yaml:"listen_addr"`
	DatabaseDSN     string        `yaml:"db_dsn"`
	StoreDriver     string        `yaml:"store_driver"`
	AllowedOrigin   string        `yaml:"allowed_origin"`
	EnableMetrics   bool          `yaml:"enable_metrics"`
	EnableSwagger   bool          `yaml:"enable_swagger"`
	LogLevel        string        `yaml:"log_level"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	ImportMaxBytes  int64         `yaml:"import_max_bytes"`

	fileErr error
}

func defaults() *Config {
	return &Config{
		Environment:     "development",
		ListenAddr:      ":8080",
		StoreDriver:     DriverPostgres,
		AllowedOrigin:   "http://localhost:5173",
		LogLevel:        "info",
		ShutdownTimeout: 10 * time.Second,
		ImportMaxBytes:  20 << 20,
	}
}

// Load builds the configuration from defaults, an optional YAML file named by
// CONFIG_FILE, and finally the environment.
func Load() *Config {
	config := defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := config.mergeFile(path); err != nil {
			// an unreadable file is reported by LoadAndValidate
			config.fileErr = err
		}
	}

	config.Environment = getEnv("ENVIRONMENT", config.Environment)
	config.ListenAddr = getEnv("LISTEN_ADDR", config.ListenAddr)
	config.DatabaseDSN = getEnv("DB_DSN", config.DatabaseDSN)
	config.StoreDriver = strings.ToLower(getEnv("STORE_DRIVER", config.StoreDriver))
	config.AllowedOrigin = getEnv("ALLOWED_ORIGIN", config.AllowedOrigin)
	config.EnableMetrics = getEnvBool("ENABLE_METRICS", config.EnableMetrics)
	config.EnableSwagger = getEnvBool("ENABLE_SWAGGER", config.EnableSwagger)
	config.LogLevel = strings.ToLower(getEnv("LOG_LEVEL", config.LogLevel))

	if s := os.Getenv("SHUTDOWN_TIMEOUT"); s != "" {
		if d, err := time.ParseDuration(s); err == nil {
			config.ShutdownTimeout = d
		}
	}
	if s := os.Getenv("IMPORT_MAX_BYTES"); s != "" {
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			config.ImportMaxBytes = n
		}
	}

	return config
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

// Validate checks that the configuration can start a server
func (c *Config) Validate() error {
	if c.fileErr != nil {
		return c.fileErr
	}
	if c.ListenAddr == "" {
		return fmt.Errorf("LISTEN_ADDR must not be empty")
	}
	switch c.StoreDriver {
	case DriverPostgres:
		if c.DatabaseDSN == "" {
			return fmt.Errorf("DB_DSN is required when STORE_DRIVER=%s", DriverPostgres)
		}
	case DriverMemory:
		if c.Environment == "production" {
			return fmt.Errorf("STORE_DRIVER=%s is not allowed in production", DriverMemory)
		}
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}
	if c.AllowedOrigin == "" || c.AllowedOrigin == "*" {
		return fmt.Errorf("ALLOWED_ORIGIN must name a single origin")
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown LOG_LEVEL %q", c.LogLevel)
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("SHUTDOWN_TIMEOUT must be positive")
	}
	if c.ImportMaxBytes <= 0 {
		return fmt.Errorf("IMPORT_MAX_BYTES must be positive")
	}
	return nil
}

// LoadAndValidate loads the configuration and validates it
func LoadAndValidate() (*Config, error) {
	cfg := Load()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

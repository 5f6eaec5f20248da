package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DevSessionSecret signs sessions when SESSION_SECRET is unset. It is
// rejected when APP_ENV is production.
const DevSessionSecret = "dev-session-secret-change-me"

// Config holds the application configuration.
type Config struct {
	ServerPort     int           `yaml:"port"`
	AppEnv         string        `yaml:"app_env"`
	LogLevel       string        `yaml:"log_level"`
	StoreDriver    string        `yaml:"store_driver"` // "json" or "sqlite"
	DataFile       string        `yaml:"data_file"`
	DatabasePath   string        `yaml:"database_path"`
	SessionSecret  string        `yaml:"session_secret"`
	SessionTTL     time.Duration `yaml:"session_ttl"`
	AllowedOrigins []string      `yaml:"allowed_origins"`
	BackupPath     string        `yaml:"backup_path"`
	BackupSchedule string        `yaml:"backup_schedule"` // Cron expression, empty disables backups
	BackupKeep     int           `yaml:"backup_keep"`
}

// Default returns the configuration used when nothing is overridden.
func Default() *Config {
	return &Config{
		ServerPort:     8080,
		AppEnv:         "development",
		LogLevel:       "info",
		StoreDriver:    "json",
		DataFile:       "./data/users.json",
		DatabasePath:   "./users.db",
		SessionSecret:  DevSessionSecret,
		SessionTTL:     30 * 24 * time.Hour,
		AllowedOrigins: []string{"http://localhost:8080"},
		BackupPath:     "./backups",
		BackupKeep:     7,
	}
}

// Load builds the configuration from defaults, then the YAML file named by
// CONFIG_FILE if set, then environment variables.
func Load() (*Config, error) {
	cfg := Default()

	if path, ok := os.LookupEnv("CONFIG_FILE"); ok && path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.loadEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// IsProduction reports whether the app runs with APP_ENV=production.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.ServerPort <= 0 || c.ServerPort > 65535 {
		return fmt.Errorf("invalid port %d", c.ServerPort)
	}
	switch c.StoreDriver {
	case "json", "sqlite":
	default:
		return fmt.Errorf("unknown store driver %q", c.StoreDriver)
	}
	if c.SessionSecret == "" {
		return errors.New("session secret must not be empty")
	}
	if c.IsProduction() && c.SessionSecret == DevSessionSecret {
		return errors.New("SESSION_SECRET must be set in production")
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("invalid session ttl %s", c.SessionTTL)
	}
	if c.BackupKeep < 0 {
		return fmt.Errorf("invalid backup keep %d", c.BackupKeep)
	}
	return nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	return nil
}

func (c *Config) loadEnv() error {
	var err error
	if c.ServerPort, err = getEnvInt("PORT", c.ServerPort); err != nil {
		return err
	}
	if c.BackupKeep, err = getEnvInt("BACKUP_KEEP", c.BackupKeep); err != nil {
		return err
	}
	if v, ok := os.LookupEnv("SESSION_TTL"); ok {
		if c.SessionTTL, err = time.ParseDuration(v); err != nil {
			return fmt.Errorf("invalid SESSION_TTL: %w", err)
		}
	}
	if v, ok := os.LookupEnv("ALLOWED_ORIGINS"); ok {
		c.AllowedOrigins = splitList(v)
	}

	c.AppEnv = getEnv("APP_ENV", c.AppEnv)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.StoreDriver = strings.ToLower(getEnv("STORE_DRIVER", c.StoreDriver))
	c.DataFile = getEnv("DATA_FILE", c.DataFile)
	c.DatabasePath = getEnv("DATABASE_PATH", c.DatabasePath)
	c.SessionSecret = getEnv("SESSION_SECRET", c.SessionSecret)
	c.BackupPath = getEnv("BACKUP_PATH", c.BackupPath)
	c.BackupSchedule = getEnv("BACKUP_SCHEDULE", c.BackupSchedule)
	return nil
}

// Helper to get an environment variable with a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	value, exists := os.LookupEnv(key)
	if !exists {
		return fallback, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Config holds the application configuration.
type Config struct {
	ServerPort     int           `yaml:"port" env:"PORT"`
	DatabasePath   string        `yaml:"database_path" env:"DATABASE_PATH"`
	JWTSecret      string        `yaml:"jwt_secret" env:"JWT_SECRET"`
	TokenTTL       time.Duration `yaml:"token_ttl" env:"TOKEN_TTL"`
	AllowedOrigins []string      `yaml:"allowed_origins" env:"CORS_ALLOWED_ORIGINS" envSeparator:","`
	AppEnv         string        `yaml:"app_env" env:"APP_ENV"`
	LogLevel       string        `yaml:"log_level" env:"LOG_LEVEL"`
	LogFormat      string        `yaml:"log_format" env:"LOG_FORMAT"` // "console" or "json"
	MaxUploadBytes int64         `yaml:"max_upload_bytes" env:"MAX_UPLOAD_BYTES"`

	// Backups are disabled while BackupCron is empty.
	BackupPath string `yaml:"backup_path" env:"BACKUP_PATH"`
	BackupCron string `yaml:"backup_cron" env:"BACKUP_CRON"`

	// Optional S3-compatible target for backup uploads.
	S3Bucket    string `yaml:"s3_bucket" env:"S3_BUCKET"`
	S3Region    string `yaml:"s3_region" env:"S3_REGION"`
	S3Endpoint  string `yaml:"s3_endpoint" env:"S3_ENDPOINT"`
	S3AccessKey string `yaml:"s3_access_key" env:"S3_ACCESS_KEY"`
	S3SecretKey string `yaml:"s3_secret_key" env:"S3_SECRET_KEY"`

	OtelEndpoint string `yaml:"otel_endpoint" env:"OTEL_ENDPOINT"`
}

// Defaults returns the configuration used when nothing overrides it.
func Defaults() Config {
	return Config{
		ServerPort:     8080,
		DatabasePath:   "./paytrack.db",
		TokenTTL:       24 * time.Hour,
		AllowedOrigins: []string{"http://localhost:3000"},
		AppEnv:         "development",
		LogLevel:       "info",
		LogFormat:      "console",
		MaxUploadBytes: 5 << 20,
		BackupPath:     "./backups",
		S3Region:       "us-east-1",
	}
}

// Load builds the configuration from defaults, then the YAML file named by
// CONFIG_FILE (if any), then environment variables.
func Load() (*Config, error) {
	cfg := Defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return nil, err
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

// Validate reports settings the server cannot start with.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET must be set")
	}
	if c.ServerPort <= 0 || c.ServerPort > 65535 {
		return fmt.Errorf("invalid port %d", c.ServerPort)
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("token ttl must be positive, got %s", c.TokenTTL)
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("max upload bytes must be positive, got %d", c.MaxUploadBytes)
	}
	return nil
}

// IsProduction reports whether cookies should be marked Secure.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// S3Enabled reports whether backups should be uploaded.
func (c *Config) S3Enabled() bool {
	return c.S3Bucket != ""
}

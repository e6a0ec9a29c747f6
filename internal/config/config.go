// Package config loads application configuration from a YAML file with
// environment variable overrides. Secrets live in .env locally and in real
// env vars on ECS.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	SES        SESConfig        `yaml:"ses"`
	Newsletter NewsletterConfig `yaml:"newsletter"`
	RateLimit  RateLimitConfig  `yaml:"rate_limit"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port int    `yaml:"port"`
	Host string `yaml:"host"`
}

// GetHost returns the server host, with container detection.
func (c ServerConfig) GetHost() string {
	// On ECS/container, listen on all interfaces
	if os.Getenv("ECS_CONTAINER_METADATA_URI") != "" || os.Getenv("AWS_EXECUTION_ENV") != "" {
		return "0.0.0.0"
	}
	if host := os.Getenv("SERVER_HOST"); host != "" {
		return host
	}
	return c.Host
}

// DatabaseConfig holds the PostgreSQL connection settings.
type DatabaseConfig struct {
	URL          string `yaml:"url"`
	MaxOpenConns int    `yaml:"max_open_conns"`
	MaxIdleConns int    `yaml:"max_idle_conns"`
}

// RedisConfig holds the shared rate-limit backend settings.
type RedisConfig struct {
	URL string `yaml:"url"`
}

// SESConfig holds AWS SES API configuration for confirmation email delivery.
type SESConfig struct {
	Region         string `yaml:"region"`
	AccessKey      string `yaml:"access_key"`
	SecretKey      string `yaml:"secret_key"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// Timeout returns the configured timeout as a duration.
func (c SESConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// NewsletterConfig holds subscription workflow settings.
type NewsletterConfig struct {
	// SiteURL is the public base URL used in confirmation links.
	SiteURL string `yaml:"site_url"`
	// FromAddress is the sender of confirmation emails.
	FromAddress string `yaml:"from_address"`
	// TokenTTLHours is how long a confirmation token stays valid.
	// Zero disables expiry.
	TokenTTLHours int `yaml:"token_ttl_hours"`
}

// TokenTTL returns the token lifetime as a duration.
func (c NewsletterConfig) TokenTTL() time.Duration {
	return time.Duration(c.TokenTTLHours) * time.Hour
}

// RateLimitConfig holds fixed-window rate limiter settings.
type RateLimitConfig struct {
	Limit         int64    `yaml:"limit"`
	WindowSeconds int      `yaml:"window_seconds"`
	Exempt        []string `yaml:"exempt"`
}

// Window returns the counting window as a duration.
func (c RateLimitConfig) Window() time.Duration {
	return time.Duration(c.WindowSeconds) * time.Second
}

// Load reads and parses the configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	// Set defaults
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 10
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.SES.TimeoutSeconds == 0 {
		cfg.SES.TimeoutSeconds = 30
	}
	if cfg.SES.Region == "" {
		cfg.SES.Region = "us-west-2"
	}
	if cfg.Newsletter.SiteURL == "" {
		cfg.Newsletter.SiteURL = "http://localhost:3001"
	}
	if cfg.Newsletter.TokenTTLHours == 0 {
		cfg.Newsletter.TokenTTLHours = 24
	}
	if cfg.RateLimit.Limit == 0 {
		cfg.RateLimit.Limit = 5
	}
	if cfg.RateLimit.WindowSeconds == 0 {
		cfg.RateLimit.WindowSeconds = 3600
	}
	if len(cfg.RateLimit.Exempt) == 0 {
		cfg.RateLimit.Exempt = []string{"127.0.0.1", "::1", "localhost", "unknown"}
	}

	return &cfg, nil
}

// LoadFromEnv loads configuration with environment variable overrides.
// It automatically loads a .env file (if present) before reading env vars.
func LoadFromEnv(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		cfg.Database.URL = dbURL
	}
	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		cfg.Redis.URL = redisURL
	}
	if accessKey := os.Getenv("AWS_SES_ACCESS_KEY"); accessKey != "" {
		cfg.SES.AccessKey = accessKey
	}
	if secretKey := os.Getenv("AWS_SES_SECRET_KEY"); secretKey != "" {
		cfg.SES.SecretKey = secretKey
	}
	if region := os.Getenv("AWS_SES_REGION"); region != "" {
		cfg.SES.Region = region
	}
	if siteURL := os.Getenv("SITE_URL"); siteURL != "" {
		cfg.Newsletter.SiteURL = siteURL
	}
	if from := os.Getenv("NEWSLETTER_FROM_ADDRESS"); from != "" {
		cfg.Newsletter.FromAddress = from
	}
	if ttl := os.Getenv("CONFIRMATION_TOKEN_TTL_HOURS"); ttl != "" {
		if hours, err := strconv.Atoi(ttl); err == nil {
			cfg.Newsletter.TokenTTLHours = hours
		}
	}

	return cfg, nil
}

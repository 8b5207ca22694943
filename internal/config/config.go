package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// TCP server
	TCPHost        string        `env:"TCP_HOST" default:""`
	TCPPort        int           `env:"TCP_PORT" default:"8080"`
	ReadBufferSize int           `env:"READ_BUFFER_SIZE" default:"1024"`
	MaxConnections int64         `env:"MAX_CONNECTIONS" default:"0"` // 0 = unbounded
	AcceptRate     float64       `env:"ACCEPT_RATE" default:"0"`     // accepts per second, 0 = unlimited
	AcceptBurst    int           `env:"ACCEPT_BURST" default:"1"`
	IdleTimeout    time.Duration `env:"IDLE_TIMEOUT" default:"0"`

	// TCP client
	ClientHost    string        `env:"CLIENT_HOST" default:"127.0.0.1"`
	ClientMessage string        `env:"CLIENT_MESSAGE" default:"hello world."`
	DialTimeout   time.Duration `env:"DIAL_TIMEOUT" default:"0"`

	// Wire
	Charset string `env:"CHARSET" default:"utf-8"`

	// Redis publish (disabled when empty)
	RedisURL     string `env:"REDIS_URL"`
	RedisChannel string `env:"REDIS_CHANNEL" default:"hellotcp:messages"`

	// Admin HTTP (disabled when empty)
	AdminAddr string `env:"ADMIN_ADDR"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" default:"debug"`
	LogFormat string `env:"LOG_FORMAT" default:"text"`
}

// LoadConfig loads configuration from a .env file (if present) and environment variables
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	return FromEnv()
}

// FromEnv reads the configuration from the process environment only
func FromEnv() (*Config, error) {
	config := &Config{}

	// TCP server
	if err := loadEnvString(&config.TCPHost, "TCP_HOST", ""); err != nil {
		return nil, err
	}
	if err := loadEnvInt(&config.TCPPort, "TCP_PORT", 8080); err != nil {
		return nil, err
	}
	if err := loadEnvInt(&config.ReadBufferSize, "READ_BUFFER_SIZE", 1024); err != nil {
		return nil, err
	}
	if err := loadEnvInt64(&config.MaxConnections, "MAX_CONNECTIONS", 0); err != nil {
		return nil, err
	}
	if err := loadEnvFloat(&config.AcceptRate, "ACCEPT_RATE", 0); err != nil {
		return nil, err
	}
	if err := loadEnvInt(&config.AcceptBurst, "ACCEPT_BURST", 1); err != nil {
		return nil, err
	}
	if err := loadEnvDuration(&config.IdleTimeout, "IDLE_TIMEOUT", 0); err != nil {
		return nil, err
	}

	// TCP client
	if err := loadEnvString(&config.ClientHost, "CLIENT_HOST", "127.0.0.1"); err != nil {
		return nil, err
	}
	if err := loadEnvString(&config.ClientMessage, "CLIENT_MESSAGE", "hello world."); err != nil {
		return nil, err
	}
	if err := loadEnvDuration(&config.DialTimeout, "DIAL_TIMEOUT", 0); err != nil {
		return nil, err
	}

	// Wire
	if err := loadEnvString(&config.Charset, "CHARSET", "utf-8"); err != nil {
		return nil, err
	}

	// Redis
	if err := loadEnvString(&config.RedisURL, "REDIS_URL", ""); err != nil {
		return nil, err
	}
	if err := loadEnvString(&config.RedisChannel, "REDIS_CHANNEL", "hellotcp:messages"); err != nil {
		return nil, err
	}

	// Admin
	if err := loadEnvString(&config.AdminAddr, "ADMIN_ADDR", ""); err != nil {
		return nil, err
	}

	// Logging
	if err := loadEnvString(&config.LogLevel, "LOG_LEVEL", "debug"); err != nil {
		return nil, err
	}
	if err := loadEnvString(&config.LogFormat, "LOG_FORMAT", "text"); err != nil {
		return nil, err
	}
	return config, nil
}

// Helper functions for type conversion and validation
func loadEnvString(target *string, key, defaultValue string) error {
	if value := os.Getenv(key); value != "" {
		*target = value
	} else {
		*target = defaultValue
	}
	return nil
}

func loadEnvInt(target *int, key string, defaultValue int) error {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid integer value for %s: %w", key, err)
		}
		*target = parsed
	} else {
		*target = defaultValue
	}
	return nil
}

func loadEnvInt64(target *int64, key string, defaultValue int64) error {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid integer value for %s: %w", key, err)
		}
		*target = parsed
	} else {
		*target = defaultValue
	}
	return nil
}

func loadEnvFloat(target *float64, key string, defaultValue float64) error {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid number value for %s: %w", key, err)
		}
		*target = parsed
	} else {
		*target = defaultValue
	}
	return nil
}

func loadEnvDuration(target *time.Duration, key string, defaultValue time.Duration) error {
	if value := os.Getenv(key); value != "" {
		parsed, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration value for %s: %w", key, err)
		}
		*target = parsed
	} else {
		*target = defaultValue
	}
	return nil
}

// Validate performs validation on the loaded configuration
func (c *Config) Validate() error {
	var errors []string

	if c.TCPPort < 0 || c.TCPPort > 65535 {
		errors = append(errors, "TCP_PORT must be between 0 and 65535")
	}
	if c.ReadBufferSize < 1 {
		errors = append(errors, "READ_BUFFER_SIZE must be positive")
	}
	if c.MaxConnections < 0 {
		errors = append(errors, "MAX_CONNECTIONS must not be negative")
	}
	if c.AcceptRate < 0 {
		errors = append(errors, "ACCEPT_RATE must not be negative")
	}
	if c.AcceptRate > 0 && c.AcceptBurst < 1 {
		errors = append(errors, "ACCEPT_BURST must be at least 1 when ACCEPT_RATE is set")
	}
	if c.IdleTimeout < 0 {
		errors = append(errors, "IDLE_TIMEOUT must not be negative")
	}
	if c.DialTimeout < 0 {
		errors = append(errors, "DIAL_TIMEOUT must not be negative")
	}
	if c.RedisURL != "" && c.RedisChannel == "" {
		errors = append(errors, "REDIS_CHANNEL is required when REDIS_URL is set")
	}

	validLogLevels := []string{"debug", "info", "warn", "error"}
	if !contains(validLogLevels, strings.ToLower(c.LogLevel)) {
		errors = append(errors, fmt.Sprintf("LOG_LEVEL must be one of: %s", strings.Join(validLogLevels, ", ")))
	}
	validLogFormats := []string{"text", "json"}
	if !contains(validLogFormats, strings.ToLower(c.LogFormat)) {
		errors = append(errors, fmt.Sprintf("LOG_FORMAT must be one of: %s", strings.Join(validLogFormats, ", ")))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errors, "; "))
	}
	return nil
}

// ServerAddr is the address the TCP server binds to (all interfaces unless TCP_HOST is set)
func (c *Config) ServerAddr() string {
	return net.JoinHostPort(c.TCPHost, strconv.Itoa(c.TCPPort))
}

// ClientAddr is the address the TCP client dials
func (c *Config) ClientAddr() string {
	return net.JoinHostPort(c.ClientHost, strconv.Itoa(c.TCPPort))
}

// Helper function to check if slice contains a string
func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}

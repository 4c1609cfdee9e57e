package config

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

type Config struct {
	Database struct {
		Host     string
		Port     int
		User     string
		Password string
		Name     string // YAML key: "database"
	}
	RabbitMQ struct {
		Host     string
		Port     int
		User     string
		Password string
	}
	Services struct {
		BookingServicePort int
		NotifyServicePort  int
	}
	JWT struct {
		SecretKey string `yaml:"secret_key"`
	}
	Booking struct {
		GracePeriodMinutes   int
		SweepIntervalSeconds int
		SweepBatchSize       int
	}
}

// LoadFromFile loads config from a YAML file to a Config struct, applies defaults, and validates required fields.
func LoadFromFile(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err := parseYAML(file, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyDefaults(&cfg)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// GracePeriod returns the configured post-departure grace window.
func (c *Config) GracePeriod() time.Duration {
	return time.Duration(c.Booking.GracePeriodMinutes) * time.Minute
}

// SweepInterval returns how often the expiry sweep runs.
func (c *Config) SweepInterval() time.Duration {
	return time.Duration(c.Booking.SweepIntervalSeconds) * time.Second
}

// applyDefaults sets safe defaults for some fields.
func applyDefaults(cfg *Config) {
	// Database
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}

	// RabbitMQ
	if cfg.RabbitMQ.Host == "" {
		cfg.RabbitMQ.Host = "localhost"
	}
	if cfg.RabbitMQ.Port == 0 {
		cfg.RabbitMQ.Port = 5672
	}

	// Services
	if cfg.Services.BookingServicePort == 0 {
		cfg.Services.BookingServicePort = 3000
	}
	if cfg.Services.NotifyServicePort == 0 {
		cfg.Services.NotifyServicePort = 3002
	}

	// Booking workflow
	if cfg.Booking.GracePeriodMinutes == 0 {
		cfg.Booking.GracePeriodMinutes = 30
	}
	if cfg.Booking.SweepIntervalSeconds == 0 {
		cfg.Booking.SweepIntervalSeconds = 60
	}
	if cfg.Booking.SweepBatchSize == 0 {
		cfg.Booking.SweepBatchSize = 200
	}

	if cfg.JWT.SecretKey == "" {
		key := make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			// fallback: time-based bytes
			key = []byte(fmt.Sprintf("%d", time.Now().UnixNano()))
		}
		cfg.JWT.SecretKey = base64.StdEncoding.EncodeToString(key)
	}
}

// validate checks required fields and basic ranges.
func (c *Config) validate() error {
	var problems []string

	// DB
	if c.Database.Port <= 0 || c.Database.Port > 65535 {
		problems = append(problems, "database.port must be in 1..65535")
	}
	if c.Database.User == "" {
		problems = append(problems, "database.user is required")
	}
	if c.Database.Password == "" {
		problems = append(problems, "database.password is required")
	}
	if c.Database.Name == "" {
		problems = append(problems, "database.name is required")
	}

	// RabbitMQ
	if c.RabbitMQ.Port <= 0 || c.RabbitMQ.Port > 65535 {
		problems = append(problems, "rabbitmq.port must be in 1..65535")
	}
	if c.RabbitMQ.User == "" {
		problems = append(problems, "rabbitmq.user is required")
	}
	if c.RabbitMQ.Password == "" {
		problems = append(problems, "rabbitmq.password is required")
	}

	// Services
	if c.Services.BookingServicePort <= 0 || c.Services.BookingServicePort > 65535 {
		problems = append(problems, "services.booking_service must be in 1..65535")
	}
	if c.Services.NotifyServicePort <= 0 || c.Services.NotifyServicePort > 65535 {
		problems = append(problems, "services.notify_service must be in 1..65535")
	}

	// Booking workflow
	if c.Booking.GracePeriodMinutes < 0 {
		problems = append(problems, "booking.grace_period_minutes must not be negative")
	}
	if c.Booking.SweepIntervalSeconds < 1 {
		problems = append(problems, "booking.sweep_interval_seconds must be at least 1")
	}
	if c.Booking.SweepBatchSize < 1 {
		problems = append(problems, "booking.sweep_batch_size must be at least 1")
	}

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

// Package config loads process configuration from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/sirupsen/logrus"
)

// Config is the process configuration. CLI flags override these values.
type Config struct {
	Addr          string        `env:"EGGHUNT_ADDR" envDefault:"127.0.0.1:8080"`
	DBPath        string        `env:"EGGHUNT_DB_PATH" envDefault:"egghunt.db"`
	LogLevel      string        `env:"EGGHUNT_LOG_LEVEL" envDefault:"info"`
	ScanWorkers   int           `env:"EGGHUNT_SCAN_WORKERS" envDefault:"0"`
	ScanTimeout   time.Duration `env:"EGGHUNT_SCAN_TIMEOUT" envDefault:"60s"`
	ScriptTimeout time.Duration `env:"EGGHUNT_SCRIPT_TIMEOUT" envDefault:"100ms"`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Load reads Config from the environment and checks it.
func Load() (Config, error) {
	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects values no component can run with.
func (c Config) Validate() error {
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("EGGHUNT_LOG_LEVEL: %w", err)
	}
	if c.ScanWorkers < 0 {
		return fmt.Errorf("EGGHUNT_SCAN_WORKERS must be >= 0, got %d", c.ScanWorkers)
	}
	if c.ScanTimeout <= 0 {
		return fmt.Errorf("EGGHUNT_SCAN_TIMEOUT must be positive, got %s", c.ScanTimeout)
	}
	if c.ScriptTimeout < 0 {
		return fmt.Errorf("EGGHUNT_SCRIPT_TIMEOUT must be >= 0, got %s", c.ScriptTimeout)
	}
	return nil
}

// NewLogger builds the process logger at the configured level.
func (c Config) NewLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if level, err := logrus.ParseLevel(c.LogLevel); err == nil {
		logger.SetLevel(level)
	}
	return logger
}

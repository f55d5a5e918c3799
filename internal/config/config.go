// Package config reads service configuration from the environment and
// command-line flags. Environment variables win over flags.
package config

import (
	"flag"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds the service configuration.
type Config struct {
	RunAddress  string        `env:"RUN_ADDRESS"`
	DatabaseURI string        `env:"DATABASE_URI"`
	LockTimeout time.Duration `env:"LOCK_TIMEOUT"`
}

// Parse reads configuration from command-line flags and environment
// variables. Environment values take precedence over flags; defaults apply
// last.
func Parse() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	envRunAddress := cfg.RunAddress
	envDatabaseURI := cfg.DatabaseURI
	envLockTimeout := cfg.LockTimeout

	flag.StringVar(&cfg.RunAddress, "a", "localhost:8080", "address and port for HTTP server")
	flag.StringVar(&cfg.DatabaseURI, "d", "", "database URI")
	flag.DurationVar(&cfg.LockTimeout, "t", 5*time.Second, "bound on waiting for a contended slot lock")

	flag.Parse()

	if envRunAddress != "" {
		cfg.RunAddress = envRunAddress
	}
	if envDatabaseURI != "" {
		cfg.DatabaseURI = envDatabaseURI
	}
	if envLockTimeout > 0 {
		cfg.LockTimeout = envLockTimeout
	}

	if cfg.RunAddress == "" {
		cfg.RunAddress = "localhost:8080"
	}

	return cfg, nil
}

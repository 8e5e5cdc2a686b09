package config

import (
	"fmt"
	"net"
	"strings"
)

var validSSLModes = map[string]bool{
	"disable":     true,
	"allow":       true,
	"prefer":      true,
	"require":     true,
	"verify-ca":   true,
	"verify-full": true,
}

// Validate checks the configuration for correctness. Errors wrap the
// package sentinels so callers can classify them with errors.Is.
func (c *Config) Validate() error {
	if c == nil {
		return ErrConfigNil
	}

	if _, _, err := net.SplitHostPort(c.ListenAddr); err != nil {
		return fmt.Errorf("%w: %q: %v", ErrInvalidListenAddr, c.ListenAddr, err)
	}

	if c.ModelName == "" {
		return fmt.Errorf("%w: must not be empty", ErrInvalidModelName)
	}
	if !strings.Contains(c.ModelName, "/") {
		return fmt.Errorf("%w: %q must be provider-qualified (provider/model)", ErrInvalidModelName, c.ModelName)
	}

	if c.MaxIterations < 1 || c.MaxIterations > 25 {
		return fmt.Errorf("%w: must be between 1 and 25, got %d", ErrInvalidMaxIterations, c.MaxIterations)
	}

	if c.MemoryWindow < 2 {
		return fmt.Errorf("%w: must be at least 2, got %d", ErrInvalidMemoryWindow, c.MemoryWindow)
	}

	if c.RouterMode != RouterStatic && c.RouterMode != RouterSupervisor {
		return fmt.Errorf("%w: %q (want %q or %q)", ErrInvalidRouterMode, c.RouterMode, RouterStatic, RouterSupervisor)
	}

	if c.PostgresHost == "" {
		return fmt.Errorf("%w: must not be empty", ErrInvalidPostgresHost)
	}
	if c.PostgresPort < 1 || c.PostgresPort > 65535 {
		return fmt.Errorf("%w: must be between 1 and 65535, got %d", ErrInvalidPostgresPort, c.PostgresPort)
	}
	if c.PostgresDBName == "" {
		return fmt.Errorf("%w: must not be empty", ErrInvalidPostgresDB)
	}
	if !validSSLModes[c.PostgresSSLMode] {
		return fmt.Errorf("%w: %q", ErrInvalidSSLMode, c.PostgresSSLMode)
	}

	return nil
}

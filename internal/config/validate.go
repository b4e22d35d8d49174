package config

import (
	"errors"
	"fmt"
	"net"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validatePipe(); err != nil {
		return err
	}
	if err := c.validateGeometry(); err != nil {
		return err
	}
	if err := c.validateRelay(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.RuntimeDir) == "" {
		return errors.New("paths.runtime_dir must be set")
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		return errors.New("paths.state_dir must be set")
	}
	return nil
}

func (c *Config) validatePipe() error {
	if c.Pipe.ConnectTimeoutMS > c.Pipe.ReadTimeoutMS {
		return fmt.Errorf("pipe.connect_timeout_ms (%d) must not exceed pipe.read_timeout_ms (%d)", c.Pipe.ConnectTimeoutMS, c.Pipe.ReadTimeoutMS)
	}
	return nil
}

func (c *Config) validateGeometry() error {
	if c.Geometry.AbsTolerance < 0 {
		return errors.New("geometry.abs_tolerance must be non-negative")
	}
	if c.Geometry.RelTolerance < 0 || c.Geometry.RelTolerance >= 1 {
		return errors.New("geometry.rel_tolerance must be in [0, 1)")
	}
	return nil
}

func (c *Config) validateRelay() error {
	if _, _, err := net.SplitHostPort(c.Relay.Listen); err != nil {
		return fmt.Errorf("relay.listen %q: %w", c.Relay.Listen, err)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("logging.level %q must be one of debug, info, warn, error", c.Logging.Level)
	}
}

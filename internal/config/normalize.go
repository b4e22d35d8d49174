package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizePipe()
	c.normalizeGeometry()
	c.normalizeRelay()
	c.normalizeRedis()
	if err := c.normalizeJournal(); err != nil {
		return err
	}
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if value, ok := os.LookupEnv("THEPIPE_RUNTIME_DIR"); ok && strings.TrimSpace(value) != "" {
		c.Paths.RuntimeDir = strings.TrimSpace(value)
	}
	if strings.TrimSpace(c.Paths.RuntimeDir) == "" {
		c.Paths.RuntimeDir = defaultRuntimeDir()
	}
	if c.Paths.RuntimeDir, err = expandPath(c.Paths.RuntimeDir); err != nil {
		return fmt.Errorf("paths.runtime_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizePipe() {
	if c.Pipe.ConnectTimeoutMS <= 0 {
		c.Pipe.ConnectTimeoutMS = defaultConnectTimeoutMS
	}
	if c.Pipe.ReadTimeoutMS <= 0 {
		c.Pipe.ReadTimeoutMS = defaultReadTimeoutMS
	}
	if c.Pipe.DrainTimeoutMS <= 0 {
		c.Pipe.DrainTimeoutMS = defaultDrainTimeoutMS
	}
	if c.Pipe.ListenTimeoutMS < 0 {
		c.Pipe.ListenTimeoutMS = 0
	}
}

func (c *Config) normalizeGeometry() {
	if c.Geometry.AbsTolerance == 0 && c.Geometry.RelTolerance == 0 {
		c.Geometry.AbsTolerance = defaultAbsTolerance
		c.Geometry.RelTolerance = defaultRelTolerance
	}
}

func (c *Config) normalizeRelay() {
	c.Relay.Listen = strings.TrimSpace(c.Relay.Listen)
	if c.Relay.Listen == "" {
		c.Relay.Listen = defaultRelayListen
	}
	c.Relay.Token = strings.TrimSpace(c.Relay.Token)
	if c.Relay.MaxPayloadMB <= 0 {
		c.Relay.MaxPayloadMB = defaultMaxPayloadMB
	}
}

func (c *Config) normalizeRedis() {
	c.Redis.KeyPrefix = strings.TrimSpace(c.Redis.KeyPrefix)
	if c.Redis.KeyPrefix == "" {
		c.Redis.KeyPrefix = defaultRedisKeyPrefix
	}
	if c.Redis.TTLSeconds < 0 {
		c.Redis.TTLSeconds = 0
	}
}

func (c *Config) normalizeJournal() error {
	var err error
	if strings.TrimSpace(c.Journal.Path) == "" {
		c.Journal.Path = filepath.Join(c.Paths.StateDir, defaultJournalFile)
	}
	if c.Journal.Path, err = expandPath(c.Journal.Path); err != nil {
		return fmt.Errorf("journal.path: %w", err)
	}
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	if value, ok := os.LookupEnv("THEPIPE_LOG_LEVEL"); ok && strings.TrimSpace(value) != "" {
		c.Logging.Level = value
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}

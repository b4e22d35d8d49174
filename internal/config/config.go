package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"thepipe/internal/geometry"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	RuntimeDir string `toml:"runtime_dir"`
	StateDir   string `toml:"state_dir"`
	LogDir     string `toml:"log_dir"`
}

// Pipe contains timing for the machine-local transport. All values are
// milliseconds; a zero ListenTimeoutMS keeps listeners open until consumed.
type Pipe struct {
	ConnectTimeoutMS int `toml:"connect_timeout_ms"`
	ReadTimeoutMS    int `toml:"read_timeout_ms"`
	DrainTimeoutMS   int `toml:"drain_timeout_ms"`
	ListenTimeoutMS  int `toml:"listen_timeout_ms"`
}

// Geometry contains the equality tolerance policy.
type Geometry struct {
	AbsTolerance float64 `toml:"abs_tolerance"`
	RelTolerance float64 `toml:"rel_tolerance"`
}

// Relay contains the HTTP relay server settings.
type Relay struct {
	Listen       string `toml:"listen"`
	MaxPayloadMB int    `toml:"max_payload_mb"`
	// Token, when set, is required as a bearer token on every pipe request.
	Token string `toml:"token"`
}

// Redis contains settings for redis:// pipe endpoints.
type Redis struct {
	KeyPrefix  string `toml:"key_prefix"`
	TTLSeconds int    `toml:"ttl_seconds"`
}

// Journal contains the exchange history settings.
type Journal struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values.
//
// Configuration sections by subsystem:
//   - Paths: runtime (sockets, locks), state and log directories
//   - Pipe: local transport timeouts
//   - Geometry: equality tolerance
//   - Relay: HTTP relay bind address and payload cap
//   - Redis: key layout for redis:// endpoints
//   - Journal: exchange history database
//   - Logging: log format, level, and retention
type Config struct {
	Paths    Paths    `toml:"paths"`
	Pipe     Pipe     `toml:"pipe"`
	Geometry Geometry `toml:"geometry"`
	Relay    Relay    `toml:"relay"`
	Redis    Redis    `toml:"redis"`
	Journal  Journal  `toml:"journal"`
	Logging  Logging  `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/thepipe/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("thepipe.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the runtime, state, and log directories. The
// runtime directory holds sockets and locks and is kept private to the user.
func (c *Config) EnsureDirectories() error {
	if err := os.MkdirAll(c.Paths.RuntimeDir, 0o700); err != nil {
		return fmt.Errorf("create directory %q: %w", c.Paths.RuntimeDir, err)
	}
	for _, dir := range []string{c.Paths.StateDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// Tolerance returns the configured equality tolerance.
func (c *Config) Tolerance() geometry.Tolerance {
	return geometry.Tolerance{Abs: c.Geometry.AbsTolerance, Rel: c.Geometry.RelTolerance}
}

func (c *Config) ConnectTimeout() time.Duration { return millis(c.Pipe.ConnectTimeoutMS) }
func (c *Config) ReadTimeout() time.Duration    { return millis(c.Pipe.ReadTimeoutMS) }
func (c *Config) DrainTimeout() time.Duration   { return millis(c.Pipe.DrainTimeoutMS) }
func (c *Config) ListenTimeout() time.Duration  { return millis(c.Pipe.ListenTimeoutMS) }

// RedisTTL returns the expiry applied to pushed trees; zero means none.
func (c *Config) RedisTTL() time.Duration {
	return time.Duration(c.Redis.TTLSeconds) * time.Second
}

// MaxPayloadBytes converts the relay payload cap to bytes.
func (c *Config) MaxPayloadBytes() uint64 {
	return uint64(c.Relay.MaxPayloadMB) * 1024 * 1024
}

func millis(v int) time.Duration {
	return time.Duration(v) * time.Millisecond
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

func defaultRuntimeDir() string {
	if base, ok := os.LookupEnv("XDG_RUNTIME_DIR"); ok && strings.TrimSpace(base) != "" {
		return filepath.Join(base, "thepipe")
	}
	return filepath.Join(os.TempDir(), fmt.Sprintf("thepipe-%d", os.Getuid()))
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// Encode renders the effective configuration as TOML.
func (c *Config) Encode() ([]byte, error) {
	return toml.Marshal(c)
}

package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"thepipe/internal/config"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("XDG_RUNTIME_DIR", filepath.Join(tempHome, "run"))
	t.Setenv("THEPIPE_RUNTIME_DIR", "")
	t.Setenv("THEPIPE_LOG_LEVEL", "")

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	if want := filepath.Join(tempHome, ".local", "share", "thepipe"); cfg.Paths.StateDir != want {
		t.Fatalf("unexpected state dir: got %q want %q", cfg.Paths.StateDir, want)
	}
	if want := filepath.Join(tempHome, "run", "thepipe"); cfg.Paths.RuntimeDir != want {
		t.Fatalf("unexpected runtime dir: got %q want %q", cfg.Paths.RuntimeDir, want)
	}
	if want := filepath.Join(cfg.Paths.StateDir, "journal.db"); cfg.Journal.Path != want {
		t.Fatalf("unexpected journal path: got %q want %q", cfg.Journal.Path, want)
	}
	if cfg.ConnectTimeout() != 50*time.Millisecond {
		t.Fatalf("unexpected connect timeout: %v", cfg.ConnectTimeout())
	}
	if cfg.ListenTimeout() != 0 {
		t.Fatalf("expected unbounded listen by default, got %v", cfg.ListenTimeout())
	}
	if tol := cfg.Tolerance(); tol.Abs != 1e-9 || tol.Rel != 1e-9 {
		t.Fatalf("unexpected tolerance: %+v", tol)
	}
	if cfg.Relay.Listen != "127.0.0.1:7480" {
		t.Fatalf("unexpected relay listen: %q", cfg.Relay.Listen)
	}

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.Paths.RuntimeDir, cfg.Paths.StateDir, cfg.Paths.LogDir} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("expected %q to be directory", dir)
		}
	}
	info, err := os.Stat(cfg.Paths.RuntimeDir)
	if err != nil {
		t.Fatalf("stat runtime dir: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o700 {
		t.Fatalf("runtime dir permissions = %o, want 700", perm)
	}
}

func TestLoadCustomPath(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "thepipe.toml")
	t.Setenv("THEPIPE_RUNTIME_DIR", "")
	t.Setenv("THEPIPE_LOG_LEVEL", "")

	type payload struct {
		Paths struct {
			RuntimeDir string `toml:"runtime_dir"`
		} `toml:"paths"`
		Pipe struct {
			ConnectTimeoutMS int `toml:"connect_timeout_ms"`
			ListenTimeoutMS  int `toml:"listen_timeout_ms"`
		} `toml:"pipe"`
		Redis struct {
			KeyPrefix string `toml:"key_prefix"`
		} `toml:"redis"`
	}
	custom := payload{}
	custom.Paths.RuntimeDir = filepath.Join(tempDir, "sockets")
	custom.Pipe.ConnectTimeoutMS = 120
	custom.Pipe.ListenTimeoutMS = 2000
	custom.Redis.KeyPrefix = "studio:"
	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal custom config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write custom config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected exists to be true")
	}
	if resolved != configPath {
		t.Fatalf("unexpected resolved path: got %q want %q", resolved, configPath)
	}
	if cfg.Paths.RuntimeDir != custom.Paths.RuntimeDir {
		t.Fatalf("expected runtime dir from file, got %q", cfg.Paths.RuntimeDir)
	}
	if cfg.ConnectTimeout() != 120*time.Millisecond {
		t.Fatalf("expected connect timeout 120ms, got %v", cfg.ConnectTimeout())
	}
	if cfg.ListenTimeout() != 2*time.Second {
		t.Fatalf("expected listen timeout 2s, got %v", cfg.ListenTimeout())
	}
	if cfg.Redis.KeyPrefix != "studio:" {
		t.Fatalf("expected key prefix override, got %q", cfg.Redis.KeyPrefix)
	}
	if cfg.Pipe.ReadTimeoutMS != config.Default().Pipe.ReadTimeoutMS {
		t.Fatalf("expected default read timeout, got %d", cfg.Pipe.ReadTimeoutMS)
	}
}

func TestEnvVarOverridesRuntimeDirAndLevel(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "thepipe.toml")
	if err := os.WriteFile(configPath, []byte("[paths]\nruntime_dir = \"/from/file\"\n[logging]\nlevel = \"info\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	envDir := filepath.Join(tempDir, "env-run")
	t.Setenv("THEPIPE_RUNTIME_DIR", envDir)
	t.Setenv("THEPIPE_LOG_LEVEL", "DEBUG")

	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Paths.RuntimeDir != envDir {
		t.Fatalf("expected runtime dir from env, got %q", cfg.Paths.RuntimeDir)
	}
	if cfg.Logging.Level != "debug" {
		t.Fatalf("expected debug level from env, got %q", cfg.Logging.Level)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	base := config.Default()
	base.Paths.RuntimeDir = t.TempDir()

	cases := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"connect exceeds read", func(c *config.Config) { c.Pipe.ConnectTimeoutMS, c.Pipe.ReadTimeoutMS = 500, 100 }, "pipe.connect_timeout_ms"},
		{"negative tolerance", func(c *config.Config) { c.Geometry.AbsTolerance = -1 }, "geometry.abs_tolerance"},
		{"relative tolerance too large", func(c *config.Config) { c.Geometry.RelTolerance = 1 }, "geometry.rel_tolerance"},
		{"bad relay address", func(c *config.Config) { c.Relay.Listen = "nowhere" }, "relay.listen"},
		{"bad level", func(c *config.Config) { c.Logging.Level = "verbose" }, "logging.level"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := base
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error mentioning %q, got %v", tc.want, err)
			}
		})
	}
}

func TestCreateSampleLoads(t *testing.T) {
	t.Setenv("THEPIPE_RUNTIME_DIR", "")
	t.Setenv("THEPIPE_LOG_LEVEL", "")
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load sample: %v", err)
	}
	if !exists {
		t.Fatal("expected sample to exist")
	}
	if cfg.Redis.TTLSeconds != 3600 {
		t.Fatalf("unexpected sample ttl: %d", cfg.Redis.TTLSeconds)
	}

	encoded, err := cfg.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if !strings.Contains(string(encoded), "connect_timeout_ms = 50") {
		t.Fatalf("encoded config missing pipe section:\n%s", encoded)
	}
}

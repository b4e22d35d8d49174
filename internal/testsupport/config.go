package testsupport

import (
	"path/filepath"
	"testing"
	"time"

	"thepipe/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// Every directory lives under one temp root so independent pipes built from
// the same config share only the runtime directory.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.RuntimeDir = filepath.Join(base, "run")
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Journal.Path = filepath.Join(base, "state", "journal.db")
	cfgVal.Relay.Listen = "127.0.0.1:0"

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	if err := builder.cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return builder.cfg
}

// WithListenTimeout bounds how long an unconsumed push waits.
func WithListenTimeout(d time.Duration) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Pipe.ListenTimeoutMS = int(d / time.Millisecond)
	}
}

// WithConnectTimeout overrides the pull connect timeout.
func WithConnectTimeout(d time.Duration) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Pipe.ConnectTimeoutMS = int(d / time.Millisecond)
	}
}

// WithJournalDisabled turns the receive journal off.
func WithJournalDisabled() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Journal.Enabled = false
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.RuntimeDir)
}

package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"thepipe/internal/config"
	"thepipe/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	baseDir    string
}

func setupCLITestEnv(t *testing.T, opts ...testsupport.ConfigOption) *cliTestEnv {
	t.Helper()

	cfg := testsupport.NewConfig(t, opts...)
	base := testsupport.BaseDir(cfg)
	homeDir := filepath.Join(base, "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)
	t.Setenv("THEPIPE_RUNTIME_DIR", "")
	t.Setenv("THEPIPE_LOG_LEVEL", "")

	configPath := filepath.Join(base, "config.toml")
	writeTestConfig(t, configPath, cfg)

	return &cliTestEnv{cfg: cfg, configPath: configPath, baseDir: base}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

type cliResult struct {
	stdout string
	err    error
}

// runCLIAsync runs a command that blocks, such as a push to a local pipe.
func runCLIAsync(t *testing.T, args []string, configPath string) <-chan cliResult {
	t.Helper()
	done := make(chan cliResult, 1)
	go func() {
		cmd := newRootCommand()
		var stdout bytes.Buffer
		cmd.SetOut(&stdout)
		cmd.SetErr(&bytes.Buffer{})
		cmd.SetArgs(append([]string{"--config", configPath}, args...))
		err := cmd.Execute()
		done <- cliResult{stdout: stdout.String(), err: err}
	}()
	return done
}

func awaitCLI(t *testing.T, done <-chan cliResult) cliResult {
	t.Helper()
	select {
	case res := <-done:
		return res
	case <-time.After(10 * time.Second):
		t.Fatal("command did not finish")
		return cliResult{}
	}
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	content := fmt.Sprintf(
		"[paths]\nruntime_dir = %q\nstate_dir = %q\nlog_dir = %q\n\n[relay]\nlisten = %q\n\n[journal]\nenabled = %t\npath = %q\n\n[logging]\nlevel = \"warn\"\n",
		cfg.Paths.RuntimeDir,
		cfg.Paths.StateDir,
		cfg.Paths.LogDir,
		cfg.Relay.Listen,
		cfg.Journal.Enabled,
		cfg.Journal.Path,
	)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

// waitForSocket blocks until a producer is listening on the local pipe name.
func waitForSocket(t *testing.T, cfg *config.Config, name string) {
	t.Helper()
	socket := filepath.Join(cfg.Paths.RuntimeDir, name+".sock")
	waitFor(t, 5*time.Second, func() bool {
		_, err := os.Stat(socket)
		return err == nil
	})
}

func waitFor(t *testing.T, duration time.Duration, fn func() bool) {
	t.Helper()
	deadline := time.Now().Add(duration)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("condition not met within %s", duration)
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}

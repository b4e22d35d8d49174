// Package daemonrun hosts the relay process runtime shared by piperelayd and
// `pipectl relay`: signal handling, per-run log files, retention cleanup and
// the PID file around a relay.Server.
package daemonrun

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"thepipe/internal/config"
	"thepipe/internal/journal"
	"thepipe/internal/logging"
	"thepipe/internal/metrics"
	"thepipe/internal/preflight"
	"thepipe/internal/relay"
)

// Options configures relay process runtime behavior.
type Options struct {
	LogLevel    string
	Development bool
	// Listen overrides cfg.Relay.Listen when set.
	Listen string
	// Ready, when set, receives the bound address once the relay listens.
	Ready func(addr string)
}

// Run starts the relay and blocks until ctx ends or SIGINT/SIGTERM arrives.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := os.MkdirAll(cfg.Paths.LogDir, 0o755); err != nil {
		return fmt.Errorf("ensure log directory: %w", err)
	}
	runID := time.Now().UTC().Format("20060102T150405.000Z")
	logPath := filepath.Join(cfg.Paths.LogDir, fmt.Sprintf("piperelayd-%s.log", runID))

	level := opts.LogLevel
	if strings.TrimSpace(level) == "" {
		level = cfg.Logging.Level
	}
	logger, err := logging.New(logging.Options{
		Level:            level,
		Format:           cfg.Logging.Format,
		OutputPaths:      []string{"stdout", logPath},
		ErrorOutputPaths: []string{"stderr", logPath},
		Development:      opts.Development,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	for _, res := range []preflight.Result{
		preflight.CheckDirectoryAccess("State directory", cfg.Paths.StateDir),
		preflight.CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
	} {
		if !res.Passed {
			logging.WarnWithContext(logger, "preflight check failed", "preflight_failed",
				logging.String("check", res.Name),
				logging.String("detail", res.Detail),
				logging.String(logging.FieldErrorHint, "fix directory permissions or paths in config.toml"),
			)
		}
	}

	logConfigSnapshot(logger, cfg, opts)
	if err := ensureCurrentLogPointer(cfg.Paths.LogDir, logPath); err != nil {
		fmt.Fprintf(os.Stderr, "warn: unable to update piperelayd.log link: %v\n", err)
	}
	logging.CleanupOldLogs(logger, cfg.Logging.RetentionDays,
		logging.RetentionTarget{Dir: cfg.Paths.LogDir, Pattern: "piperelayd-*.log", Exclude: []string{logPath}},
	)
	pruneJournal(signalCtx, logger, cfg)

	pidPath := filepath.Join(cfg.Paths.StateDir, "piperelayd.pid")
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	relayOpts := relay.OptionsFromConfig(cfg)
	if strings.TrimSpace(opts.Listen) != "" {
		relayOpts.Listen = opts.Listen
	}
	relayOpts.Logger = logger
	relayOpts.Metrics = metrics.New()

	server := relay.NewServer(relayOpts)
	if err := server.Start(signalCtx); err != nil {
		logger.Error("relay start failed",
			logging.Error(err),
			logging.String(logging.FieldEventType, "relay_start_failed"),
			logging.String(logging.FieldErrorHint, "check relay.listen in config.toml; the port may be in use"),
		)
		return err
	}
	if opts.Ready != nil {
		opts.Ready(server.Addr())
	}

	<-signalCtx.Done()
	server.Stop()
	logger.Info("relay shutting down")
	if err := cmdCtx.Err(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// pruneJournal drops history older than the log retention window. The relay
// is the long-lived process, so it owns this housekeeping.
func pruneJournal(ctx context.Context, logger *slog.Logger, cfg *config.Config) {
	if !cfg.Journal.Enabled || cfg.Logging.RetentionDays <= 0 {
		return
	}
	store, err := journal.Open(cfg)
	if err != nil {
		logging.WarnWithContext(logger, "journal unavailable; skipping prune", "journal_prune_skipped",
			logging.Error(err),
		)
		return
	}
	defer store.Close()
	cutoff := time.Now().AddDate(0, 0, -cfg.Logging.RetentionDays)
	removed, err := store.Prune(ctx, cutoff)
	if err != nil {
		logging.WarnWithContext(logger, "journal prune failed", "journal_prune_failed", logging.Error(err))
		return
	}
	if removed > 0 {
		logger.Info("journal pruned", logging.Int64("removed", removed))
	}
}

func ensureCurrentLogPointer(logDir, target string) error {
	if logDir == "" || target == "" {
		return nil
	}
	current := filepath.Join(logDir, "piperelayd.log")
	if err := os.Remove(current); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove existing log pointer: %w", err)
	}
	if err := os.Symlink(target, current); err == nil {
		return nil
	}
	if err := os.Link(target, current); err != nil {
		return fmt.Errorf("link log pointer: %w", err)
	}
	return nil
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}

func logConfigSnapshot(logger *slog.Logger, cfg *config.Config, opts Options) {
	listen := cfg.Relay.Listen
	if strings.TrimSpace(opts.Listen) != "" {
		listen = opts.Listen
	}
	logger.Info("relay config snapshot",
		logging.String(logging.FieldEventType, "config_snapshot"),
		logging.String("listen", listen),
		logging.Bool("token_set", strings.TrimSpace(cfg.Relay.Token) != ""),
		logging.Int("max_payload_mb", cfg.Relay.MaxPayloadMB),
		logging.Duration("listen_timeout", cfg.ListenTimeout()),
		logging.Bool("journal_enabled", cfg.Journal.Enabled),
	)
}

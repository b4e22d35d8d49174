package main

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"thepipe/internal/config"
	"thepipe/internal/exchange"
	"thepipe/internal/journal"
	"thepipe/internal/logging"
	"thepipe/internal/metrics"
	"thepipe/internal/pipe"
	"thepipe/internal/pipe/endpoint"
)

type commandContext struct {
	configFlag     *string
	runtimeDirFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger

	metrics *metrics.Metrics

	journalOnce sync.Once
	journal     *journal.Store
	journalErr  error
}

func newCommandContext(configFlag, runtimeDirFlag *string) *commandContext {
	return &commandContext{
		configFlag:     configFlag,
		runtimeDirFlag: runtimeDirFlag,
		metrics:        metrics.New(),
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if c.runtimeDirFlag != nil && strings.TrimSpace(*c.runtimeDirFlag) != "" {
			dir, err := config.ExpandPath(strings.TrimSpace(*c.runtimeDirFlag))
			if err != nil {
				c.configErr = fmt.Errorf("resolve runtime dir: %w", err)
				return
			}
			cfg.Paths.RuntimeDir = dir
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) configValue() *config.Config {
	cfg, _ := c.ensureConfig()
	return cfg
}

// loggerValue returns the CLI logger. Log setup failures fall back to a
// silent logger so they never block the command itself.
func (c *commandContext) loggerValue() *slog.Logger {
	c.loggerOnce.Do(func() {
		cfg := c.configValue()
		logger, err := logging.NewFromConfig(cfg, "pipectl")
		if err != nil {
			c.logger = logging.NewNop()
			return
		}
		c.logger = logger
	})
	return c.logger
}

// exchangeJournal returns the persistent journal when enabled. A nil result
// makes the exchange layer keep state in memory for this process.
func (c *commandContext) exchangeJournal() (exchange.Journal, error) {
	store, err := c.journalStore()
	if err != nil || store == nil {
		return nil, err
	}
	return store, nil
}

func (c *commandContext) journalStore() (*journal.Store, error) {
	c.journalOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.journalErr = err
			return
		}
		if !cfg.Journal.Enabled {
			return
		}
		c.journal, c.journalErr = journal.Open(cfg)
	})
	return c.journal, c.journalErr
}

func (c *commandContext) openPipe(id string, opts ...pipe.Option) (*pipe.Pipe, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	p, err := endpoint.OpenPipe(id, cfg, endpoint.Deps{Logger: c.loggerValue(), Metrics: c.metrics}, opts...)
	if err != nil {
		return nil, fmt.Errorf("open endpoint %q: %w", id, err)
	}
	return p, nil
}

func (c *commandContext) close() error {
	if c.journal != nil {
		err := c.journal.Close()
		c.journal = nil
		return err
	}
	return nil
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}

// describeError appends the actionable hint an exchange error carries.
func describeError(err error) error {
	if err == nil {
		return nil
	}
	if hint := exchange.Hint(err); hint != "" {
		return fmt.Errorf("%w\nhint: %s", err, hint)
	}
	return err
}

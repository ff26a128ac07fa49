package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/CDrummond/bliss-analyser/internal/catalog"
	"github.com/CDrummond/bliss-analyser/internal/config"
	"github.com/CDrummond/bliss-analyser/internal/logging"
	"github.com/CDrummond/bliss-analyser/internal/services"
)

type globalFlags struct {
	config    string
	music     []string
	db        string
	logging   string
	keepOld   bool
	dryRun    bool
	ignore    string
	lms       string
	jsonPort  int
	workers   int
	maxTracks int
}

type commandContext struct {
	flags   *globalFlags
	flagSet *pflag.FlagSet

	configOnce sync.Once
	config     *config.Config
	configPath string
	configErr  error
}

func newCommandContext(flags *globalFlags) *commandContext {
	return &commandContext{flags: flags}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, path, _, err := config.Load(strings.TrimSpace(c.flags.config), c.overrides()...)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.configPath = path
	})
	return c.config, c.configErr
}

func (c *commandContext) changed(name string) bool {
	return c.flagSet != nil && c.flagSet.Changed(name)
}

// overrides converts explicitly set flags into config overrides.
func (c *commandContext) overrides() []config.Override {
	f := c.flags
	var out []config.Override
	if c.changed("music") {
		out = append(out, func(cfg *config.Config) { cfg.Paths.Music = append([]string(nil), f.music...) })
	}
	if c.changed("db") {
		out = append(out, func(cfg *config.Config) { cfg.Paths.DB = f.db })
	}
	if c.changed("logging") {
		level := strings.ToLower(strings.TrimSpace(f.logging))
		if level == "trace" {
			level = "debug"
		}
		out = append(out, func(cfg *config.Config) { cfg.Logging.Level = level })
	}
	if c.changed("keep-old") {
		out = append(out, func(cfg *config.Config) { cfg.Analysis.KeepOld = f.keepOld })
	}
	if c.changed("dry-run") {
		out = append(out, func(cfg *config.Config) { cfg.Analysis.DryRun = f.dryRun })
	}
	if c.changed("ignore") {
		out = append(out, func(cfg *config.Config) { cfg.Paths.Ignore = f.ignore })
	}
	if c.changed("lms") {
		out = append(out, func(cfg *config.Config) { cfg.LMS.Host = f.lms })
	}
	if c.changed("json-port") {
		out = append(out, func(cfg *config.Config) { cfg.LMS.JSONPort = f.jsonPort })
	}
	if c.changed("workers") {
		out = append(out, func(cfg *config.Config) { cfg.Analysis.Workers = f.workers })
	}
	if c.changed("max-tracks") {
		out = append(out, func(cfg *config.Config) { cfg.Analysis.MaxTracks = f.maxTracks })
	}
	return out
}

// invocation bundles what every workflow command needs.
type invocation struct {
	ctx    context.Context
	cfg    *config.Config
	logger *slog.Logger
	stop   context.CancelFunc
}

// begin loads config, builds the logger and returns a context cancelled on
// SIGINT or SIGTERM. Every log line carries the invocation's run id.
func (c *commandContext) begin(cmd *cobra.Command) (*invocation, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	runID := uuid.NewString()
	logger = logger.With(logging.String(logging.FieldRunID, runID))

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(services.WithRunID(parent, runID), os.Interrupt, syscall.SIGTERM)
	return &invocation{ctx: ctx, cfg: cfg, logger: logger, stop: stop}, nil
}

func (inv *invocation) openStore() (*catalog.Store, error) {
	store, err := catalog.Open(inv.cfg.Paths.DB)
	if err != nil {
		return nil, err
	}
	inv.logger.Debug("catalogue opened", logging.Path(store.Path()))
	return store, nil
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

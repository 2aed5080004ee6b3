package main

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"postgate/internal/api"
	"postgate/internal/config"
	"postgate/internal/logging"
	"postgate/internal/notifications"
	"postgate/internal/queue"
)

type commandContext struct {
	configFlag *string
	verbose    *bool

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string, verbose *bool) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		verbose:    verbose,
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
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// logger writes warnings and errors to stderr; --verbose adds queue activity
// at the configured level.
func (c *commandContext) logger(cfg *config.Config) (*slog.Logger, func(), error) {
	level := "warn"
	if c.verbose != nil && *c.verbose {
		level = cfg.Logging.Level
	}
	logger, closer, err := logging.New(logging.Options{Level: level, Format: cfg.Logging.Format})
	if err != nil {
		return nil, nil, fmt.Errorf("init logger: %w", err)
	}
	return logger, func() { _ = closer.Close() }, nil
}

// serviceEnv is what a command needs to operate on the queue.
type serviceEnv struct {
	cfg    *config.Config
	svc    *api.QueueService
	logger *slog.Logger
}

// withService opens the queue database for the duration of fn.
func (c *commandContext) withService(fn func(env serviceEnv) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	logger, closeLogger, err := c.logger(cfg)
	if err != nil {
		return err
	}
	defer closeLogger()

	store, err := queue.Open(cfg)
	if err != nil {
		return fmt.Errorf("open queue: %w", err)
	}
	defer store.Close()

	svc := api.NewQueueService(store,
		api.WithDefaultTimeout(cfg.DefaultTimeout()),
		api.WithLogger(logger),
		api.WithNotifier(notifications.NewService(cfg)),
	)
	return fn(serviceEnv{cfg: cfg, svc: svc, logger: logger})
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

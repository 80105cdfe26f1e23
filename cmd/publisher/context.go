package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"publisher/internal/builtin"
	"publisher/internal/config"
	"publisher/internal/hooks"
	"publisher/internal/logging"
	"publisher/internal/publish"
	"publisher/internal/tracking"
)

type commandContext struct {
	configFlag *string
	treeFlag   *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag, treeFlag *string) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		treeFlag:   treeFlag,
	}
}

func (c *commandContext) configPath() string {
	if c.configFlag == nil {
		return ""
	}
	return strings.TrimSpace(*c.configFlag)
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, _, _, err := config.Load(c.configPath())
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

func (c *commandContext) treePath() (string, error) {
	if c.treeFlag != nil && strings.TrimSpace(*c.treeFlag) != "" {
		return config.ExpandPath(strings.TrimSpace(*c.treeFlag))
	}
	cfg, err := c.ensureConfig()
	if err != nil {
		return "", err
	}
	return cfg.Paths.TreeFile, nil
}

// workspace is everything a command needs to work on the tree.
type workspace struct {
	cfg     *config.Config
	logger  *slog.Logger
	store   *tracking.Store
	manager *publish.Manager
}

// withManager opens the tracking store, builds a manager, loads the tree file
// when it exists, and runs fn. When save is set the tree is written back
// after fn succeeds.
func (c *commandContext) withManager(cmd *cobra.Command, save bool, fn func(*workspace) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	treePath, err := c.treePath()
	if err != nil {
		return err
	}

	lock := flock.New(filepath.Join(cfg.Paths.LogDir, "publisher.lock"))
	ok, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another publisher command is running")
	}
	defer func() { _ = lock.Unlock() }()

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	store, err := tracking.Open(cfg)
	if err != nil {
		return fmt.Errorf("open tracking store: %w", err)
	}
	defer store.Close()

	loader := hooks.NewLoader(hooks.Env{Config: cfg, Logger: logger, Tracking: store})
	defer loader.Close()
	builtin.Register(loader)

	ctx := commandCtx(cmd)
	mgr, err := publish.NewManager(ctx, cfg, loader, logger,
		publish.WithHistory(store),
		publish.WithRunLogs(filepath.Join(cfg.Paths.LogDir, "runs"), cfg.Logging.RunLogRetentionDays),
	)
	if err != nil {
		return err
	}
	if _, err := os.Stat(treePath); err == nil {
		if err := mgr.Load(ctx, treePath); err != nil {
			return fmt.Errorf("load tree %s: %w", treePath, err)
		}
	}

	if err := fn(&workspace{cfg: cfg, logger: logger, store: store, manager: mgr}); err != nil {
		return err
	}
	if save {
		if err := mgr.Save(treePath); err != nil {
			return fmt.Errorf("save tree %s: %w", treePath, err)
		}
	}
	return nil
}

func commandCtx(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}


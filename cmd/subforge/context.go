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

	"github.com/spf13/cobra"

	"subforge/internal/config"
	"subforge/internal/history"
	"subforge/internal/logging"
	"subforge/internal/project"
)

// projectFileNames are tried in order when --project is not given.
var projectFileNames = []string{"project.toml", "project.yaml", "project.yml"}

type rootFlags struct {
	config   string
	project  string
	logLevel string
}

type commandContext struct {
	flags *rootFlags

	configOnce sync.Once
	config     *config.Config
	configErr  error

	logger  *logging.Logger
	history *history.Store
}

func newCommandContext(flags *rootFlags) *commandContext {
	return &commandContext{flags: flags}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, _, _, err := config.Load(strings.TrimSpace(c.flags.config))
		if err != nil {
			c.configErr = err
			return
		}
		if level := strings.TrimSpace(c.flags.logLevel); level != "" {
			if _, err := logging.ParseLevel(level); err != nil {
				c.configErr = err
				return
			}
			cfg.Logging.Level = level
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// ensureLogger builds the console plus rotating-file logger once per run.
func (c *commandContext) ensureLogger(cmd *cobra.Command) (*slog.Logger, error) {
	if c.logger != nil {
		return c.logger.Logger, nil
	}
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(logging.Options{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		File:       cfg.LogFile(),
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
		Console:    cmd.ErrOrStderr(),
	})
	if err != nil {
		return nil, fmt.Errorf("init logging: %w", err)
	}
	c.logger = logger
	return logger.Logger, nil
}

func (c *commandContext) ensureHistory(ctx context.Context) (*history.Store, error) {
	if c.history != nil {
		return c.history, nil
	}
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	store, err := history.Open(ctx, cfg.HistoryPath())
	if err != nil {
		return nil, fmt.Errorf("open build history: %w", err)
	}
	c.history = store
	return store, nil
}

func (c *commandContext) loadProject() (*project.Project, error) {
	path := strings.TrimSpace(c.flags.project)
	if path == "" {
		for _, name := range projectFileNames {
			if _, err := os.Stat(name); err == nil {
				path = name
				break
			}
		}
		if path == "" {
			return nil, fmt.Errorf("no project file found (looked for %s); pass --project", strings.Join(projectFileNames, ", "))
		}
	} else {
		expanded, err := config.ExpandPath(path)
		if err != nil {
			return nil, err
		}
		path = expanded
	}
	p, err := project.Load(path)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (c *commandContext) close() error {
	var errs []error
	if c.history != nil {
		errs = append(errs, c.history.Close())
		c.history = nil
	}
	if c.logger != nil {
		errs = append(errs, c.logger.Close())
		c.logger = nil
	}
	return errors.Join(errs...)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

// displayPath shortens paths under the working directory.
func displayPath(path string) string {
	wd, err := os.Getwd()
	if err != nil {
		return path
	}
	if rel, err := filepath.Rel(wd, path); err == nil && !strings.HasPrefix(rel, "..") {
		return rel
	}
	return path
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}

package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateTools(); err != nil {
		return err
	}
	if err := c.validateBuild(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateTools() error {
	switch c.Tools.Prober {
	case ProberMkvmerge, ProberFFprobe:
	default:
		return fmt.Errorf("tools.prober must be %q or %q, got %q", ProberMkvmerge, ProberFFprobe, c.Tools.Prober)
	}
	if c.Tools.TimeoutSeconds < 0 {
		return errors.New("tools.timeout_seconds must be zero or positive")
	}
	return nil
}

func (c *Config) validateBuild() error {
	if c.Build.Parallelism > 32 {
		return errors.New("build.parallelism must be 32 or fewer")
	}
	switch c.Build.ChapterOrder {
	case "strict", "sort":
	default:
		return fmt.Errorf("build.chapter_order must be strict or sort, got %q", c.Build.ChapterOrder)
	}
	switch c.Build.Compression {
	case "zlib", "none":
	default:
		return fmt.Errorf("build.compression must be zlib or none, got %q", c.Build.Compression)
	}
	if c.Build.MinFreeGiB < 0 {
		return errors.New("build.min_free_gib must be zero or positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	if c.Logging.MaxBackups < 0 || c.Logging.MaxAgeDays < 0 {
		return errors.New("logging.max_backups and logging.max_age_days must be zero or positive")
	}
	return nil
}

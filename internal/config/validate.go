package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateJobs(); err != nil {
		return err
	}
	if err := c.validateDefaults(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.APIBind) == "" {
		return errors.New("paths.api_bind must be set")
	}
	return nil
}

func (c *Config) validateJobs() error {
	if c.Jobs.Workers < 1 {
		return errors.New("jobs.workers must be at least 1")
	}
	if c.Jobs.QueueDepth < 1 {
		return errors.New("jobs.queue_depth must be at least 1")
	}
	if c.Jobs.TTLSeconds < 0 {
		return errors.New("jobs.ttl_seconds must not be negative")
	}
	if c.Jobs.MaxUploadBytes < 1 {
		return errors.New("jobs.max_upload_bytes must be at least 1")
	}
	if c.Jobs.SubscriberBuffer < 1 {
		return errors.New("jobs.subscriber_buffer must be at least 1")
	}
	return nil
}

func (c *Config) validateDefaults() error {
	switch c.Defaults.Mode {
	case "auto", "photo", "logo", "line-art", "pixel-art":
	default:
		return fmt.Errorf("defaults.mode: unsupported value %q", c.Defaults.Mode)
	}
	if c.Defaults.Colors != 0 && (c.Defaults.Colors < 2 || c.Defaults.Colors > 64) {
		return errors.New("defaults.colors must be 0 (auto) or between 2 and 64")
	}
	if c.Defaults.Detail < 1 || c.Defaults.Detail > 5 {
		return errors.New("defaults.detail must be between 1 and 5")
	}
	if c.Defaults.Smoothing < 0 || c.Defaults.Smoothing > 100 {
		return errors.New("defaults.smoothing must be between 0 and 100")
	}
	if c.Defaults.Despeckle < 0 {
		return errors.New("defaults.despeckle must not be negative")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch strings.ToLower(strings.TrimSpace(c.Logging.Format)) {
	case "", "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	return nil
}

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
	if err := c.validateQueue(); err != nil {
		return err
	}
	if err := c.validateReviewer(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if c.Paths.DataDir == "" {
		return errors.New("paths.data_dir must be set")
	}
	return nil
}

func (c *Config) validateQueue() error {
	if c.Queue.DefaultTimeoutSeconds <= 0 {
		return errors.New("queue.default_timeout_seconds must be positive")
	}
	if c.Queue.SweepIntervalSeconds <= 0 {
		return errors.New("queue.sweep_interval_seconds must be positive")
	}
	if c.Queue.PendingMaxAgeSeconds < 0 {
		return errors.New("queue.pending_max_age_seconds must be zero or positive")
	}
	if c.Queue.PendingMaxAgeSeconds > 0 && c.Queue.PendingMaxAgeSeconds < c.Queue.DefaultTimeoutSeconds {
		return fmt.Errorf("queue.pending_max_age_seconds (%d) must not be shorter than queue.default_timeout_seconds (%d)",
			c.Queue.PendingMaxAgeSeconds, c.Queue.DefaultTimeoutSeconds)
	}
	if c.Queue.DecidedRetentionDays < 0 {
		return errors.New("queue.decided_retention_days must be zero or positive")
	}
	return nil
}

func (c *Config) validateReviewer() error {
	if c.Reviewer.PollIntervalSeconds <= 0 {
		return errors.New("reviewer.poll_interval_seconds must be positive")
	}
	return nil
}

func (c *Config) validateNotifications() error {
	topic := c.Notifications.NtfyTopic
	if topic != "" && !strings.HasPrefix(topic, "http://") && !strings.HasPrefix(topic, "https://") {
		return fmt.Errorf("notifications.ntfy_topic must be an http(s) URL, got %q", topic)
	}
	if c.Notifications.RequestTimeoutSeconds <= 0 {
		return errors.New("notifications.request_timeout_seconds must be positive")
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
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error; got %q", c.Logging.Level)
	}
	if c.Logging.RetentionDays < 0 {
		return errors.New("logging.retention_days must be zero or positive")
	}
	return nil
}

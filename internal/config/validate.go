package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateClassify(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateClassify() error {
	if len(c.Classify.OutputTypes) == 0 {
		return errors.New("classify.output_types must list at least one output type")
	}
	if c.Classify.Workers <= 0 {
		return errors.New("classify.workers must be positive")
	}
	if strings.ContainsAny(c.Classify.DefaultSession, "_-/ ") {
		return fmt.Errorf("classify.default_session %q must not contain separators", c.Classify.DefaultSession)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q (use console or json)", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}

package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeClassify()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.LogDir, err = expandPath(strings.TrimSpace(c.Paths.LogDir)); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.CatalogDB) == "" {
		c.Paths.CatalogDB = defaultCatalogDB
	}
	if c.Paths.CatalogDB, err = expandPath(strings.TrimSpace(c.Paths.CatalogDB)); err != nil {
		return fmt.Errorf("paths.catalog_db: %w", err)
	}
	if value, ok := os.LookupEnv(tablesEnvVar); ok && strings.TrimSpace(value) != "" {
		c.Paths.TablesFile = value
	}
	if c.Paths.TablesFile, err = expandPath(strings.TrimSpace(c.Paths.TablesFile)); err != nil {
		return fmt.Errorf("paths.tables_file: %w", err)
	}
	return nil
}

func (c *Config) normalizeClassify() {
	types := make([]string, 0, len(c.Classify.OutputTypes))
	seen := make(map[string]struct{}, len(c.Classify.OutputTypes))
	for _, t := range c.Classify.OutputTypes {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		types = append(types, t)
	}
	c.Classify.OutputTypes = types
	c.Classify.DefaultSession = strings.TrimSpace(c.Classify.DefaultSession)
	if c.Classify.DefaultSession == "" {
		c.Classify.DefaultSession = defaultSessionLabel
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	var err error
	if c.Paths.LogDir, err = expandPath(strings.TrimSpace(c.Paths.LogDir)); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}

	c.Ingest.ResizeFilter = strings.ToLower(strings.TrimSpace(c.Ingest.ResizeFilter))
	if c.Ingest.ResizeFilter == "" {
		c.Ingest.ResizeFilter = defaultResizeFilter
	}
	c.Ingest.ChannelOrder = strings.ToUpper(strings.TrimSpace(c.Ingest.ChannelOrder))
	if c.Ingest.ChannelOrder == "" {
		c.Ingest.ChannelOrder = defaultChannelOrder
	}

	c.Output.Backend = strings.ToLower(strings.TrimSpace(c.Output.Backend))
	if c.Output.Backend == "" {
		c.Output.Backend = defaultBackend
	}

	c.normalizeLogging()
	c.Metrics.Listen = strings.TrimSpace(c.Metrics.Listen)
	return nil
}

func (c *Config) normalizeLogging() {
	if value, ok := os.LookupEnv("FRAMELABEL_LOG_LEVEL"); ok && strings.TrimSpace(value) != "" {
		c.Logging.Level = value
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
}

package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateIngest(); err != nil {
		return err
	}
	if err := c.validateOutput(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateIngest() error {
	in := c.Ingest
	if in.BatchSize <= 0 {
		return errors.New("ingest.batch_size must be positive")
	}
	if in.Workers < 0 {
		return errors.New("ingest.workers must not be negative")
	}
	if in.FramesPerSecond <= 0 {
		return errors.New("ingest.frames_per_second must be positive")
	}
	if in.ResizeHeight < 0 || in.ResizeWidth < 0 {
		return errors.New("ingest.resize_height and ingest.resize_width must not be negative")
	}
	if (in.ResizeHeight > 0) != (in.ResizeWidth > 0) {
		return errors.New("ingest.resize_height and ingest.resize_width must be set together")
	}
	switch in.ResizeFilter {
	case "nearest", "bilinear", "catmullrom":
	default:
		return fmt.Errorf("ingest.resize_filter: unsupported value %q", in.ResizeFilter)
	}
	switch in.ChannelOrder {
	case "BGR", "RGB":
	default:
		return fmt.Errorf("ingest.channel_order: unsupported value %q", in.ChannelOrder)
	}
	return nil
}

func (c *Config) validateOutput() error {
	switch c.Output.Backend {
	case "sqlite", "bolt":
	default:
		return fmt.Errorf("output.backend: unsupported value %q", c.Output.Backend)
	}
	if c.Output.MapSizeGiB <= 0 {
		return errors.New("output.map_size_gib must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}

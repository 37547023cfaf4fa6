package config

const (
	defaultConfigPath      = "~/.config/framelabel/config.toml"
	projectConfigName      = "framelabel.toml"
	defaultLogDir          = "~/.local/share/framelabel/logs"
	defaultBatchSize       = 10000
	defaultFramesPerSecond = 10
	defaultResizeFilter    = "bilinear"
	defaultChannelOrder    = "BGR"
	defaultBackend         = "sqlite"
	defaultMapSizeGiB      = 500
	defaultLogFormat       = "console"
	defaultLogLevel        = "info"
)

// Default returns a Config populated with repository defaults. Workers left
// at zero means one per CPU.
func Default() Config {
	return Config{
		Paths: Paths{
			LogDir: defaultLogDir,
		},
		Ingest: Ingest{
			BatchSize:       defaultBatchSize,
			FramesPerSecond: defaultFramesPerSecond,
			ResizeFilter:    defaultResizeFilter,
			ChannelOrder:    defaultChannelOrder,
		},
		Output: Output{
			Backend:    defaultBackend,
			MapSizeGiB: defaultMapSizeGiB,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}

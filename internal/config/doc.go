// Package config loads, normalizes, and validates framelabel configuration.
//
// Settings come from a TOML file (~/.config/framelabel/config.toml, then
// ./framelabel.toml) layered over repository defaults, with environment
// fallbacks such as FRAMELABEL_LOG_LEVEL. Command-line flags override the
// loaded values; Validate is the single gate that rejects unusable settings
// before any frames are read.
package config

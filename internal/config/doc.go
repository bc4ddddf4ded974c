// Package config loads, validates, and defaults the TOML configuration
// for the neuroscreen daemon and CLI. Values load over repository
// defaults, so a minimal config file only needs to name the model
// artifacts and the media store backend.
package config

// Package config loads, validates, and normalizes affect daemon
// configuration from TOML. Defaults live in defaults.go; the embedded
// sample_config.toml documents every key for operators.
package config

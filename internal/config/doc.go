// Package config loads, defaults, and validates clipd configuration from
// a TOML file layered with environment overrides.
package config

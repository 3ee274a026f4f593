// Package config loads the server configuration with viper: defaults, then
// an optional YAML file, then REVISE_* environment variables. The result is
// checked with validator struct tags before use.
package config

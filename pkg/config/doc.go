// Package config loads session configuration from a YAML file and the
// OPC_* environment variables. Environment values override the file,
// which overrides the built-in defaults.
package config

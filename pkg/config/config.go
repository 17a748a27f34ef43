package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment variables recognized by FromEnv.
const (
	EnvServer  = "OPC_SERVER"
	EnvHost    = "OPC_HOST"
	EnvClient  = "OPC_CLIENT"
	EnvTimeout = "OPC_TIMEOUT"
	EnvSimu    = "OPC_SIMU"
)

// Config holds the session settings.
type Config struct {
	// Server is the OPC server program ID to connect to.
	Server string

	// Host is the machine the server runs on.
	Host string

	// ClientName is the client name reported to the server.
	ClientName string

	// Timeout bounds the wait for asynchronous refresh callbacks.
	Timeout time.Duration

	// Simulate selects the in-memory simulated source instead of a real
	// server connection.
	Simulate bool
}

// fileConfig is the YAML schema. Timeout accepts a Go duration string
// ("5s") or a bare number of milliseconds.
type fileConfig struct {
	Server     string        `yaml:"server"`
	Host       string        `yaml:"host"`
	ClientName string        `yaml:"client_name"`
	Timeout    *timeoutValue `yaml:"timeout"`
	Simulate   *bool         `yaml:"simulate"`
}

type timeoutValue time.Duration

func (t *timeoutValue) UnmarshalYAML(node *yaml.Node) error {
	d, err := parseTimeout(node.Value)
	if err != nil {
		return err
	}
	*t = timeoutValue(d)
	return nil
}

// Default returns the built-in defaults.
func Default() Config {
	return Config{
		Host:    "localhost",
		Timeout: 5000 * time.Millisecond,
	}
}

// Load reads the YAML file at path and applies the environment on top.
// A missing file is not an error; defaults plus environment apply.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		} else {
			var fc fileConfig
			if err := yaml.Unmarshal(data, &fc); err != nil {
				return Config{}, fmt.Errorf("parse config %s: %w", path, err)
			}
			if err := cfg.applyFile(fc); err != nil {
				return Config{}, fmt.Errorf("config %s: %w", path, err)
			}
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = Default().Timeout
	}
	return cfg, nil
}

// FromEnv returns the defaults with only the environment applied.
func FromEnv() (Config, error) {
	return Load("")
}

func (c *Config) applyFile(fc fileConfig) error {
	if fc.Server != "" {
		c.Server = fc.Server
	}
	if fc.Host != "" {
		c.Host = fc.Host
	}
	if fc.ClientName != "" {
		c.ClientName = fc.ClientName
	}
	if fc.Timeout != nil {
		c.Timeout = time.Duration(*fc.Timeout)
	}
	if fc.Simulate != nil {
		c.Simulate = *fc.Simulate
	}
	return nil
}

// parseTimeout accepts "5s"-style duration strings and bare numbers,
// which are read as milliseconds.
func parseTimeout(s string) (time.Duration, error) {
	if d, err := time.ParseDuration(s); err == nil {
		return d, nil
	}
	ms, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("timeout %q: %w", s, err)
	}
	return time.Duration(ms * float64(time.Millisecond)), nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv(EnvServer); v != "" {
		c.Server = v
	}
	if v := os.Getenv(EnvHost); v != "" {
		c.Host = v
	}
	if v := os.Getenv(EnvClient); v != "" {
		c.ClientName = v
	}
	if v := os.Getenv(EnvTimeout); v != "" {
		d, err := parseTimeout(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvTimeout, err)
		}
		c.Timeout = d
	}
	if v := os.Getenv(EnvSimu); v != "" {
		on, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvSimu, err)
		}
		c.Simulate = on
	}
	return nil
}

// Package config provides the top-level configuration for eip3074-protection.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/creasty/defaults"
	"gopkg.in/yaml.v3"

	"github.com/ethpandaops/eip3074-protection/pkg/contracts"
	"github.com/ethpandaops/eip3074-protection/pkg/ethereum"
	"github.com/ethpandaops/eip3074-protection/pkg/leaderelection"
	"github.com/ethpandaops/eip3074-protection/pkg/redis"
)

// DefaultFile is read when no config file is given. It may be absent.
const DefaultFile = "config.yaml"

// ServerConfig configures serve mode.
type ServerConfig struct {
	// MetricsAddr is the address to listen on for metrics.
	MetricsAddr string `yaml:"metricsAddr" default:":9090"`
	// HealthCheckAddr is the address to listen on for healthcheck.
	HealthCheckAddr *string `yaml:"healthCheckAddr"`
	// PProfAddr is the address to listen on for pprof.
	PProfAddr *string `yaml:"pprofAddr"`
	// APIAddr is the address to listen on for the API server.
	APIAddr *string `yaml:"apiAddr"`
	// Interval between scheduled runs.
	Interval time.Duration `yaml:"interval" default:"5m"`
	// RunOnStart runs the scenario as soon as the node is ready.
	RunOnStart bool `yaml:"runOnStart" default:"true"`
	// ShutdownTimeout is the timeout for shutting down the server.
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout" default:"10s"`
	// LeaderElection limits scheduled runs to one replica. Requires redis.
	LeaderElection leaderelection.Config `yaml:"leaderElection"`
}

// Validate validates the server configuration.
func (c *ServerConfig) Validate() error {
	if c.Interval <= 0 {
		return fmt.Errorf("interval must be greater than zero")
	}

	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("shutdownTimeout must be greater than zero")
	}

	return c.LeaderElection.Validate()
}

// Config is the main configuration for eip3074-protection.
type Config struct {
	// LoggingLevel is the logging level to use.
	LoggingLevel string `yaml:"logging" default:"info"`
	// Ethereum is the network and gas configuration.
	Ethereum ethereum.Config `yaml:"ethereum"`
	// Contracts selects the contract artifacts to deploy.
	Contracts contracts.Config `yaml:"contracts"`
	// Redis is the optional result store.
	Redis *redis.Config `yaml:"redis"`
	// Server is the serve mode configuration.
	Server ServerConfig `yaml:"server"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.Ethereum.Validate(); err != nil {
		return fmt.Errorf("invalid ethereum configuration: %w", err)
	}

	if err := c.Contracts.Validate(); err != nil {
		return fmt.Errorf("invalid contracts configuration: %w", err)
	}

	if c.Redis != nil {
		if err := c.Redis.Validate(); err != nil {
			return fmt.Errorf("invalid redis configuration: %w", err)
		}
	}

	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("invalid server configuration: %w", err)
	}

	if c.Server.LeaderElection.Enabled && c.Redis == nil {
		return fmt.Errorf("leader election requires redis")
	}

	return nil
}

// New returns a configuration holding only defaults.
func New() (*Config, error) {
	config := &Config{}

	if err := defaults.Set(config); err != nil {
		return nil, err
	}

	return config, nil
}

// Load reads file over the defaults. An empty file name reads DefaultFile
// and falls back to defaults when it does not exist.
func Load(file string) (*Config, error) {
	config, err := New()
	if err != nil {
		return nil, err
	}

	optional := file == ""
	if optional {
		file = DefaultFile
	}

	yamlFile, err := os.ReadFile(file)
	if err != nil {
		if optional && errors.Is(err, fs.ErrNotExist) {
			return config, nil
		}

		return nil, err
	}

	type plain Config

	if err := yaml.Unmarshal(yamlFile, (*plain)(config)); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", file, err)
	}

	if config.Redis != nil {
		if err := defaults.Set(config.Redis); err != nil {
			return nil, err
		}
	}

	return config, nil
}

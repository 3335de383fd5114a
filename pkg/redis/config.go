package redis

import (
	"fmt"
)

type Config struct {
	// Address is the redis address, with or without a redis:// scheme.
	Address string `yaml:"address"`
	// Prefix namespaces every key written by the service.
	Prefix string `yaml:"prefix" default:"eip3074-protection"`
	// MaxEntries caps the number of run results kept.
	MaxEntries int64 `yaml:"maxEntries" default:"100"`
}

func (c *Config) Validate() error {
	if c.Address == "" {
		return fmt.Errorf("redis address is required")
	}

	if c.Prefix == "" {
		c.Prefix = "eip3074-protection"
	}

	if c.MaxEntries <= 0 {
		return fmt.Errorf("redis maxEntries must be greater than zero")
	}

	return nil
}

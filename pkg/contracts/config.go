package contracts

import (
	"fmt"
	"os"
)

type Config struct {
	// ArtifactsDir holds brownie-style build artifacts (<Name>.json). Built-in
	// fixtures are used when empty.
	ArtifactsDir string `yaml:"artifactsDir"`
}

func (c *Config) Validate() error {
	if c.ArtifactsDir == "" {
		return nil
	}

	info, err := os.Stat(c.ArtifactsDir)
	if err != nil {
		return fmt.Errorf("artifacts directory: %w", err)
	}

	if !info.IsDir() {
		return fmt.Errorf("artifacts path %s is not a directory", c.ArtifactsDir)
	}

	return nil
}

package contracts

import (
	"fmt"
	"path/filepath"
)

// Set is the pair of contracts a run deploys.
type Set struct {
	OnlyEOAs       *Artifact
	ProtectionTest *Artifact
}

// Load returns the artifacts from cfg.ArtifactsDir, or the built-in fixtures.
func Load(cfg *Config) (*Set, error) {
	var (
		set = &Set{}
		err error
	)

	if cfg == nil || cfg.ArtifactsDir == "" {
		if set.OnlyEOAs, err = OnlyEOAs(); err != nil {
			return nil, err
		}

		if set.ProtectionTest, err = EIP3074ProtectionTest(); err != nil {
			return nil, err
		}
	} else {
		if set.OnlyEOAs, err = LoadArtifact(filepath.Join(cfg.ArtifactsDir, OnlyEOAsName+".json")); err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", OnlyEOAsName, err)
		}

		if set.ProtectionTest, err = LoadArtifact(filepath.Join(cfg.ArtifactsDir, EIP3074ProtectionTestName+".json")); err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", EIP3074ProtectionTestName, err)
		}
	}

	if err := set.OnlyEOAs.Require([]string{MethodDoSomething, MethodDoSomethingElse}, []string{EventGasInfo}); err != nil {
		return nil, err
	}

	if err := set.ProtectionTest.Require([]string{MethodTryCallingProtected}, nil); err != nil {
		return nil, err
	}

	return set, nil
}

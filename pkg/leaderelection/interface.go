package leaderelection

import (
	"context"
	"fmt"
	"time"
)

// LeadershipCallback is invoked synchronously when leadership changes.
// Keep it fast; renewal waits for it.
type LeadershipCallback func(ctx context.Context, isLeader bool)

// Elector decides which serve-mode replica runs scheduled scenarios.
type Elector interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	IsLeader() bool
	OnLeadershipChange(callback LeadershipCallback)
	LeaderID(ctx context.Context) (string, error)
}

// Config holds configuration for leader election.
type Config struct {
	// Enabled turns on election. It requires redis.
	Enabled bool `yaml:"enabled" default:"false"`
	// TTL is the time-to-live for the leader lock.
	TTL time.Duration `yaml:"ttl" default:"10s"`
	// RenewalInterval is how often to renew or retry the lock.
	RenewalInterval time.Duration `yaml:"renewalInterval" default:"3s"`
	// NodeID identifies this replica. Random when empty.
	NodeID string `yaml:"nodeId"`
}

func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}

	if c.TTL <= 0 || c.RenewalInterval <= 0 {
		return fmt.Errorf("leader election ttl and renewalInterval must be greater than zero")
	}

	if c.RenewalInterval >= c.TTL {
		return fmt.Errorf("leader election renewalInterval (%s) must be shorter than ttl (%s)", c.RenewalInterval, c.TTL)
	}

	return nil
}

package leaderelection

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	pcommon "github.com/ethpandaops/eip3074-protection/pkg/common"
)

var ErrNoLeader = errors.New("no leader elected")

// Only the owner may extend or delete the lock.
var (
	renewScript = redis.NewScript(`
		if redis.call("get", KEYS[1]) == ARGV[1] then
			return redis.call("pexpire", KEYS[1], ARGV[2])
		end
		return 0
	`)
	releaseScript = redis.NewScript(`
		if redis.call("get", KEYS[1]) == ARGV[1] then
			return redis.call("del", KEYS[1])
		end
		return 0
	`)
)

// RedisElector holds leadership as a redis key with a TTL.
type RedisElector struct {
	client *redis.Client
	log    logrus.FieldLogger
	config Config
	nodeID string
	key    string

	mu       sync.RWMutex
	isLeader bool
	stopped  bool

	callbacksMu sync.RWMutex
	callbacks   []LeadershipCallback

	stopChan chan struct{}
	wg       sync.WaitGroup
}

var _ Elector = (*RedisElector)(nil)

// NewRedisElector creates an elector competing for key.
func NewRedisElector(client *redis.Client, log logrus.FieldLogger, key string, config Config) (*RedisElector, error) {
	nodeID := config.NodeID
	if nodeID == "" {
		b := make([]byte, 16)

		if _, err := rand.Read(b); err != nil {
			return nil, fmt.Errorf("failed to generate node ID: %w", err)
		}

		nodeID = hex.EncodeToString(b)
	}

	return &RedisElector{
		client:   client,
		log:      log.WithField("component", "leader-election").WithField("node_id", nodeID),
		config:   config,
		nodeID:   nodeID,
		key:      key,
		stopChan: make(chan struct{}),
	}, nil
}

// NodeID returns this replica's identifier.
func (e *RedisElector) NodeID() string {
	return e.nodeID
}

func (e *RedisElector) Start(ctx context.Context) error {
	e.log.WithField("key", e.key).Info("Starting leader election")

	pcommon.LeaderElectionStatus.WithLabelValues(e.nodeID).Set(0)

	e.wg.Add(1)

	go e.run(ctx)

	return nil
}

func (e *RedisElector) Stop(ctx context.Context) error {
	e.mu.Lock()

	if e.stopped {
		e.mu.Unlock()

		return nil
	}

	e.stopped = true
	e.mu.Unlock()

	close(e.stopChan)
	e.wg.Wait()

	if !e.IsLeader() {
		return nil
	}

	if err := releaseScript.Run(ctx, e.client, []string{e.key}, e.nodeID).Err(); err != nil {
		return fmt.Errorf("failed to release leadership: %w", err)
	}

	e.setLeader(ctx, false)

	return nil
}

func (e *RedisElector) IsLeader() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return e.isLeader
}

func (e *RedisElector) OnLeadershipChange(callback LeadershipCallback) {
	e.callbacksMu.Lock()
	defer e.callbacksMu.Unlock()

	e.callbacks = append(e.callbacks, callback)
}

// LeaderID returns the node ID currently holding the lock.
func (e *RedisElector) LeaderID(ctx context.Context) (string, error) {
	val, err := e.client.Get(ctx, e.key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNoLeader
	}

	if err != nil {
		return "", fmt.Errorf("failed to get leader ID: %w", err)
	}

	return val, nil
}

func (e *RedisElector) run(ctx context.Context) {
	defer e.wg.Done()

	ticker := time.NewTicker(e.config.RenewalInterval)
	defer ticker.Stop()

	e.tick(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-e.stopChan:
			return
		case <-ticker.C:
			e.tick(ctx)
		}
	}
}

func (e *RedisElector) tick(ctx context.Context) {
	if e.IsLeader() {
		if !e.renew(ctx) {
			e.setLeader(ctx, false)
		}

		return
	}

	if e.acquire(ctx) {
		e.setLeader(ctx, true)
	}
}

func (e *RedisElector) acquire(ctx context.Context) bool {
	ok, err := e.client.SetNX(ctx, e.key, e.nodeID, e.config.TTL).Result()
	if err != nil {
		e.log.WithError(err).Error("Failed to acquire leadership")
		pcommon.LeaderElectionErrors.WithLabelValues(e.nodeID, "acquire").Inc()

		return false
	}

	return ok
}

func (e *RedisElector) renew(ctx context.Context) bool {
	val, err := renewScript.Run(ctx, e.client, []string{e.key}, e.nodeID, e.config.TTL.Milliseconds()).Int64()
	if err != nil {
		e.log.WithError(err).Error("Failed to renew leadership")
		pcommon.LeaderElectionErrors.WithLabelValues(e.nodeID, "renew").Inc()

		return false
	}

	if val != 1 {
		e.log.Warn("Failed to renew leadership - lock not owned by this node")
		pcommon.LeaderElectionErrors.WithLabelValues(e.nodeID, "renew").Inc()

		return false
	}

	return true
}

func (e *RedisElector) setLeader(ctx context.Context, leader bool) {
	e.mu.Lock()
	changed := e.isLeader != leader
	e.isLeader = leader
	e.mu.Unlock()

	if !changed {
		return
	}

	status, transition := 0.0, "lost"
	if leader {
		status, transition = 1, "gained"
	}

	pcommon.LeaderElectionStatus.WithLabelValues(e.nodeID).Set(status)
	pcommon.LeaderElectionTransitions.WithLabelValues(e.nodeID, transition).Inc()

	e.log.WithField("leader", leader).Info("Leadership changed")

	e.callbacksMu.RLock()
	callbacks := append([]LeadershipCallback{}, e.callbacks...)
	e.callbacksMu.RUnlock()

	for _, callback := range callbacks {
		callback(ctx, leader)
	}
}

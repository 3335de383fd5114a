// Package report persists run results.
package report

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/ethpandaops/eip3074-protection/pkg/runner"
)

var ErrNoResults = errors.New("no run results stored")

// Store keeps run results, newest first.
type Store interface {
	Save(ctx context.Context, result *runner.Result) error
	Latest(ctx context.Context) (*runner.Result, error)
	List(ctx context.Context, limit int64) ([]*runner.Result, error)
}

// RedisStore keeps results as JSON in a capped redis list.
type RedisStore struct {
	log        logrus.FieldLogger
	client     *redis.Client
	key        string
	maxEntries int64
}

var _ Store = (*RedisStore)(nil)

func NewRedisStore(log logrus.FieldLogger, client *redis.Client, prefix string, maxEntries int64) *RedisStore {
	return &RedisStore{
		log:        log.WithField("component", "report"),
		client:     client,
		key:        fmt.Sprintf("%s:runs", prefix),
		maxEntries: maxEntries,
	}
}

// Key returns the redis list holding the results.
func (s *RedisStore) Key() string {
	return s.key
}

func (s *RedisStore) Save(ctx context.Context, result *runner.Result) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.LPush(ctx, s.key, data)
	pipe.LTrim(ctx, s.key, 0, s.maxEntries-1)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to store result: %w", err)
	}

	s.log.WithFields(logrus.Fields{
		"id":  result.ID,
		"key": s.key,
	}).Debug("Stored run result")

	return nil
}

func (s *RedisStore) Latest(ctx context.Context) (*runner.Result, error) {
	results, err := s.List(ctx, 1)
	if err != nil {
		return nil, err
	}

	if len(results) == 0 {
		return nil, ErrNoResults
	}

	return results[0], nil
}

func (s *RedisStore) List(ctx context.Context, limit int64) ([]*runner.Result, error) {
	if limit <= 0 {
		return nil, nil
	}

	raw, err := s.client.LRange(ctx, s.key, 0, limit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read results: %w", err)
	}

	results := make([]*runner.Result, 0, len(raw))

	for _, item := range raw {
		var result runner.Result

		if err := json.Unmarshal([]byte(item), &result); err != nil {
			return nil, fmt.Errorf("failed to decode result: %w", err)
		}

		results = append(results, &result)
	}

	return results, nil
}

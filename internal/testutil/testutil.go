// Package testutil provides test helper utilities.
package testutil

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

// NewMiniredisClient creates a Redis client connected to an in-memory miniredis server.
// Both the server and client are automatically cleaned up when the test completes.
func NewMiniredisClient(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()

	s := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: s.Addr()})

	t.Cleanup(func() {
		_ = client.Close()
	})

	return client, s
}

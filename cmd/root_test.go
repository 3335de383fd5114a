package cmd

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethpandaops/eip3074-protection/internal/testutil"
	"github.com/ethpandaops/eip3074-protection/pkg/config"
	"github.com/ethpandaops/eip3074-protection/pkg/redis"
)

func TestRunOnce(t *testing.T) {
	log.SetLevel(logrus.ErrorLevel)

	cfg, err := config.New()
	require.NoError(t, err)

	client, mr := testutil.NewMiniredisClient(t)
	cfg.Redis = &redis.Config{Address: mr.Addr(), Prefix: "cmd", MaxEntries: 10}

	var out bytes.Buffer

	require.NoError(t, runOnce(context.Background(), cfg, &out))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)

	for _, line := range lines {
		assert.True(t, strings.HasPrefix(line, "Gas ratio: "), line)
	}

	stored, err := client.LLen(context.Background(), "cmd:runs").Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), stored)
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer

	versionCmd.SetOut(&out)
	versionCmd.Run(versionCmd, nil)

	assert.Contains(t, out.String(), "Version: dev")
}

package report_test

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethpandaops/eip3074-protection/internal/testutil"
	"github.com/ethpandaops/eip3074-protection/pkg/gasratio"
	"github.com/ethpandaops/eip3074-protection/pkg/report"
	"github.com/ethpandaops/eip3074-protection/pkg/runner"
)

func newStore(t *testing.T, maxEntries int64) *report.RedisStore {
	t.Helper()

	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)

	client, _ := testutil.NewMiniredisClient(t)

	return report.NewRedisStore(log, client, "test", maxEntries)
}

func result(i int) *runner.Result {
	return &runner.Result{
		ID:        strconv.Itoa(i),
		Network:   "dev",
		ChainID:   1337,
		StartedAt: time.Unix(int64(i), 0).UTC(),
		OnlyEOAs:  common.HexToAddress("0x1000000000000000000000000000000000000001"),
		Measurements: []runner.Measurement{{
			Method:  "doSomething",
			GasInfo: gasratio.GasInfo{Remaining: 6_000_000, Limit: 12_000_000},
			Ratio:   32,
		}},
	}
}

func TestRedisStore_Empty(t *testing.T) {
	store := newStore(t, 10)

	_, err := store.Latest(context.Background())
	require.ErrorIs(t, err, report.ErrNoResults)
}

func TestRedisStore_LatestFirst(t *testing.T) {
	store := newStore(t, 10)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		require.NoError(t, store.Save(ctx, result(i)))
	}

	latest, err := store.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, "3", latest.ID)
	assert.Equal(t, 32.0, latest.Measurements[0].Ratio)
	assert.Equal(t, uint64(12_000_000), latest.Measurements[0].GasInfo.Limit)

	all, err := store.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "1", all[2].ID)
}

func TestRedisStore_Capped(t *testing.T) {
	store := newStore(t, 2)
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		require.NoError(t, store.Save(ctx, result(i)))
	}

	all, err := store.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "5", all[0].ID)
	assert.Equal(t, "4", all[1].ID)
}

func TestRedisStore_Key(t *testing.T) {
	assert.Equal(t, "test:runs", newStore(t, 1).Key())
}

package gasratio_test

import (
	"math/big"
	"testing"

	"github.com/ethpandaops/eip3074-protection/pkg/gasratio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompute(t *testing.T) {
	tests := []struct {
		name      string
		remaining uint64
		limit     uint64
		expected  float64
	}{
		{name: "half", remaining: 6_000_000, limit: 12_000_000, expected: 32.0},
		{name: "full", remaining: 12_000_000, limit: 12_000_000, expected: 64.0},
		{name: "empty", remaining: 0, limit: 12_000_000, expected: 0.0},
		{name: "63/64 forwarded", remaining: 63, limit: 64, expected: 63.0},
		{name: "above limit", remaining: 24, limit: 12, expected: 128.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ratio, err := gasratio.Compute(tt.remaining, tt.limit)
			require.NoError(t, err)
			assert.InDelta(t, tt.expected, ratio, 1e-9)
		})
	}
}

func TestCompute_MatchesFormula(t *testing.T) {
	for _, limit := range []uint64{1, 7, 21_000, 12_000_000, 30_000_000} {
		for _, remaining := range []uint64{0, 1, limit / 3, limit - 1, limit} {
			ratio, err := gasratio.Compute(remaining, limit)
			require.NoError(t, err)
			assert.InDelta(t, float64(remaining)/float64(limit)*64.0, ratio, 1e-9)
		}
	}
}

func TestCompute_ZeroLimit(t *testing.T) {
	for _, remaining := range []uint64{0, 1, 12_000_000} {
		_, err := gasratio.Compute(remaining, 0)
		require.ErrorIs(t, err, gasratio.ErrZeroGasLimit)
	}
}

func TestNewGasInfo(t *testing.T) {
	info, err := gasratio.NewGasInfo(big.NewInt(6_000_000), big.NewInt(12_000_000))
	require.NoError(t, err)
	assert.Equal(t, gasratio.GasInfo{Remaining: 6_000_000, Limit: 12_000_000}, info)

	ratio, err := info.Ratio()
	require.NoError(t, err)
	assert.Equal(t, 32.0, ratio)

	overflow := new(big.Int).Lsh(big.NewInt(1), 70)

	_, err = gasratio.NewGasInfo(overflow, big.NewInt(1))
	assert.Error(t, err)

	_, err = gasratio.NewGasInfo(big.NewInt(1), overflow)
	assert.Error(t, err)

	_, err = gasratio.NewGasInfo(nil, big.NewInt(1))
	assert.Error(t, err)
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "32.0", gasratio.Format(32))
	assert.Equal(t, "0.0", gasratio.Format(0))
	assert.Equal(t, "64.0", gasratio.Format(64))
	assert.Equal(t, "63.5", gasratio.Format(63.5))
	assert.Equal(t, "0.125", gasratio.Format(0.125))
}

func TestFormat_Notation(t *testing.T) {
	tiny, err := gasratio.Compute(1, 12_000_000)
	require.NoError(t, err)

	huge, err := gasratio.Compute(1<<62, 1)
	require.NoError(t, err)

	tests := []struct {
		name  string
		ratio float64
		want  string
	}{
		{name: "one gas left at 12M", ratio: tiny, want: "5.333333333333334e-06"},
		{name: "huge", ratio: huge, want: "2.9514790517935283e+20"},
		{name: "smallest fixed", ratio: 0.0001, want: "0.0001"},
		{name: "largest fixed", ratio: 1e15, want: "1000000000000000.0"},
		{name: "first scientific", ratio: 1e16, want: "1e+16"},
		{name: "negative exponent", ratio: 0.00001, want: "1e-05"},
		{name: "negative", ratio: -2.5, want: "-2.5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, gasratio.Format(tt.ratio))
		})
	}
}

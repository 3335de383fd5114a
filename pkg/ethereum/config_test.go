package ethereum_test

import (
	"testing"
	"time"

	"github.com/creasty/defaults"
	"github.com/ethpandaops/eip3074-protection/pkg/ethereum"
	"github.com/ethpandaops/eip3074-protection/pkg/ethereum/execution"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_Defaults(t *testing.T) {
	config := &ethereum.Config{}
	require.NoError(t, defaults.Set(config))

	assert.Equal(t, uint64(12_000_000), config.GasLimit)
	assert.Zero(t, config.GasPrice)
	assert.Equal(t, time.Minute, config.ReceiptTimeout)
	assert.Equal(t, execution.NodeTypeSimulated, config.Execution.Type)
	assert.NoError(t, config.Validate())
}

func TestConfig_ZeroGasLimit(t *testing.T) {
	config := &ethereum.Config{}
	require.NoError(t, defaults.Set(config))

	config.GasLimit = 0
	assert.Error(t, config.Validate())
}
